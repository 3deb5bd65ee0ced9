package handler

import (
	"net/http"

	"github.com/weatherodds/weatherodds/internal/api/models"
	"github.com/weatherodds/weatherodds/internal/api/response"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct {
	catalog models.ParameterCatalog
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{catalog: models.NewParameterCatalog()}
}

// ListParameters handles GET /v1/metadata/parameters - supported parameters and levels.
func (h *MetadataHandler) ListParameters(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.catalog)
}
