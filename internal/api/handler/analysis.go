// Package handler provides HTTP handlers for the weatherodds API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/weatherodds/weatherodds/internal/api/models"
	"github.com/weatherodds/weatherodds/internal/api/response"
	"github.com/weatherodds/weatherodds/internal/climate"
	"github.com/weatherodds/weatherodds/internal/history"
)

// maxRequestBody bounds analysis request bodies.
const maxRequestBody = 64 << 10

// Export formats accepted by the export endpoints.
const (
	FormatCSV  = "csv"
	FormatText = "text"
)

// AnalysisHandler handles probability analysis endpoints.
type AnalysisHandler struct {
	service  *climate.Service
	store    history.Repository
	validate *validator.Validate
}

// NewAnalysisHandler creates a new AnalysisHandler. store may be nil, in
// which case results are not kept and lookups by ID report not found.
func NewAnalysisHandler(service *climate.Service, store history.Repository) *AnalysisHandler {
	return &AnalysisHandler{
		service:  service,
		store:    store,
		validate: NewValidator(),
	}
}

// NewValidator returns a validator that reports JSON field names and
// understands the "parameter" tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("parameter", func(fl validator.FieldLevel) bool {
		_, err := climate.ParseParameterKey(fl.Field().String())
		return err == nil
	})
	return v
}

// Analyze handles POST /v1/analyses - compute probabilities for a location and date.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	res, ok := h.run(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewAnalysisResponse(res))
}

// Export handles POST /v1/analyses:export?format=csv|text - render an analysis as a report.
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, ok := exportFormat(w, r)
	if !ok {
		return
	}

	res, ok := h.run(w, r)
	if !ok {
		return
	}
	writeExport(w, r, res, format)
}

// List handles GET /v1/analyses?limit= - recent analyses, newest first.
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, r, "invalid limit", []models.FieldError{
				{Field: "limit", Message: "must be a positive integer", Code: "min"},
			})
			return
		}
		limit = n
	}
	limit = history.ClampLimit(limit)

	if h.store == nil {
		response.JSON(w, r, http.StatusOK, models.NewAnalysisList(nil, limit))
		return
	}

	summaries, err := h.store.List(r.Context(), limit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list analyses")
		response.InternalError(w, r, "failed to list analyses")
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewAnalysisList(summaries, limit))
}

// Get handles GET /v1/analyses/{analysisId}.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewAnalysisResponse(res))
}

// ExportStored handles GET /v1/analyses/{analysisId}/export?format=csv|text.
func (h *AnalysisHandler) ExportStored(w http.ResponseWriter, r *http.Request) {
	format, ok := exportFormat(w, r)
	if !ok {
		return
	}

	res, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeExport(w, r, res, format)
}

func (h *AnalysisHandler) lookup(w http.ResponseWriter, r *http.Request) (*climate.AnalysisResult, bool) {
	id := chi.URLParam(r, "analysisId")
	if h.store == nil {
		response.NotFound(w, r, "analysis "+id+" not found")
		return nil, false
	}

	res, err := h.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		response.NotFound(w, r, "analysis "+id+" not found")
		return nil, false
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("analysis_id", id).Msg("failed to load analysis")
		response.InternalError(w, r, "failed to load analysis")
		return nil, false
	}
	return res, true
}

func exportFormat(w http.ResponseWriter, r *http.Request) (string, bool) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatText {
		response.BadRequest(w, r, "unsupported export format", []models.FieldError{
			{Field: "format", Message: "must be one of csv, text", Code: "oneof"},
		})
		return "", false
	}
	return format, true
}

func writeExport(w http.ResponseWriter, r *http.Request, res *climate.AnalysisResult, format string) {
	if format == FormatText {
		body := response.Attachment(w, r, "text/plain; charset=utf-8", "")
		_, _ = body.Write([]byte(climate.ShareText(res, climate.ReportMeta{})))
		return
	}

	filename := fmt.Sprintf("weather-analysis-%s.csv", res.ReferenceDate.Format(models.DateLayout))
	body := response.Attachment(w, r, "text/csv; charset=utf-8", filename)
	if err := climate.WriteCSV(body, res, climate.ReportMeta{}); err != nil {
		// Headers are already sent; the truncated body is all we can do.
		zerolog.Ctx(r.Context()).Error().Err(err).Str("analysis_id", res.ID).Msg("failed to write csv export")
	}
}

// run decodes, validates and analyzes the request body, writing a problem on failure.
func (h *AnalysisHandler) run(w http.ResponseWriter, r *http.Request) (*climate.AnalysisResult, bool) {
	var input models.AnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return nil, false
	}

	if err := h.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.BadRequest(w, r, "request validation failed", fieldErrors(verrs))
			return nil, false
		}
		response.InternalError(w, r, "request validation could not be performed")
		return nil, false
	}

	q, err := input.Query()
	if err != nil {
		writeValidationError(w, r, err)
		return nil, false
	}

	res, err := h.service.Analyze(r.Context(), q)
	if err != nil {
		writeValidationError(w, r, err)
		return nil, false
	}

	if h.store != nil {
		if err := h.store.Save(r.Context(), res); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("analysis_id", res.ID).Msg("failed to store analysis")
		}
	}
	return res, true
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *climate.ValidationError
	if errors.As(err, &verr) {
		response.BadRequest(w, r, verr.Error(), []models.FieldError{
			{Field: verr.Field, Message: verr.Reason},
		})
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zerolog.Ctx(r.Context()).Info().Err(err).Msg("analysis abandoned by client")
		response.ServiceUnavailable(w, r, "request was cancelled before the analysis ran")
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("analysis failed")
	response.InternalError(w, r, "analysis failed")
}

func fieldErrors(verrs validator.ValidationErrors) []models.FieldError {
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{
			Field:   fieldPath(fe),
			Message: fieldMessage(fe),
			Code:    fe.Tag(),
		})
	}
	return out
}

// fieldPath drops the struct name from the namespace: "AnalysisRequest.parameters[1]" -> "parameters[1]".
func fieldPath(fe validator.FieldError) string {
	if _, path, ok := strings.Cut(fe.Namespace(), "."); ok {
		return path
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "datetime":
		return "must be formatted as YYYY-MM-DD"
	case "min":
		return "must contain at least " + fe.Param() + " item(s)"
	case "max":
		return "must contain at most " + fe.Param() + " items"
	case "parameter":
		return fmt.Sprintf("unknown parameter %q", fe.Value())
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
