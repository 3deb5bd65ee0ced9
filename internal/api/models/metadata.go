package models

import "github.com/weatherodds/weatherodds/internal/climate"

// ParameterInfo describes a supported analysis parameter.
type ParameterInfo struct {
	Key          string `json:"key"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Unit         string `json:"unit"`
	ProviderCode string `json:"providerCode"`
}

// ParameterCatalog lists the supported parameters and probability levels.
type ParameterCatalog struct {
	Items  []ParameterInfo `json:"items"`
	Levels []string        `json:"levels"`
}

// NewParameterCatalog builds the catalog from the parameter registry.
func NewParameterCatalog() ParameterCatalog {
	specs := climate.Parameters()
	items := make([]ParameterInfo, 0, len(specs))
	for _, s := range specs {
		items = append(items, ParameterInfo{
			Key:          string(s.Key),
			Title:        s.Title,
			Description:  s.Description,
			Unit:         s.Unit,
			ProviderCode: s.ProviderCode,
		})
	}

	return ParameterCatalog{
		Items: items,
		Levels: []string{
			string(climate.LevelVeryLow),
			string(climate.LevelLow),
			string(climate.LevelModerate),
			string(climate.LevelHigh),
			string(climate.LevelVeryHigh),
		},
	}
}
