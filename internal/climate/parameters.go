package climate

import (
	"fmt"
	"strings"
)

// ParameterKey identifies a tracked weather variable or derived condition.
type ParameterKey string

const (
	ParamTemperature   ParameterKey = "temperature"
	ParamPrecipitation ParameterKey = "precipitation"
	ParamWind          ParameterKey = "wind"
	ParamHumidity      ParameterKey = "humidity"

	ParamVeryHot           ParameterKey = "veryHot"
	ParamVeryCold          ParameterKey = "veryCold"
	ParamVeryWindy         ParameterKey = "veryWindy"
	ParamVeryWet           ParameterKey = "veryWet"
	ParamVeryUncomfortable ParameterKey = "veryUncomfortable"
)

// Conversion selects the unit conversion applied by the normalizer.
type Conversion int

const (
	ConvertPassThrough Conversion = iota
	ConvertKelvinToCelsius
	ConvertMetersToMillimeters
)

// ParameterSpec is the static configuration of a parameter key.
type ParameterSpec struct {
	Key          ParameterKey
	ProviderCode string
	Unit         string
	Conversion   Conversion
	// Decimals is the display precision for values and statistics.
	Decimals    int
	Title       string
	Description string
}

var parameterSpecs = []ParameterSpec{
	{
		Key:          ParamTemperature,
		ProviderCode: "T2M",
		Unit:         "°C",
		Conversion:   ConvertKelvinToCelsius,
		Decimals:     1,
		Title:        "Temperature",
		Description:  "Air temperature at 2 meters",
	},
	{
		Key:          ParamPrecipitation,
		ProviderCode: "PRECTOT",
		Unit:         "mm",
		Conversion:   ConvertMetersToMillimeters,
		Decimals:     0,
		Title:        "Precipitation",
		Description:  "Daily total precipitation",
	},
	{
		Key:          ParamWind,
		ProviderCode: "WS2M",
		Unit:         "m/s",
		Conversion:   ConvertPassThrough,
		Decimals:     2,
		Title:        "Wind Speed",
		Description:  "Wind speed at 2 meters",
	},
	{
		Key:          ParamHumidity,
		ProviderCode: "RH2M",
		Unit:         "%",
		Conversion:   ConvertPassThrough,
		Decimals:     2,
		Title:        "Humidity",
		Description:  "Relative humidity at 2 meters",
	},
	{
		Key:          ParamVeryHot,
		ProviderCode: "T2M_MAX",
		Unit:         "°C",
		Conversion:   ConvertKelvinToCelsius,
		Decimals:     1,
		Title:        "Very Hot",
		Description:  "Probability of extreme heat conditions",
	},
	{
		Key:          ParamVeryCold,
		ProviderCode: "T2M_MIN",
		Unit:         "°C",
		Conversion:   ConvertKelvinToCelsius,
		Decimals:     1,
		Title:        "Very Cold",
		Description:  "Probability of extreme cold conditions",
	},
	{
		Key:          ParamVeryWindy,
		ProviderCode: "WS2M_MAX",
		Unit:         "m/s",
		Conversion:   ConvertPassThrough,
		Decimals:     2,
		Title:        "Very Windy",
		Description:  "Probability of high wind conditions",
	},
	{
		Key:          ParamVeryWet,
		ProviderCode: "PRECTOT",
		Unit:         "mm",
		Conversion:   ConvertMetersToMillimeters,
		Decimals:     0,
		Title:        "Very Wet",
		Description:  "Probability of heavy precipitation",
	},
	{
		Key:          ParamVeryUncomfortable,
		ProviderCode: "RH2M",
		Unit:         "%",
		Conversion:   ConvertPassThrough,
		Decimals:     2,
		Title:        "Very Uncomfortable",
		Description:  "Probability of poor comfort conditions",
	},
}

var specsByKey = func() map[ParameterKey]ParameterSpec {
	m := make(map[ParameterKey]ParameterSpec, len(parameterSpecs))
	for _, s := range parameterSpecs {
		m[s.Key] = s
	}
	return m
}()

// Parameters returns the registry in its canonical order.
func Parameters() []ParameterSpec {
	out := make([]ParameterSpec, len(parameterSpecs))
	copy(out, parameterSpecs)
	return out
}

// Spec returns the configuration for a key.
func Spec(key ParameterKey) (ParameterSpec, bool) {
	s, ok := specsByKey[key]
	return s, ok
}

// ParseParameterKey resolves a key, case-insensitively.
func ParseParameterKey(s string) (ParameterKey, error) {
	s = strings.TrimSpace(s)
	for _, spec := range parameterSpecs {
		if strings.EqualFold(string(spec.Key), s) {
			return spec.Key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownParameter, s)
}

// ProviderCodes returns the de-duplicated provider codes for keys, in first-seen order.
func ProviderCodes(keys []ParameterKey) []string {
	seen := make(map[string]struct{}, len(keys))
	codes := make([]string, 0, len(keys))
	for _, k := range keys {
		spec, ok := specsByKey[k]
		if !ok {
			continue
		}
		if _, dup := seen[spec.ProviderCode]; dup {
			continue
		}
		seen[spec.ProviderCode] = struct{}{}
		codes = append(codes, spec.ProviderCode)
	}
	return codes
}
