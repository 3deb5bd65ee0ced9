package climate

import (
	"fmt"
	"math"
)

const (
	kelvinOffset = 273.15

	// metersToMillimeters converts provider precipitation depth to millimeters.
	metersToMillimeters = 1000.0
)

// KelvinToCelsius converts a temperature and rounds to one decimal.
func KelvinToCelsius(k float64) float64 {
	return roundTo(k-kelvinOffset, 1)
}

// CelsiusToKelvin is the inverse of KelvinToCelsius, without rounding.
func CelsiusToKelvin(c float64) float64 {
	return c + kelvinOffset
}

// Normalize converts a raw sample from provider units to display units.
// The input is not modified.
func Normalize(key ParameterKey, sample RawSample) (RawSample, error) {
	spec, ok := Spec(key)
	if !ok {
		return RawSample{}, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	if len(sample.Values) == 0 {
		return RawSample{Values: []float64{}}, nil
	}

	out := make([]float64, len(sample.Values))
	for i, v := range sample.Values {
		out[i] = convert(spec, v)
	}
	return RawSample{Values: out}, nil
}

func convert(spec ParameterSpec, v float64) float64 {
	switch spec.Conversion {
	case ConvertKelvinToCelsius:
		return roundTo(v-kelvinOffset, spec.Decimals)
	case ConvertMetersToMillimeters:
		return roundTo(v*metersToMillimeters, spec.Decimals)
	default:
		return roundTo(v, spec.Decimals)
	}
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
