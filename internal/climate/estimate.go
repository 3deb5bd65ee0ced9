package climate

import (
	"fmt"
	"math"
)

const (
	// ProbabilityFloor and ProbabilityCeiling bound the consistency score.
	ProbabilityFloor   = 30
	ProbabilityCeiling = 95

	// NeutralProbability is used when the sample mean is zero.
	NeutralProbability = 50
)

// Estimate computes the statistic and probability estimate for a normalized sample.
// Both results are nil for an empty sample.
func Estimate(key ParameterKey, normalized RawSample) (*Statistic, *ProbabilityEstimate, error) {
	spec, ok := Spec(key)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	if len(normalized.Values) == 0 {
		return nil, nil, nil
	}

	mean, minV, maxV := describe(normalized.Values)
	stat := &Statistic{
		Average:     roundTo(mean, spec.Decimals),
		Min:         roundTo(minV, spec.Decimals),
		Max:         roundTo(maxV, spec.Decimals),
		SampleCount: len(normalized.Values),
	}

	p := ConsistencyScore(normalized.Values)
	level := LevelFor(float64(p))
	est := &ProbabilityEstimate{
		Parameter:          key,
		ProbabilityPercent: p,
		Level:              level,
		Recommendation:     Recommendation(key, level),
	}
	return stat, est, nil
}

// ConsistencyScore maps the coefficient of variation of values to [30, 95].
// A zero mean yields NeutralProbability. values must be non-empty.
func ConsistencyScore(values []float64) int {
	mean, _, _ := describe(values)
	if mean == 0 {
		return NeutralProbability
	}

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	sigma := math.Sqrt(sumSq / float64(len(values)))

	score := 100 - (sigma / math.Abs(mean) * 100)
	score = math.Max(ProbabilityFloor, math.Min(ProbabilityCeiling, score))
	return int(math.Round(score))
}

func describe(values []float64) (mean, minV, maxV float64) {
	minV, maxV = values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return sum / float64(len(values)), minV, maxV
}

// LevelFor maps a probability percentage to its qualitative level.
func LevelFor(p float64) Level {
	switch {
	case p < 20:
		return LevelVeryLow
	case p < 40:
		return LevelLow
	case p < 60:
		return LevelModerate
	case p < 80:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}

type severity int

const (
	severityLow severity = iota
	severityModerate
	severityHigh
)

func severityOf(l Level) severity {
	switch l {
	case LevelVeryLow, LevelLow:
		return severityLow
	case LevelModerate:
		return severityModerate
	default:
		return severityHigh
	}
}

var recommendations = map[ParameterKey][3]string{
	ParamTemperature: {
		"Temperatures vary widely for this date; check a short-range forecast before committing",
		"Temperatures are moderately consistent; pack for a range around the average",
		"Temperatures are reliably close to the average; plan around it",
	},
	ParamPrecipitation: {
		"Rainfall is unpredictable for this date; keep a backup plan",
		"Rainfall follows a loose pattern; bring rain gear just in case",
		"Rainfall is consistent year to year; the average is a good guide",
	},
	ParamWind: {
		"Wind conditions swing widely; secure outdoor equipment",
		"Wind is moderately steady; expect occasional gusts",
		"Wind is steady around the average; plan accordingly",
	},
	ParamHumidity: {
		"Humidity varies a lot for this date; dress for both dry and muggy air",
		"Humidity is fairly stable; expect conditions near the average",
		"Humidity is consistently near the average; plan comfort needs around it",
	},
	ParamVeryHot: {
		"Extreme heat is unlikely but possible; keep water on hand",
		"Consider planning activities for cooler times of day",
		"Expect heat; schedule outdoor activity early or late and seek shade",
	},
	ParamVeryCold: {
		"Extreme cold is unlikely; light layers should suffice",
		"Dress in layers and plan indoor alternatives",
		"Expect cold; wear insulated clothing and limit exposure",
	},
	ParamVeryWindy: {
		"Strong wind is unlikely; no special precautions needed",
		"Secure loose items and consider wind-protected locations",
		"Expect strong wind; avoid exposed sites and tie down equipment",
	},
	ParamVeryWet: {
		"Heavy rain is unlikely; an umbrella is enough",
		"Have indoor alternatives and waterproof gear ready",
		"Expect heavy rain; move plans indoors where possible",
	},
	ParamVeryUncomfortable: {
		"Uncomfortable conditions are unlikely; outdoor plans should be fine",
		"Plan for climate-controlled environments",
		"Expect oppressive conditions; keep activities short and stay hydrated",
	},
}

// Recommendation returns the static advice text for a parameter and level.
func Recommendation(key ParameterKey, level Level) string {
	texts, ok := recommendations[key]
	if !ok {
		return ""
	}
	return texts[severityOf(level)]
}
