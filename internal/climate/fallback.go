package climate

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"
)

// FallbackSource produces synthetic raw samples, in provider units, when the
// provider cannot be reached.
type FallbackSource interface {
	Sample(key ParameterKey, coord Coordinate, ref time.Time) RawSample
}

// valueRange is a plausible interval in provider-native units.
type valueRange struct {
	min float64
	max float64
}

// Ranges mirror the original mock data: 18-32 °C, 0-30 mm, 1-6 m/s, 45-85 %.
var fallbackRanges = map[ParameterKey]valueRange{
	ParamTemperature:       {min: 291.15, max: 305.15},
	ParamPrecipitation:     {min: 0, max: 0.030},
	ParamWind:              {min: 1, max: 6},
	ParamHumidity:          {min: 45, max: 85},
	ParamVeryHot:           {min: 298.15, max: 311.15},
	ParamVeryCold:          {min: 263.15, max: 281.15},
	ParamVeryWindy:         {min: 4, max: 14},
	ParamVeryWet:           {min: 0, max: 0.045},
	ParamVeryUncomfortable: {min: 55, max: 95},
}

// DefaultFallbackSamples is the series length produced by SeededFallback.
const DefaultFallbackSamples = 30

// SeededFallback generates deterministic pseudo-random series. The same seed,
// key, coordinate and reference day always produce the same values.
type SeededFallback struct {
	seed    uint64
	samples int
}

// NewSeededFallback creates a seeded generator. samples <= 0 uses the default.
func NewSeededFallback(seed uint64, samples int) *SeededFallback {
	if samples <= 0 {
		samples = DefaultFallbackSamples
	}
	return &SeededFallback{seed: seed, samples: samples}
}

// Sample implements FallbackSource.
func (f *SeededFallback) Sample(key ParameterKey, coord Coordinate, ref time.Time) RawSample {
	r, ok := fallbackRanges[key]
	if !ok {
		return RawSample{Values: []float64{}}
	}

	rng := rand.New(rand.NewPCG(f.seed, streamFor(key, coord, ref)))
	values := make([]float64, f.samples)
	for i := range values {
		values[i] = r.min + rng.Float64()*(r.max-r.min)
	}
	return RawSample{Values: values}
}

func streamFor(key ParameterKey, coord Coordinate, ref time.Time) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(coord.Lat))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(coord.Lon))
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(ref.UTC().Format("20060102")))
	return h.Sum64()
}

// FixtureFallback serves fixed series per key, regardless of location.
type FixtureFallback struct {
	Series map[ParameterKey][]float64
}

// Sample implements FallbackSource.
func (f FixtureFallback) Sample(key ParameterKey, _ Coordinate, _ time.Time) RawSample {
	values := f.Series[key]
	out := make([]float64, len(values))
	copy(out, values)
	return RawSample{Values: out}
}
