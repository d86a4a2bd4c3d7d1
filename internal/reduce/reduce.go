// Package reduce turns long raw sensor traces into short plot-ready series.
//
// Time-domain reductions either convert units sample by sample (thermocouples)
// or remove DC and collapse fixed-duration blocks into one aggregate value
// (accelerometers, electromagnetic probes). Spectral reductions live in
// spectrum.go. Every function is pure and safe to call from many goroutines.
package reduce

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reference values for converting mean-square volts to dBm.
const (
	ReferenceOhms  = 50.0
	ReferenceWatts = 1e-3
)

// Aggregator collapses the mean square of a block into one plotted value.
type Aggregator int

const (
	// AggregateRMS reports root-mean-square amplitude.
	AggregateRMS Aggregator = iota
	// AggregateDBm reports power in dBm across the reference load.
	AggregateDBm
)

func (a Aggregator) String() string {
	switch a {
	case AggregateRMS:
		return "rms"
	case AggregateDBm:
		return "dbm"
	default:
		return fmt.Sprintf("aggregator(%d)", int(a))
	}
}

// apply converts a mean-square value into the aggregator's unit.
func (a Aggregator) apply(meanSquare float64) float64 {
	if a == AggregateDBm {
		return PowerToDBm(meanSquare)
	}
	return math.Sqrt(meanSquare)
}

// PowerToDBm converts mean-square volts to dBm.
func PowerToDBm(meanSquare float64) float64 {
	return 10 * math.Log10(meanSquare/ReferenceOhms/ReferenceWatts)
}

// AggregateParams configures block aggregation.
type AggregateParams struct {
	ChunkSeconds float64
	Aggregator   Aggregator
	RemoveDC     bool
	// BestEffort clamps the block size to the sequence length instead of
	// failing when fewer samples than one block are available.
	BestEffort bool
}

// Series is a reduced pair of axes.
type Series struct {
	X []float64
	Y []float64
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Y) }

// BlockSize returns the number of samples aggregated into one point.
func BlockSize(chunkSeconds, sampleRate float64) int {
	n := int(math.Round(chunkSeconds * sampleRate))
	if n < 1 {
		return 1
	}
	return n
}

// Aggregate removes DC (when configured) and reduces each complete block of
// samples to one value. X holds the elapsed seconds of each block's first sample.
func Aggregate(samples []float64, sampleRate float64, p AggregateParams) (Series, error) {
	if err := validate(samples, sampleRate); err != nil {
		return Series{}, err
	}

	n := BlockSize(p.ChunkSeconds, sampleRate)
	if n > len(samples) {
		if !p.BestEffort {
			return Series{}, fmt.Errorf("%w: block of %d samples, have %d", ErrInsufficientData, n, len(samples))
		}
		n = len(samples)
	}

	data := samples
	if p.RemoveDC {
		data = RemoveDC(samples)
	}

	blocks := len(data) / n
	out := Series{
		X: make([]float64, blocks),
		Y: make([]float64, blocks),
	}

	for b := 0; b < blocks; b++ {
		block := data[b*n : (b+1)*n]
		out.X[b] = float64(b*n) / sampleRate
		out.Y[b] = p.Aggregator.apply(floats.Dot(block, block) / float64(n))
	}

	return out, nil
}

// RemoveDC returns a copy of samples with their mean subtracted.
func RemoveDC(samples []float64) []float64 {
	out := make([]float64, len(samples))
	if len(samples) == 0 {
		return out
	}
	copy(out, samples)
	floats.AddConst(-stat.Mean(samples, nil), out)
	return out
}

// Fahrenheit converts Celsius samples to Fahrenheit. X is elapsed minutes.
func Fahrenheit(samples []float64, sampleRate float64) (Series, error) {
	if err := validate(samples, sampleRate); err != nil {
		return Series{}, err
	}

	out := Series{
		X: make([]float64, len(samples)),
		Y: make([]float64, len(samples)),
	}
	for i, c := range samples {
		out.X[i] = float64(i) / sampleRate / 60
		out.Y[i] = c*9/5 + 32
	}

	return out, nil
}

// Decimate keeps every stride-th sample, where the stride covers skipSeconds
// (at least one sample). It returns the kept samples and their effective rate.
func Decimate(samples []float64, sampleRate, skipSeconds float64) ([]float64, float64, error) {
	if err := validate(samples, sampleRate); err != nil {
		return nil, 0, err
	}

	stride := int(skipSeconds * sampleRate)
	if stride < 1 {
		stride = 1
	}
	if stride == 1 {
		return samples, sampleRate, nil
	}

	out := make([]float64, 0, (len(samples)+stride-1)/stride)
	for i := 0; i < len(samples); i += stride {
		out = append(out, samples[i])
	}

	return out, sampleRate / float64(stride), nil
}

// ExcerptLength returns min(int(seconds*rate), n) rounded down to an even count.
func ExcerptLength(n int, sampleRate, seconds float64) int {
	m := int(seconds * sampleRate)
	if m > n {
		m = n
	}
	if m < 0 {
		m = 0
	}
	return m / 2 * 2
}

// Excerpt returns the even-length prefix used as spectral input.
func Excerpt(samples []float64, sampleRate, seconds float64) ([]float64, error) {
	if err := validate(samples, sampleRate); err != nil {
		return nil, err
	}
	return samples[:ExcerptLength(len(samples), sampleRate, seconds)], nil
}
