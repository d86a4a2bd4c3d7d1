// Package export builds the time-indexed table views written to analytical stores.
package export

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/RMahshie/sensorscope/pkg/models"
)

// DefaultFraction is the share of rows kept when subsampling a recording
const DefaultFraction = 0.01

var errNoChannels = errors.New("table needs at least one channel")

// SampleIndices draws round(fraction*n) distinct indices from [0, n) in
// ascending order. Every index is equally likely to be kept.
func SampleIndices(n int, fraction float64, rng *rand.Rand) []int {
	if n <= 0 || fraction <= 0 {
		return nil
	}
	k := int(math.Round(fraction * float64(n)))
	if k > n {
		k = n
	}

	if k == 0 {
		return nil
	}

	out := make([]int, k)
	sampleuv.WithoutReplacement(out, n, rng)
	sort.Ints(out)
	return out
}

// Subsample builds a table from channels sharing one time base, keeping a
// random fraction of rows sorted by time. Timestamps are epoch nanoseconds of
// each kept sample.
func Subsample(channels []models.Channel, fraction float64, rng *rand.Rand) (models.Table, error) {
	if len(channels) == 0 {
		return models.Table{}, errNoChannels
	}

	base := channels[0]
	if base.SampleRate <= 0 {
		return models.Table{}, fmt.Errorf("channel %s: sample rate must be > 0: %v", base.Name, base.SampleRate)
	}

	columns := make([]string, len(channels))
	for i, ch := range channels {
		if len(ch.Samples) != len(base.Samples) || ch.SampleRate != base.SampleRate {
			return models.Table{}, fmt.Errorf("channel %s does not share the time base of %s", ch.Name, base.Name)
		}
		columns[i] = ch.Name
	}

	var startNs int64
	if !base.StartTime.IsZero() {
		startNs = base.StartTime.UnixNano()
	}
	indices := SampleIndices(len(base.Samples), fraction, rng)
	rows := make([]models.TableRow, len(indices))
	for r, idx := range indices {
		values := make([]float64, len(channels))
		for c, ch := range channels {
			values[c] = ch.Samples[idx]
		}
		rows[r] = models.TableRow{
			EpochNs: startNs + int64(math.Round(float64(idx)/base.SampleRate*1e9)),
			Values:  values,
		}
	}

	return models.Table{Columns: columns, Rows: rows}, nil
}
