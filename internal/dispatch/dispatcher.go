// Package dispatch picks and runs the reductions for each channel of a recording.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/RMahshie/sensorscope/internal/reduce"
	"github.com/RMahshie/sensorscope/pkg/models"
)

// FailurePolicy decides what a batch does when one channel fails
type FailurePolicy string

const (
	// PolicySkip logs the failing channel and keeps going
	PolicySkip FailurePolicy = "skip"
	// PolicyAbort stops the batch at the first failing channel
	PolicyAbort FailurePolicy = "abort"
)

// ParseFailurePolicy parses a configured policy name
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicySkip, "":
		return PolicySkip, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown failure policy: %q", s)
	}
}

// Options configures a Dispatcher
type Options struct {
	// BestEffort clamps aggregation blocks for channels shorter than one block
	BestEffort bool
	Policy     FailurePolicy
	// Workers bounds how many channels are reduced at once. Zero or less means one per channel.
	Workers int
}

// BatchResult holds the series of every channel that succeeded, in channel order
type BatchResult struct {
	Series   []models.ReducedSeries
	Failures []models.ChannelFailure
}

// Dispatcher reduces channels according to their class profile
type Dispatcher struct {
	opts Options
}

// New creates a dispatcher
func New(opts Options) *Dispatcher {
	if opts.Policy == "" {
		opts.Policy = PolicySkip
	}
	return &Dispatcher{opts: opts}
}

// PathError is the failure of one reduction path of a channel
type PathError struct {
	Channel string
	Kind    models.SeriesKind
	Err     error
}

func (e *PathError) Error() string {
	path := "time series"
	if e.Kind == models.KindFrequency {
		path = "spectrum"
	}
	return fmt.Sprintf("channel %s: %s: %v", e.Channel, path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// ProcessChannel returns the plots for one channel: the spectrum first (when
// the class has one), then the time series. Generic channels produce none.
//
// The two paths are independent. A failing path is reported as a *PathError
// (joined when both fail) alongside the series of the path that succeeded.
func (d *Dispatcher) ProcessChannel(ch models.Channel) ([]models.ReducedSeries, error) {
	profile, err := ProfileFor(ch.Class)
	if err != nil {
		return nil, err
	}

	var out []models.ReducedSeries
	var errs []error

	if profile.Spectral != nil {
		s, err := d.spectral(ch, *profile.Spectral)
		if err != nil {
			errs = append(errs, &PathError{Channel: ch.Name, Kind: models.KindFrequency, Err: err})
		} else {
			out = append(out, s)
		}
	}

	if profile.Time != nil {
		s, err := d.timeSeries(ch, *profile.Time)
		if err != nil {
			errs = append(errs, &PathError{Channel: ch.Name, Kind: models.KindTime, Err: err})
		} else {
			out = append(out, s)
		}
	}

	return out, errors.Join(errs...)
}

// channelFailures splits a ProcessChannel error into one failure per path
func channelFailures(ch models.Channel, err error) []models.ChannelFailure {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	out := make([]models.ChannelFailure, 0, len(errs))
	for _, e := range errs {
		f := models.ChannelFailure{Channel: ch.Name, Error: e.Error()}
		var pe *PathError
		if errors.As(e, &pe) {
			f.Kind = pe.Kind
		}
		out = append(out, f)
	}
	return out
}

func (d *Dispatcher) timeSeries(ch models.Channel, tp TimePlot) (models.ReducedSeries, error) {
	samples, rate, err := reduce.Decimate(ch.Samples, ch.SampleRate, tp.Decimation)
	if err != nil {
		return models.ReducedSeries{}, err
	}

	var series reduce.Series
	switch tp.Reduction {
	case TimeFahrenheit:
		series, err = reduce.Fahrenheit(samples, rate)
	case TimeAggregate:
		params := tp.Aggregate
		params.BestEffort = d.opts.BestEffort
		series, err = reduce.Aggregate(samples, rate, params)
	default:
		err = fmt.Errorf("unknown time reduction %d", tp.Reduction)
	}
	if err != nil {
		return models.ReducedSeries{}, err
	}

	return models.ReducedSeries{
		Channel:     ch.Name,
		Kind:        models.KindTime,
		X:           series.X,
		Y:           series.Y,
		XLabel:      fmt.Sprintf(tp.XLabel, ch.StartLabel()),
		YLabel:      tp.YLabel,
		Title:       ch.Name,
		TickSpacing: tp.TickSpacing,
		LogScale:    tp.LogScale,
	}, nil
}

func (d *Dispatcher) spectral(ch models.Channel, sp SpectralPlot) (models.ReducedSeries, error) {
	excerpt, err := reduce.Excerpt(ch.Samples, ch.SampleRate, sp.Excerpt)
	if err != nil {
		return models.ReducedSeries{}, err
	}

	spec, err := reduce.AveragedSpectrum(excerpt, ch.SampleRate, sp.Params)
	if err != nil {
		return models.ReducedSeries{}, err
	}

	khz := make([]float64, len(spec.FreqHz))
	for i, f := range spec.FreqHz {
		khz[i] = f / 1e3
	}

	yLabel := sp.YLabel
	if sp.ShowRBW {
		yLabel = fmt.Sprintf(sp.YLabel, fmt.Sprintf("%2.0f", spec.RBW()))
	}

	return models.ReducedSeries{
		Channel:     ch.Name,
		Kind:        models.KindFrequency,
		X:           khz,
		Y:           spec.Values,
		XLabel:      "Frequency (kHz)",
		YLabel:      yLabel,
		Title:       ch.Name,
		TickSpacing: sp.TickSpacing,
		LogScale:    sp.LogScale,
	}, nil
}

// ProcessBatch reduces channels concurrently. With PolicyAbort the first
// failure cancels the batch and is returned; with PolicySkip failures are
// logged and reported in the result, one per failed path, and the plots of
// the paths that succeeded are kept.
func (d *Dispatcher) ProcessBatch(ctx context.Context, channels []models.Channel) (BatchResult, error) {
	perChannel := make([][]models.ReducedSeries, len(channels))
	failed := make([][]models.ChannelFailure, len(channels))

	g, ctx := errgroup.WithContext(ctx)
	if d.opts.Workers > 0 {
		g.SetLimit(d.opts.Workers)
	}

	for i, ch := range channels {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			series, err := d.ProcessChannel(ch)
			if err != nil {
				if d.opts.Policy == PolicyAbort {
					return err
				}
				log.Warn().Err(err).Str("channel", ch.Name).Str("class", string(ch.Class)).Int("plots", len(series)).Msg("Skipping failed reductions")
				failed[i] = channelFailures(ch, err)
			}

			perChannel[i] = series
			log.Debug().Str("channel", ch.Name).Int("plots", len(series)).Msg("Channel reduced")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for i, s := range perChannel {
		result.Series = append(result.Series, s...)
		result.Failures = append(result.Failures, failed[i]...)
	}

	return result, nil
}
