package dispatch

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/sensorscope/internal/reduce"
	"github.com/RMahshie/sensorscope/pkg/models"
)

func tone(freqHz, sampleRate, amplitude, offset float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = offset + amplitude*math.Sin(2*math.Pi*freqHz*float64(i)/sampleRate)
	}
	return out
}

var start = time.Date(2024, 3, 5, 14, 30, 15, 0, time.UTC)

func TestProfileFor(t *testing.T) {
	tests := []struct {
		class       models.SensorClass
		store       string
		hasTime     bool
		hasSpectral bool
	}{
		{models.ClassGeneric, models.StoreGeneric, false, false},
		{models.ClassThermocouple, models.StoreThermocouple, true, false},
		{models.ClassAccelerometer, models.StoreAccelerometer, true, true},
		{models.ClassElectromagnetic, models.StoreElectromagnetic, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			p, err := ProfileFor(tt.class)
			require.NoError(t, err)
			assert.Equal(t, tt.store, p.StoreID)
			assert.Equal(t, tt.store, StoreFor(tt.class))
			assert.Equal(t, tt.hasTime, p.Time != nil)
			assert.Equal(t, tt.hasSpectral, p.Spectral != nil)
		})
	}

	_, err := ProfileFor("seismometer")
	assert.Error(t, err)

	res, err := New(Options{}).ProcessBatch(context.Background(), []models.Channel{{Name: "odd", Class: "seismometer", SampleRate: 1, Samples: []float64{1}}})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Empty(t, res.Failures[0].Kind)
	assert.Equal(t, models.StoreGeneric, StoreFor("seismometer"))
}

func TestProcessChannelThermocouple(t *testing.T) {
	// 10 Hz for 60 s, decimated to one sample per half second.
	samples := make([]float64, 600)
	for i := range samples {
		samples[i] = 100
	}
	ch := models.Channel{Name: "TC-01", Class: models.ClassThermocouple, SampleRate: 10, StartTime: start, Samples: samples}

	series, err := New(Options{}).ProcessChannel(ch)
	require.NoError(t, err)
	require.Len(t, series, 1)

	s := series[0]
	assert.Equal(t, models.KindTime, s.Kind)
	assert.Len(t, s.Y, 120)
	for _, v := range s.Y {
		assert.Equal(t, 212.0, v)
	}
	assert.InDelta(t, 0.5/60, s.X[1], 1e-12)
	assert.Equal(t, "Time (mins) since 2024-03-05 -- 14:30:15", s.XLabel)
	assert.Equal(t, "Temperature (deg F)", s.YLabel)
	assert.Equal(t, "TC-01", s.Title)
	assert.Equal(t, 0.5, s.TickSpacing)
	assert.False(t, s.LogScale)
}

func TestProcessChannelAccelerometer(t *testing.T) {
	ch := models.Channel{
		Name:       "ACC-X",
		Class:      models.ClassAccelerometer,
		SampleRate: 1000,
		StartTime:  start,
		Samples:    tone(50, 1000, math.Sqrt2, 0.3, 10000),
	}

	series, err := New(Options{}).ProcessChannel(ch)
	require.NoError(t, err)
	require.Len(t, series, 2)

	freq := series[0]
	assert.Equal(t, models.KindFrequency, freq.Kind)
	assert.Equal(t, "Frequency (kHz)", freq.XLabel)
	assert.Equal(t, "Signal spectrum (g's)", freq.YLabel)
	assert.True(t, freq.LogScale)
	assert.Equal(t, 1.0, freq.TickSpacing)
	// One second excerpt: 1000-point window, bins every 1 Hz up to 0.5 kHz.
	assert.Len(t, freq.X, 501)
	assert.InDelta(t, 0.5, freq.X[len(freq.X)-1], 1e-12)

	tm := series[1]
	assert.Equal(t, models.KindTime, tm.Kind)
	assert.Len(t, tm.Y, 20)
	for _, v := range tm.Y {
		assert.InEpsilon(t, 1.0, v, 0.01)
	}
	assert.Equal(t, "Time (sec) since 2024-03-05 -- 14:30:15", tm.XLabel)
	assert.True(t, tm.LogScale)
	assert.Equal(t, 5.0, tm.TickSpacing)
}

func TestProcessChannelElectromagnetic(t *testing.T) {
	const rate = 100e3
	ch := models.Channel{
		Name:       "EH-1",
		Class:      models.ClassElectromagnetic,
		SampleRate: rate,
		Samples:    tone(5e3, rate, 0.1, 0, 200000),
	}

	series, err := New(Options{}).ProcessChannel(ch)
	require.NoError(t, err)
	require.Len(t, series, 2)

	freq := series[0]
	assert.Equal(t, "Signal power (dBm at DAQ input, rbw = 50 Hz)", freq.YLabel)
	assert.False(t, freq.LogScale)
	assert.Equal(t, 100.0, freq.TickSpacing)

	// Time path decimates to 100 Hz and aggregates 10-sample blocks over 2 s.
	tm := series[1]
	assert.Len(t, tm.Y, 20)
	assert.InDelta(t, 0.1, tm.X[1], 1e-12)
	assert.Equal(t, "Signal power (dBm at DAQ)", tm.YLabel)
	assert.Equal(t, "Time (sec) since start", tm.XLabel)
}

func TestProcessChannelGeneric(t *testing.T) {
	series, err := New(Options{}).ProcessChannel(models.Channel{Name: "misc", Class: models.ClassGeneric, SampleRate: 1, Samples: []float64{1}})
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestProcessChannelTooShort(t *testing.T) {
	// 0.3 s of accelerometer data is less than one 0.5 s block.
	ch := models.Channel{Name: "ACC-short", Class: models.ClassAccelerometer, SampleRate: 1000, Samples: tone(50, 1000, 1, 0, 300)}

	series, err := New(Options{}).ProcessChannel(ch)
	assert.ErrorIs(t, err, reduce.ErrInsufficientData)
	require.Len(t, series, 1)
	assert.Equal(t, models.KindFrequency, series[0].Kind)

	series, err = New(Options{BestEffort: true}).ProcessChannel(ch)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Len(t, series[1].Y, 1)
}

func TestProcessChannelKeepsTimeWhenSpectrumFails(t *testing.T) {
	// At 150 Hz the 0.01 s spectrogram window holds no samples, but 0.1 s
	// aggregation blocks of 15 samples are fine.
	ch := models.Channel{Name: "EH-slow", Class: models.ClassElectromagnetic, SampleRate: 150, Samples: tone(20, 150, 0.1, 0, 9000)}

	series, err := New(Options{}).ProcessChannel(ch)
	require.Error(t, err)
	assert.ErrorIs(t, err, reduce.ErrWindowTooShort)

	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.KindFrequency, pe.Kind)
	assert.Contains(t, err.Error(), "channel EH-slow: spectrum:")

	require.Len(t, series, 1)
	assert.Equal(t, models.KindTime, series[0].Kind)
	assert.NotEmpty(t, series[0].Y)

	t.Run("batch keeps the time plot", func(t *testing.T) {
		res, err := New(Options{}).ProcessBatch(context.Background(), []models.Channel{ch})
		require.NoError(t, err)
		require.Len(t, res.Series, 1)
		assert.Equal(t, models.KindTime, res.Series[0].Kind)
		require.Len(t, res.Failures, 1)
		assert.Equal(t, "EH-slow", res.Failures[0].Channel)
		assert.Equal(t, models.KindFrequency, res.Failures[0].Kind)
	})

	t.Run("abort still stops the batch", func(t *testing.T) {
		_, err := New(Options{Policy: PolicyAbort}).ProcessBatch(context.Background(), []models.Channel{ch})
		assert.ErrorIs(t, err, reduce.ErrWindowTooShort)
	})
}

func TestProcessBatch(t *testing.T) {
	good := models.Channel{Name: "ACC-good", Class: models.ClassAccelerometer, SampleRate: 1000, Samples: tone(50, 1000, 1, 0, 2000)}
	bad := models.Channel{Name: "ACC-bad", Class: models.ClassAccelerometer, SampleRate: 0, Samples: []float64{1, 2}}
	thermo := models.Channel{Name: "TC", Class: models.ClassThermocouple, SampleRate: 2, Samples: []float64{0, 100, 50}}

	t.Run("skip keeps going", func(t *testing.T) {
		d := New(Options{Policy: PolicySkip, Workers: 2})
		res, err := d.ProcessBatch(context.Background(), []models.Channel{good, bad, thermo})
		require.NoError(t, err)
		require.Len(t, res.Series, 3)
		assert.Equal(t, "ACC-good", res.Series[0].Channel)
		assert.Equal(t, "ACC-good", res.Series[1].Channel)
		assert.Equal(t, "TC", res.Series[2].Channel)
		// both paths of the bad channel fail
		require.Len(t, res.Failures, 2)
		assert.Equal(t, "ACC-bad", res.Failures[0].Channel)
		assert.Equal(t, models.KindFrequency, res.Failures[0].Kind)
		assert.Equal(t, models.KindTime, res.Failures[1].Kind)
		assert.Contains(t, res.Failures[0].Error, reduce.ErrInvalidChannel.Error())
	})

	t.Run("abort returns the error", func(t *testing.T) {
		d := New(Options{Policy: PolicyAbort})
		_, err := d.ProcessBatch(context.Background(), []models.Channel{good, bad, thermo})
		assert.ErrorIs(t, err, reduce.ErrInvalidChannel)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(Options{}).ProcessBatch(ctx, []models.Channel{good})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("ABORT")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	p, err = ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	_, err = ParseFailurePolicy("retry")
	assert.Error(t, err)
}
