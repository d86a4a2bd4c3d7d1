package dispatch

import (
	"fmt"

	"github.com/RMahshie/sensorscope/internal/reduce"
	"github.com/RMahshie/sensorscope/pkg/models"
)

// TimeReduction selects the time-domain reduction for a class
type TimeReduction int

const (
	// TimeFahrenheit converts every kept sample from Celsius to Fahrenheit
	TimeFahrenheit TimeReduction = iota
	// TimeAggregate removes DC and collapses fixed-duration blocks
	TimeAggregate
)

// TimePlot describes the time-domain path of a class
type TimePlot struct {
	Reduction TimeReduction
	// Decimation is the spacing in seconds between samples kept before
	// reduction. Zero keeps every sample.
	Decimation  float64
	Aggregate   reduce.AggregateParams
	TickSpacing float64
	XLabel      string // %s is replaced by the channel start time
	YLabel      string
	LogScale    bool
}

// SpectralPlot describes the frequency-domain path of a class
type SpectralPlot struct {
	// Excerpt is the duration in seconds of the contiguous prefix analysed.
	// The time path still receives the whole channel.
	Excerpt     float64
	Params      reduce.SpectralParams
	TickSpacing float64 // kHz
	YLabel      string  // %s is replaced by the formatted RBW when ShowRBW is set
	ShowRBW     bool
	LogScale    bool
}

// Profile is everything the dispatcher needs to reduce one class of channel
type Profile struct {
	Class    models.SensorClass
	StoreID  string
	Time     *TimePlot
	Spectral *SpectralPlot
}

var profiles = map[models.SensorClass]Profile{
	models.ClassGeneric: {
		Class:   models.ClassGeneric,
		StoreID: models.StoreGeneric,
	},
	models.ClassThermocouple: {
		Class:   models.ClassThermocouple,
		StoreID: models.StoreThermocouple,
		Time: &TimePlot{
			Reduction:   TimeFahrenheit,
			Decimation:  0.5,
			TickSpacing: 0.5,
			XLabel:      "Time (mins) since %s",
			YLabel:      "Temperature (deg F)",
		},
	},
	models.ClassAccelerometer: {
		Class:   models.ClassAccelerometer,
		StoreID: models.StoreAccelerometer,
		Time: &TimePlot{
			Reduction: TimeAggregate,
			Aggregate: reduce.AggregateParams{
				ChunkSeconds: 0.5,
				Aggregator:   reduce.AggregateRMS,
				RemoveDC:     true,
			},
			TickSpacing: 5,
			XLabel:      "Time (sec) since %s",
			YLabel:      "Signal strength (g's)",
			LogScale:    true,
		},
		Spectral: &SpectralPlot{
			Excerpt:     1,
			Params:      reduce.SpectralParams{WindowSeconds: 1, Unit: reduce.SpectralAmplitude},
			TickSpacing: 1,
			YLabel:      "Signal spectrum (g's)",
			LogScale:    true,
		},
	},
	models.ClassElectromagnetic: {
		Class:   models.ClassElectromagnetic,
		StoreID: models.StoreElectromagnetic,
		Time: &TimePlot{
			Reduction:  TimeAggregate,
			Decimation: 0.01,
			Aggregate: reduce.AggregateParams{
				ChunkSeconds: 0.1,
				Aggregator:   reduce.AggregateDBm,
				RemoveDC:     true,
			},
			TickSpacing: 5,
			XLabel:      "Time (sec) since %s",
			YLabel:      "Signal power (dBm at DAQ)",
		},
		Spectral: &SpectralPlot{
			Excerpt:     0.1,
			Params:      reduce.SpectralParams{WindowSeconds: 0.01, Unit: reduce.SpectralDBm},
			TickSpacing: 100,
			YLabel:      "Signal power (dBm at DAQ input, rbw = %s Hz)",
			ShowRBW:     true,
		},
	},
}

// ProfileFor returns the reduction profile of a class
func ProfileFor(class models.SensorClass) (Profile, error) {
	p, ok := profiles[class]
	if !ok {
		return Profile{}, fmt.Errorf("no profile for sensor class %q", class)
	}
	return p, nil
}

// StoreFor returns the table store a class exports to. Unknown classes go to the generic store.
func StoreFor(class models.SensorClass) string {
	if p, ok := profiles[class]; ok {
		return p.StoreID
	}
	return models.StoreGeneric
}
