package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SensorClass identifies the kind of instrument a channel was recorded from
type SensorClass string

const (
	ClassGeneric         SensorClass = "generic"
	ClassThermocouple    SensorClass = "thermocouple"
	ClassAccelerometer   SensorClass = "accelerometer"
	ClassElectromagnetic SensorClass = "electromagnetic"
)

// Analytical table stores, one per class
const (
	StoreGeneric         = "general"
	StoreThermocouple    = "th"
	StoreAccelerometer   = "acc"
	StoreElectromagnetic = "eh"
)

// StartTimeLayout is how channel start times appear in axis labels
const StartTimeLayout = "2006-01-02 -- 15:04:05"

// ParseSensorClass accepts canonical class names and the short file tags (th, acc, eh)
func ParseSensorClass(s string) (SensorClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "thermocouple", "th":
		return ClassThermocouple, nil
	case "accelerometer", "acc":
		return ClassAccelerometer, nil
	case "electromagnetic", "eh":
		return ClassElectromagnetic, nil
	case "generic", "":
		return ClassGeneric, nil
	default:
		return "", fmt.Errorf("unknown sensor class: %q", s)
	}
}

// ClassFromName derives a class from the instrument fragment in a recording's file name.
// Recordings without a known fragment are generic.
func ClassFromName(name string) SensorClass {
	base := filepath.Base(name)
	switch {
	case strings.Contains(base, "_th"):
		return ClassThermocouple
	case strings.Contains(base, "_acc"):
		return ClassAccelerometer
	case strings.Contains(base, "_eh"):
		return ClassElectromagnetic
	default:
		return ClassGeneric
	}
}

// Channel is one uniformly sampled sensor trace
type Channel struct {
	Name       string
	Class      SensorClass
	SampleRate float64 // Hz
	StartTime  time.Time
	Unit       string
	Samples    []float64
}

// Duration returns the length of the channel in seconds
func (c Channel) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / c.SampleRate
}

// StartLabel formats the start timestamp the way axis labels show it
func (c Channel) StartLabel() string {
	if c.StartTime.IsZero() {
		return "start"
	}
	return c.StartTime.Format(StartTimeLayout)
}

// SeriesKind says which axis a reduced series is plotted against
type SeriesKind string

const (
	KindTime      SeriesKind = "time"
	KindFrequency SeriesKind = "frequency"
)

// ReducedSeries is a plot-ready pair of axes with labels
type ReducedSeries struct {
	Channel     string     `json:"channel"`
	Kind        SeriesKind `json:"kind"`
	X           []float64  `json:"x"`
	Y           []float64  `json:"y"`
	XLabel      string     `json:"x_label"`
	YLabel      string     `json:"y_label"`
	Title       string     `json:"title"`
	TickSpacing float64    `json:"tick_spacing"`
	LogScale    bool       `json:"log_scale"`
}

// TableRow is one time-indexed row of a subsampled table
type TableRow struct {
	EpochNs int64
	Values  []float64
}

// Table is a time-indexed view of a channel set
type Table struct {
	Columns []string
	Rows    []TableRow
}
