package reduce

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidChannel is returned for a non-positive sample rate or an empty channel.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrWindowTooShort is returned when the spectrogram window has no usable samples.
	ErrWindowTooShort = errors.New("spectrogram window too short")
	// ErrInsufficientData is returned when a channel is shorter than one aggregation block.
	ErrInsufficientData = errors.New("insufficient data for aggregation")
)

func validate(samples []float64, sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: sample rate must be > 0: %v", ErrInvalidChannel, sampleRate)
	}
	if len(samples) == 0 {
		return fmt.Errorf("%w: no samples", ErrInvalidChannel)
	}
	return nil
}
