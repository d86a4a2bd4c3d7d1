package reduce

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// SpectralUnit selects how averaged bin power is reported.
type SpectralUnit int

const (
	// SpectralAmplitude reports sqrt(power), i.e. RMS amplitude per bin.
	SpectralAmplitude SpectralUnit = iota
	// SpectralDBm reports power in dBm across the reference load.
	SpectralDBm
)

// SpectralParams configures the averaged spectrogram.
type SpectralParams struct {
	// WindowSeconds is the class default; it is shortened to the excerpt
	// duration when the excerpt is shorter.
	WindowSeconds float64
	Unit          SpectralUnit
}

// Spectrum is a one-sided spectrum averaged across spectrogram segments.
type Spectrum struct {
	FreqHz        []float64
	Power         []float64 // mean square per bin
	Values        []float64 // Power converted to the requested unit
	WindowSeconds float64
	WindowLength  int
	Segments      int
}

// RBW returns the resolution bandwidth annotated on dBm plots.
func (s Spectrum) RBW() float64 {
	if s.WindowSeconds <= 0 {
		return 0
	}
	return 1 / s.WindowSeconds / 2
}

// WindowLength returns the even sample count of a window of the given duration.
func WindowLength(windowSeconds, sampleRate float64) int {
	n := int(windowSeconds*sampleRate/2) * 2
	if n < 0 {
		return 0
	}
	return n
}

// AveragedSpectrum computes a Hann-windowed spectrogram of excerpt with 50%
// overlap and "spectrum" scaling, then averages it across segments.
//
// Each segment has its mean removed before windowing. Bins other than DC and
// Nyquist are doubled so the one-sided result preserves total power: a sine of
// amplitude A centred on a bin reports A²/2 there.
func AveragedSpectrum(excerpt []float64, sampleRate float64, p SpectralParams) (Spectrum, error) {
	if err := validate(excerpt, sampleRate); err != nil {
		return Spectrum{}, err
	}

	total := float64(len(excerpt)) / sampleRate
	tWindow := p.WindowSeconds
	var n int
	if tWindow >= total {
		tWindow = total
		n = len(excerpt) / 2 * 2
	} else {
		n = WindowLength(tWindow, sampleRate)
	}
	if n == 0 {
		return Spectrum{}, fmt.Errorf("%w: %.6gs at %.6g Hz gives 0 samples", ErrWindowTooShort, tWindow, sampleRate)
	}

	win := window.Hann(n)
	winSum := floats.Sum(win)
	if n <= 2 || winSum <= 0 {
		return Spectrum{}, fmt.Errorf("%w: %d-point Hann window has no energy", ErrWindowTooShort, n)
	}

	step := n / 2
	segments := (len(excerpt) - step) / step
	bins := n/2 + 1

	fft := fourier.NewFFT(n)
	buf := make([]float64, n)
	coeffs := make([]complex128, bins)
	power := make([]float64, bins)

	for s := 0; s < segments; s++ {
		seg := excerpt[s*step : s*step+n]
		mean := stat.Mean(seg, nil)
		for i, x := range seg {
			buf[i] = (x - mean) * win[i]
		}
		coeffs = fft.Coefficients(coeffs, buf)
		for k, c := range coeffs {
			a := cmplx.Abs(c)
			power[k] += a * a
		}
	}

	scale := 1 / (winSum * winSum) / float64(segments)
	freqs := make([]float64, bins)
	values := make([]float64, bins)
	for k := range power {
		power[k] *= scale
		if k > 0 && k < bins-1 {
			power[k] *= 2
		}
		freqs[k] = fft.Freq(k) * sampleRate
		if p.Unit == SpectralDBm {
			values[k] = PowerToDBm(power[k])
		} else {
			values[k] = math.Sqrt(power[k])
		}
	}

	return Spectrum{
		FreqHz:        freqs,
		Power:         power,
		Values:        values,
		WindowSeconds: tWindow,
		WindowLength:  n,
		Segments:      segments,
	}, nil
}
