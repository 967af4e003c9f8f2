// Package measure computes basic scalar measurements over decoded
// waveform segments, for logging and sanity-checking acquisitions.
package measure

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds amplitude statistics of one segment, in volts.
type Summary struct {
	Min        float64
	Max        float64
	PeakToPeak float64
	Mean       float64
	RMS        float64
	StdDev     float64
}

// Summarize computes amplitude statistics over one segment.
func Summarize(amplitude []float64) Summary {
	if len(amplitude) == 0 {
		return Summary{}
	}
	s := Summary{
		Min:  floats.Min(amplitude),
		Max:  floats.Max(amplitude),
		Mean: stat.Mean(amplitude, nil),
	}
	s.PeakToPeak = s.Max - s.Min
	if len(amplitude) > 1 {
		s.StdDev = stat.StdDev(amplitude, nil)
	}

	sumSq := 0.0
	for _, v := range amplitude {
		sumSq += v * v
	}
	s.RMS = math.Sqrt(sumSq / float64(len(amplitude)))
	return s
}

// DominantFrequency estimates the strongest spectral component of a
// segment sampled at interval dt seconds, ignoring the DC bin. Returns 0
// for segments too short to analyze.
func DominantFrequency(amplitude []float64, dt float64) float64 {
	n := len(amplitude)
	if n < 4 || dt <= 0 {
		return 0
	}

	coeffs := fourier.NewFFT(n).Coefficients(nil, amplitude)

	peakBin := 0
	peakMag := 0.0
	for i := 1; i < len(coeffs); i++ {
		if mag := cmplx.Abs(coeffs[i]); mag > peakMag {
			peakMag = mag
			peakBin = i
		}
	}
	if peakBin == 0 {
		return 0
	}
	return float64(peakBin) / (float64(n) * dt)
}
