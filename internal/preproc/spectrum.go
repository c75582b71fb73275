package preproc

import (
	"fmt"
	"math/cmplx"

	"bci-trainer/internal/common"
	"bci-trainer/internal/tensor"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// PowerSpectrum replaces the time axis with a one-sided power spectral
// density (Hann window, units²/Hz) and returns the frequency of every bin.
func PowerSpectrum(x *tensor.Tensor, fSample float64) (*tensor.Tensor, []float64, error) {
	if err := x.RequireNonEmpty(); err != nil {
		return nil, nil, err
	}
	if fSample <= 0 {
		return nil, nil, fmt.Errorf("sample rate must be positive, got %v", fSample)
	}
	ns := x.Len(tensor.AxisTime)
	if ns < 2 {
		return nil, nil, fmt.Errorf("power spectrum needs at least 2 samples, got %d: %w", ns, common.ErrEmptyAxis)
	}

	win := make([]float64, ns)
	floats.AddConst(1, win)
	window.Hann(win)
	norm := fSample * floats.Dot(win, win)

	fft := fourier.NewFFT(ns)
	nf := ns/2 + 1
	freqs := make([]float64, nf)
	for i := range freqs {
		freqs[i] = fft.Freq(i) * fSample
	}

	buf := make([]float64, ns)
	coeff := make([]complex128, nf)
	out, err := x.MapSeries(func(_, _ int, s []float64) []float64 {
		floats.MulTo(buf, s, win)
		fft.Coefficients(coeff, buf)

		psd := make([]float64, nf)
		for i, c := range coeff {
			p := cmplx.Abs(c)
			psd[i] = p * p / norm
			// fold negative frequencies; DC and an even-length Nyquist bin have no mirror
			if i > 0 && !(ns%2 == 0 && i == nf-1) {
				psd[i] *= 2
			}
		}
		return psd
	})
	if err != nil {
		return nil, nil, err
	}
	return out, freqs, nil
}
