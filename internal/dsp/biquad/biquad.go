// Package biquad designs and runs normalized second-order IIR sections
// (biquads). Coefficient design follows the Web Audio API biquad cookbook,
// the same formulas the filter-graph's C ancestor uses, with a0 always
// folded into b0..a2 (Coefficients.A0 is never stored).
package biquad

import "math"

// Kind names the filter transfer function a Section implements.
type Kind int

const (
	Lowpass Kind = iota
	Highpass
	Bandpass
	Lowshelf
	Highshelf
	Peaking
	Notch
	Allpass
	Raw
)

// Coefficients are normalized second-order section coefficients: a0 == 1
// and is not stored. y[n] = b0*x[n] + b1*x[n-1] + b2*x[n-2] - a1*y[n-1] - a2*y[n-2].
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

func normalize(b0, b1, b2, a0, a1, a2 float64) Coefficients {
	inv := 1 / a0
	return Coefficients{
		B0: b0 * inv,
		B1: b1 * inv,
		B2: b2 * inv,
		A1: a1 * inv,
		A2: a2 * inv,
	}
}

func identity(gain float64) Coefficients {
	return Coefficients{B0: gain}
}

// clampFreq clamps a normalized frequency (fraction of Nyquist) to [0, 1].
func clampFreq(f float64) float64 {
	return math.Max(0, math.Min(f, 1))
}

// Design computes normalized coefficients for the given kind. freq is
// normalized to Nyquist ([0,1]); out-of-range values are clamped. gainDB is
// used only by the shelf/peaking kinds.
//
// Edge cases at freq == 0, freq == 1, and Q <= 0 are handled explicitly
// inside each per-kind design function: lowpass and highpass treat Q <= 0
// as zero resonance, the shelves ignore Q, and bandpass, peaking, notch and
// allpass return a constant-gain section (unity, A^2, zero and -1
// respectively) for Q <= 0.
func Design(kind Kind, freq, q, gainDB float64) Coefficients {
	freq = clampFreq(freq)

	switch kind {
	case Lowpass:
		return designLowpass(freq, q)
	case Highpass:
		return designHighpass(freq, q)
	case Bandpass:
		return designBandpass(freq, q)
	case Lowshelf:
		return designLowshelf(freq, gainDB)
	case Highshelf:
		return designHighshelf(freq, gainDB)
	case Peaking:
		return designPeaking(freq, q, gainDB)
	case Notch:
		return designNotch(freq, q)
	case Allpass:
		return designAllpass(freq, q)
	default:
		return identity(1)
	}
}

// Raw builds coefficients directly from six transfer-function coefficients,
// normalizing by a0. a0 == 0 is treated as 1 to avoid division by zero.
func Raw(b0, b1, b2, a0, a1, a2 float64) Coefficients {
	if a0 == 0 {
		a0 = 1
	}
	return normalize(b0, b1, b2, a0, a1, a2)
}

// resonanceToD converts a resonance value in dB to the "d" term used by the
// lowpass/highpass Q-as-resonance formulas (Chromium's biquad.cc).
func resonanceToD(resonanceDB float64) float64 {
	resonanceDB = math.Max(0, resonanceDB)
	g := math.Pow(10, 0.05*resonanceDB)
	return math.Sqrt((4 - math.Sqrt(16-16/(g*g))) / 2)
}

func designLowpass(cutoff, q float64) Coefficients {
	if cutoff == 0 || cutoff == 1 {
		return normalize(cutoff, 0, 0, 1, 0, 0)
	}
	if q <= 0 {
		q = 0
	}
	d := resonanceToD(q)
	theta := math.Pi * cutoff
	sn := 0.5 * d * math.Sin(theta)
	beta := 0.5 * (1 - sn) / (1 + sn)
	gamma := (0.5 + beta) * math.Cos(theta)
	alpha := 0.25 * (0.5 + beta - gamma)

	return normalize(2*alpha, 4*alpha, 2*alpha, 1, -2*gamma, 2*beta)
}

func designHighpass(cutoff, q float64) Coefficients {
	if cutoff == 0 || cutoff == 1 {
		return normalize(cutoff, 0, 0, 1, 0, 0)
	}
	if q <= 0 {
		q = 0
	}
	d := resonanceToD(q)
	theta := math.Pi * cutoff
	sn := 0.5 * d * math.Sin(theta)
	beta := 0.5 * (1 - sn) / (1 + sn)
	gamma := (0.5 + beta) * math.Cos(theta)
	alpha := 0.25 * (0.5 + beta + gamma)

	return normalize(2*alpha, -4*alpha, 2*alpha, 1, -2*gamma, 2*beta)
}

func designBandpass(freq, q float64) Coefficients {
	freq = math.Max(0, freq)
	q = math.Max(0, q)

	if freq <= 0 || freq >= 1 {
		return normalize(0, 0, 0, 1, 0, 0)
	}
	if q <= 0 {
		return normalize(1, 0, 0, 1, 0, 0)
	}

	w0 := math.Pi * freq
	alpha := math.Sin(w0) / (2 * q)
	k := math.Cos(w0)

	return normalize(alpha, 0, -alpha, 1+alpha, -2*k, 1-alpha)
}

func designLowshelf(freq, gainDB float64) Coefficients {
	a := math.Pow(10, gainDB/40)

	if freq == 1 {
		return normalize(a*a, 0, 0, 1, 0, 0)
	}
	if freq <= 0 {
		return normalize(1, 0, 0, 1, 0, 0)
	}

	w0 := math.Pi * freq
	alpha := 0.5 * math.Sin(w0) * math.Sqrt((a+1/a)*(1-1)+2) // S = 1 (max slope)
	k := math.Cos(w0)
	k2 := 2 * math.Sqrt(a) * alpha
	aPlus, aMinus := a+1, a-1

	b0 := a * (aPlus - aMinus*k + k2)
	b1 := 2 * a * (aMinus - aPlus*k)
	b2 := a * (aPlus - aMinus*k - k2)
	a0 := aPlus + aMinus*k + k2
	a1 := -2 * (aMinus + aPlus*k)
	a2 := aPlus + aMinus*k - k2

	return normalize(b0, b1, b2, a0, a1, a2)
}

func designHighshelf(freq, gainDB float64) Coefficients {
	a := math.Pow(10, gainDB/40)

	if freq == 1 {
		return normalize(1, 0, 0, 1, 0, 0)
	}
	if freq <= 0 {
		return normalize(a*a, 0, 0, 1, 0, 0)
	}

	w0 := math.Pi * freq
	alpha := 0.5 * math.Sin(w0) * math.Sqrt((a+1/a)*(1-1)+2)
	k := math.Cos(w0)
	k2 := 2 * math.Sqrt(a) * alpha
	aPlus, aMinus := a+1, a-1

	b0 := a * (aPlus + aMinus*k + k2)
	b1 := -2 * a * (aMinus + aPlus*k)
	b2 := a * (aPlus + aMinus*k - k2)
	a0 := aPlus - aMinus*k + k2
	a1 := 2 * (aMinus - aPlus*k)
	a2 := aPlus - aMinus*k - k2

	return normalize(b0, b1, b2, a0, a1, a2)
}

func designPeaking(freq, q, gainDB float64) Coefficients {
	freq = math.Max(0, freq)
	q = math.Max(0, q)
	a := math.Pow(10, gainDB/40)

	if freq <= 0 || freq >= 1 {
		return normalize(1, 0, 0, 1, 0, 0)
	}
	if q <= 0 {
		return normalize(a*a, 0, 0, 1, 0, 0)
	}

	w0 := math.Pi * freq
	alpha := math.Sin(w0) / (2 * q)
	k := math.Cos(w0)

	return normalize(1+alpha*a, -2*k, 1-alpha*a, 1+alpha/a, -2*k, 1-alpha/a)
}

func designNotch(freq, q float64) Coefficients {
	freq = math.Max(0, freq)
	q = math.Max(0, q)

	if freq <= 0 || freq >= 1 {
		return normalize(1, 0, 0, 1, 0, 0)
	}
	if q <= 0 {
		return normalize(0, 0, 0, 1, 0, 0)
	}

	w0 := math.Pi * freq
	alpha := math.Sin(w0) / (2 * q)
	k := math.Cos(w0)

	return normalize(1, -2*k, 1, 1+alpha, -2*k, 1-alpha)
}

func designAllpass(freq, q float64) Coefficients {
	freq = math.Max(0, freq)
	q = math.Max(0, q)

	if freq <= 0 || freq >= 1 {
		return normalize(1, 0, 0, 1, 0, 0)
	}
	if q <= 0 {
		return normalize(-1, 0, 0, 1, 0, 0)
	}

	w0 := math.Pi * freq
	alpha := math.Sin(w0) / (2 * q)
	k := math.Cos(w0)

	return normalize(1-alpha, -2*k, 1+alpha, 1+alpha, -2*k, 1-alpha)
}
