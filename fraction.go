package resampler

// Fraction is a reduced sample-rate ratio: outRate/inRate = L/M with
// gcd(L, M) = 1. L is the interpolation factor, M the decimation factor.
type Fraction struct {
	L int
	M int
}

// gcd returns the greatest common divisor by the Euclidean algorithm.
func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ReduceRatio reduces (inRate, outRate) to the coprime fraction L/M.
// For example 44100 → 48000 reduces to 160/147.
func ReduceRatio(inRate, outRate int) Fraction {
	g := gcd(inRate, outRate)
	return Fraction{
		L: outRate / g,
		M: inRate / g,
	}
}

// IsUnity reports a 1:1 ratio, where the pipeline degenerates to a copy.
func (f Fraction) IsUnity() bool {
	return f.L == 1 && f.M == 1
}

// isSimple reports whether the ratio qualifies for the short-prototype
// policy: a small integer relationship such as 2:1 or 1:4.
func (f Fraction) isSimple() bool {
	return f.L != f.M && (f.L <= simpleRatioThreshold || f.M <= simpleRatioThreshold)
}

// maxTerm returns max(L, M).
func (f Fraction) maxTerm() int {
	if f.L > f.M {
		return f.L
	}
	return f.M
}
