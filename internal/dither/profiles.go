package dither

// ProfileID selects a noise-shaping profile from the catalog.
type ProfileID int

// Catalog of noise-shaping profiles. The FIR coefficients spectrally tilt
// the quantization error away from the ear's most sensitive region; all
// published coefficient sets below are tuned for 44.1 kHz playback except
// the flat variants.
const (
	// ProfileFlat applies plain TPDF dither with no shaping.
	ProfileFlat ProfileID = iota

	// ProfileStandard is Lipshitz's 5-tap E-weighted shaper, the default
	// for output rates up to 48 kHz.
	ProfileStandard

	// ProfileFlatF is flat TPDF with first-order error feedback, the
	// default for high output rates where the lifted floor sits far above
	// the audible band.
	ProfileFlatF

	// ProfileModEWeighted is the 9-tap modified E-weighted curve.
	ProfileModEWeighted

	// ProfileWannamaker3 is Wannamaker's 3-tap F-weighted shaper.
	ProfileWannamaker3

	// ProfileWannamaker9 is Wannamaker's 9-tap F-weighted shaper.
	ProfileWannamaker9

	profileEnd
)

// Profile pairs a display name with the shaper's FIR coefficients.
// Empty coefficients mean no shaping.
type Profile struct {
	ID    ProfileID
	Name  string
	Coeff []float64
}

var profileCatalog = []Profile{
	{ProfileFlat, "flat tpdf (no noise shaping)", nil},
	{ProfileStandard, "standard (Lipshitz 5-tap E-weighted)", []float64{2.033, -2.165, 1.959, -1.590, 0.6149}},
	{ProfileFlatF, "flat tpdf (with error feedback)", []float64{1.0}},
	{ProfileModEWeighted, "modified E-weighted (9-tap)", []float64{1.662, -1.263, 0.4827, -0.2913, 0.1268, -0.1124, 0.03252, -0.01265, -0.03524}},
	{ProfileWannamaker3, "Wannamaker 3-tap F-weighted", []float64{1.623, -0.982, 0.109}},
	{ProfileWannamaker9, "Wannamaker 9-tap F-weighted", []float64{2.412, -3.370, 3.937, -4.174, 3.353, -2.205, 1.281, -0.569, 0.0847}},
}

// Profiles returns the full catalog, ordered by ID.
func Profiles() []Profile {
	out := make([]Profile, len(profileCatalog))
	copy(out, profileCatalog)
	return out
}

// ProfileByID looks up a profile. Out-of-range IDs report ok=false; callers
// normally substitute DefaultProfileID.
func ProfileByID(id ProfileID) (Profile, bool) {
	if id < 0 || id >= profileEnd {
		return Profile{}, false
	}
	return profileCatalog[id], true
}

// DefaultProfileID selects the shaping profile for an output sample rate:
// shaped dither only pays off when the shaped region is audible.
func DefaultProfileID(outputRate int) ProfileID {
	if outputRate <= 48000 {
		return ProfileStandard
	}
	return ProfileFlatF
}
