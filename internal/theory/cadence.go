package theory

// CadenceKind names the classical closing formulas.
type CadenceKind string

const (
	CadenceAuthentic CadenceKind = "authentic"
	CadenceHalf      CadenceKind = "half"
	CadencePlagal    CadenceKind = "plagal"
	CadenceDeceptive CadenceKind = "deceptive"
)

// CadentialGesture is a fixed melodic close: the scale degrees the last
// onsets of a cadential measure are forced to, most specific last.
type CadentialGesture struct {
	Kind    CadenceKind
	Degrees []int
}

// Closing gestures by kind. Authentic descends dominant-supertonic-tonic;
// half approaches the dominant through the subdominant.
var cadentialGestures = map[CadenceKind]CadentialGesture{
	CadenceAuthentic: {Kind: CadenceAuthentic, Degrees: []int{5, 2, 1}},
	CadenceHalf:      {Kind: CadenceHalf, Degrees: []int{1, 4, 5}},
	CadencePlagal:    {Kind: CadencePlagal, Degrees: []int{4, 3, 1}},
	CadenceDeceptive: {Kind: CadenceDeceptive, Degrees: []int{5, 7, 6}},
}

// GestureFor returns the melodic close for a cadence kind. Unknown kinds
// fall back to the authentic close.
func GestureFor(kind CadenceKind) CadentialGesture {
	if g, ok := cadentialGestures[kind]; ok {
		return g
	}
	return cadentialGestures[CadenceAuthentic]
}
