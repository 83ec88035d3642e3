package font

import (
	"strconv"
	"strings"
)

// Style is the slant of a face.
type Style uint8

const (
	// StyleNormal is an upright face.
	StyleNormal Style = iota
	// StyleItalic is a cursive slanted face.
	StyleItalic
	// StyleOblique is a mechanically slanted face.
	StyleOblique
)

// String returns the style name.
func (s Style) String() string {
	switch s {
	case StyleNormal:
		return "normal"
	case StyleItalic:
		return "italic"
	case StyleOblique:
		return "oblique"
	default:
		return "Style(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseStyle parses a style name. The empty string and "regular" mean
// StyleNormal.
func ParseStyle(s string) (Style, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "regular", "roman", "upright":
		return StyleNormal, true
	case "italic":
		return StyleItalic, true
	case "oblique", "slanted":
		return StyleOblique, true
	default:
		return StyleNormal, false
	}
}

// preference returns the order in which styles are tried for a request.
func (s Style) preference() [3]Style {
	switch s {
	case StyleItalic:
		return [3]Style{StyleItalic, StyleOblique, StyleNormal}
	case StyleOblique:
		return [3]Style{StyleOblique, StyleItalic, StyleNormal}
	default:
		return [3]Style{StyleNormal, StyleOblique, StyleItalic}
	}
}

// Weight is a CSS-style font weight (100..900).
type Weight int

// Common weights.
const (
	WeightThin       Weight = 100
	WeightExtraLight Weight = 200
	WeightLight      Weight = 300
	WeightNormal     Weight = 400
	WeightMedium     Weight = 500
	WeightSemiBold   Weight = 600
	WeightBold       Weight = 700
	WeightExtraBold  Weight = 800
	WeightBlack      Weight = 900
)

var weightNames = map[string]Weight{
	"thin":       WeightThin,
	"hairline":   WeightThin,
	"extralight": WeightExtraLight,
	"ultralight": WeightExtraLight,
	"light":      WeightLight,
	"normal":     WeightNormal,
	"regular":    WeightNormal,
	"book":       WeightNormal,
	"medium":     WeightMedium,
	"semibold":   WeightSemiBold,
	"demibold":   WeightSemiBold,
	"bold":       WeightBold,
	"extrabold":  WeightExtraBold,
	"ultrabold":  WeightExtraBold,
	"black":      WeightBlack,
	"heavy":      WeightBlack,
}

// ParseWeight parses a numeric weight or a weight name such as "bold".
func ParseWeight(s string) (Weight, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if w, ok := weightNames[strings.ReplaceAll(s, "-", "")]; ok {
		return w, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 1000 {
		return 0, false
	}
	return Weight(n), true
}

// distance returns how far w is from the requested weight, and whether w
// wins a tie at that distance.
func (w Weight) distance(req Weight) (int, bool) {
	d := int(w - req)
	heavier := d > 0
	if d < 0 {
		d = -d
	}
	if req > WeightNormal {
		return d, heavier
	}
	return d, !heavier
}
