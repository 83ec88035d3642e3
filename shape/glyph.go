package shape

import (
	"github.com/gogpu/typeset/font"
	"golang.org/x/text/language"
)

// Flags describe how a glyph takes part in layout and painting.
type Flags uint8

const (
	// FlagMark marks a combining mark: painted, zero advance.
	FlagMark Flags = 1 << iota
	// FlagInvisible marks a control or format character: not painted, zero
	// advance.
	FlagInvisible
	// FlagUnmapped marks a character no font in the chain maps; the glyph is
	// the primary font's default glyph.
	FlagUnmapped
)

// Glyph is one shaped glyph.
type Glyph struct {
	ID      font.GlyphID
	Advance float64 // points
	XOffset float64 // points, added to the pen position
	YOffset float64 // points, positive is up

	// Cluster is the index of the first source character, counted in
	// characters from the start of the shaped text. Runes is the number of
	// characters the glyph stands for; it is 0 for the second and later
	// glyphs of a cluster.
	Cluster int
	Runes   int
	Flags   Flags
}

// Visible reports whether the glyph is painted.
func (g Glyph) Visible() bool {
	return g.Flags&FlagInvisible == 0
}

// GlyphRun is a sequence of glyphs from one font at one size covering the
// characters [Start, End) of the shaped text. A GlyphRun is never modified
// after a Shaper returns it.
type GlyphRun struct {
	Font   *font.Font
	Size   float64
	Start  int
	End    int
	Text   []rune // the source characters Start..End
	Glyphs []Glyph
}

// Width returns the sum of the glyph advances.
func (r *GlyphRun) Width() float64 {
	var w float64
	for i := range r.Glyphs {
		w += r.Glyphs[i].Advance
	}
	return w
}

// Len returns the number of characters covered.
func (r *GlyphRun) Len() int {
	return r.End - r.Start
}

// Options control a single Shape call.
type Options struct {
	// Language selects language-specific behavior where the shaper has any.
	// The zero value is language.Und.
	Language language.Tag
}

// Shaper converts text into glyph runs.
//
// The runs returned by Shape cover the text without gaps, in order. Shape
// never fails: characters that cannot be shaped get default glyphs.
// Implementations must be safe for concurrent use.
type Shaper interface {
	Shape(text string, faces Chain, size float64, opts Options) []GlyphRun
}
