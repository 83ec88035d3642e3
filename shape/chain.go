package shape

import (
	"unicode"

	"github.com/gogpu/typeset/font"
)

// Chain is an ordered font fallback list. The first font is the primary
// font; the others are consulted in order for characters it does not map.
type Chain []*font.Font

// NewChain builds a chain from a primary font and fallbacks, dropping nil
// entries and duplicates.
func NewChain(primary *font.Font, fallbacks ...*font.Font) Chain {
	c := Chain{primary}
	for _, f := range fallbacks {
		if f == nil || c.contains(f) {
			continue
		}
		c = append(c, f)
	}
	return c
}

func (c Chain) contains(f *font.Font) bool {
	for _, g := range c {
		if g == f {
			return true
		}
	}
	return false
}

// Primary returns the first font, or nil for an empty chain.
func (c Chain) Primary() *font.Font {
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// Pick returns the index of the first font that maps r. If none does, it
// returns 0 and false.
func (c Chain) Pick(r rune) (int, bool) {
	for i, f := range c {
		if _, ok := f.MapRune(r); ok {
			return i, true
		}
	}
	return 0, false
}

// itemize assigns every character to a font of the chain and returns the
// boundaries of the runs of equal assignment. Control and format
// characters, which are never painted, stay with the preceding character.
// Combining marks stay with their base when its font maps them.
func (c Chain) itemize(text []rune) []item {
	var items []item
	cur := -1
	for i, r := range text {
		idx := -1
		switch cls := classify(r); {
		case cls == classControl || cls == classFormat:
			if cur >= 0 {
				idx = cur
			}
		case cls == classMark && cur >= 0:
			if _, ok := c[cur].MapRune(r); ok {
				idx = cur
			}
		}
		if idx < 0 {
			idx, _ = c.Pick(r)
		}

		if idx != cur || len(items) == 0 {
			items = append(items, item{font: idx, start: i})
			cur = idx
		}
		items[len(items)-1].end = i + 1
	}
	return items
}

type item struct {
	font       int
	start, end int
}

type class uint8

const (
	classBase class = iota
	classMark
	classFormat
	classControl
)

func classify(r rune) class {
	switch {
	case unicode.IsControl(r), r == '\u2028', r == '\u2029':
		return classControl
	case unicode.In(r, unicode.Mn, unicode.Me):
		return classMark
	case unicode.Is(unicode.Cf, r):
		return classFormat
	default:
		return classBase
	}
}

// finish applies the per-character rules shared by all shapers to a glyph
// covering exactly one character.
func finish(g *Glyph, r rune) {
	switch classify(r) {
	case classControl, classFormat:
		g.Advance = 0
		g.XOffset, g.YOffset = 0, 0
		g.Flags |= FlagInvisible
		g.Flags &^= FlagUnmapped
	case classMark:
		g.Advance = 0
		g.Flags |= FlagMark
	}
}
