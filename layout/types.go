package layout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/typeset/font"
	"github.com/gogpu/typeset/shape"
)

// ErrInvalidConstraints is returned by Layout for a non-positive width, a
// negative height or a negative line spacing.
var ErrInvalidConstraints = errors.New("layout: invalid constraints")

// Alignment specifies horizontal alignment within the line width.
type Alignment int

const (
	// AlignLeft aligns lines to the left edge (default).
	AlignLeft Alignment = iota
	// AlignCenter centers lines.
	AlignCenter
	// AlignRight aligns lines to the right edge.
	AlignRight
	// AlignJustify stretches inter-word gaps so lines fill the width. The
	// last line of a paragraph is left aligned.
	AlignJustify
)

// String returns the lower-case alignment name.
func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	case AlignJustify:
		return "justify"
	default:
		return "Alignment(" + strconv.Itoa(int(a)) + ")"
	}
}

// ParseAlignment parses an alignment name. The empty string means AlignLeft.
func ParseAlignment(s string) (Alignment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left", "start":
		return AlignLeft, nil
	case "center", "centre":
		return AlignCenter, nil
	case "right", "end":
		return AlignRight, nil
	case "justify", "justified":
		return AlignJustify, nil
	default:
		return AlignLeft, fmt.Errorf("layout: unknown alignment %q", s)
	}
}

// Constraints bound a layout.
type Constraints struct {
	// MaxWidth is the line width in points. Must be positive.
	MaxWidth float64

	// MaxHeight is the page height in points. 0 means unbounded: all lines
	// go on a single page.
	MaxHeight float64

	Alignment Alignment

	// Paginate moves lines that do not fit MaxHeight to new pages. Without
	// it they stay on the page, which is then marked Overflowed.
	Paginate bool

	// LineSpacing multiplies the natural line height. 0 means 1.
	LineSpacing float64
}

func (c Constraints) validate() error {
	switch {
	case !(c.MaxWidth > 0):
		return fmt.Errorf("%w: max width %v must be positive", ErrInvalidConstraints, c.MaxWidth)
	case c.MaxHeight < 0:
		return fmt.Errorf("%w: max height %v must not be negative", ErrInvalidConstraints, c.MaxHeight)
	case c.LineSpacing < 0:
		return fmt.Errorf("%w: line spacing %v must not be negative", ErrInvalidConstraints, c.LineSpacing)
	}
	return nil
}

// PlacedRun is the part of a shaped run that falls on one line, with the
// pen position of each glyph.
type PlacedRun struct {
	shape.GlyphRun

	// X holds the pen position of each glyph, measured from the left edge
	// of the page and including the line's alignment offset. The glyph's
	// own XOffset is not included.
	X []float64
}

// Gap is a run of whitespace between two words of a line.
type Gap struct {
	Start, End int     // character range
	Natural    float64 // width before justification
	Width      float64 // width after justification
}

// Line is one laid out line.
type Line struct {
	Runs []PlacedRun

	// Start and End delimit the characters of the line, including trailing
	// whitespace and the terminating newline, if any. Consecutive lines are
	// contiguous.
	Start, End int

	// Width is the line width excluding hanging whitespace. For a justified
	// line it includes the added gap space.
	Width float64

	Ascent  float64
	Descent float64
	LineGap float64
	Height  float64 // (Ascent+Descent+LineGap) times the line spacing

	// Baseline is the baseline position measured down from the page top.
	Baseline float64

	// Offset is the horizontal alignment offset.
	Offset float64

	Gaps []Gap

	// Font is the line's dominant font, whose metrics set the line height.
	Font *font.Font

	// Overflowed is set when an unbreakable segment is wider than MaxWidth.
	Overflowed bool

	// HardBreak is set when the line ends with a mandatory break.
	HardBreak bool
}

// Top returns the top of the line measured from the page top.
func (l *Line) Top() float64 {
	return l.Baseline - l.Ascent - l.halfLeading()
}

func (l *Line) halfLeading() float64 {
	return (l.Height - (l.Ascent + l.Descent + l.LineGap)) / 2
}

// Page is a sequence of lines.
type Page struct {
	Index int
	Lines []Line

	// Width is the layout width; Height is the height of the stacked lines.
	Width  float64
	Height float64

	// Overflowed is set when the lines exceed MaxHeight, which happens when
	// pagination is disabled or a single line is taller than MaxHeight.
	Overflowed bool

	// Continued is set when the text continues on the next page.
	Continued bool
}

// HasOverflow reports whether the page or any of its lines overflowed.
func (p *Page) HasOverflow() bool {
	if p.Overflowed {
		return true
	}
	for i := range p.Lines {
		if p.Lines[i].Overflowed {
			return true
		}
	}
	return false
}

// LineBreaks returns the character offsets at which the text was broken
// into lines, in order. The end of the text is not included.
func LineBreaks(pages []Page) []int {
	var breaks []int
	for _, p := range pages {
		for _, l := range p.Lines {
			breaks = append(breaks, l.End)
		}
	}
	if len(breaks) > 0 {
		breaks = breaks[:len(breaks)-1]
	}
	return breaks
}
