package typeset

import (
	"fmt"
	"strconv"

	"github.com/gogpu/typeset/layout"
	"github.com/gogpu/typeset/raster"
	"github.com/gogpu/typeset/shape"
)

// RenderResult is the encoded output of a request and its layout.
type RenderResult struct {
	// Data holds the encoded pages: concatenated PNG images, or one PDF
	// document.
	Data   []byte `json:"-"`
	Format Format `json:"-"`

	Pages []PageInfo `json:"pages"`

	// LineBreaks lists the character offsets at which lines were broken,
	// excluding the end of the text. Offsets count Unicode code points.
	LineBreaks []int `json:"line_breaks"`

	// Overflowed is set when any page or line overflowed.
	Overflowed bool              `json:"overflowed"`
	Warnings   []OverflowWarning `json:"warnings,omitempty"`

	// Unmapped lists the offsets of characters no font maps. They are drawn
	// with the primary font's default glyph.
	Unmapped []int `json:"unmapped,omitempty"`

	// Font describes the primary font used, such as "Go (normal, 400)".
	// FontFallback is set when the requested family was not installed.
	Font         string `json:"font"`
	FontFallback bool   `json:"font_fallback"`
}

// PageData returns the encoded bytes of page i. For PDF output every page
// returns the whole document.
func (r *RenderResult) PageData(i int) []byte {
	p := r.Pages[i]
	return r.Data[p.Offset : p.Offset+p.Length]
}

// PageInfo describes one output page.
type PageInfo struct {
	Index int `json:"index"`

	// Offset and Length locate the page in RenderResult.Data.
	Offset int `json:"offset"`
	Length int `json:"length"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Overflowed bool `json:"overflowed"`
	Continued  bool `json:"continued"`

	Lines []LineInfo `json:"lines"`
}

// LineInfo describes one line of a page.
type LineInfo struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Width      float64 `json:"width"`
	Baseline   float64 `json:"baseline"`
	Height     float64 `json:"height"`
	Overflowed bool    `json:"overflowed"`
	HardBreak  bool    `json:"hard_break"`
}

// OverflowKind tells which constraint an overflow violated.
type OverflowKind uint8

const (
	// OverflowWidth: a line holds a segment wider than MaxWidth.
	OverflowWidth OverflowKind = iota
	// OverflowHeight: a page is taller than MaxHeight.
	OverflowHeight
)

func (k OverflowKind) String() string {
	switch k {
	case OverflowWidth:
		return "width"
	case OverflowHeight:
		return "height"
	default:
		return "OverflowKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k OverflowKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// OverflowWarning reports content that did not fit the constraints. It is
// not an error: the content is rendered in full.
type OverflowWarning struct {
	Kind OverflowKind `json:"kind"`
	Page int          `json:"page"`
	Line int          `json:"line"` // -1 for a page overflow

	// Start and End delimit the characters concerned.
	Start int `json:"start"`
	End   int `json:"end"`
}

func (w OverflowWarning) String() string {
	if w.Kind == OverflowHeight {
		return fmt.Sprintf("page %d overflows the maximum height (characters %d..%d)", w.Page, w.Start, w.End)
	}
	return fmt.Sprintf("page %d line %d overflows the maximum width (characters %d..%d)", w.Page, w.Line, w.Start, w.End)
}

// newResult assembles the metadata of a render.
func newResult(pages []layout.Page, out *raster.Output, format Format) *RenderResult {
	res := &RenderResult{
		Data:       out.Data,
		Format:     format,
		Pages:      make([]PageInfo, len(pages)),
		LineBreaks: layout.LineBreaks(pages),
	}
	if res.LineBreaks == nil {
		res.LineBreaks = []int{}
	}

	for pi := range pages {
		page := &pages[pi]
		info := PageInfo{
			Index:      page.Index,
			Offset:     out.Pages[pi].Offset,
			Length:     out.Pages[pi].Length,
			Width:      page.Width,
			Height:     page.Height,
			Overflowed: page.Overflowed,
			Continued:  page.Continued,
			Lines:      make([]LineInfo, len(page.Lines)),
		}
		for li := range page.Lines {
			l := &page.Lines[li]
			info.Lines[li] = LineInfo{
				Start:      l.Start,
				End:        l.End,
				Width:      l.Width,
				Baseline:   l.Baseline,
				Height:     l.Height,
				Overflowed: l.Overflowed,
				HardBreak:  l.HardBreak,
			}
			res.Unmapped = appendUnmapped(res.Unmapped, l)
			if l.Overflowed {
				res.Warnings = append(res.Warnings, OverflowWarning{
					Kind: OverflowWidth, Page: pi, Line: li, Start: l.Start, End: l.End,
				})
			}
		}
		if page.Overflowed {
			w := OverflowWarning{Kind: OverflowHeight, Page: pi, Line: -1}
			if n := len(page.Lines); n > 0 {
				w.Start, w.End = page.Lines[0].Start, page.Lines[n-1].End
			}
			res.Warnings = append(res.Warnings, w)
		}
		res.Overflowed = res.Overflowed || page.HasOverflow()
		res.Pages[pi] = info
	}
	return res
}

func appendUnmapped(dst []int, l *layout.Line) []int {
	for ri := range l.Runs {
		for _, g := range l.Runs[ri].Glyphs {
			if g.Flags&shape.FlagUnmapped == 0 {
				continue
			}
			for k := 0; k < g.Runes; k++ {
				dst = append(dst, g.Cluster+k)
			}
		}
	}
	return dst
}
