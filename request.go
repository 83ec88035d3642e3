package typeset

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/gogpu/typeset/font"
	"github.com/gogpu/typeset/layout"
	"github.com/gogpu/typeset/raster"
)

// Format is an output encoding.
type Format = raster.Format

// Output formats.
const (
	FormatPNG = raster.FormatPNG
	FormatPDF = raster.FormatPDF
)

// Alignment is the horizontal alignment of lines.
type Alignment = layout.Alignment

// Alignments.
const (
	AlignLeft    = layout.AlignLeft
	AlignCenter  = layout.AlignCenter
	AlignRight   = layout.AlignRight
	AlignJustify = layout.AlignJustify
)

// RenderRequest describes one text to lay out and render. Lengths are in
// points.
type RenderRequest struct {
	// Text is the UTF-8 text to render. It may be empty.
	Text string

	// Family, Style and Weight select the font. An empty Family selects
	// the engine's default family; a family that is not installed falls
	// back to it. A zero Weight means normal.
	Family string
	Style  font.Style
	Weight font.Weight

	// Pattern is a font pattern such as "Go Mono-12:bold". When set it
	// replaces Family, Style and Weight, and its size is used when Size
	// is 0.
	Pattern string

	Size      float64
	MaxWidth  float64
	MaxHeight float64 // 0 means a single page of unbounded height

	Alignment Alignment
	Paginate  bool
	Format    Format

	// Language is a BCP 47 tag. Empty means undetermined.
	Language string
}

// params is a validated request.
type params struct {
	text        string
	family      string
	style       font.Style
	weight      font.Weight
	size        float64
	constraints layout.Constraints
	format      Format
	lang        language.Tag
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// validate checks req and fills in defaults.
func (req *RenderRequest) validate() (params, error) {
	p := params{
		text:   req.Text,
		family: req.Family,
		style:  req.Style,
		weight: req.Weight,
		size:   req.Size,
		format: req.Format,
		lang:   language.Und,
	}

	if !utf8.ValidString(req.Text) {
		return p, invalid("Text", "not valid UTF-8")
	}

	if strings.TrimSpace(req.Pattern) != "" {
		pat, err := font.ParsePattern(req.Pattern)
		if err != nil {
			return p, &InvalidRequestError{Field: "Pattern", Reason: "cannot parse", Err: err}
		}
		p.family, p.style, p.weight = pat.Family, pat.Style, pat.Weight
		if p.size == 0 {
			p.size = pat.Size
		}
	}

	if p.weight == 0 {
		p.weight = font.WeightNormal
	}
	switch {
	case p.weight < 1 || p.weight > 1000:
		return p, invalid("Weight", fmt.Sprintf("%d is outside 1..1000", p.weight))
	case p.style > font.StyleOblique:
		return p, invalid("Style", fmt.Sprintf("unknown style %d", p.style))
	case !(p.size > 0) || !finite(p.size):
		return p, invalid("Size", fmt.Sprintf("%v must be positive", p.size))
	case !(req.MaxWidth > 0) || !finite(req.MaxWidth):
		return p, invalid("MaxWidth", fmt.Sprintf("%v must be positive", req.MaxWidth))
	case !(req.MaxHeight >= 0) || !finite(req.MaxHeight):
		return p, invalid("MaxHeight", fmt.Sprintf("%v must not be negative", req.MaxHeight))
	case req.Alignment < AlignLeft || req.Alignment > AlignJustify:
		return p, invalid("Alignment", "unknown alignment "+req.Alignment.String())
	case req.Format != FormatPNG && req.Format != FormatPDF:
		return p, invalid("Format", "unknown format "+req.Format.String())
	}

	if req.Language != "" {
		tag, err := language.Parse(req.Language)
		if err != nil {
			return p, &InvalidRequestError{Field: "Language", Reason: fmt.Sprintf("bad tag %q", req.Language), Err: err}
		}
		p.lang = tag
	}

	p.constraints = layout.Constraints{
		MaxWidth:  req.MaxWidth,
		MaxHeight: req.MaxHeight,
		Alignment: req.Alignment,
		Paginate:  req.Paginate,
	}
	return p, nil
}
