package raster

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/gogpu/typeset/font"
)

// ErrGlyph is wrapped by errors from RasterizeGlyph.
var ErrGlyph = errors.New("raster: cannot rasterize glyph")

const (
	// MaxBitmapSize is the largest size, in pixels per em, of a glyph mask.
	MaxBitmapSize = 4096

	// maxOutlineSize keeps size*64 within a 26.6 fixed-point value.
	maxOutlineSize = 1 << 24
)

// Mode selects the glyph representation.
type Mode uint8

const (
	// ModeBitmap renders an anti-aliased alpha mask.
	ModeBitmap Mode = iota
	// ModeOutline keeps the outline as path segments.
	ModeOutline
)

// String returns "bitmap" or "outline".
func (m Mode) String() string {
	switch m {
	case ModeBitmap:
		return "bitmap"
	case ModeOutline:
		return "outline"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Op is a path operation.
type Op uint8

const (
	OpMoveTo Op = iota
	OpLineTo
	OpQuadTo
	OpCubeTo
)

// Point is a point relative to the glyph origin, y down.
type Point struct {
	X, Y float32
}

// Segment is one path operation. MoveTo and LineTo use Args[0], QuadTo uses
// Args[0] (control) and Args[1], CubeTo uses all three.
type Segment struct {
	Op   Op
	Args [3]Point
}

// points returns the number of Args the operation uses.
func (s Segment) points() int {
	switch s.Op {
	case OpQuadTo:
		return 2
	case OpCubeTo:
		return 3
	default:
		return 1
	}
}

// Rect is a bounding box relative to the glyph origin, y down.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.MinX >= r.MaxX || r.MinY >= r.MaxY
}

// Glyph is a rasterized glyph. A Glyph is immutable and may be shared.
//
// The origin is the pen position on the baseline. A glyph without an outline,
// such as a space, has no mask and no segments.
type Glyph struct {
	Mode Mode

	// Mask holds the coverage in ModeBitmap. Its bounds are in pixels
	// relative to the origin, so Mask.Rect.Min is usually negative in y.
	Mask *image.Alpha

	// Segments holds the outline in ModeOutline, in the units of the size
	// the glyph was rasterized at.
	Segments []Segment

	// Bounds is the bounding box of the outline control points.
	Bounds Rect
}

// IsEmpty reports whether the glyph paints nothing.
func (g *Glyph) IsEmpty() bool {
	return g.Mask == nil && len(g.Segments) == 0
}

// RasterizeGlyph renders glyph gid of f at size units per em: pixels for
// ModeBitmap, and whatever unit the caller paints in for ModeOutline.
func RasterizeGlyph(f *font.Font, size float64, gid font.GlyphID, mode Mode) (*Glyph, error) {
	if !(size > 0) || size > maxOutlineSize {
		return nil, fmt.Errorf("%w %d: size %v", ErrGlyph, gid, size)
	}
	if mode == ModeBitmap && size > MaxBitmapSize {
		return nil, fmt.Errorf("%w %d: bitmap size %v exceeds %d", ErrGlyph, gid, size, MaxBitmapSize)
	}
	outlines, err := f.Outlines()
	if err != nil {
		return nil, fmt.Errorf("%w %d of %s: %w", ErrGlyph, gid, f, err)
	}

	var buf sfnt.Buffer
	segs, err := outlines.LoadGlyph(&buf, sfnt.GlyphIndex(gid), fixed.Int26_6(math.Round(size*64)), nil)
	if err != nil {
		return nil, fmt.Errorf("%w %d of %s: %w", ErrGlyph, gid, f, err)
	}

	g := &Glyph{Mode: mode, Segments: convertSegments(segs)}
	g.Bounds = bounds(g.Segments)
	if mode == ModeBitmap {
		g.Mask = fill(g.Segments, g.Bounds)
		g.Segments = nil
	}
	return g, nil
}

func convertSegments(segs sfnt.Segments) []Segment {
	if len(segs) == 0 {
		return nil
	}
	out := make([]Segment, len(segs))
	for i, s := range segs {
		var op Op
		switch s.Op {
		case sfnt.SegmentOpMoveTo:
			op = OpMoveTo
		case sfnt.SegmentOpLineTo:
			op = OpLineTo
		case sfnt.SegmentOpQuadTo:
			op = OpQuadTo
		case sfnt.SegmentOpCubeTo:
			op = OpCubeTo
		}
		out[i].Op = op
		for j := range out[i].points() {
			out[i].Args[j] = Point{X: fixedToFloat(s.Args[j].X), Y: fixedToFloat(s.Args[j].Y)}
		}
	}
	return out
}

func bounds(segs []Segment) Rect {
	if len(segs) == 0 {
		return Rect{}
	}
	r := Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, s := range segs {
		for _, p := range s.Args[:s.points()] {
			r.MinX = math.Min(r.MinX, float64(p.X))
			r.MinY = math.Min(r.MinY, float64(p.Y))
			r.MaxX = math.Max(r.MaxX, float64(p.X))
			r.MaxY = math.Max(r.MaxY, float64(p.Y))
		}
	}
	return r
}

// fill rasterizes segments into a mask covering the pixel box of b.
func fill(segs []Segment, b Rect) *image.Alpha {
	if len(segs) == 0 || b.Empty() {
		return nil
	}
	rect := image.Rect(
		int(math.Floor(b.MinX)), int(math.Floor(b.MinY)),
		int(math.Ceil(b.MaxX)), int(math.Ceil(b.MaxY)),
	)
	dx, dy := float32(-rect.Min.X), float32(-rect.Min.Y)

	z := vector.NewRasterizer(rect.Dx(), rect.Dy())
	z.DrawOp = draw.Src
	for i, s := range segs {
		a := s.Args
		switch s.Op {
		case OpMoveTo:
			if i > 0 {
				z.ClosePath()
			}
			z.MoveTo(a[0].X+dx, a[0].Y+dy)
		case OpLineTo:
			z.LineTo(a[0].X+dx, a[0].Y+dy)
		case OpQuadTo:
			z.QuadTo(a[0].X+dx, a[0].Y+dy, a[1].X+dx, a[1].Y+dy)
		case OpCubeTo:
			z.CubeTo(a[0].X+dx, a[0].Y+dy, a[1].X+dx, a[1].Y+dy, a[2].X+dx, a[2].Y+dy)
		}
	}
	z.ClosePath()

	mask := image.NewAlpha(rect)
	z.Draw(mask, rect, image.Opaque, image.Point{})
	return mask
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
