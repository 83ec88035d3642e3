package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"golang.org/x/image/draw"

	"github.com/gogpu/typeset/internal/nop"
	"github.com/gogpu/typeset/internal/parallel"
	"github.com/gogpu/typeset/layout"
)

// Format is an output encoding.
type Format uint8

const (
	// FormatPNG encodes every page as a PNG image. The images are
	// concatenated in page order.
	FormatPNG Format = iota
	// FormatPDF encodes all pages as one PDF document.
	FormatPDF
)

// String returns "png" or "pdf".
func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatPDF:
		return "pdf"
	default:
		return "Format(" + strconv.Itoa(int(f)) + ")"
	}
}

// ParseFormat parses a format name. The empty string means FormatPNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return FormatPNG, fmt.Errorf("raster: unknown format %q", s)
	}
}

// DefaultDPI is the resolution of PNG output: one pixel per point.
const DefaultDPI = 72

// DefaultMaxPixels bounds the area of one PNG page: 64 Mpx, 256 MiB of RGBA.
const DefaultMaxPixels = 1 << 26

// ErrPageTooLarge is returned when a PNG page would exceed the pixel limit.
var ErrPageTooLarge = errors.New("raster: page too large")

// PageSizeError reports a PNG page whose pixel area exceeds the limit.
type PageSizeError struct {
	Page          int
	Width, Height float64 // pixels
	MaxPixels     int
}

func (e *PageSizeError) Error() string {
	return fmt.Sprintf("raster: page %d is %.0fx%.0f pixels, more than the limit of %d",
		e.Page, e.Width, e.Height, e.MaxPixels)
}

// Is matches ErrPageTooLarge.
func (e *PageSizeError) Is(target error) bool {
	return target == ErrPageTooLarge
}

const mmPerPoint = 25.4 / 72

// PageRange is the byte range of one page within Output.Data.
type PageRange struct {
	Offset int
	Length int
}

// Output is an encoded document.
type Output struct {
	Data  []byte
	Pages []PageRange
}

// Compositor paints laid out pages using a shared GlyphCache. It is safe for
// concurrent use.
type Compositor struct {
	glyphs     *GlyphCache
	dpi        float64
	fg, bg     color.Color
	background image.Image
	maxPixels  int
	workers    int
	logger     *slog.Logger
}

// CompositorOption configures a Compositor.
type CompositorOption func(*Compositor)

// WithDPI sets the PNG resolution. Values <= 0 are ignored.
func WithDPI(dpi float64) CompositorOption {
	return func(c *Compositor) {
		if dpi > 0 {
			c.dpi = dpi
		}
	}
}

// WithColors sets the text and background colors. A nil color keeps the
// default: black text on white.
func WithColors(fg, bg color.Color) CompositorOption {
	return func(c *Compositor) {
		if fg != nil {
			c.fg = fg
		}
		if bg != nil {
			c.bg = bg
		}
	}
}

// WithBackground draws img under the text of every page, scaled to the page
// width and anchored at the top left corner. A nil image draws nothing.
func WithBackground(img image.Image) CompositorOption {
	return func(c *Compositor) {
		if img != nil && !img.Bounds().Empty() {
			c.background = img
		} else {
			c.background = nil
		}
	}
}

// WithMaxPixels bounds the pixel area of a PNG page. Values <= 0 keep
// DefaultMaxPixels.
func WithMaxPixels(n int) CompositorOption {
	return func(c *Compositor) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

// WithWorkers bounds the number of pages painted at once. 0 means
// GOMAXPROCS.
func WithWorkers(n int) CompositorOption {
	return func(c *Compositor) {
		c.workers = n
	}
}

// WithLogger sets the logger for render diagnostics.
func WithLogger(l *slog.Logger) CompositorOption {
	return func(c *Compositor) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCompositor creates a compositor drawing glyphs from glyphs.
func NewCompositor(glyphs *GlyphCache, opts ...CompositorOption) *Compositor {
	c := &Compositor{
		glyphs:    glyphs,
		dpi:       DefaultDPI,
		fg:        color.Black,
		bg:        color.White,
		maxPixels: DefaultMaxPixels,
		logger:    nop.Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DPI returns the PNG resolution.
func (c *Compositor) DPI() float64 { return c.dpi }

// Render encodes pages in format. Output is deterministic for a given input.
// A cancelled render returns ctx.Err() and no output.
func (c *Compositor) Render(ctx context.Context, pages []layout.Page, format Format) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		out *Output
		err error
	)
	switch format {
	case FormatPNG:
		out, err = c.renderPNG(ctx, pages)
	case FormatPDF:
		out, err = c.renderPDF(ctx, pages)
	default:
		return nil, fmt.Errorf("raster: unknown format %v", format)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Debug("raster: rendered",
		slog.String("format", format.String()),
		slog.Int("pages", len(pages)),
		slog.Int("bytes", len(out.Data)))
	return out, nil
}

func (c *Compositor) renderPNG(ctx context.Context, pages []layout.Page) (*Output, error) {
	for i := range pages {
		w, h := c.extent(pages[i].Width), c.extent(pages[i].Height)
		if w*h > float64(c.maxPixels) {
			return nil, &PageSizeError{Page: i, Width: w, Height: h, MaxPixels: c.maxPixels}
		}
	}

	encoded := make([][]byte, len(pages))
	err := parallel.For(ctx, len(pages), c.workers, func(ctx context.Context, i int) error {
		img, err := c.paintPage(ctx, &pages[i])
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("raster: encode page %d: %w", i, err)
		}
		encoded[i] = buf.Bytes()
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &Output{Pages: make([]PageRange, len(pages))}
	for i, data := range encoded {
		out.Pages[i] = PageRange{Offset: len(out.Data), Length: len(data)}
		out.Data = append(out.Data, data...)
	}
	return out, nil
}

// extent converts a length in points to whole pixels, at least one.
func (c *Compositor) extent(pt float64) float64 {
	return math.Max(1, math.Ceil(pt*c.dpi/72))
}

// pixels is extent as an int. The page must have passed the size check.
func (c *Compositor) pixels(pt float64) int {
	return int(c.extent(pt))
}

// paintPage blends the glyph masks of page onto a new image.
func (c *Compositor) paintPage(ctx context.Context, page *layout.Page) (*image.RGBA, error) {
	scale := c.dpi / 72
	img := image.NewRGBA(image.Rect(0, 0, c.pixels(page.Width), c.pixels(page.Height)))
	draw.Draw(img, img.Bounds(), image.NewUniform(c.bg), image.Point{}, draw.Src)
	if c.background != nil {
		sb := c.background.Bounds()
		dw := img.Bounds().Dx()
		dh := int(math.Round(float64(dw) * float64(sb.Dy()) / float64(sb.Dx())))
		draw.BiLinear.Scale(img, image.Rect(0, 0, dw, max(1, dh)), c.background, sb, draw.Over, nil)
	}
	ink := image.NewUniform(c.fg)

	for li := range page.Lines {
		line := &page.Lines[li]
		for ri := range line.Runs {
			run := &line.Runs[ri]
			ppem := run.Size * scale
			for gi, g := range run.Glyphs {
				if !g.Visible() {
					continue
				}
				glyph, err := c.glyphs.GetOrRender(ctx, run.Font, ppem, g.ID, ModeBitmap)
				if err != nil {
					return nil, err
				}
				if glyph.Mask == nil {
					continue
				}
				origin := image.Pt(
					int(math.Round((run.X[gi]+g.XOffset)*scale)),
					int(math.Round((line.Baseline-g.YOffset)*scale)),
				)
				r := glyph.Mask.Rect.Add(origin)
				draw.DrawMask(img, r, ink, image.Point{}, glyph.Mask, glyph.Mask.Rect.Min, draw.Over)
			}
		}
	}
	return img, nil
}

func (c *Compositor) renderPDF(ctx context.Context, pages []layout.Page) (*Output, error) {
	if len(pages) == 0 {
		return &Output{}, nil
	}

	var buf bytes.Buffer
	w, h := pageSize(&pages[0])
	writer := pdf.New(&buf, w, h, nil)
	paths := make(map[GlyphKey]*canvas.Path)

	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := &pages[i]
		w, h := pageSize(page)
		if i > 0 {
			writer.NewPage(w, h)
		}

		cv := canvas.New(w, h)
		cc := canvas.NewContext(cv)
		if _, _, _, a := c.bg.RGBA(); a != 0 {
			cc.SetFillColor(c.bg)
			cc.DrawPath(0, 0, canvas.Rectangle(w, h))
		}
		if c.background != nil {
			sb := c.background.Bounds()
			dpmm := float64(sb.Dx()) / w
			cc.DrawImage(0, h-float64(sb.Dy())/dpmm, c.background, canvas.DPMM(dpmm))
		}
		cc.SetFillColor(c.fg)
		if err := c.drawOutlines(ctx, cc, page, paths); err != nil {
			return nil, err
		}
		cv.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("raster: write pdf: %w", err)
	}

	data := buf.Bytes()
	out := &Output{Data: data, Pages: make([]PageRange, len(pages))}
	for i := range out.Pages {
		out.Pages[i] = PageRange{Offset: 0, Length: len(data)}
	}
	return out, nil
}

// pageSize returns the page size in millimetres. A page without lines still
// gets a height of one point.
func pageSize(p *layout.Page) (w, h float64) {
	return p.Width * mmPerPoint, math.Max(p.Height, 1) * mmPerPoint
}

// drawOutlines fills the glyph outlines of page onto cc. The canvas has its
// origin at the bottom left with y up, so positions are flipped against the
// page height.
func (c *Compositor) drawOutlines(ctx context.Context, cc *canvas.Context, page *layout.Page, paths map[GlyphKey]*canvas.Path) error {
	_, height := pageSize(page)
	for li := range page.Lines {
		line := &page.Lines[li]
		for ri := range line.Runs {
			run := &line.Runs[ri]
			for gi, g := range run.Glyphs {
				if !g.Visible() {
					continue
				}
				key := NewGlyphKey(run.Font, run.Size, g.ID, ModeOutline)
				p, ok := paths[key]
				if !ok {
					glyph, err := c.glyphs.GetOrRender(ctx, run.Font, run.Size, g.ID, ModeOutline)
					if err != nil {
						return err
					}
					p = outlinePath(glyph.Segments)
					paths[key] = p
				}
				if p == nil {
					continue
				}
				cc.DrawPath((run.X[gi]+g.XOffset)*mmPerPoint, height-(line.Baseline-g.YOffset)*mmPerPoint, p)
			}
		}
	}
	return nil
}

// outlinePath converts segments in points, y down, to a path in
// millimetres, y up.
func outlinePath(segs []Segment) *canvas.Path {
	if len(segs) == 0 {
		return nil
	}
	mm := func(v float32) float64 { return float64(v) * mmPerPoint }
	up := func(v float32) float64 { return -float64(v) * mmPerPoint }

	p := &canvas.Path{}
	for i, s := range segs {
		a := s.Args
		switch s.Op {
		case OpMoveTo:
			if i > 0 {
				p.Close()
			}
			p.MoveTo(mm(a[0].X), up(a[0].Y))
		case OpLineTo:
			p.LineTo(mm(a[0].X), up(a[0].Y))
		case OpQuadTo:
			p.QuadTo(mm(a[0].X), up(a[0].Y), mm(a[1].X), up(a[1].Y))
		case OpCubeTo:
			p.CubeTo(mm(a[0].X), up(a[0].Y), mm(a[1].X), up(a[1].Y), mm(a[2].X), up(a[2].Y))
		}
	}
	p.Close()
	return p
}
