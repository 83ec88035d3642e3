package typeset

import (
	"image"
	"image/color"
	"io/fs"
	"log/slog"

	"github.com/gogpu/typeset/cache"
	"github.com/gogpu/typeset/font"
	"github.com/gogpu/typeset/raster"
	"github.com/gogpu/typeset/shape"
)

// Option configures an Engine.
//
// Example:
//
//	eng, err := typeset.New(
//	    typeset.WithFontDirs("/usr/share/fonts"),
//	    typeset.WithFallbackFamilies("Noto Sans", "Noto Sans CJK SC"),
//	    typeset.WithDPI(144),
//	)
type Option func(*config)

type config struct {
	registry      *font.Registry
	fontOpts      []font.Option
	defaultFamily string
	fallbacks     []string
	glyphEntries  int
	policy        font.GlyphPolicy
	shaper        shape.Shaper
	dpi           float64
	fg, bg        color.Color
	background    image.Image
	maxPixels     int
	lineSpacing   float64
	workers       int
	logger        *slog.Logger
}

func defaultConfig() config {
	return config{
		defaultFamily: font.DefaultFamily,
		glyphEntries:  cache.DefaultMaxEntries,
		policy:        font.PolicyNotdef,
		dpi:           raster.DefaultDPI,
		maxPixels:     raster.DefaultMaxPixels,
		lineSpacing:   1,
	}
}

// WithRegistry makes the engine use an existing font registry. The font
// directory, default family and glyph policy options are then ignored.
func WithRegistry(r *font.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithFontDirs adds directories to scan for fonts. Without any font source
// the conventional system directories are scanned.
func WithFontDirs(dirs ...string) Option {
	return func(c *config) {
		c.fontOpts = append(c.fontOpts, font.WithDirs(dirs...))
	}
}

// WithFontFS adds the tree below root in fsys to the scanned fonts.
func WithFontFS(fsys fs.FS, root string) Option {
	return func(c *config) {
		c.fontOpts = append(c.fontOpts, font.WithFS(fsys, root))
	}
}

// WithDefaultFamily sets the family used when a request names none or names
// one that is not installed. New fails if it is not installed.
// The default is font.DefaultFamily.
func WithDefaultFamily(family string) Option {
	return func(c *config) {
		c.defaultFamily = family
	}
}

// WithFallbackFamilies sets families consulted, in order, for characters
// the requested font does not map.
func WithFallbackFamilies(families ...string) Option {
	return func(c *config) {
		c.fallbacks = append([]string(nil), families...)
	}
}

// WithGlyphCacheEntries bounds the number of rasterized glyphs kept.
func WithGlyphCacheEntries(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.glyphEntries = n
		}
	}
}

// WithGlyphPolicy selects the glyph drawn for characters no font maps.
func WithGlyphPolicy(p font.GlyphPolicy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithShaper replaces the default shape.Simple shaper, for example with
// shape.NewHarfBuzz().
func WithShaper(s shape.Shaper) Option {
	return func(c *config) {
		c.shaper = s
	}
}

// WithDPI sets the resolution of PNG output. The default of 72 maps one
// point to one pixel.
func WithDPI(dpi float64) Option {
	return func(c *config) {
		if dpi > 0 {
			c.dpi = dpi
		}
	}
}

// WithColors sets the text and background colors. Nil keeps the default
// black on white.
func WithColors(fg, bg color.Color) Option {
	return func(c *config) {
		c.fg, c.bg = fg, bg
	}
}

// WithBackgroundImage draws img under the text of every page, scaled to the
// page width and anchored at the top left corner.
func WithBackgroundImage(img image.Image) Option {
	return func(c *config) {
		c.background = img
	}
}

// WithMaxPixels bounds the pixel area of one PNG page. Larger pages fail
// with a *RenderBackendError matching raster.ErrPageTooLarge. The default is
// raster.DefaultMaxPixels.
func WithMaxPixels(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

// WithLineSpacing multiplies the natural line height.
func WithLineSpacing(factor float64) Option {
	return func(c *config) {
		if factor > 0 {
			c.lineSpacing = factor
		}
	}
}

// WithWorkers sets the number of requests RenderBatch runs at once and the
// number of pages painted at once per request. 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithLogger sets the engine's logger. Without it the engine uses the
// package logger current at New; see SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
