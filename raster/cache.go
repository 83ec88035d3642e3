package raster

import (
	"context"
	"math"

	"github.com/gogpu/typeset/cache"
	"github.com/gogpu/typeset/font"
)

// GlyphKey identifies a cached glyph.
type GlyphKey struct {
	Font uint64 // font.Font.ID
	Size uint64 // math.Float64bits of the size
	GID  font.GlyphID
	Mode Mode
}

// NewGlyphKey returns the key of glyph gid of f at size in mode.
func NewGlyphKey(f *font.Font, size float64, gid font.GlyphID, mode Mode) GlyphKey {
	return GlyphKey{Font: f.ID(), Size: math.Float64bits(size), GID: gid, Mode: mode}
}

func hashGlyphKey(k GlyphKey) uint64 {
	h := k.Font
	h ^= k.Size + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
	h ^= uint64(k.GID)<<8 | uint64(k.Mode)
	h *= 0xff51afd7ed558ccd
	return h ^ h>>33
}

// RasterizeFunc renders one glyph. RasterizeGlyph is the default.
type RasterizeFunc func(f *font.Font, size float64, gid font.GlyphID, mode Mode) (*Glyph, error)

// GlyphCache is a bounded cache of rasterized glyphs shared by concurrent
// renders. Each glyph is rasterized at most once at a time; concurrent
// requests for a glyph being rasterized wait for that result.
type GlyphCache struct {
	glyphs    *cache.Cache[GlyphKey, *Glyph]
	rasterize RasterizeFunc
}

// GlyphCacheOption configures a GlyphCache.
type GlyphCacheOption func(*GlyphCache)

// WithRasterizer replaces the function used on a cache miss.
func WithRasterizer(fn RasterizeFunc) GlyphCacheOption {
	return func(c *GlyphCache) {
		if fn != nil {
			c.rasterize = fn
		}
	}
}

// NewGlyphCache creates a cache holding at most maxEntries glyphs.
// maxEntries <= 0 selects cache.DefaultMaxEntries.
func NewGlyphCache(maxEntries int, opts ...GlyphCacheOption) *GlyphCache {
	c := &GlyphCache{
		glyphs:    cache.New[GlyphKey, *Glyph](maxEntries, hashGlyphKey),
		rasterize: RasterizeGlyph,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrRender returns the cached glyph, rasterizing it on a miss. Failed
// rasterizations are not cached.
func (c *GlyphCache) GetOrRender(ctx context.Context, f *font.Font, size float64, gid font.GlyphID, mode Mode) (*Glyph, error) {
	return c.glyphs.GetOrCompute(ctx, NewGlyphKey(f, size, gid, mode), func() (*Glyph, error) {
		return c.rasterize(f, size, gid, mode)
	})
}

// Stats returns the cache statistics.
func (c *GlyphCache) Stats() cache.Stats {
	return c.glyphs.Stats()
}

// Len returns the number of cached glyphs.
func (c *GlyphCache) Len() int {
	return c.glyphs.Len()
}

// Clear drops every cached glyph.
func (c *GlyphCache) Clear() {
	c.glyphs.Clear()
}
