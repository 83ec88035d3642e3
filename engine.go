package typeset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/typeset/cache"
	"github.com/gogpu/typeset/font"
	"github.com/gogpu/typeset/internal/parallel"
	"github.com/gogpu/typeset/layout"
	"github.com/gogpu/typeset/raster"
	"github.com/gogpu/typeset/shape"
)

// Engine lays out and renders text. The font registry is built once by New;
// rasterized glyphs are shared by all requests through a bounded cache.
//
// Engine is safe for concurrent use.
type Engine struct {
	registry    *font.Registry
	fallbacks   []string
	shaper      shape.Shaper
	glyphs      *raster.GlyphCache
	compositor  *raster.Compositor
	pool        *parallel.WorkerPool
	lineSpacing float64
	logger      *slog.Logger
}

// New warms up the font registry and returns a ready engine. It fails with
// an error matching font.ErrFontNotFound when the default family is not
// installed.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = Logger()
	}

	registry := cfg.registry
	if registry == nil {
		fontOpts := append(cfg.fontOpts,
			font.WithDefaultFamily(cfg.defaultFamily),
			font.WithGlyphPolicy(cfg.policy),
			font.WithLogger(logger),
		)
		var err error
		registry, err = font.NewRegistry(fontOpts...)
		if err != nil {
			return nil, fmt.Errorf("typeset: font registry: %w", err)
		}
	}

	for _, fam := range cfg.fallbacks {
		if !registry.Has(fam) {
			logger.Warn("typeset: fallback family not installed", "family", fam)
		}
	}

	shaper := cfg.shaper
	if shaper == nil {
		shaper = shape.NewSimple()
	}

	glyphs := raster.NewGlyphCache(cfg.glyphEntries)
	e := &Engine{
		registry:  registry,
		fallbacks: cfg.fallbacks,
		shaper:    shaper,
		glyphs:    glyphs,
		compositor: raster.NewCompositor(glyphs,
			raster.WithDPI(cfg.dpi),
			raster.WithColors(cfg.fg, cfg.bg),
			raster.WithBackground(cfg.background),
			raster.WithMaxPixels(cfg.maxPixels),
			raster.WithWorkers(cfg.workers),
			raster.WithLogger(logger),
		),
		pool:        parallel.NewWorkerPool(cfg.workers),
		lineSpacing: cfg.lineSpacing,
		logger:      logger,
	}
	return e, nil
}

// Close stops the batch workers. Render keeps working after Close;
// RenderBatch returns ErrClosed.
func (e *Engine) Close() error {
	e.pool.Close()
	return nil
}

// Registry returns the engine's font registry.
func (e *Engine) Registry() *font.Registry {
	return e.registry
}

// GlyphCacheStats returns a snapshot of the glyph cache counters.
func (e *Engine) GlyphCacheStats() cache.Stats {
	return e.glyphs.Stats()
}

// Render lays out req.Text and encodes it in req.Format.
//
// Invalid requests fail with an *InvalidRequestError. Glyph loading,
// rasterization and encoding failures are reported as *RenderBackendError.
// Content that does not fit the constraints is not an error; see
// RenderResult.Warnings. A cancelled context aborts the render and its error
// is returned as is.
func (e *Engine) Render(ctx context.Context, req RenderRequest) (*RenderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := req.validate()
	if err != nil {
		return nil, err
	}

	pages, primary, fellBack, err := e.layout(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := e.compositor.Render(ctx, pages, p.format)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RenderBackendError{Op: "rasterize", Err: err}
	}

	res := newResult(pages, out, p.format)
	res.Font = primary.String()
	res.FontFallback = fellBack

	if e.logger.Enabled(ctx, slog.LevelDebug) {
		stats := e.glyphs.Stats()
		e.logger.DebugContext(ctx, "typeset: rendered",
			slog.String("font", res.Font),
			slog.Bool("fallback", fellBack),
			slog.Int("unmapped", len(res.Unmapped)),
			slog.Int("pages", len(res.Pages)),
			slog.Int("bytes", len(res.Data)),
			slog.Bool("overflowed", res.Overflowed),
			slog.Float64("glyph_hit_rate", stats.HitRate))
	}
	return res, nil
}

// layout resolves the fonts of a validated request, shapes its text and
// breaks it into pages.
func (e *Engine) layout(ctx context.Context, p params) ([]layout.Page, *font.Font, bool, error) {
	primary, fellBack, err := e.registry.Resolve(p.family, p.style, p.weight)
	if err != nil {
		if errors.Is(err, font.ErrFontNotFound) {
			return nil, nil, false, err
		}
		return nil, nil, false, &RenderBackendError{Op: "font", Err: err}
	}
	chain := shape.NewChain(primary, e.fallbackFonts(p.style, p.weight)...)

	runs := e.shaper.Shape(p.text, chain, p.size, shape.Options{Language: p.lang})

	constraints := p.constraints
	constraints.LineSpacing = e.lineSpacing
	pages, err := layout.Layout(ctx, runs, constraints)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, false, ctx.Err()
		}
		return nil, nil, false, fmt.Errorf("typeset: layout: %w", err)
	}
	return pages, primary, fellBack, nil
}

// fallbackFonts resolves the configured fallback families for a request.
// Families that are missing or fail to load are skipped.
func (e *Engine) fallbackFonts(style font.Style, weight font.Weight) []*font.Font {
	if len(e.fallbacks) == 0 {
		return nil
	}
	fonts := make([]*font.Font, 0, len(e.fallbacks))
	for _, fam := range e.fallbacks {
		f, err := e.registry.Lookup(fam, style, weight)
		if err != nil {
			e.logger.Debug("typeset: skipping fallback family", "family", fam, "err", err)
			continue
		}
		fonts = append(fonts, f)
	}
	return fonts
}

// BatchResult is the outcome of one request of a batch.
type BatchResult struct {
	Result *RenderResult
	Err    error
}

// RenderBatch renders reqs on the engine's workers and returns their
// outcomes in input order. A failing request does not stop the others.
// When ctx is cancelled, requests that did not complete report its error.
func (e *Engine) RenderBatch(ctx context.Context, reqs []RenderRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))
	done := make([]bool, len(reqs))

	err := e.pool.Run(ctx, len(reqs), func(ctx context.Context, i int) error {
		res, err := e.Render(ctx, reqs[i])
		results[i] = BatchResult{Result: res, Err: err}
		done[i] = true
		return nil
	})
	if err == nil {
		return results
	}

	if errors.Is(err, parallel.ErrPoolClosed) {
		err = ErrClosed
	}
	for i := range results {
		if !done[i] {
			results[i] = BatchResult{Err: err}
		}
	}
	return results
}
