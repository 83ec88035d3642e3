// Package typeset lays out text and renders it to PNG or PDF.
//
// # Overview
//
// An Engine owns a font registry built from a font directory, a shaper, and
// a bounded cache of rasterized glyphs shared by all requests. Each
// RenderRequest is shaped into glyph runs, broken into lines at Unicode line
// break opportunities, optionally paginated, and encoded.
//
// # Quick Start
//
//	eng, err := typeset.New(typeset.WithFontDirs("/usr/share/fonts"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	res, err := eng.Render(ctx, typeset.RenderRequest{
//	    Text:     "Hello world",
//	    Family:   "DejaVu Sans",
//	    Size:     12,
//	    MaxWidth: 200,
//	})
//
// res.Data holds the encoded pages and res.LineBreaks the character offsets
// at which lines were broken.
//
// # Units
//
// Sizes and lengths are in points. PNG output maps one point to one pixel at
// the default 72 DPI; see WithDPI. Character offsets count Unicode code
// points, not bytes.
//
// # Overflow
//
// Content that does not fit is never dropped. A segment wider than MaxWidth
// gets a line of its own, and lines beyond MaxHeight either move to new
// pages (Paginate) or stay on an overflowed page. Both are reported in
// RenderResult.Warnings.
//
// # Architecture
//
// The engine is organized into:
//   - font: registry, face matching, font patterns
//   - shape: glyph runs, fallback chains, optional HarfBuzz shaping
//   - layout: line breaking, alignment, pagination
//   - cache: sharded LRU with single-flight computation
//   - raster: glyph rasterization, glyph cache, PNG and PDF output
package typeset
