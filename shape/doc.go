// Package shape turns text into runs of positioned glyphs.
//
// A [Shaper] receives the text, a [Chain] of fonts (the primary font first,
// then fallbacks) and a size in points. Each character is drawn from the first
// font in the chain that maps it; characters no font maps use the primary
// font's default glyph. Consecutive characters drawn from the same font form
// one [GlyphRun].
//
// [Simple] is the default shaper. It maps one glyph per character and applies
// only standard ligatures, so scripts that need contextual shaping or mark
// positioning are drawn unshaped. [HarfBuzz] performs full OpenType shaping
// via go-text/typesetting for callers that need it.
package shape
