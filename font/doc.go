// Package font indexes installed font files and resolves font requests.
//
// A [Registry] is built once by walking one or more font directories. Every
// .ttf and .otf file is parsed for its family name, style and weight; the
// resulting index is immutable, so lookups need no locking. Glyph data for a
// face is loaded on first use and shared by all later users of that face.
//
// # Matching
//
// Family names compare case-insensitively. Within a family the registry
// prefers the requested style, lets italic and oblique stand in for each
// other, and uses the upright face last. Among faces of the chosen style the
// closest weight wins; on a tie, requests above 400 take the heavier face and
// all other requests the lighter one.
//
// # Patterns
//
// [ParsePattern] accepts fontconfig-style descriptions:
//
//	DejaVu Sans-12:bold:italic
//	Go:weight=300:style=oblique
//	Go Mono:size=9.5
package font
