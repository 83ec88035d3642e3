// Package raster paints laid out pages.
//
// Glyphs are rasterized one at a time from their TrueType or CFF outlines,
// either to an alpha mask (ModeBitmap) or to a list of path segments
// (ModeOutline), and kept in a GlyphCache shared by all renders. The
// Compositor walks the lines of each page and places the cached glyphs:
// masks are blended onto an RGBA page that is encoded as PNG, outlines are
// filled as vector paths in a PDF document.
//
// Coordinates follow the layout package: the origin is the top left corner
// of the page and y grows downwards.
package raster
