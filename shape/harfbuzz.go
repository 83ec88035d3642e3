package shape

import (
	"bytes"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	gtlang "github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"

	"github.com/gogpu/typeset/font"
)

// HarfBuzz shapes text with the HarfBuzz port in go-text/typesetting:
// kerning, contextual alternates, mark positioning and complex scripts.
// Text is shaped left to right; bidirectional reordering is not performed.
//
// HarfBuzz is safe for concurrent use. It caches one parsed go-text font
// per face (go-text fonts are read-only) and pools the shaper instances,
// which are not.
type HarfBuzz struct {
	pool sync.Pool

	mu    sync.RWMutex
	fonts map[uint64]*gtfont.Font
}

// NewHarfBuzz creates a HarfBuzz shaper.
func NewHarfBuzz() *HarfBuzz {
	return &HarfBuzz{
		pool: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
		fonts: make(map[uint64]*gtfont.Font),
	}
}

// Shape implements Shaper. Runs whose font cannot be parsed by go-text are
// shaped by Simple instead.
func (s *HarfBuzz) Shape(text string, faces Chain, size float64, opts Options) []GlyphRun {
	runes := []rune(text)
	if len(runes) == 0 || len(faces) == 0 {
		return nil
	}

	lang := gtlang.NewLanguage(langOrDefault(opts.Language))
	items := faces.itemize(runes)
	runs := make([]GlyphRun, 0, len(items))

	for _, it := range items {
		f := faces[it.font]
		run := GlyphRun{
			Font:  f,
			Size:  size,
			Start: it.start,
			End:   it.end,
			Text:  runes[it.start:it.end:it.end],
		}

		gf, err := s.goTextFont(f)
		if err != nil {
			fallback := Simple{}.Shape(string(run.Text), Chain{f}, size, opts)
			run.Glyphs = rebase(fallback, it.start)
			runs = append(runs, run)
			continue
		}

		input := shaping.Input{
			Text:      runes,
			RunStart:  it.start,
			RunEnd:    it.end,
			Direction: di.DirectionLTR,
			Face:      gtfont.NewFace(gf),
			Size:      fixed.Int26_6(size * 64),
			Script:    detectScript(runes[it.start:it.end]),
			Language:  lang,
		}

		hb := s.pool.Get().(*shaping.HarfbuzzShaper)
		out := hb.Shape(input)
		s.pool.Put(hb)

		run.Glyphs = convertGlyphs(out.Glyphs, runes, f)
		runs = append(runs, run)
	}
	return runs
}

// goTextFont returns the cached go-text font for f, parsing it on first use.
func (s *HarfBuzz) goTextFont(f *font.Font) (*gtfont.Font, error) {
	s.mu.RLock()
	gf, ok := s.fonts[f.ID()]
	s.mu.RUnlock()
	if ok {
		return gf, nil
	}

	data, err := f.Data()
	if err != nil {
		return nil, err
	}
	face, err := gtfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gf, ok := s.fonts[f.ID()]; ok {
		return gf, nil
	}
	s.fonts[f.ID()] = face.Font
	return face.Font, nil
}

// convertGlyphs converts go-text output to Glyphs. Cluster indices in the
// output are absolute indices into runes.
func convertGlyphs(in []shaping.Glyph, runes []rune, f *font.Font) []Glyph {
	out := make([]Glyph, len(in))
	prev := -1
	for i, g := range in {
		gl := Glyph{
			ID:      font.GlyphID(g.GlyphID), //nolint:gosec // glyph indices of sfnt fonts fit in 16 bits
			Advance: fixedToFloat(g.Advance),
			XOffset: fixedToFloat(g.XOffset),
			YOffset: fixedToFloat(g.YOffset),
			Cluster: g.ClusterIndex,
		}
		if g.ClusterIndex != prev {
			gl.Runes = g.RuneCount
			prev = g.ClusterIndex
		}
		if gl.ID == font.NotdefGlyph {
			gl.ID = f.DefaultGlyph()
			gl.Flags |= FlagUnmapped
		}
		if gl.Runes == 1 {
			finish(&gl, runes[g.ClusterIndex])
		}
		out[i] = gl
	}
	return out
}

func rebase(runs []GlyphRun, offset int) []Glyph {
	var glyphs []Glyph
	for _, r := range runs {
		for _, g := range r.Glyphs {
			g.Cluster += offset
			glyphs = append(glyphs, g)
		}
	}
	return glyphs
}

// detectScript returns the script of the first character that has one.
func detectScript(runes []rune) gtlang.Script {
	for _, r := range runes {
		if sc := gtlang.LookupScript(r); sc != gtlang.Common && sc != gtlang.Inherited && sc != gtlang.Unknown {
			return sc
		}
	}
	return gtlang.Latin
}

func langOrDefault(tag language.Tag) string {
	if tag == language.Und {
		return "en"
	}
	return tag.String()
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
