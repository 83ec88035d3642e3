package shape

// Simple is the default shaper: one glyph per character, plus the standard
// ligatures of fonts that define them. It performs no reordering, contextual
// substitution or mark positioning.
//
// Simple is stateless and safe for concurrent use.
type Simple struct{}

// NewSimple returns the default shaper.
func NewSimple() Simple { return Simple{} }

// Shape implements Shaper.
func (Simple) Shape(text string, faces Chain, size float64, _ Options) []GlyphRun {
	runes := []rune(text)
	if len(runes) == 0 || len(faces) == 0 {
		return nil
	}

	items := faces.itemize(runes)
	runs := make([]GlyphRun, 0, len(items))
	for _, it := range items {
		f := faces[it.font]
		scale := 0.0
		if upem := f.UnitsPerEm(); upem > 0 {
			scale = size / float64(upem)
		}

		segs := f.Map(runes[it.start:it.end])
		glyphs := make([]Glyph, 0, len(segs))
		pos := it.start
		for _, seg := range segs {
			g := Glyph{
				ID:      seg.GID,
				Advance: float64(seg.Advance) * scale,
				Cluster: pos,
				Runes:   seg.Runes,
			}
			if !seg.Mapped {
				g.Flags |= FlagUnmapped
			}
			switch {
			case seg.Runes == 1:
				finish(&g, runes[pos])
			case seg.Runes == 0 && len(glyphs) > 0:
				g.Cluster = glyphs[len(glyphs)-1].Cluster
			}
			glyphs = append(glyphs, g)
			pos += seg.Runes
		}

		runs = append(runs, GlyphRun{
			Font:   f,
			Size:   size,
			Start:  it.start,
			End:    it.end,
			Text:   runes[it.start:it.end:it.end],
			Glyphs: glyphs,
		})
	}
	return runs
}
