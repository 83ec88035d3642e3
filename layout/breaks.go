package layout

import (
	"unicode"

	"github.com/gogpu/typeset/shape"
)

// BreakOpportunity classifies the position after a cluster.
type BreakOpportunity uint8

const (
	// BreakNo means no break is allowed here.
	BreakNo BreakOpportunity = iota
	// BreakAllowed means a line may end here.
	BreakAllowed
	// BreakMandatory means the line must end here.
	BreakMandatory
)

const zeroWidthSpace = '\u200B'

// isNewline reports whether r is a mandatory line terminator. CR is handled
// separately because CR LF forms a single terminator.
func isNewline(r rune) bool {
	switch r {
	case '\n', '\r', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// isSpace reports whether r is whitespace that hangs at a line end and
// separates words. No-break spaces are excluded.
func isSpace(r rune) bool {
	switch r {
	case '\u00A0', '\u2007', '\u202F':
		return false
	}
	return unicode.IsSpace(r)
}

// cluster is the smallest unit layout moves around: one or more glyphs that
// stand for a contiguous range of characters.
type cluster struct {
	run        int // index into the shaped runs
	g0, g1     int // glyph range within the run
	start, end int // character range
	advance    float64
	space      bool // every character is whitespace
	brk        BreakOpportunity
}

// segment is the text between two break opportunities.
type segment struct {
	c0, c1 int     // cluster range
	width  float64 // full advance width
	hang   float64 // width of trailing whitespace
	brk    BreakOpportunity
}

// content returns the width that must fit on the line.
func (s *segment) content() float64 {
	return s.width - s.hang
}

// clusterize flattens runs into clusters and returns them with the full
// source text.
func clusterize(runs []shape.GlyphRun) ([]cluster, []rune) {
	n := 0
	for i := range runs {
		if runs[i].End > n {
			n = runs[i].End
		}
	}
	text := make([]rune, n)
	for i := range runs {
		copy(text[runs[i].Start:runs[i].End], runs[i].Text)
	}

	var clusters []cluster
	for ri := range runs {
		glyphs := runs[ri].Glyphs
		for gi := 0; gi < len(glyphs); {
			g := glyphs[gi]
			c := cluster{
				run:     ri,
				g0:      gi,
				start:   g.Cluster,
				end:     g.Cluster + g.Runes,
				advance: g.Advance,
			}
			for gi++; gi < len(glyphs) && glyphs[gi].Runes == 0; gi++ {
				c.advance += glyphs[gi].Advance
			}
			c.g1 = gi
			clusters = append(clusters, c)
		}
	}

	for i := range clusters {
		c := &clusters[i]
		c.space = c.end > c.start
		for _, r := range text[c.start:c.end] {
			if !isSpace(r) {
				c.space = false
				break
			}
		}
	}
	for i := range clusters {
		clusters[i].brk = breakAfter(clusters, i, text)
	}
	return clusters, text
}

// breakAfter classifies the position after cluster i.
func breakAfter(clusters []cluster, i int, text []rune) BreakOpportunity {
	c := &clusters[i]
	if c.end == c.start {
		return BreakNo
	}

	last := text[c.end-1]
	switch {
	case last == '\r':
		if c.end < len(text) && text[c.end] == '\n' {
			return BreakNo
		}
		return BreakMandatory
	case isNewline(last):
		return BreakMandatory
	case last == zeroWidthSpace:
		return BreakAllowed
	case c.space:
		if i+1 < len(clusters) && clusters[i+1].space {
			return BreakNo
		}
		return BreakAllowed
	}
	return BreakNo
}

// segmentize groups clusters into segments ending at break opportunities.
func segmentize(clusters []cluster) []segment {
	var segs []segment
	cur := segment{}
	for i := range clusters {
		c := &clusters[i]
		cur.width += c.advance
		if c.space {
			cur.hang += c.advance
		} else {
			cur.hang = 0
		}
		cur.c1 = i + 1
		if c.brk != BreakNo {
			cur.brk = c.brk
			segs = append(segs, cur)
			cur = segment{c0: i + 1, c1: i + 1}
		}
	}
	if cur.c1 > cur.c0 {
		segs = append(segs, cur)
	}
	return segs
}
