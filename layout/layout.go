package layout

import (
	"context"

	"github.com/gogpu/typeset/font"
	"github.com/gogpu/typeset/shape"
)

// epsilon absorbs floating point noise in width and height comparisons.
const epsilon = 1e-9

// Layout breaks runs into lines and stacks the lines into pages.
//
// runs must cover the shaped text without gaps and in order, as returned by
// a shape.Shaper. Empty input yields one empty page. Cancellation is checked
// before layout starts and at every page boundary; a cancelled layout
// returns ctx.Err() and no pages.
func Layout(ctx context.Context, runs []shape.GlyphRun, c Constraints) ([]Page, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.LineSpacing == 0 {
		c.LineSpacing = 1
	}

	clusters, _ := clusterize(runs)
	segs := segmentize(clusters)
	lines := breakLines(segs, c.MaxWidth)

	b := lineBuilder{runs: runs, clusters: clusters, c: c}
	built := make([]Line, 0, len(lines))
	for i, l := range lines {
		built = append(built, b.build(l, i == len(lines)-1))
	}

	return paginate(ctx, built, c)
}

// lineSpan is a line as a range of clusters.
type lineSpan struct {
	c0, c1 int
	hard   bool
}

// breakLines fills lines greedily from segments.
func breakLines(segs []segment, maxWidth float64) []lineSpan {
	var (
		lines []lineSpan
		cur   lineSpan
		full  float64 // width of the segments on the line, trailing spaces included
		open  bool
	)
	for i := range segs {
		s := &segs[i]
		switch {
		case !open:
			cur = lineSpan{c0: s.c0, c1: s.c1}
			full = s.width
			open = true
		case full+s.content() <= maxWidth+epsilon:
			cur.c1 = s.c1
			full += s.width
		default:
			lines = append(lines, cur)
			cur = lineSpan{c0: s.c0, c1: s.c1}
			full = s.width
		}

		if s.brk == BreakMandatory {
			cur.hard = true
			lines = append(lines, cur)
			open = false
		}
	}
	if open {
		lines = append(lines, cur)
	}
	return lines
}

type lineBuilder struct {
	runs     []shape.GlyphRun
	clusters []cluster
	c        Constraints
}

// build positions the clusters of span on a line.
func (b *lineBuilder) build(span lineSpan, last bool) Line {
	cs := b.clusters[span.c0:span.c1]

	// Trailing whitespace hangs.
	content := len(cs)
	for content > 0 && cs[content-1].space {
		content--
	}
	var width float64
	for i := range cs[:content] {
		width += cs[i].advance
	}

	line := Line{
		Start:      cs[0].start,
		End:        cs[len(cs)-1].end,
		Width:      width,
		HardBreak:  span.hard,
		Overflowed: width > b.c.MaxWidth+epsilon,
	}

	gaps, gapAt := findGaps(cs[:content])
	extra := b.c.MaxWidth - width
	justify := b.c.Alignment == AlignJustify &&
		!span.hard && !last && !line.Overflowed &&
		len(gaps) > 0 && extra > epsilon
	if justify {
		distribute(gaps, extra)
		line.Width = b.c.MaxWidth
	}
	line.Gaps = gaps

	switch {
	case line.Overflowed:
	case b.c.Alignment == AlignCenter:
		line.Offset = (b.c.MaxWidth - line.Width) / 2
	case b.c.Alignment == AlignRight:
		line.Offset = b.c.MaxWidth - line.Width
	}

	pen := line.Offset
	for i := 0; i < len(cs); {
		ri := cs[i].run
		run := &b.runs[ri]
		j := i
		for j < len(cs) && cs[j].run == ri {
			j++
		}
		lo, hi := &cs[i], &cs[j-1]
		pr := PlacedRun{GlyphRun: shape.GlyphRun{
			Font:   run.Font,
			Size:   run.Size,
			Start:  lo.start,
			End:    hi.end,
			Text:   run.Text[lo.start-run.Start : hi.end-run.Start],
			Glyphs: run.Glyphs[lo.g0:hi.g1],
		}}
		pr.X = make([]float64, 0, len(pr.Glyphs))
		for k := i; k < j; k++ {
			cl := &cs[k]
			for gi := cl.g0; gi < cl.g1; gi++ {
				pr.X = append(pr.X, pen)
				pen += run.Glyphs[gi].Advance
			}
			if g, ok := gapAt[k]; ok && justify {
				pen += gaps[g].Width - gaps[g].Natural
			}
		}
		line.Runs = append(line.Runs, pr)
		i = j
	}

	b.measure(&line)
	return line
}

// findGaps returns the inter-word whitespace runs of a line without its
// hanging whitespace, and a map from the last cluster of each gap to its
// index. Leading whitespace is not a gap.
func findGaps(cs []cluster) ([]Gap, map[int]int) {
	var gaps []Gap
	at := make(map[int]int)
	seenWord := false
	for i := 0; i < len(cs); {
		if !cs[i].space {
			if cs[i].end > cs[i].start {
				seenWord = true
			}
			i++
			continue
		}
		j := i
		var w float64
		for j < len(cs) && cs[j].space {
			w += cs[j].advance
			j++
		}
		if seenWord && j < len(cs) {
			at[j-1] = len(gaps)
			gaps = append(gaps, Gap{Start: cs[i].start, End: cs[j-1].end, Natural: w, Width: w})
		}
		i = j
	}
	return gaps, at
}

// distribute spreads extra over gaps in proportion to their natural widths,
// or equally when every gap has zero width.
func distribute(gaps []Gap, extra float64) {
	var total float64
	for _, g := range gaps {
		total += g.Natural
	}
	for i := range gaps {
		if total > epsilon {
			gaps[i].Width = gaps[i].Natural + extra*gaps[i].Natural/total
		} else {
			gaps[i].Width = gaps[i].Natural + extra/float64(len(gaps))
		}
	}
}

// measure sets the vertical metrics of l from its dominant font: the font
// covering the most advance width, the first one on ties.
func (b *lineBuilder) measure(l *Line) {
	var (
		dominant *font.Font
		size     float64
		best     float64
	)
	widths := make(map[*font.Font]float64)
	for i := range l.Runs {
		pr := &l.Runs[i]
		widths[pr.Font] += pr.Width()
	}
	for i := range l.Runs {
		pr := &l.Runs[i]
		if w := widths[pr.Font]; dominant == nil || w > best+epsilon {
			dominant, size, best = pr.Font, pr.Size, w
		}
	}
	if dominant == nil {
		return
	}

	l.Font = dominant
	l.Ascent, l.Descent, l.LineGap = dominant.Metrics().Scale(size)
	l.Height = (l.Ascent + l.Descent + l.LineGap) * b.c.LineSpacing
}

// paginate stacks lines into pages.
func paginate(ctx context.Context, lines []Line, c Constraints) ([]Page, error) {
	page := Page{Index: 0, Width: c.MaxWidth}
	var pages []Page

	for i := range lines {
		l := lines[i]
		if c.MaxHeight > 0 && len(page.Lines) > 0 && page.Height+l.Height > c.MaxHeight+epsilon {
			if c.Paginate {
				page.Continued = true
				pages = append(pages, page)
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				page = Page{Index: len(pages), Width: c.MaxWidth}
			}
		}

		l.Baseline = page.Height + l.halfLeading() + l.Ascent
		page.Lines = append(page.Lines, l)
		page.Height += l.Height
		if c.MaxHeight > 0 && page.Height > c.MaxHeight+epsilon {
			page.Overflowed = true
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append(pages, page), nil
}
