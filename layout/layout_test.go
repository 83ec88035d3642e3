package layout

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/typeset/font"
	"github.com/gogpu/typeset/internal/fonttest"
	"github.com/gogpu/typeset/shape"
)

// monoRun shapes text with every character advancing by adv, except
// newlines and zero width spaces, which advance by 0. Widths in these tests
// are exact multiples of adv.
func monoRun(f *font.Font, text string, adv float64) []shape.GlyphRun {
	rs := []rune(text)
	if len(rs) == 0 {
		return nil
	}
	run := shape.GlyphRun{Font: f, Size: 10, Start: 0, End: len(rs), Text: rs}
	for i, r := range rs {
		g := shape.Glyph{Advance: adv, Cluster: i, Runes: 1}
		if isNewline(r) || r == zeroWidthSpace {
			g.Advance = 0
			g.Flags = shape.FlagInvisible
		}
		run.Glyphs = append(run.Glyphs, g)
	}
	return []shape.GlyphRun{run}
}

// lineTexts returns the text of every line on every page.
func lineTexts(pages []Page, text string) []string {
	rs := []rune(text)
	var out []string
	for _, p := range pages {
		for _, l := range p.Lines {
			out = append(out, string(rs[l.Start:l.End]))
		}
	}
	return out
}

func mustLayout(t *testing.T, runs []shape.GlyphRun, c Constraints) []Page {
	t.Helper()
	pages, err := Layout(context.Background(), runs, c)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	return pages
}

func TestLayoutBreaking(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)

	tests := []struct {
		name  string
		text  string
		width float64
		want  []string
	}{
		{"fits", "hello world", 11, []string{"hello world"}},
		{"wraps at space", "hello world", 10, []string{"hello ", "world"}},
		{"trailing space hangs", "hello world", 5, []string{"hello ", "world"}},
		{"greedy fill", "aa bb cc dd", 5, []string{"aa bb ", "cc dd"}},
		{"space run stays together", "aa   bb", 3, []string{"aa   ", "bb"}},
		{"long word overflows", "a verylongword b", 5, []string{"a ", "verylongword ", "b"}},
		{"newline", "ab\ncd", 100, []string{"ab\n", "cd"}},
		{"trailing newline", "ab\n", 100, []string{"ab\n"}},
		{"blank line", "ab\n\ncd", 100, []string{"ab\n", "\n", "cd"}},
		{"crlf", "ab\r\ncd", 100, []string{"ab\r\n", "cd"}},
		{"lone cr", "ab\rcd", 100, []string{"ab\r", "cd"}},
		{"line separator", "ab\u2028cd", 100, []string{"ab\u2028", "cd"}},
		{"zero width space", "abc\u200Bdef", 4, []string{"abc\u200B", "def"}},
		{"no break space", "ab\u00A0cd ef", 4, []string{"ab\u00A0cd ", "ef"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := mustLayout(t, monoRun(f, tt.text, 1), Constraints{MaxWidth: tt.width})
			if diff := cmp.Diff(tt.want, lineTexts(pages, tt.text)); diff != "" {
				t.Errorf("lines (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLayoutBreaksOnlyAtOpportunities(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)

	text := "The quick brown fox jumps over the lazy dog.\nPack my box with five dozen liquor jugs.\u200Bwaltz"
	runs := shape.NewSimple().Shape(text, shape.NewChain(f), 12, shape.Options{})
	rs := []rune(text)

	for _, width := range []float64{20, 60, 100, 150, 300} {
		pages := mustLayout(t, runs, Constraints{MaxWidth: width})
		for _, b := range LineBreaks(pages) {
			prev := rs[b-1]
			if !isSpace(prev) && !isNewline(prev) && prev != zeroWidthSpace {
				t.Errorf("width %v: break at %d after %q", width, b, prev)
			}
			if b < len(rs) && isSpace(rs[b]) && !isNewline(prev) {
				t.Errorf("width %v: break at %d splits a whitespace run", width, b)
			}
		}
		for _, p := range pages {
			for _, l := range p.Lines {
				if l.Width > width+epsilon && !l.Overflowed {
					t.Errorf("width %v: line %q is %v wide but not overflowed", width, string(rs[l.Start:l.End]), l.Width)
				}
			}
		}
	}
}

func TestLayoutContiguous(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)

	text := "one two three\r\nfour  five six seven eight nine ten"
	runs := shape.NewSimple().Shape(text, shape.NewChain(f), 10, shape.Options{})
	pages := mustLayout(t, runs, Constraints{MaxWidth: 40, MaxHeight: 30, Paginate: true})

	pos := 0
	for pi, p := range pages {
		if p.Index != pi {
			t.Errorf("page %d has index %d", pi, p.Index)
		}
		for _, l := range p.Lines {
			if l.Start != pos {
				t.Fatalf("line starts at %d, want %d", l.Start, pos)
			}
			var glyphs int
			for _, r := range l.Runs {
				if len(r.X) != len(r.Glyphs) {
					t.Errorf("run has %d positions for %d glyphs", len(r.X), len(r.Glyphs))
				}
				if len(r.Text) != r.Len() {
					t.Errorf("run text %q does not match span [%d,%d)", string(r.Text), r.Start, r.End)
				}
				glyphs += len(r.Glyphs)
			}
			if glyphs == 0 {
				t.Errorf("line [%d,%d) has no glyphs", l.Start, l.End)
			}
			pos = l.End
		}
	}
	if n := len([]rune(text)); pos != n {
		t.Errorf("lines end at %d, want %d", pos, n)
	}

	breaks := LineBreaks(pages)
	var lines int
	for _, p := range pages {
		lines += len(p.Lines)
	}
	if len(breaks) != lines-1 {
		t.Errorf("got %d breaks for %d lines", len(breaks), lines)
	}
}

func TestLayoutEmpty(t *testing.T) {
	pages := mustLayout(t, nil, Constraints{MaxWidth: 100, MaxHeight: 50})
	want := []Page{{Index: 0, Width: 100}}
	if diff := cmp.Diff(want, pages); diff != "" {
		t.Errorf("empty layout (-want +got):\n%s", diff)
	}
	if b := LineBreaks(pages); len(b) != 0 {
		t.Errorf("LineBreaks = %v, want none", b)
	}
}

func TestLayoutAlignment(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)

	tests := []struct {
		align  Alignment
		offset float64
	}{
		{AlignLeft, 0},
		{AlignCenter, 3},
		{AlignRight, 6},
		{AlignJustify, 0},
	}
	for _, tt := range tests {
		t.Run(tt.align.String(), func(t *testing.T) {
			pages := mustLayout(t, monoRun(f, "ab cd", 1), Constraints{MaxWidth: 11, Alignment: tt.align})
			l := pages[0].Lines[0]
			if l.Offset != tt.offset {
				t.Errorf("offset = %v, want %v", l.Offset, tt.offset)
			}
			if l.Runs[0].X[0] != tt.offset {
				t.Errorf("first pen position = %v, want %v", l.Runs[0].X[0], tt.offset)
			}
			if l.Width != 5 {
				t.Errorf("width = %v, want 5", l.Width)
			}
		})
	}
}

func TestLayoutOverflowIsLeftAligned(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)

	pages := mustLayout(t, monoRun(f, "abcdefgh", 1), Constraints{MaxWidth: 4, Alignment: AlignRight})
	l := pages[0].Lines[0]
	if !l.Overflowed || l.Offset != 0 || l.Width != 8 {
		t.Errorf("overflowed line: Overflowed=%v Offset=%v Width=%v", l.Overflowed, l.Offset, l.Width)
	}
	if !pages[0].HasOverflow() {
		t.Error("page with an overflowed line should report overflow")
	}
}

func TestLayoutJustify(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)

	text := "aa b  cc ddd\nee f"
	pages := mustLayout(t, monoRun(f, text, 1), Constraints{MaxWidth: 10, Alignment: AlignJustify})
	lines := pages[0].Lines
	if got := lineTexts(pages, text); !cmp.Equal(got, []string{"aa b  cc ", "ddd\n", "ee f"}) {
		t.Fatalf("lines = %q", got)
	}

	first := lines[0]
	if first.Width != 10 {
		t.Errorf("justified width = %v, want 10", first.Width)
	}
	if len(first.Gaps) != 2 {
		t.Fatalf("got %d gaps, want 2", len(first.Gaps))
	}
	var natural, stretched float64
	for _, g := range first.Gaps {
		natural += g.Natural
		stretched += g.Width
	}
	// "aa b  cc" is 8 wide: 2 points are shared 1:2 by the gaps.
	if math.Abs(stretched-natural-2) > 1e-9 {
		t.Errorf("gaps grew by %v, want 2", stretched-natural)
	}
	if math.Abs(first.Gaps[1].Width-2*first.Gaps[0].Width) > 1e-9 {
		t.Errorf("gap widths %v and %v are not proportional", first.Gaps[0].Width, first.Gaps[1].Width)
	}

	// The last glyph of the line ends at the right edge.
	r := first.Runs[len(first.Runs)-1]
	last := len(first.Runs[0].Text) - 2 // before the trailing space
	if end := r.X[last] + r.Glyphs[last].Advance; math.Abs(end-10) > 1e-9 {
		t.Errorf("justified line ends at %v, want 10", end)
	}

	for _, l := range lines[1:] {
		if l.Width == 10 {
			t.Errorf("line ending a paragraph was justified: %+v", l)
		}
	}
}

func TestLayoutVerticalMetrics(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)
	ascent, descent, gap := f.Metrics().Scale(10)

	pages := mustLayout(t, monoRun(f, "a\nb", 1), Constraints{MaxWidth: 100, LineSpacing: 1.5})
	lines := pages[0].Lines
	h := (ascent + descent + gap) * 1.5
	for i, l := range lines {
		if l.Font != f {
			t.Errorf("line %d dominant font = %v", i, l.Font)
		}
		if math.Abs(l.Height-h) > 1e-9 {
			t.Errorf("line %d height = %v, want %v", i, l.Height, h)
		}
		if math.Abs(l.Top()-float64(i)*h) > 1e-9 {
			t.Errorf("line %d top = %v, want %v", i, l.Top(), float64(i)*h)
		}
	}
	if math.Abs(pages[0].Height-2*h) > 1e-9 {
		t.Errorf("page height = %v, want %v", pages[0].Height, 2*h)
	}
}

func TestLayoutPagination(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)
	h := f.Metrics().LineHeight(10)
	text := strings.Repeat("line\n", 7)

	t.Run("paginate", func(t *testing.T) {
		pages := mustLayout(t, monoRun(f, text, 1), Constraints{MaxWidth: 100, MaxHeight: 3 * h, Paginate: true})
		if len(pages) != 3 {
			t.Fatalf("got %d pages, want 3", len(pages))
		}
		for i, p := range pages {
			want := 3
			if i == 2 {
				want = 1
			}
			if len(p.Lines) != want {
				t.Errorf("page %d has %d lines, want %d", i, len(p.Lines), want)
			}
			if p.Continued != (i < 2) {
				t.Errorf("page %d Continued = %v", i, p.Continued)
			}
			if p.Overflowed {
				t.Errorf("page %d overflowed", i)
			}
			if p.Lines[0].Top() != 0 {
				t.Errorf("page %d starts at %v", i, p.Lines[0].Top())
			}
		}
	})

	t.Run("no paginate", func(t *testing.T) {
		pages := mustLayout(t, monoRun(f, text, 1), Constraints{MaxWidth: 100, MaxHeight: 3 * h})
		if len(pages) != 1 {
			t.Fatalf("got %d pages, want 1", len(pages))
		}
		if !pages[0].Overflowed || pages[0].Continued {
			t.Errorf("Overflowed=%v Continued=%v", pages[0].Overflowed, pages[0].Continued)
		}
		if len(pages[0].Lines) != 7 {
			t.Errorf("got %d lines, want 7", len(pages[0].Lines))
		}
	})

	t.Run("line taller than page", func(t *testing.T) {
		pages := mustLayout(t, monoRun(f, "a\nb", 1), Constraints{MaxWidth: 100, MaxHeight: h / 2, Paginate: true})
		if len(pages) != 2 {
			t.Fatalf("got %d pages, want 2", len(pages))
		}
		for i, p := range pages {
			if len(p.Lines) != 1 || !p.Overflowed {
				t.Errorf("page %d: %d lines, Overflowed=%v", i, len(p.Lines), p.Overflowed)
			}
		}
	})
}

func TestLayoutCancelled(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pages, err := Layout(ctx, monoRun(f, "abc", 1), Constraints{MaxWidth: 10})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if pages != nil {
		t.Errorf("cancelled layout returned %d pages", len(pages))
	}
}

func TestLayoutInvalidConstraints(t *testing.T) {
	tests := []struct {
		name string
		c    Constraints
	}{
		{"zero width", Constraints{}},
		{"negative width", Constraints{MaxWidth: -1}},
		{"NaN width", Constraints{MaxWidth: math.NaN()}},
		{"negative height", Constraints{MaxWidth: 10, MaxHeight: -1}},
		{"negative spacing", Constraints{MaxWidth: 10, LineSpacing: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Layout(context.Background(), nil, tt.c)
			if !errors.Is(err, ErrInvalidConstraints) {
				t.Errorf("err = %v, want ErrInvalidConstraints", err)
			}
		})
	}
}

func TestParseAlignment(t *testing.T) {
	tests := []struct {
		in   string
		want Alignment
		ok   bool
	}{
		{"", AlignLeft, true},
		{"Left", AlignLeft, true},
		{"center", AlignCenter, true},
		{"right", AlignRight, true},
		{" justify ", AlignJustify, true},
		{"middle", AlignLeft, false},
	}
	for _, tt := range tests {
		got, err := ParseAlignment(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseAlignment(%q) = %v, %v", tt.in, got, err)
		}
	}
}
