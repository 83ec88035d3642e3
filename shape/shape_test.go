package shape

import (
	"math"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/typeset/font"
	"github.com/gogpu/typeset/internal/fonttest"
)

var fontIdentity = cmp.Comparer(func(a, b *font.Font) bool { return a == b })

// checkCoverage verifies that runs cover text without gaps and that the
// glyph spans of each run add up to the run length.
func checkCoverage(t *testing.T, runs []GlyphRun, text string) {
	t.Helper()
	n := len([]rune(text))
	pos := 0
	for i, r := range runs {
		if r.Start != pos {
			t.Fatalf("run %d starts at %d, want %d", i, r.Start, pos)
		}
		if len(r.Text) != r.Len() {
			t.Errorf("run %d carries %d characters for span %d", i, len(r.Text), r.Len())
		}
		spans := 0
		for _, g := range r.Glyphs {
			if g.Cluster < r.Start || g.Cluster >= r.End {
				t.Errorf("run %d: glyph cluster %d outside [%d,%d)", i, g.Cluster, r.Start, r.End)
			}
			spans += g.Runes
		}
		if spans != r.Len() {
			t.Errorf("run %d: glyph spans sum to %d, want %d", i, spans, r.Len())
		}
		pos = r.End
	}
	if pos != n {
		t.Fatalf("runs end at %d, want %d", pos, n)
	}
}

func TestSimpleHelloWorld(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)

	runs := NewSimple().Shape("Hello world", NewChain(f), 12, Options{})
	checkCoverage(t, runs, "Hello world")
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}

	run := runs[0]
	if run.Font != f || run.Size != 12 {
		t.Errorf("run font/size = %v/%v", run.Font, run.Size)
	}

	var want float64
	scale := 12 / float64(f.UnitsPerEm())
	for _, r := range "Hello world" {
		gid, _ := f.MapRune(r)
		want += float64(f.Advance(gid)) * scale
	}
	if !f.HasLigatures() && math.Abs(run.Width()-want) > 1e-9 {
		t.Errorf("Width() = %v, want %v", run.Width(), want)
	}
	for _, g := range run.Glyphs {
		if g.Flags&FlagUnmapped != 0 {
			t.Errorf("glyph for %q flagged unmapped", run.Text[g.Cluster])
		}
	}
}

func TestSimpleZeroAdvance(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)

	tests := []struct {
		name  string
		r     rune
		flags Flags
	}{
		{"combining acute", '\u0301', FlagMark},
		{"zero width space", '\u200B', FlagInvisible},
		{"zero width joiner", '\u200D', FlagInvisible},
		{"newline", '\n', FlagInvisible},
		{"tab", '\t', FlagInvisible},
		{"line separator", '\u2028', FlagInvisible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "a" + string(tt.r) + "b"
			runs := NewSimple().Shape(text, NewChain(f), 16, Options{})
			checkCoverage(t, runs, text)

			var found bool
			for _, run := range runs {
				for _, g := range run.Glyphs {
					if g.Cluster != 1 {
						continue
					}
					found = true
					if g.Advance != 0 {
						t.Errorf("advance = %v, want 0", g.Advance)
					}
					if g.Flags&tt.flags == 0 {
						t.Errorf("flags = %b, want %b set", g.Flags, tt.flags)
					}
					if g.Runes != 1 {
						t.Errorf("span = %d, want 1", g.Runes)
					}
				}
			}
			if !found {
				t.Fatal("no glyph for the character")
			}
			if len(runs) != 1 {
				t.Errorf("character split the run: %d runs", len(runs))
			}
		})
	}
}

func TestSimpleUnmapped(t *testing.T) {
	for _, policy := range []font.GlyphPolicy{font.PolicyNotdef, font.PolicyReplacement} {
		t.Run(policy.String(), func(t *testing.T) {
			reg := fonttest.Registry(t, font.WithGlyphPolicy(policy))
			f := fonttest.Regular(t, reg)

			runs := NewSimple().Shape("\U0010FFFD", NewChain(f), 12, Options{})
			checkCoverage(t, runs, "\U0010FFFD")
			g := runs[0].Glyphs[0]
			if g.Flags&FlagUnmapped == 0 {
				t.Error("expected FlagUnmapped")
			}
			if g.ID != f.DefaultGlyph() {
				t.Errorf("glyph = %d, want default glyph %d", g.ID, f.DefaultGlyph())
			}
			if g.Advance != float64(f.Advance(g.ID))*12/float64(f.UnitsPerEm()) {
				t.Errorf("default glyph advance = %v", g.Advance)
			}
		})
	}
}

func TestSimpleFallbackChain(t *testing.T) {
	fsys := fonttest.FS()
	reg, err := font.NewRegistry(font.WithFS(fsys, "."), font.WithDefaultFamily(fonttest.Family))
	if err != nil {
		t.Fatal(err)
	}
	// The indexed Go Mono face no longer parses, so it maps nothing.
	fsys["mono/Go-Mono.ttf"] = &fstest.MapFile{Data: []byte("truncated")}
	broken := reg.Faces(fonttest.MonoFamily)[0]
	regular := fonttest.Regular(t, reg)

	chain := NewChain(broken, regular)
	if got := len(chain); got != 2 {
		t.Fatalf("chain length = %d", got)
	}

	text := "ab\U0010FFFDc"
	runs := NewSimple().Shape(text, chain, 10, Options{})
	checkCoverage(t, runs, text)

	wantFonts := []*font.Font{regular, broken, regular}
	if len(runs) != len(wantFonts) {
		t.Fatalf("got %d runs, want %d", len(runs), len(wantFonts))
	}
	for i, run := range runs {
		if run.Font != wantFonts[i] {
			t.Errorf("run %d font = %v, want %v", i, run.Font, wantFonts[i])
		}
	}
	if runs[1].Glyphs[0].Flags&FlagUnmapped == 0 {
		t.Error("character mapped by no font should use the primary default glyph")
	}
}

func TestChainPick(t *testing.T) {
	reg := fonttest.Registry(t)
	regular := fonttest.Regular(t, reg)
	mono := fonttest.Face(t, reg, fonttest.MonoFamily, font.StyleNormal, font.WeightNormal)

	c := NewChain(mono, regular, nil, mono)
	if len(c) != 2 {
		t.Fatalf("NewChain kept nil or duplicate entries: %d", len(c))
	}
	if idx, ok := c.Pick('x'); !ok || idx != 0 {
		t.Errorf("Pick('x') = (%d, %v), want primary", idx, ok)
	}
	if idx, ok := c.Pick('\U0010FFFD'); ok || idx != 0 {
		t.Errorf("Pick(unmapped) = (%d, %v), want (0, false)", idx, ok)
	}
	if c.Primary() != mono {
		t.Error("Primary() is not the first font")
	}
	if (Chain{}).Primary() != nil {
		t.Error("empty chain has a primary font")
	}
}

func TestSimpleEmpty(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)

	if runs := NewSimple().Shape("", NewChain(f), 12, Options{}); len(runs) != 0 {
		t.Errorf("empty text produced %d runs", len(runs))
	}
	if runs := NewSimple().Shape("abc", nil, 12, Options{}); len(runs) != 0 {
		t.Errorf("empty chain produced %d runs", len(runs))
	}
}

func TestSimpleDeterministic(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)
	text := "The quick brown fox\njumps over the lazy dog. \uFB01 office \u00E9e\u0301"

	a := NewSimple().Shape(text, NewChain(f), 11, Options{})
	b := NewSimple().Shape(text, NewChain(f), 11, Options{})
	if diff := cmp.Diff(a, b, fontIdentity); diff != "" {
		t.Errorf("shaping is not deterministic (-first +second):\n%s", diff)
	}
}

func TestHarfBuzz(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)
	hb := NewHarfBuzz()

	text := "Hello world"
	runs := hb.Shape(text, NewChain(f), 12, Options{})
	checkCoverage(t, runs, text)

	simple := NewSimple().Shape(text, NewChain(f), 12, Options{})
	hw, sw := runs[0].Width(), simple[0].Width()
	if math.Abs(hw-sw) > 0.1*sw {
		t.Errorf("HarfBuzz width %v differs too much from simple width %v", hw, sw)
	}
}

func TestHarfBuzzSpecialCharacters(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)

	text := "a\nb\u200Bc\U0010FFFD"
	runs := NewHarfBuzz().Shape(text, NewChain(f), 12, Options{})
	checkCoverage(t, runs, text)

	for _, run := range runs {
		for _, g := range run.Glyphs {
			switch g.Cluster {
			case 1, 3:
				if g.Visible() || g.Advance != 0 {
					t.Errorf("cluster %d should be invisible with zero advance: %+v", g.Cluster, g)
				}
			case 5:
				if g.Flags&FlagUnmapped == 0 {
					t.Errorf("unmapped character not flagged: %+v", g)
				}
			}
		}
	}
}

func TestHarfBuzzConcurrent(t *testing.T) {
	reg := fonttest.Registry(t)
	f := fonttest.Regular(t, reg)
	hb := NewHarfBuzz()
	want := hb.Shape("concurrent shaping", NewChain(f), 14, Options{})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := hb.Shape("concurrent shaping", NewChain(f), 14, Options{})
			if diff := cmp.Diff(want, got, fontIdentity); diff != "" {
				t.Errorf("concurrent result differs:\n%s", diff)
			}
		}()
	}
	wg.Wait()
}
