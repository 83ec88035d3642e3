package font

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"io/fs"
	"strconv"
	"sync"

	"golang.org/x/image/font/opentype"
	"golang.org/x/text/language"
	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/cmap"
	"seehuhn.de/go/sfnt/glyph"
	"seehuhn.de/go/sfnt/opentype/gtab"
)

// GlyphID is a glyph index within one font.
type GlyphID uint16

// NotdefGlyph is the ".notdef" glyph every font carries at index 0.
const NotdefGlyph GlyphID = 0

// ReplacementChar is the character drawn by PolicyReplacement.
const ReplacementChar = '\uFFFD'

// GlyphPolicy selects the glyph used for characters no font maps.
type GlyphPolicy uint8

const (
	// PolicyNotdef draws the font's .notdef glyph (usually an empty box).
	PolicyNotdef GlyphPolicy = iota
	// PolicyReplacement draws U+FFFD when the font maps it, else .notdef.
	PolicyReplacement
)

// String returns the policy name.
func (p GlyphPolicy) String() string {
	switch p {
	case PolicyNotdef:
		return "notdef"
	case PolicyReplacement:
		return "replacement"
	default:
		return "GlyphPolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

// Metrics are the vertical metrics of a face in font design units.
// Descent is positive below the baseline.
type Metrics struct {
	Ascent     int
	Descent    int
	LineGap    int
	UnitsPerEm int
}

// Scale converts the metrics to points at the given font size.
func (m Metrics) Scale(size float64) (ascent, descent, lineGap float64) {
	if m.UnitsPerEm <= 0 {
		return 0, 0, 0
	}
	k := size / float64(m.UnitsPerEm)
	return float64(m.Ascent) * k, float64(m.Descent) * k, float64(m.LineGap) * k
}

// LineHeight returns ascent+descent+lineGap in points at the given size.
func (m Metrics) LineHeight(size float64) float64 {
	a, d, g := m.Scale(size)
	return a + d + g
}

// GlyphMapper maps characters to glyphs.
type GlyphMapper interface {
	// MapRune returns the glyph for r and whether the font maps r at all.
	MapRune(r rune) (GlyphID, bool)
}

// Segment is one glyph produced from one or more consecutive characters.
type Segment struct {
	GID     GlyphID
	Runes   int // source characters covered; ligatures cover several
	Advance int // design units
	Mapped  bool
}

// Font is one indexed face. The descriptive fields and metrics are filled
// at warm-up; glyph data is loaded on first use by Load.
//
// Font is immutable after warm-up and safe for concurrent use.
type Font struct {
	Family string
	Style  Style
	Weight Weight
	Path   string // path inside the directory the face was found in

	id      uint64
	metrics Metrics
	policy  GlyphPolicy
	fsys    fs.FS

	once sync.Once
	face *face
	err  error
}

// face holds the lazily loaded glyph data of a Font.
type face struct {
	data     []byte
	info     *sfnt.Font
	cmap     cmap.Subtable
	liga     []gtab.LookupIndex
	outlines *opentype.Font
	numGlyph int
	fallback GlyphID
}

// describe parses data far enough to index it. The returned Font has not
// loaded its glyph data.
func describe(fsys fs.FS, origin, path string, data []byte, policy GlyphPolicy) (*Font, error) {
	info, err := sfnt.Read(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if info.FamilyName == "" {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: missing family name", ErrUnsupportedFont)}
	}

	style := StyleNormal
	switch {
	case info.IsOblique:
		style = StyleOblique
	case info.IsItalic:
		style = StyleItalic
	}

	weight := Weight(info.Weight)
	if weight == 0 {
		weight = WeightNormal
		if info.IsBold {
			weight = WeightBold
		}
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(origin))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(path))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(info.FamilyName))

	return &Font{
		Family: info.FamilyName,
		Style:  style,
		Weight: weight,
		Path:   path,
		id:     h.Sum64(),
		metrics: Metrics{
			Ascent:     int(info.Ascent),
			Descent:    -int(info.Descent),
			LineGap:    int(info.LineGap),
			UnitsPerEm: int(info.UnitsPerEm),
		},
		policy: policy,
		fsys:   fsys,
	}, nil
}

// ID returns a value identifying the face, stable for a given font
// directory layout. It is used as a cache key.
func (f *Font) ID() uint64 { return f.id }

// Policy returns the default-glyph policy fixed on this face.
func (f *Font) Policy() GlyphPolicy { return f.policy }

// Metrics returns the vertical metrics of the face.
func (f *Font) Metrics() Metrics { return f.metrics }

// UnitsPerEm returns the design grid size.
func (f *Font) UnitsPerEm() int { return f.metrics.UnitsPerEm }

// String returns a human readable description such as "Go (italic, 700)".
func (f *Font) String() string {
	return fmt.Sprintf("%s (%s, %d)", f.Family, f.Style, f.Weight)
}

// Load reads and parses the glyph data. Concurrent first calls share one
// load; the outcome, including a failure, is kept for the life of the Font.
func (f *Font) Load() error {
	f.once.Do(func() {
		f.face, f.err = f.load()
	})
	return f.err
}

func (f *Font) load() (*face, error) {
	data, err := fs.ReadFile(f.fsys, f.Path)
	if err != nil {
		return nil, &LoadError{Path: f.Path, Err: err}
	}

	info, err := sfnt.Read(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Path: f.Path, Err: err}
	}
	cm, err := info.CMapTable.GetBest()
	if err != nil {
		return nil, &LoadError{Path: f.Path, Err: fmt.Errorf("%w: %w", ErrUnsupportedFont, err)}
	}
	outlines, err := opentype.Parse(data)
	if err != nil {
		return nil, &LoadError{Path: f.Path, Err: err}
	}

	fc := &face{
		data:     data,
		info:     info,
		cmap:     cm,
		outlines: outlines,
		numGlyph: info.NumGlyphs(),
	}
	if info.Gsub != nil {
		fc.liga = info.Gsub.FindLookups(language.Und, map[string]bool{"liga": true})
	}
	if f.policy == PolicyReplacement {
		fc.fallback = GlyphID(fc.lookup(ReplacementChar))
	}
	return fc, nil
}

// lookup maps r through the cmap subtable. A format 4 subtable only covers
// the Basic Multilingual Plane and would truncate larger code points.
func (fc *face) lookup(r rune) glyph.ID {
	if r < 0 || r > 0x10FFFF {
		return 0
	}
	if _, bmp := fc.cmap.(cmap.Format4); bmp && r > 0xFFFF {
		return 0
	}
	return fc.cmap.Lookup(r)
}

func (f *Font) loaded() *face {
	if f.Load() != nil {
		return nil
	}
	return f.face
}

// Data returns the raw font file. It loads the face if necessary.
func (f *Font) Data() ([]byte, error) {
	if err := f.Load(); err != nil {
		return nil, err
	}
	return f.face.data, nil
}

// Outlines returns the parsed outline font used for rasterization.
func (f *Font) Outlines() (*opentype.Font, error) {
	if err := f.Load(); err != nil {
		return nil, err
	}
	return f.face.outlines, nil
}

// MapRune implements GlyphMapper. A face that failed to load maps nothing.
func (f *Font) MapRune(r rune) (GlyphID, bool) {
	fc := f.loaded()
	if fc == nil {
		return NotdefGlyph, false
	}
	gid := GlyphID(fc.lookup(r))
	return gid, gid != NotdefGlyph
}

// Glyph maps r, substituting the policy glyph when the face does not map
// it. The bool reports whether r was mapped.
func (f *Font) Glyph(r rune) (GlyphID, bool) {
	if gid, ok := f.MapRune(r); ok {
		return gid, true
	}
	return f.DefaultGlyph(), false
}

// DefaultGlyph returns the glyph drawn for unmapped characters.
func (f *Font) DefaultGlyph() GlyphID {
	if fc := f.loaded(); fc != nil {
		return fc.fallback
	}
	return NotdefGlyph
}

// Advance returns the advance width of gid in design units.
func (f *Font) Advance(gid GlyphID) int {
	fc := f.loaded()
	if fc == nil || int(gid) >= fc.numGlyph {
		return 0
	}
	return int(fc.info.GlyphWidth(glyph.ID(gid)))
}

// HasLigatures reports whether the face ships standard ligature lookups.
func (f *Font) HasLigatures() bool {
	fc := f.loaded()
	return fc != nil && len(fc.liga) > 0
}

// Map converts text to glyphs. Standard ligatures ("liga") are applied when
// the face has them; no other substitution or positioning takes place.
// Unmapped characters get the policy glyph with Mapped false.
func (f *Font) Map(text []rune) []Segment {
	fc := f.loaded()
	if fc == nil {
		segs := make([]Segment, len(text))
		for i := range segs {
			segs[i] = Segment{GID: NotdefGlyph, Runes: 1}
		}
		return segs
	}

	if len(fc.liga) > 0 {
		if segs, ok := f.ligate(fc, text); ok {
			return segs
		}
	}

	segs := make([]Segment, len(text))
	for i, r := range text {
		gid, ok := f.Glyph(r)
		segs[i] = Segment{GID: gid, Runes: 1, Advance: f.Advance(gid), Mapped: ok}
	}
	return segs
}

// ligate runs the ligature lookups. It reports false if the substitution
// result does not account for every input character.
func (f *Font) ligate(fc *face, text []rune) ([]Segment, bool) {
	seq := make([]glyph.Info, len(text))
	for i, r := range text {
		seq[i].GID = fc.lookup(r)
		seq[i].Text = []rune{r}
	}
	seq = gtab.NewContext(fc.info.Gsub.LookupList, fc.info.Gdef, fc.liga).Apply(seq)

	segs := make([]Segment, 0, len(seq))
	total := 0
	for _, g := range seq {
		gid := GlyphID(g.GID)
		mapped := gid != NotdefGlyph
		if !mapped {
			gid = fc.fallback
		}
		segs = append(segs, Segment{
			GID:     gid,
			Runes:   len(g.Text),
			Advance: f.Advance(gid),
			Mapped:  mapped,
		})
		total += len(g.Text)
	}
	return segs, total == len(text)
}
