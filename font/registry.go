package font

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/gogpu/typeset/internal/nop"
)

// Registry is an immutable index of installed faces.
//
// Registry is safe for concurrent use. The index is built once by
// NewRegistry and never modified; faces load their glyph data on first
// resolution.
type Registry struct {
	families      map[string][]*Font // keyed by lower-case family name
	fonts         []*Font           // every indexed face in walk order
	defaultFamily string
	logger        *slog.Logger
}

// NewRegistry walks the configured font directories and indexes every
// .ttf and .otf file found. Files that cannot be parsed are logged and
// skipped. Without WithFS or WithDirs the system font directories are used.
//
// NewRegistry returns a *FontNotFoundError if the default family is not
// among the indexed faces.
func NewRegistry(opts ...Option) (*Registry, error) {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.sources) == 0 {
		WithDirs(SystemDirs()...)(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = nop.Logger()
	}

	r := &Registry{
		families:      make(map[string][]*Font),
		defaultFamily: cfg.defaultFamily,
		logger:        logger,
	}
	for _, src := range cfg.sources {
		r.index(src, cfg.policy)
	}

	if _, ok := r.families[familyKey(cfg.defaultFamily)]; !ok {
		return nil, &FontNotFoundError{Family: cfg.defaultFamily, Style: StyleNormal, Weight: WeightNormal}
	}

	logger.Info("font: registry ready",
		"faces", len(r.fonts),
		"families", len(r.families),
		"default", cfg.defaultFamily)
	return r, nil
}

func (r *Registry) index(src source, policy GlyphPolicy) {
	err := fs.WalkDir(src.fsys, src.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == src.root {
				return err
			}
			r.logger.Warn("font: skipping unreadable path", "dir", src.name, "path", p, "err", err)
			return nil
		}
		if d.IsDir() || !isFontFile(p) {
			return nil
		}

		data, err := fs.ReadFile(src.fsys, p)
		if err != nil {
			r.logger.Warn("font: skipping unreadable file", "dir", src.name, "path", p, "err", err)
			return nil
		}
		f, err := describe(src.fsys, src.name, p, data, policy)
		if err != nil {
			r.logger.Warn("font: skipping unparseable file", "dir", src.name, "path", p, "err", err)
			return nil
		}

		key := familyKey(f.Family)
		r.families[key] = append(r.families[key], f)
		r.fonts = append(r.fonts, f)
		r.logger.Debug("font: indexed", "path", p, "family", f.Family, "style", f.Style, "weight", f.Weight)
		return nil
	})
	if err != nil {
		r.logger.Debug("font: directory not indexed", "dir", src.name, "err", err)
	}
}

func isFontFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".ttf", ".otf":
		return true
	default:
		return false
	}
}

func familyKey(family string) string {
	return strings.ToLower(strings.TrimSpace(family))
}

// Lookup returns the installed face of family that best matches style and
// weight, loading its glyph data if this is its first use. It returns a
// *FontNotFoundError if no face of the family is installed.
func (r *Registry) Lookup(family string, style Style, weight Weight) (*Font, error) {
	faces := r.families[familyKey(family)]
	if len(faces) == 0 {
		return nil, &FontNotFoundError{Family: family, Style: style, Weight: weight}
	}

	f := match(faces, style, weight)
	if err := f.Load(); err != nil {
		return nil, fmt.Errorf("font: resolve %s: %w", f, err)
	}
	return f, nil
}

// Resolve is Lookup with fallback: a family that is not installed resolves
// to the default family and the bool result is true. An empty family
// selects the default family without reporting a fallback.
func (r *Registry) Resolve(family string, style Style, weight Weight) (*Font, bool, error) {
	if strings.TrimSpace(family) == "" {
		f, err := r.Lookup(r.defaultFamily, style, weight)
		return f, false, err
	}

	f, err := r.Lookup(family, style, weight)
	if err == nil || !errors.Is(err, ErrFontNotFound) {
		return f, false, err
	}
	if familyKey(family) == familyKey(r.defaultFamily) {
		return nil, false, err
	}

	r.logger.Debug("font: family not installed, using default",
		"family", family,
		"default", r.defaultFamily)
	f, err = r.Lookup(r.defaultFamily, style, weight)
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

// Metrics returns the vertical metrics of f.
func (r *Registry) Metrics(f *Font) Metrics {
	return f.Metrics()
}

// DefaultFamily returns the configured default family.
func (r *Registry) DefaultFamily() string {
	return r.defaultFamily
}

// Has reports whether any face of family is installed.
func (r *Registry) Has(family string) bool {
	return len(r.families[familyKey(family)]) > 0
}

// Families returns the installed family names, sorted case-insensitively.
func (r *Registry) Families() []string {
	names := make([]string, 0, len(r.families))
	for _, faces := range r.families {
		names = append(names, faces[0].Family)
	}
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return names
}

// Faces returns the indexed faces of family in walk order.
func (r *Registry) Faces(family string) []*Font {
	return slices.Clone(r.families[familyKey(family)])
}

// Len returns the number of indexed faces.
func (r *Registry) Len() int {
	return len(r.fonts)
}

// match picks the best face for a request. faces must not be empty.
func match(faces []*Font, style Style, weight Weight) *Font {
	for _, s := range style.preference() {
		var (
			best     *Font
			bestDist int
			bestWins bool
		)
		for _, f := range faces {
			if f.Style != s {
				continue
			}
			d, wins := f.Weight.distance(weight)
			if best == nil || d < bestDist || (d == bestDist && wins && !bestWins) {
				best, bestDist, bestWins = f, d, wins
			}
		}
		if best != nil {
			return best
		}
	}
	return faces[0]
}
