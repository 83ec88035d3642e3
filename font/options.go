package font

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultFamily is the family a Registry requires unless configured
// otherwise.
const DefaultFamily = "DejaVu Sans"

// Option configures a Registry.
type Option func(*registryConfig)

// source is one directory tree to index.
type source struct {
	fsys fs.FS
	root string
	name string // for log messages
}

type registryConfig struct {
	sources       []source
	defaultFamily string
	policy        GlyphPolicy
	logger        *slog.Logger
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		defaultFamily: DefaultFamily,
		policy:        PolicyNotdef,
	}
}

// WithFS adds the tree below root in fsys to the directories indexed at
// warm-up. Use "." for the whole file system.
func WithFS(fsys fs.FS, root string) Option {
	return func(c *registryConfig) {
		c.sources = append(c.sources, source{fsys: fsys, root: root, name: root})
	}
}

// WithDirs adds operating system directories to index.
func WithDirs(dirs ...string) Option {
	return func(c *registryConfig) {
		for _, d := range dirs {
			c.sources = append(c.sources, source{fsys: os.DirFS(d), root: ".", name: d})
		}
	}
}

// WithDefaultFamily sets the family used when a requested family is not
// installed. Warm-up fails if this family is absent.
func WithDefaultFamily(family string) Option {
	return func(c *registryConfig) {
		c.defaultFamily = family
	}
}

// WithGlyphPolicy sets the default-glyph policy of every indexed face.
func WithGlyphPolicy(p GlyphPolicy) Option {
	return func(c *registryConfig) {
		c.policy = p
	}
}

// WithLogger sets the logger for warm-up and fallback diagnostics.
// A nil logger disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *registryConfig) {
		c.logger = l
	}
}

// SystemDirs returns the conventional font directories of Unix-like
// systems, including the per-user directories when a home directory is known.
func SystemDirs() []string {
	dirs := []string{
		"/usr/share/fonts",
		"/usr/local/share/fonts",
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, ".local", "share", "fonts"),
			filepath.Join(home, ".fonts"),
		)
	}
	return dirs
}
