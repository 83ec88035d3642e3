// Package fonttest provides font directories built from the Go fonts for
// tests.
package fonttest

import (
	"testing"
	"testing/fstest"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/typeset/font"
)

// Family is the family name of the proportional Go fonts.
const Family = "Go"

// MonoFamily is the family name of Go Mono.
const MonoFamily = "Go Mono"

// FS returns a font directory rooted at "." with the Go fonts.
func FS() fstest.MapFS {
	return fstest.MapFS{
		"go/Go-Regular.ttf":    {Data: goregular.TTF},
		"go/Go-Bold.ttf":       {Data: gobold.TTF},
		"go/Go-Italic.ttf":     {Data: goitalic.TTF},
		"go/Go-BoldItalic.ttf": {Data: gobolditalic.TTF},
		"mono/Go-Mono.ttf":     {Data: gomono.TTF},
	}
}

// Registry returns a registry over FS with Go as the default family.
func Registry(t testing.TB, opts ...font.Option) *font.Registry {
	t.Helper()
	opts = append([]font.Option{font.WithFS(FS(), "."), font.WithDefaultFamily(Family)}, opts...)
	r, err := font.NewRegistry(opts...)
	if err != nil {
		t.Fatalf("fonttest: NewRegistry: %v", err)
	}
	return r
}

// Face resolves family from r, failing the test on error.
func Face(t testing.TB, r *font.Registry, family string, style font.Style, weight font.Weight) *font.Font {
	t.Helper()
	f, err := r.Lookup(family, style, weight)
	if err != nil {
		t.Fatalf("fonttest: Lookup(%q): %v", family, err)
	}
	return f
}

// Regular returns Go Regular from r.
func Regular(t testing.TB, r *font.Registry) *font.Font {
	t.Helper()
	return Face(t, r, Family, font.StyleNormal, font.WeightNormal)
}
