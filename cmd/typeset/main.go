// Command typeset lays out text, writes the rendered pages to a file and
// prints the layout metadata as JSON.
//
// Usage:
//
//	typeset -text "Hello world" -font "DejaVu Sans-12" -width 200 -out hello.png
//	echo "Hello" | typeset -format pdf -width 300 -height 400 -paginate -out hello.pdf
//
// A multi-page PNG render writes one file per page: hello-1.png, hello-2.png
// and so on.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/tdewolff/canvas"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/typeset"
	"github.com/gogpu/typeset/font"
	"github.com/gogpu/typeset/layout"
	"github.com/gogpu/typeset/raster"
	"github.com/gogpu/typeset/shape"
)

// options holds the parsed command line.
type options struct {
	text      string
	pattern   string
	size      float64
	width     float64
	height    float64
	align     string
	paginate  bool
	format    string
	lang      string
	out       string
	fontDirs  string
	family    string
	fallbacks string
	dpi       float64
	spacing   float64
	fg, bg    string
	bgImage   string
	maxPixels int
	harfbuzz  bool
	policy    string
	verbose   bool
}

func main() {
	var o options
	flag.StringVar(&o.text, "text", "", "text to render; read from stdin when empty")
	flag.StringVar(&o.pattern, "font", "", `font pattern, e.g. "DejaVu Sans-12:bold"`)
	flag.Float64Var(&o.size, "size", 0, "font size in points; overrides the pattern size (default 12)")
	flag.Float64Var(&o.width, "width", 400, "maximum line width in points")
	flag.Float64Var(&o.height, "height", 0, "maximum page height in points; 0 is unbounded")
	flag.StringVar(&o.align, "align", "left", "alignment: left, center, right or justify")
	flag.BoolVar(&o.paginate, "paginate", false, "move lines that do not fit the height to new pages")
	flag.StringVar(&o.format, "format", "", "output format: png or pdf (default from -out)")
	flag.StringVar(&o.lang, "lang", "", "BCP 47 language tag of the text")
	flag.StringVar(&o.out, "out", "typeset.png", "output file")
	flag.StringVar(&o.fontDirs, "fonts", "", "comma-separated font directories (default: system directories)")
	flag.StringVar(&o.family, "default-family", font.DefaultFamily, "family used when the requested one is not installed")
	flag.StringVar(&o.fallbacks, "fallback", "", "comma-separated fallback families for missing characters")
	flag.Float64Var(&o.dpi, "dpi", raster.DefaultDPI, "PNG resolution")
	flag.Float64Var(&o.spacing, "spacing", 1, "line spacing factor")
	flag.StringVar(&o.fg, "fg", "#000000", "text color")
	flag.StringVar(&o.bg, "bg", "#ffffff", "background color")
	flag.StringVar(&o.bgImage, "background", "", "image drawn under the text (png, jpeg, bmp, tiff or webp)")
	flag.IntVar(&o.maxPixels, "max-pixels", raster.DefaultMaxPixels, "largest PNG page area in pixels")
	flag.BoolVar(&o.harfbuzz, "harfbuzz", false, "shape with HarfBuzz instead of one glyph per character")
	flag.StringVar(&o.policy, "missing", "notdef", "glyph for unmapped characters: notdef or replacement")
	flag.BoolVar(&o.verbose, "v", false, "log diagnostics to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("typeset: %v", err)
	}
}

// run renders o.text, writes the output files and prints the metadata to
// stdout.
func run(ctx context.Context, o options, stdin io.Reader, stdout io.Writer) error {
	if o.text == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		o.text = strings.TrimSuffix(string(data), "\n")
	}

	req, err := request(o)
	if err != nil {
		return err
	}
	engOpts, err := engineOptions(o)
	if err != nil {
		return err
	}

	eng, err := typeset.New(engOpts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.Render(ctx, req)
	if err != nil {
		return err
	}

	files, err := write(res, o.out)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Files []string `json:"files"`
		*typeset.RenderResult
	}{files, res})
}

func request(o options) (typeset.RenderRequest, error) {
	req := typeset.RenderRequest{
		Text:      o.text,
		Pattern:   o.pattern,
		Size:      o.size,
		MaxWidth:  o.width,
		MaxHeight: o.height,
		Paginate:  o.paginate,
		Language:  o.lang,
	}
	if req.Size == 0 && !patternHasSize(o.pattern) {
		req.Size = 12
	}

	align, err := layout.ParseAlignment(o.align)
	if err != nil {
		return req, err
	}
	req.Alignment = align

	format := o.format
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(o.out)), ".")
	}
	if req.Format, err = raster.ParseFormat(format); err != nil {
		return req, err
	}
	return req, nil
}

func patternHasSize(pattern string) bool {
	if strings.TrimSpace(pattern) == "" {
		return false
	}
	p, err := font.ParsePattern(pattern)
	return err == nil && p.Size > 0
}

func engineOptions(o options) ([]typeset.Option, error) {
	opts := []typeset.Option{
		typeset.WithDefaultFamily(o.family),
		typeset.WithDPI(o.dpi),
		typeset.WithLineSpacing(o.spacing),
		typeset.WithColors(canvas.Hex(o.fg), canvas.Hex(o.bg)),
		typeset.WithMaxPixels(o.maxPixels),
	}
	if o.bgImage != "" {
		img, err := loadImage(o.bgImage)
		if err != nil {
			return nil, err
		}
		opts = append(opts, typeset.WithBackgroundImage(img))
	}
	if dirs := splitList(o.fontDirs); len(dirs) > 0 {
		opts = append(opts, typeset.WithFontDirs(dirs...))
	}
	if fams := splitList(o.fallbacks); len(fams) > 0 {
		opts = append(opts, typeset.WithFallbackFamilies(fams...))
	}
	if o.harfbuzz {
		opts = append(opts, typeset.WithShaper(shape.NewHarfBuzz()))
	}

	switch o.policy {
	case "notdef":
		opts = append(opts, typeset.WithGlyphPolicy(font.PolicyNotdef))
	case "replacement":
		opts = append(opts, typeset.WithGlyphPolicy(font.PolicyReplacement))
	default:
		return nil, fmt.Errorf("unknown -missing value %q", o.policy)
	}

	if o.verbose {
		opts = append(opts, typeset.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))))
	}
	return opts, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open background: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode background %s: %w", path, err)
	}
	return img, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// write stores the rendered pages and returns the files written.
func write(res *typeset.RenderResult, out string) ([]string, error) {
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	if res.Format == typeset.FormatPDF || len(res.Pages) == 1 {
		if err := os.WriteFile(out, res.Data, 0o644); err != nil {
			return nil, fmt.Errorf("write output: %w", err)
		}
		return []string{out}, nil
	}

	ext := filepath.Ext(out)
	base := strings.TrimSuffix(out, ext)
	files := make([]string, len(res.Pages))
	for i := range res.Pages {
		files[i] = fmt.Sprintf("%s-%d%s", base, i+1, ext)
		if err := os.WriteFile(files[i], res.PageData(i), 0o644); err != nil {
			return nil, fmt.Errorf("write page %d: %w", i+1, err)
		}
	}
	return files, nil
}
