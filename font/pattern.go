package font

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Pattern is a parsed font description.
type Pattern struct {
	Family string
	Style  Style
	Weight Weight
	Size   float64 // 0 when the pattern names no size
}

// String formats p in the syntax accepted by ParsePattern.
func (p Pattern) String() string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(p.Family, "-", `\-`))
	if p.Size > 0 {
		b.WriteByte('-')
		b.WriteString(strconv.FormatFloat(p.Size, 'f', -1, 64))
	}
	if p.Style != StyleNormal {
		b.WriteByte(':')
		b.WriteString(p.Style.String())
	}
	if p.Weight != WeightNormal {
		b.WriteString(":weight=")
		b.WriteString(strconv.Itoa(int(p.Weight)))
	}
	return b.String()
}

var (
	patternLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t]+`},
		{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
		{Name: "Word", Pattern: `(?:[\p{L}_]|\\-)(?:[\p{L}\p{N}_.'&+]|\\-)*`},
		{Name: "Punct", Pattern: `[-:=]`},
	})

	patternParser = participle.MustBuild[patternAST](
		participle.Lexer(patternLexer),
		participle.Elide("Whitespace"),
	)
)

type patternAST struct {
	Family []string       `parser:"@(Word | Number)*"`
	Size   *string        `parser:"('-' @Number)?"`
	Props  []*propertyAST `parser:"(':' @@)*"`
}

type propertyAST struct {
	Name  string   `parser:"@Word"`
	Value []string `parser:"('=' @(Word | Number)+)?"`
}

// ParsePattern parses a fontconfig-style pattern:
//
//	family[-size][:property[=value]]...
//
// Recognized properties are the bare words bold, italic, oblique, regular
// and the weight names accepted by ParseWeight, plus weight=, style= and
// size=. A hyphen inside a family name is written as `\-`.
func ParsePattern(s string) (Pattern, error) {
	p := Pattern{Style: StyleNormal, Weight: WeightNormal}
	if strings.TrimSpace(s) == "" {
		return p, &PatternError{Pattern: s, Reason: "empty pattern"}
	}

	ast, err := patternParser.ParseString("", s)
	if err != nil {
		return p, &PatternError{Pattern: s, Reason: err.Error()}
	}

	p.Family = strings.ReplaceAll(strings.Join(ast.Family, " "), `\-`, "-")
	if ast.Size != nil {
		if p.Size, err = parseSize(*ast.Size); err != nil {
			return p, &PatternError{Pattern: s, Reason: err.Error()}
		}
	}

	for _, prop := range ast.Props {
		if reason := p.apply(prop); reason != "" {
			return p, &PatternError{Pattern: s, Reason: reason}
		}
	}
	return p, nil
}

func (p *Pattern) apply(prop *propertyAST) string {
	name := strings.ToLower(prop.Name)
	value := strings.Join(prop.Value, " ")

	if len(prop.Value) == 0 {
		switch name {
		case "italic", "oblique":
			p.Style, _ = ParseStyle(name)
			return ""
		case "regular", "normal":
			p.Style, p.Weight = StyleNormal, WeightNormal
			return ""
		}
		if w, ok := ParseWeight(name); ok {
			p.Weight = w
			return ""
		}
		return "unknown property " + strconv.Quote(prop.Name)
	}

	switch name {
	case "weight":
		w, ok := ParseWeight(value)
		if !ok {
			return "invalid weight " + strconv.Quote(value)
		}
		p.Weight = w
	case "style", "slant":
		st, ok := ParseStyle(value)
		if !ok {
			return "invalid style " + strconv.Quote(value)
		}
		p.Style = st
	case "size", "pixelsize":
		size, err := parseSize(value)
		if err != nil {
			return err.Error()
		}
		p.Size = size
	default:
		return "unknown property " + strconv.Quote(prop.Name)
	}
	return ""
}

func parseSize(s string) (float64, error) {
	size, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		return 0, &strconv.NumError{Func: "parseSize", Num: s, Err: strconv.ErrRange}
	}
	return size, nil
}
