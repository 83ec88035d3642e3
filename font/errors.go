package font

import (
	"errors"
	"fmt"
)

// Sentinel errors for the font package.
var (
	// ErrFontNotFound is matched by every *FontNotFoundError.
	ErrFontNotFound = errors.New("font: font not found")

	// ErrInvalidPattern is matched by every *PatternError.
	ErrInvalidPattern = errors.New("font: invalid font pattern")

	// ErrUnsupportedFont is returned when a font file carries no usable
	// character map or outlines.
	ErrUnsupportedFont = errors.New("font: unsupported font")
)

// FontNotFoundError reports that no installed face belongs to Family.
type FontNotFoundError struct {
	Family string
	Style  Style
	Weight Weight
}

func (e *FontNotFoundError) Error() string {
	return fmt.Sprintf("font: family %q (%s, %d) is not installed", e.Family, e.Style, e.Weight)
}

// Is reports whether target is ErrFontNotFound.
func (e *FontNotFoundError) Is(target error) bool {
	return target == ErrFontNotFound
}

// LoadError reports a font file that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("font: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// PatternError reports a font pattern that could not be parsed.
type PatternError struct {
	Pattern string
	Reason  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("font: invalid pattern %q: %s", e.Pattern, e.Reason)
}

// Is reports whether target is ErrInvalidPattern.
func (e *PatternError) Is(target error) bool {
	return target == ErrInvalidPattern
}
