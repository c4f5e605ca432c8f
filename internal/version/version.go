// Package version reads a package version out of a Python version module
// without executing it.
package version

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

// DefaultSymbol is the conventional name bound to the version string.
const DefaultSymbol = "__version__"

var (
	// ErrNoVersion means the file has no usable version assignment.
	ErrNoVersion = errors.New("no version assignment found")
	// ErrAmbiguousVersion means the symbol is assigned more than once.
	ErrAmbiguousVersion = errors.New("version assigned more than once")
)

// Extractor locates `<symbol> = "<version>"` assignments.
type Extractor struct {
	symbol string
	re     *regexp.Regexp
}

// NewExtractor creates an extractor for the given symbol. An empty symbol
// means DefaultSymbol.
func NewExtractor(symbol string) *Extractor {
	if symbol == "" {
		symbol = DefaultSymbol
	}
	// Optional annotation (`__version__: str = ...`), either quote style.
	pattern := `(?m)^[ \t]*` + regexp.QuoteMeta(symbol) +
		`[ \t]*(?::[ \t]*[A-Za-z_][\w.]*[ \t]*)?=[ \t]*(?:"([^"\r\n]*)"|'([^'\r\n]*)')`
	return &Extractor{
		symbol: symbol,
		re:     regexp.MustCompile(pattern),
	}
}

// Symbol returns the name the extractor looks for.
func (e *Extractor) Symbol() string {
	return e.symbol
}

// ReadFile extracts the version from the file at path.
func (e *Extractor) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading version file: %w", err)
	}

	v, err := e.Extract(string(data))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Extract returns the value of the single version assignment in src.
func (e *Extractor) Extract(src string) (string, error) {
	matches := e.re.FindAllStringSubmatch(src, -1)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w for %s", ErrNoVersion, e.symbol)
	case 1:
	default:
		return "", fmt.Errorf("%w: %s (%d assignments)", ErrAmbiguousVersion, e.symbol, len(matches))
	}

	v := matches[0][1]
	if v == "" {
		v = matches[0][2]
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoVersion, e.symbol)
	}
	return v, nil
}
