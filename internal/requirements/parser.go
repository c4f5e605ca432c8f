package requirements

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/frederic-klein/pkgmeta/internal/meta"
)

// Parser reads requirements.txt style dependency lists.
type Parser struct{}

// NewParser creates a new requirements parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseResult holds the kept and dropped dependency lines, both in file order.
type ParseResult struct {
	Requires []string
	Excluded []string
}

// Parse reads the dependency list at path. Lines are passed through
// unmodified except that blank lines and development-only tools are dropped.
func (p *Parser) Parse(path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading requirements: %w", err)
	}
	return p.ParseString(string(data))
}

// ParseString splits content on line boundaries and filters it.
func (p *Parser) ParseString(content string) (*ParseResult, error) {
	result := &ParseResult{Requires: []string{}}

	scanner := bufio.NewScanner(strings.NewReader(strings.TrimSpace(content)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			continue
		}

		if meta.IsDevOnly(line) {
			result.Excluded = append(result.Excluded, line)
			continue
		}

		result.Requires = append(result.Requires, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading requirements: %w", err)
	}

	return result, nil
}
