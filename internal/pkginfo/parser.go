package pkginfo

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/frederic-klein/pkgmeta/internal/meta"
)

var headerRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9-]*):[ \t]?(.*)$`)

// Parser reads PKG-INFO files in core metadata format.
type Parser struct {
	r io.Reader
}

// NewParser creates a new PKG-INFO parser.
func NewParser(r io.Reader) *Parser {
	return &Parser{r: r}
}

// Parse reads the header fields into a record. The body after the first
// blank line becomes the long description, byte for byte. Packages and
// package data are not part of core metadata and stay empty.
func (p *Parser) Parse() (*meta.Record, error) {
	data, err := io.ReadAll(p.r)
	if err != nil {
		return nil, fmt.Errorf("reading PKG-INFO: %w", err)
	}
	content := string(data)

	head, body := content, ""
	if idx := strings.Index(content, "\n\n"); idx != -1 {
		head, body = content[:idx+1], content[idx+2:]
	}

	rec := &meta.Record{LongDescription: body}
	var lastValue *string

	for i, line := range strings.Split(strings.TrimSuffix(head, "\n"), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		// Continuation of the previous header
		if line[0] == ' ' || line[0] == '\t' {
			if lastValue == nil {
				return nil, fmt.Errorf("PKG-INFO line %d: continuation without header", i+1)
			}
			*lastValue += "\n" + strings.TrimPrefix(line, continuation)
			continue
		}

		matches := headerRe.FindStringSubmatch(line)
		if matches == nil {
			return nil, fmt.Errorf("PKG-INFO line %d: malformed header %q", i+1, line)
		}
		key, value := matches[1], matches[2]

		switch strings.ToLower(key) {
		case "name":
			rec.Name = value
			lastValue = &rec.Name
		case "version":
			rec.Version = value
			lastValue = &rec.Version
		case "summary":
			rec.Description = value
			lastValue = &rec.Description
		case "home-page":
			rec.URL = value
			lastValue = &rec.URL
		case "author":
			rec.Author = value
			lastValue = &rec.Author
		case "author-email":
			rec.AuthorEmail = value
			lastValue = &rec.AuthorEmail
		case "keywords":
			rec.Keywords = value
			lastValue = &rec.Keywords
		case "requires-python":
			rec.PythonRequires = value
			lastValue = &rec.PythonRequires
		case "description-content-type":
			rec.LongDescriptionContentType = value
			lastValue = &rec.LongDescriptionContentType
		case "classifier":
			rec.Classifiers = append(rec.Classifiers, value)
			lastValue = &rec.Classifiers[len(rec.Classifiers)-1]
		case "requires-dist":
			rec.InstallRequires = append(rec.InstallRequires, value)
			lastValue = &rec.InstallRequires[len(rec.InstallRequires)-1]
		default:
			// Metadata-Version and fields we do not model; continuation
			// lines are still consumed.
			lastValue = new(string)
		}
	}

	if rec.Name == "" {
		return nil, fmt.Errorf("PKG-INFO has no Name field")
	}
	return rec, nil
}
