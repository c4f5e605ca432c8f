package pkginfo

import (
	"fmt"
	"io"
	"strings"

	"github.com/frederic-klein/pkgmeta/internal/meta"
)

// MetadataVersion is the core metadata version written by the emitter.
const MetadataVersion = "2.1"

// continuation prefixes folded header lines.
const continuation = "        "

// Emitter writes PKG-INFO files in core metadata format.
type Emitter struct {
	w io.Writer
}

// NewEmitter creates a new PKG-INFO emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes the record's header fields, a blank line, and the long
// description as the message body.
func (e *Emitter) Emit(rec *meta.Record) error {
	fields := []struct {
		key, value string
	}{
		{"Metadata-Version", MetadataVersion},
		{"Name", rec.Name},
		{"Version", rec.Version},
		{"Summary", rec.Description},
		{"Home-page", rec.URL},
		{"Author", rec.Author},
		{"Author-email", rec.AuthorEmail},
		{"Keywords", rec.Keywords},
	}
	for _, f := range fields {
		if err := e.header(f.key, f.value); err != nil {
			return err
		}
	}

	// Multi-use fields keep their order
	for _, c := range rec.Classifiers {
		if err := e.header("Classifier", c); err != nil {
			return err
		}
	}

	if err := e.header("Requires-Python", rec.PythonRequires); err != nil {
		return err
	}
	if err := e.header("Description-Content-Type", rec.LongDescriptionContentType); err != nil {
		return err
	}

	for _, req := range rec.InstallRequires {
		if err := e.header("Requires-Dist", req); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprint(e.w, "\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, rec.LongDescription); err != nil {
		return err
	}

	return nil
}

func (e *Emitter) header(key, value string) error {
	if value == "" {
		return nil
	}
	_, err := fmt.Fprintf(e.w, "%s: %s\n", key, fold(value))
	return err
}

// fold turns embedded newlines into continuation lines.
func fold(v string) string {
	v = strings.ReplaceAll(v, "\r\n", "\n")
	return strings.ReplaceAll(v, "\n", "\n"+continuation)
}
