// Package backend hands an assembled metadata record to whatever produces
// the distribution artifact. In-process backends write a manifest, a
// PKG-INFO file, or a source distribution; the exec backend delegates to an
// external packaging tool.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/pkgmeta/internal/meta"
	"github.com/frederic-klein/pkgmeta/internal/pkginfo"
	"github.com/frederic-klein/pkgmeta/internal/sdist"
)

// ErrUnknownFormat is returned for manifest formats other than yaml and json.
var ErrUnknownFormat = errors.New("unknown manifest format")

// Backend consumes a finished record.
type Backend interface {
	Name() string
	Build(ctx context.Context, rec *meta.Record) error
}

// Manifest writes the record itself as YAML or JSON.
type Manifest struct {
	w      io.Writer
	format string
}

// NewManifest creates a manifest backend. Format is "yaml" or "json".
func NewManifest(w io.Writer, format string) (*Manifest, error) {
	switch format {
	case "yaml", "json":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &Manifest{w: w, format: format}, nil
}

func (m *Manifest) Name() string { return "manifest" }

func (m *Manifest) Build(_ context.Context, rec *meta.Record) error {
	if m.format == "json" {
		enc := json.NewEncoder(m.w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	enc := yaml.NewEncoder(m.w)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return err
	}
	return enc.Close()
}

// PKGInfo writes a core metadata file.
type PKGInfo struct {
	path   string
	logger *zap.Logger
}

// NewPKGInfo creates a backend writing PKG-INFO to path.
func NewPKGInfo(path string, logger *zap.Logger) *PKGInfo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PKGInfo{path: path, logger: logger}
}

func (p *PKGInfo) Name() string { return "pkg-info" }

func (p *PKGInfo) Build(_ context.Context, rec *meta.Record) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	out, err := os.Create(p.path)
	if err != nil {
		return fmt.Errorf("creating PKG-INFO: %w", err)
	}
	defer out.Close()

	if err := pkginfo.NewEmitter(out).Emit(rec); err != nil {
		return fmt.Errorf("writing PKG-INFO: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("writing PKG-INFO: %w", err)
	}

	p.logger.Info("wrote PKG-INFO", zap.String("path", p.path))
	return nil
}

// Sdist writes a source distribution into a directory.
type Sdist struct {
	writer *sdist.Writer
	outDir string

	// Path is the archive written by the last successful Build.
	Path string
}

// NewSdist creates a source distribution backend.
func NewSdist(opts sdist.Options, outDir string) *Sdist {
	return &Sdist{writer: sdist.NewWriter(opts), outDir: outDir}
}

func (s *Sdist) Name() string { return "sdist" }

func (s *Sdist) Build(_ context.Context, rec *meta.Record) error {
	path, err := s.writer.Write(rec, s.outDir)
	if err != nil {
		return err
	}
	s.Path = path
	return nil
}
