// Package assemble builds a package metadata record from a project
// directory: the description file, the dependency list, the version module
// and the package tree, plus the static fields from configuration.
//
// Assembly is all-or-nothing. The first failed read aborts it and no record
// is returned.
package assemble

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/frederic-klein/pkgmeta/internal/config"
	"github.com/frederic-klein/pkgmeta/internal/discover"
	"github.com/frederic-klein/pkgmeta/internal/meta"
	"github.com/frederic-klein/pkgmeta/internal/requirements"
	"github.com/frederic-klein/pkgmeta/internal/version"
)

// ErrMissingInput is returned when one of the input files does not exist.
var ErrMissingInput = errors.New("missing input file")

// Assembler reads a project directory into a metadata record.
type Assembler struct {
	dir    string
	cfg    *config.Config
	logger *zap.Logger
}

// NewAssembler creates an assembler for the project in dir. A nil logger
// disables logging.
func NewAssembler(dir string, cfg *config.Config, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{dir: dir, cfg: cfg, logger: logger}
}

// Assemble reads every input and returns the complete record.
func (a *Assembler) Assemble() (*meta.Record, error) {
	in := a.cfg.Inputs

	readmePath := a.path(in.Readme)
	a.logger.Debug("reading description", zap.String("path", readmePath))
	long, err := os.ReadFile(readmePath)
	if err != nil {
		return nil, inputError("description file", readmePath, err)
	}

	reqPath := a.path(in.Requirements)
	a.logger.Debug("reading requirements", zap.String("path", reqPath))
	reqs, err := requirements.NewParser().Parse(reqPath)
	if err != nil {
		return nil, inputError("dependency list", reqPath, err)
	}
	if len(reqs.Excluded) > 0 {
		a.logger.Debug("dropped development-only requirements", zap.Strings("excluded", reqs.Excluded))
	}

	versionPath := a.path(in.VersionFile)
	a.logger.Debug("reading version", zap.String("path", versionPath), zap.String("symbol", in.VersionSymbol))
	ver, err := version.NewExtractor(in.VersionSymbol).ReadFile(versionPath)
	if err != nil {
		return nil, inputError("version file", versionPath, err)
	}

	finder, err := discover.NewFinder(in.ModuleMarker, in.ExcludePackages)
	if err != nil {
		return nil, err
	}
	packages, err := finder.Find(a.path(in.PackageRoot))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("discovered packages", zap.Strings("packages", packages))

	description := a.cfg.Description
	if description == "" {
		description = Summarize(string(long))
	}

	rec := &meta.Record{
		Name:                       a.cfg.Name,
		Version:                    ver,
		Author:                     a.cfg.Author,
		AuthorEmail:                a.cfg.AuthorEmail,
		Description:                description,
		LongDescription:            string(long),
		LongDescriptionContentType: a.cfg.LongDescriptionContentType,
		URL:                        a.cfg.URL,
		Keywords:                   a.cfg.Keywords,
		Packages:                   packages,
		PackageData:                copyPackageData(a.cfg.PackageData),
		IncludePackageData:         a.cfg.IncludePackageData,
		PythonRequires:             a.cfg.PythonRequires,
		InstallRequires:            reqs.Requires,
		Classifiers:                append([]string{}, a.cfg.Classifiers...),
	}

	a.logger.Info("assembled metadata",
		zap.String("name", rec.Name),
		zap.String("version", rec.Version),
		zap.Int("packages", len(rec.Packages)),
		zap.Int("install_requires", len(rec.InstallRequires)),
	)
	return rec, nil
}

func (a *Assembler) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(a.dir, rel)
}

func inputError(role, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s %s: %w", ErrMissingInput, role, path, err)
	}
	return fmt.Errorf("%s %s: %w", role, path, err)
}

// Summarize returns the first line of text in a README that is not markup:
// heading markers are stripped and underline rows are skipped.
func Summarize(long string) string {
	for _, line := range strings.Split(long, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if line == "" || isUnderline(line) {
			continue
		}
		return line
	}
	return ""
}

func isUnderline(line string) bool {
	return strings.Trim(line, "=-~*^+`") == ""
}

func copyPackageData(in map[string][]string) map[string][]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, globs := range in {
		out[k] = append([]string{}, globs...)
	}
	return out
}
