// Package sdist writes and reads source distributions: gzip-compressed tar
// archives with a single <name>-<version>/ directory holding PKG-INFO, the
// project inputs, and the package sources.
package sdist

import (
	"archive/tar"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/frederic-klein/pkgmeta/internal/discover"
	"github.com/frederic-klein/pkgmeta/internal/meta"
	"github.com/frederic-klein/pkgmeta/internal/pkginfo"
)

// Options configures a Writer.
type Options struct {
	ProjectDir  string
	PackageRoot string    // relative to ProjectDir
	ExtraFiles  []string  // project-relative files copied to the archive root
	ModTime     time.Time // applied to every entry
	Logger      *zap.Logger
}

// Writer builds source distributions. Files matching a package's
// package_data globs are always archived. Record.IncludePackageData is not
// consulted: it tells external backends to add files listed in MANIFEST.in
// or tracked by version control, which pkgmeta does not read.
type Writer struct {
	opts Options
}

type entry struct {
	name   string // path inside the archive
	source string // file on disk, empty for generated content
	data   []byte
}

// NewWriter creates a source distribution writer.
func NewWriter(opts Options) *Writer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PackageRoot == "" {
		opts.PackageRoot = "."
	}
	if opts.ModTime.IsZero() {
		opts.ModTime = time.Unix(0, 0).UTC()
	}
	return &Writer{opts: opts}
}

// Write creates <outDir>/<name>-<version>.tar.gz and returns its path.
func (w *Writer) Write(rec *meta.Record, outDir string) (string, error) {
	entries, err := w.collect(rec)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	destPath := filepath.Join(outDir, rec.DistName()+".tar.gz")

	// Write to temp file first, then rename
	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}

	err = w.writeArchive(out, entries)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing archive: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming file: %w", err)
	}

	w.opts.Logger.Info("wrote source distribution",
		zap.String("path", destPath),
		zap.Int("files", len(entries)),
	)
	return destPath, nil
}

func (w *Writer) writeArchive(f *os.File, entries []entry) error {
	gzWriter := gzip.NewWriter(f)
	tarWriter := tar.NewWriter(gzWriter)

	for _, e := range entries {
		data := e.data
		if e.source != "" {
			var err error
			data, err = os.ReadFile(e.source)
			if err != nil {
				return err
			}
		}

		hdr := &tar.Header{
			Name:     e.name,
			Mode:     0644,
			Size:     int64(len(data)),
			ModTime:  w.opts.ModTime,
			Typeflag: tar.TypeReg,
		}
		if err := tarWriter.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tarWriter.Write(data); err != nil {
			return err
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzWriter.Close()
}

// collect lists the archive contents, sorted by archive path.
func (w *Writer) collect(rec *meta.Record) ([]entry, error) {
	prefix := rec.DistName() + "/"

	var info bytes.Buffer
	if err := pkginfo.NewEmitter(&info).Emit(rec); err != nil {
		return nil, fmt.Errorf("rendering PKG-INFO: %w", err)
	}

	files := map[string]entry{
		prefix + "PKG-INFO": {name: prefix + "PKG-INFO", data: info.Bytes()},
	}
	add := func(source string) error {
		rel, err := filepath.Rel(w.opts.ProjectDir, source)
		if err != nil {
			return err
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%s is outside the project directory", source)
		}
		name := prefix + filepath.ToSlash(rel)
		files[name] = entry{name: name, source: source}
		return nil
	}

	for _, extra := range w.opts.ExtraFiles {
		if err := add(filepath.Join(w.opts.ProjectDir, extra)); err != nil {
			return nil, err
		}
	}

	pkgRoot := filepath.Join(w.opts.ProjectDir, w.opts.PackageRoot)
	for _, pkg := range rec.Packages {
		sources, err := packageFiles(discover.Dir(pkgRoot, pkg), dataPatterns(rec.PackageData, pkg))
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", pkg, err)
		}
		for _, source := range sources {
			if err := add(source); err != nil {
				return nil, err
			}
		}
	}

	entries := make([]entry, 0, len(files))
	for _, e := range files {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].name < entries[j].name
	})
	return entries, nil
}

// dataPatterns returns the package_data globs for pkg; the "" key applies to
// every package.
func dataPatterns(data map[string][]string, pkg string) []string {
	patterns := append([]string{}, data[""]...)
	return append(patterns, data[pkg]...)
}

// packageFiles returns the module files of one package directory plus the
// regular files matching its data patterns.
func packageFiles(dir string, patterns []string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, de := range dirEntries {
		if de.Type().IsRegular() && filepath.Ext(de.Name()) == ".py" {
			files = append(files, filepath.Join(dir, de.Name()))
		}
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("package_data pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// ModTimeFromEnv returns the time in SOURCE_DATE_EPOCH, or the Unix epoch
// when it is unset or invalid.
func ModTimeFromEnv() time.Time {
	secs, err := strconv.ParseInt(os.Getenv("SOURCE_DATE_EPOCH"), 10, 64)
	if err != nil || secs < 0 {
		secs = 0
	}
	return time.Unix(secs, 0).UTC()
}
