package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultMarker is the file that makes a directory an importable package.
const DefaultMarker = "__init__.py"

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Finder discovers packages below a root directory.
type Finder struct {
	marker  string
	exclude []string
}

// NewFinder creates a finder. Exclude patterns use shell glob syntax and are
// matched against dotted package names, e.g. "tests" or "tests.*".
func NewFinder(marker string, exclude []string) (*Finder, error) {
	if marker == "" {
		marker = DefaultMarker
	}
	for _, pattern := range exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}
	return &Finder{marker: marker, exclude: exclude}, nil
}

// Find walks root and returns the dotted names of every package, sorted.
// Traversal stops at directories that are not packages; excluded packages
// are left out of the result but their children are still visited.
//
// This is stricter than setuptools' find_packages: a directory name must be
// a valid identifier (find_packages only rejects names containing a dot),
// and symbolic links to directories are not followed.
func (f *Finder) Find(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("package root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("package root %s is not a directory", root)
	}

	seen := make(map[string]bool)
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || p == root {
			return nil
		}

		if !identifierRe.MatchString(d.Name()) || !f.isPackage(p) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
		if !f.excluded(name) {
			seen[name] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering packages: %w", err)
	}

	packages := make([]string, 0, len(seen))
	for name := range seen {
		packages = append(packages, name)
	}
	sort.Strings(packages)
	return packages, nil
}

// Dir maps a dotted package name back to its directory below root.
func Dir(root, pkg string) string {
	return filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(pkg, ".", "/")))
}

func (f *Finder) isPackage(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, f.marker))
	return err == nil && info.Mode().IsRegular()
}

func (f *Finder) excluded(name string) bool {
	for _, pattern := range f.exclude {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
