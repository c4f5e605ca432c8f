package meta

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// Record is the metadata handed to a packaging backend.
type Record struct {
	Name                       string              `json:"name" yaml:"name"`
	Version                    string              `json:"version" yaml:"version"` // read from the version file
	Author                     string              `json:"author" yaml:"author"`
	AuthorEmail                string              `json:"author_email" yaml:"author_email"`
	Description                string              `json:"description" yaml:"description"`
	LongDescription            string              `json:"long_description" yaml:"long_description"`
	LongDescriptionContentType string              `json:"long_description_content_type" yaml:"long_description_content_type"`
	URL                        string              `json:"url" yaml:"url"`
	Keywords                   string              `json:"keywords" yaml:"keywords"`
	Packages                   []string            `json:"packages" yaml:"packages"` // sorted, no duplicates
	PackageData                map[string][]string `json:"package_data,omitempty" yaml:"package_data,omitempty"`
	IncludePackageData         bool                `json:"include_package_data" yaml:"include_package_data"`
	PythonRequires             string              `json:"python_requires" yaml:"python_requires"` // e.g., ">=3.8"
	InstallRequires            []string            `json:"install_requires" yaml:"install_requires"`
	Classifiers                []string            `json:"classifiers" yaml:"classifiers"`
}

// DevOnly lists development tools that never become install requirements.
var DevOnly = map[string]bool{
	"pre-commit":  true,
	"black":       true,
	"flake8":      true,
	"mypy":        true,
	"pytest":      true,
	"pytest-mock": true,
	"flaky":       true,
}

// IsDevOnly reports whether a dependency line names a development-only tool.
func IsDevOnly(line string) bool {
	return DevOnly[line]
}

// Canonical returns the JSON encoding used for fingerprinting. Field order
// follows the struct and map keys are sorted, so equal records encode to
// equal bytes.
func (r *Record) Canonical() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return data, nil
}

// Fingerprint returns the hex BLAKE3-256 digest of the canonical encoding.
func (r *Record) Fingerprint() (string, error) {
	data, err := r.Canonical()
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// DistName returns the archive base name, e.g. "pkg_name-0.1.0".
func (r *Record) DistName() string {
	return fmt.Sprintf("%s-%s", r.Name, r.Version)
}
