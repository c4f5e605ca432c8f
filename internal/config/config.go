package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileName is the base name of the project config file.
const FileName = "pkgmeta"

// Config holds the static package fields and the locations of the inputs.
type Config struct {
	Name                       string              `mapstructure:"name" yaml:"name"`
	Author                     string              `mapstructure:"author" yaml:"author"`
	AuthorEmail                string              `mapstructure:"author_email" yaml:"author_email"`
	Description                string              `mapstructure:"description" yaml:"description,omitempty"`
	LongDescriptionContentType string              `mapstructure:"long_description_content_type" yaml:"long_description_content_type"`
	URL                        string              `mapstructure:"url" yaml:"url"`
	Keywords                   string              `mapstructure:"keywords" yaml:"keywords"`
	PythonRequires             string              `mapstructure:"python_requires" yaml:"python_requires"`
	Classifiers                []string            `mapstructure:"classifiers" yaml:"classifiers"`
	PackageData                map[string][]string `mapstructure:"-" yaml:"package_data,omitempty"` // decoded from the raw file
	IncludePackageData         bool                `mapstructure:"include_package_data" yaml:"include_package_data"`

	Inputs  InputsConfig  `mapstructure:"inputs" yaml:"inputs"`
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
}

// InputsConfig locates the files read during assembly, relative to the
// project directory.
type InputsConfig struct {
	Readme          string   `mapstructure:"readme" yaml:"readme"`
	Requirements    string   `mapstructure:"requirements" yaml:"requirements"`
	VersionFile     string   `mapstructure:"version_file" yaml:"version_file,omitempty"` // defaults to <name>/version.py
	VersionSymbol   string   `mapstructure:"version_symbol" yaml:"version_symbol"`
	PackageRoot     string   `mapstructure:"package_root" yaml:"package_root"`
	ModuleMarker    string   `mapstructure:"module_marker" yaml:"module_marker"`
	ExcludePackages []string `mapstructure:"exclude_packages" yaml:"exclude_packages,omitempty"`
}

// BackendConfig configures the external packaging tool used by `pkgmeta run`.
type BackendConfig struct {
	Command []string `mapstructure:"command" yaml:"command"`
}

// DefaultClassifiers are the trove classifiers of the project template.
var DefaultClassifiers = []string{
	"Programming Language :: Python :: 3.8",
	"Operating System :: MacOS :: MacOS X ",
	"Operating System :: POSIX :: Linux",
	"Intended Audience :: Developers",
	"Intended Audience :: Science/Research",
	"Natural Language :: English",
	"Development Status :: 1 - Planning",
}

var distNameRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// Default returns the template configuration.
func Default() *Config {
	return &Config{
		Name:                       "pkg_name",
		Author:                     "My Name",
		AuthorEmail:                "myname@email.com",
		LongDescriptionContentType: "text/markdown",
		URL:                        "https://github.com/[username]/[name]",
		Keywords:                   "deep learning, differential programming, physics, science, statistics",
		PythonRequires:             ">=3.8",
		Classifiers:                append([]string(nil), DefaultClassifiers...),
		PackageData:                map[string][]string{"pkg_name": {"py.typed"}},
		IncludePackageData:         true,
		Inputs: InputsConfig{
			Readme:        "README.md",
			Requirements:  "requirements.txt",
			VersionSymbol: "__version__",
			PackageRoot:   ".",
			ModuleMarker:  "__init__.py",
		},
		Backend: BackendConfig{
			Command: []string{"python3", "-m", "build"},
		},
	}
}

// Extensions lists the config file extensions Load accepts, in the order
// they are searched.
var Extensions = []string{"jsonc", "yaml", "yml", "json", "toml"}

// Load reads pkgmeta.{jsonc,yaml,yml,json,toml} from dir, if present, on top
// of the defaults. Environment variables prefixed with PKGMETA_ override both,
// e.g. PKGMETA_PYTHON_REQUIRES or PKGMETA_INPUTS_README.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("PKGMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var packageData map[string][]string
	hasPackageData := false

	if path := Used(dir); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if ext == "jsonc" {
			data = jsonc.ToJSON(data)
			ext = "json"
		}

		v.SetConfigType(ext)
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		packageData, hasPackageData, err = decodePackageData(ext, data)
		if err != nil {
			return nil, fmt.Errorf("failed to read package_data from %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// viper lowercases map keys; package names keep their case.
	cfg.PackageData = Default().PackageData
	if hasPackageData {
		cfg.PackageData = packageData
	}

	if cfg.Inputs.VersionFile == "" {
		cfg.Inputs.VersionFile = filepath.Join(cfg.Name, "version.py")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Used reports the config file Load reads from dir, or "" if none.
func Used(dir string) string {
	for _, ext := range Extensions {
		p := filepath.Join(dir, FileName+"."+ext)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

// decodePackageData reads the package_data table straight from the config
// file so that its keys are not case-folded. ok is false when the file does
// not set it.
func decodePackageData(ext string, data []byte) (map[string][]string, bool, error) {
	var raw struct {
		PackageData *map[string][]string `json:"package_data" yaml:"package_data" toml:"package_data"`
	}

	var err error
	switch ext {
	case "json":
		err = json.Unmarshal(data, &raw)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &raw)
	case "toml":
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, false, fmt.Errorf("unsupported config type %q", ext)
	}
	if err != nil {
		return nil, false, err
	}

	if raw.PackageData == nil {
		return nil, false, nil
	}
	return *raw.PackageData, true, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("name", d.Name)
	v.SetDefault("author", d.Author)
	v.SetDefault("author_email", d.AuthorEmail)
	v.SetDefault("description", d.Description)
	v.SetDefault("long_description_content_type", d.LongDescriptionContentType)
	v.SetDefault("url", d.URL)
	v.SetDefault("keywords", d.Keywords)
	v.SetDefault("python_requires", d.PythonRequires)
	v.SetDefault("classifiers", d.Classifiers)
	v.SetDefault("include_package_data", d.IncludePackageData)

	v.SetDefault("inputs.readme", d.Inputs.Readme)
	v.SetDefault("inputs.requirements", d.Inputs.Requirements)
	v.SetDefault("inputs.version_file", d.Inputs.VersionFile)
	v.SetDefault("inputs.version_symbol", d.Inputs.VersionSymbol)
	v.SetDefault("inputs.package_root", d.Inputs.PackageRoot)
	v.SetDefault("inputs.module_marker", d.Inputs.ModuleMarker)
	v.SetDefault("inputs.exclude_packages", d.Inputs.ExcludePackages)

	v.SetDefault("backend.command", d.Backend.Command)
}

// Validate checks the fields assembly depends on.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !distNameRe.MatchString(c.Name) {
		return fmt.Errorf("name %q is not a valid distribution name", c.Name)
	}

	required := []struct {
		key, value string
	}{
		{"inputs.readme", c.Inputs.Readme},
		{"inputs.requirements", c.Inputs.Requirements},
		{"inputs.version_file", c.Inputs.VersionFile},
		{"inputs.version_symbol", c.Inputs.VersionSymbol},
		{"inputs.package_root", c.Inputs.PackageRoot},
		{"inputs.module_marker", c.Inputs.ModuleMarker},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s must not be empty", r.key)
		}
	}

	if strings.ContainsAny(c.Inputs.ModuleMarker, `/\`) {
		return fmt.Errorf("inputs.module_marker must be a file name, got: %s", c.Inputs.ModuleMarker)
	}

	return nil
}

// Write saves cfg as YAML at path.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
