package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "pkg_name", cfg.Name)
	assert.Equal(t, "My Name", cfg.Author)
	assert.Equal(t, "myname@email.com", cfg.AuthorEmail)
	assert.Equal(t, ">=3.8", cfg.PythonRequires)
	assert.Equal(t, "text/markdown", cfg.LongDescriptionContentType)
	assert.Equal(t, DefaultClassifiers, cfg.Classifiers)
	assert.Equal(t, map[string][]string{"pkg_name": {"py.typed"}}, cfg.PackageData)
	assert.True(t, cfg.IncludePackageData)
	assert.Empty(t, cfg.Description)

	assert.Equal(t, "README.md", cfg.Inputs.Readme)
	assert.Equal(t, "requirements.txt", cfg.Inputs.Requirements)
	assert.Equal(t, filepath.Join("pkg_name", "version.py"), cfg.Inputs.VersionFile)
	assert.Equal(t, "__version__", cfg.Inputs.VersionSymbol)
	assert.Equal(t, "__init__.py", cfg.Inputs.ModuleMarker)
	assert.Equal(t, []string{"python3", "-m", "build"}, cfg.Backend.Command)
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkgmeta.yaml", `name: fluxion
author: Ada
python_requires: ">=3.10"
classifiers:
  - "Programming Language :: Python :: 3.10"
inputs:
  readme: docs/README.rst
  exclude_packages: ["tests", "tests.*"]
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "fluxion", cfg.Name)
	assert.Equal(t, "Ada", cfg.Author)
	assert.Equal(t, "myname@email.com", cfg.AuthorEmail, "unset keys keep defaults")
	assert.Equal(t, ">=3.10", cfg.PythonRequires)
	assert.Equal(t, []string{"Programming Language :: Python :: 3.10"}, cfg.Classifiers)
	assert.Equal(t, "docs/README.rst", cfg.Inputs.Readme)
	assert.Equal(t, []string{"tests", "tests.*"}, cfg.Inputs.ExcludePackages)
	assert.Equal(t, filepath.Join("fluxion", "version.py"), cfg.Inputs.VersionFile)
}

func TestLoad_JSONC(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkgmeta.jsonc", `{
  // project identity
  "name": "fluxion",
  "keywords": "physics, simulation",
  /* relocated version module */
  "inputs": {
    "version_file": "src/fluxion/_version.py",
  },
}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "fluxion", cfg.Name)
	assert.Equal(t, "physics, simulation", cfg.Keywords)
	assert.Equal(t, "src/fluxion/_version.py", cfg.Inputs.VersionFile)
	assert.Equal(t, "README.md", cfg.Inputs.Readme)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkgmeta.yaml", "name: fluxion\n")
	t.Setenv("PKGMETA_PYTHON_REQUIRES", ">=3.12")
	t.Setenv("PKGMETA_INPUTS_README", "README.rst")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ">=3.12", cfg.PythonRequires)
	assert.Equal(t, "README.rst", cfg.Inputs.Readme)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad name", "name: \"-bad name-\"\n"},
		{"empty readme", "inputs:\n  readme: \"\"\n"},
		{"marker with path", "inputs:\n  module_marker: pkg/__init__.py\n"},
		{"malformed yaml", "name: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "pkgmeta.yaml", tt.content)

			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Name = "fluxion"
	cfg.Author = "Ada"
	cfg.Inputs.VersionFile = filepath.Join("fluxion", "version.py")
	cfg.PackageData = map[string][]string{"fluxion": {"py.typed"}}

	require.NoError(t, Write(filepath.Join(dir, "pkgmeta.yaml"), cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestUsed(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Used(dir))

	p := writeFile(t, dir, "pkgmeta.yml", "name: fluxion\n")
	assert.Equal(t, p, Used(dir))
}

func TestLoad_PackageDataKeepsCase(t *testing.T) {
	tests := []struct {
		file    string
		content string
	}{
		{"pkgmeta.yaml", "name: MyPkg\npackage_data:\n  MyPkg: [py.typed]\n  MyPkg.Data: [\"*.csv\"]\n"},
		{"pkgmeta.json", `{"name": "MyPkg", "package_data": {"MyPkg": ["py.typed"], "MyPkg.Data": ["*.csv"]}}`},
		{"pkgmeta.jsonc", "{\n  // keys keep their case\n  \"name\": \"MyPkg\",\n  \"package_data\": {\"MyPkg\": [\"py.typed\"], \"MyPkg.Data\": [\"*.csv\"],},\n}"},
		{"pkgmeta.toml", "name = \"MyPkg\"\n\n[package_data]\nMyPkg = [\"py.typed\"]\n\"MyPkg.Data\" = [\"*.csv\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.content)

			cfg, err := Load(dir)
			require.NoError(t, err)

			assert.Equal(t, map[string][]string{
				"MyPkg":      {"py.typed"},
				"MyPkg.Data": {"*.csv"},
			}, cfg.PackageData)
		})
	}
}

func TestLoad_EmptyPackageData(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkgmeta.yaml", "package_data: {}\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.PackageData)
}

func TestLoad_ReadsFileReportedByUsed(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "pkgmeta.yaml", "author: Yaml\n")
	writeFile(t, dir, "pkgmeta.json", `{"author": "Json"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, yamlPath, Used(dir))
	assert.Equal(t, "Yaml", cfg.Author)
}
