package sdist

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/frederic-klein/pkgmeta/internal/meta"
)

func createProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"README.md":                     "# pkg_name\n",
		"requirements.txt":              "numpy\n",
		"pkg_name/__init__.py":          "",
		"pkg_name/version.py":           "__version__ = \"0.1.0\"\n",
		"pkg_name/py.typed":             "",
		"pkg_name/notes.txt":            "not shipped",
		"pkg_name/core/__init__.py":     "",
		"pkg_name/core/solver.py":       "def solve(): pass\n",
		"pkg_name/core/tables/data.csv": "a,b\n",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testRecord() *meta.Record {
	return &meta.Record{
		Name:            "pkg_name",
		Version:         "0.1.0",
		Description:     "pkg_name",
		LongDescription: "# pkg_name\n",
		Packages:        []string{"pkg_name", "pkg_name.core"},
		PackageData: map[string][]string{
			"pkg_name":      {"py.typed"},
			"pkg_name.core": {"tables/*.csv"},
		},
		PythonRequires:  ">=3.8",
		InstallRequires: []string{"numpy"},
	}
}

func TestWriter_Write(t *testing.T) {
	// Arrange
	dir := createProject(t)
	w := NewWriter(Options{
		ProjectDir: dir,
		ExtraFiles: []string{"README.md", "requirements.txt"},
	})

	// Act
	path, err := w.Write(testRecord(), filepath.Join(dir, "dist"))

	// Assert
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if filepath.Base(path) != "pkg_name-0.1.0.tar.gz" {
		t.Errorf("path = %q, want pkg_name-0.1.0.tar.gz", path)
	}

	names, err := NewReader().List(path)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{
		"pkg_name-0.1.0/PKG-INFO",
		"pkg_name-0.1.0/README.md",
		"pkg_name-0.1.0/pkg_name/__init__.py",
		"pkg_name-0.1.0/pkg_name/core/__init__.py",
		"pkg_name-0.1.0/pkg_name/core/solver.py",
		"pkg_name-0.1.0/pkg_name/core/tables/data.csv",
		"pkg_name-0.1.0/pkg_name/py.typed",
		"pkg_name-0.1.0/pkg_name/version.py",
		"pkg_name-0.1.0/requirements.txt",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("archive contents =\n%v\nwant:\n%v", names, want)
	}

	rec, err := NewReader().ReadMetadata(path)
	if err != nil {
		t.Fatalf("ReadMetadata() error = %v", err)
	}
	if rec.Name != "pkg_name" || rec.Version != "0.1.0" {
		t.Errorf("metadata = %s %s, want pkg_name 0.1.0", rec.Name, rec.Version)
	}
	if !reflect.DeepEqual(rec.InstallRequires, []string{"numpy"}) {
		t.Errorf("InstallRequires = %q", rec.InstallRequires)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file was left behind")
	}
}

func TestWriter_Write_Reproducible(t *testing.T) {
	dir := createProject(t)
	w := NewWriter(Options{
		ProjectDir: dir,
		ExtraFiles: []string{"README.md"},
		ModTime:    time.Unix(1700000000, 0),
	})

	first, err := w.Write(testRecord(), filepath.Join(dir, "a"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := w.Write(testRecord(), filepath.Join(dir, "b"))
	if err != nil {
		t.Fatal(err)
	}

	a, _ := os.ReadFile(first)
	b, _ := os.ReadFile(second)
	if !bytes.Equal(a, b) {
		t.Error("two builds of the same record differ")
	}
}

func TestWriter_Write_PackageDataIgnoresIncludeFlag(t *testing.T) {
	dir := createProject(t)
	w := NewWriter(Options{ProjectDir: dir})

	for _, include := range []bool{true, false} {
		rec := testRecord()
		rec.IncludePackageData = include

		path, err := w.Write(rec, filepath.Join(dir, "dist", strconv.FormatBool(include)))
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		names, err := NewReader().List(path)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		want := []string{
			"pkg_name-0.1.0/PKG-INFO",
			"pkg_name-0.1.0/pkg_name/__init__.py",
			"pkg_name-0.1.0/pkg_name/core/__init__.py",
			"pkg_name-0.1.0/pkg_name/core/solver.py",
			"pkg_name-0.1.0/pkg_name/core/tables/data.csv",
			"pkg_name-0.1.0/pkg_name/py.typed",
			"pkg_name-0.1.0/pkg_name/version.py",
		}
		if !reflect.DeepEqual(names, want) {
			t.Errorf("include_package_data=%v: archive contents =\n%v\nwant:\n%v", include, names, want)
		}
	}
}

func TestWriter_Write_MissingExtraFile(t *testing.T) {
	dir := createProject(t)
	w := NewWriter(Options{ProjectDir: dir, ExtraFiles: []string{"CHANGELOG.md"}})

	if _, err := w.Write(testRecord(), filepath.Join(dir, "dist")); err == nil {
		t.Error("Write() should fail when an extra file is missing")
	}
	if _, err := os.Stat(filepath.Join(dir, "dist", "pkg_name-0.1.0.tar.gz")); !os.IsNotExist(err) {
		t.Error("a failed write left an archive behind")
	}
}

func TestWriter_Write_OutsideProject(t *testing.T) {
	dir := createProject(t)
	w := NewWriter(Options{ProjectDir: dir, ExtraFiles: []string{"../elsewhere.txt"}})

	if _, err := w.Write(testRecord(), filepath.Join(dir, "dist")); err == nil {
		t.Error("Write() should reject files outside the project")
	}
}

func TestModTimeFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  int64
	}{
		{"", 0},
		{"1700000000", 1700000000},
		{"garbage", 0},
		{"-5", 0},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("SOURCE_DATE_EPOCH", tt.value)
			if got := ModTimeFromEnv().Unix(); got != tt.want {
				t.Errorf("ModTimeFromEnv() = %d, want %d", got, tt.want)
			}
		})
	}
}
