package sdist

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/frederic-klein/pkgmeta/internal/meta"
	"github.com/frederic-klein/pkgmeta/internal/pkginfo"
)

// Reader reads metadata back out of source distributions.
type Reader struct{}

// NewReader creates a new source distribution reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadMetadata parses the top-level PKG-INFO of the tarball at path.
func (r *Reader) ReadMetadata(tarballPath string) (*meta.Record, error) {
	var info []byte
	err := r.walk(tarballPath, func(hdr *tar.Header, tarReader io.Reader) error {
		// Only look at top-level files (one directory deep)
		parts := strings.Split(hdr.Name, "/")
		if len(parts) != 2 || parts[1] != "PKG-INFO" {
			return nil
		}
		data, err := io.ReadAll(tarReader)
		if err != nil {
			return fmt.Errorf("reading PKG-INFO: %w", err)
		}
		info = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	if info == nil {
		return nil, fmt.Errorf("no PKG-INFO found in tarball")
	}

	rec, err := pkginfo.NewParser(bytes.NewReader(info)).Parse()
	if err != nil {
		return nil, fmt.Errorf("parsing PKG-INFO: %w", err)
	}
	return rec, nil
}

// List returns the regular file names in the tarball, in archive order.
func (r *Reader) List(tarballPath string) ([]string, error) {
	var names []string
	err := r.walk(tarballPath, func(hdr *tar.Header, _ io.Reader) error {
		if hdr.Typeflag == tar.TypeReg {
			names = append(names, path.Clean(hdr.Name))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *Reader) walk(tarballPath string, fn func(*tar.Header, io.Reader) error) error {
	file, err := os.Open(tarballPath)
	if err != nil {
		return fmt.Errorf("opening tarball: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("decompressing tarball: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tarball: %w", err)
		}
		if err := fn(header, tarReader); err != nil {
			return err
		}
	}
}
