package ingest

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Source is an opened input file, decoded to UTF-8
type Source struct {
	io.Reader
	Name    string
	closers []io.Closer
}

// Close releases the file and, for archives, the archive entry
func (s *Source) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading. Zip archives are read from their first file
// entry, as the registry publishes one data file per archive. charset is
// "latin1" or "utf8".
func Open(path, charset string) (*Source, error) {
	src := &Source{Name: path}

	var r io.Reader
	if strings.EqualFold(strings.TrimSpace(extension(path)), ".zip") {
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("open archive %s: %w", path, err)
		}
		src.closers = append(src.closers, zr)

		var entry *zip.File
		for _, f := range zr.File {
			if !f.FileInfo().IsDir() {
				entry = f
				break
			}
		}
		if entry == nil {
			_ = src.Close()
			return nil, fmt.Errorf("archive %s has no data file", path)
		}
		rc, err := entry.Open()
		if err != nil {
			_ = src.Close()
			return nil, fmt.Errorf("open %s in %s: %w", entry.Name, path, err)
		}
		src.closers = append(src.closers, rc)
		src.Name = path + ":" + entry.Name
		r = rc
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		src.closers = append(src.closers, f)
		r = f
	}

	decoded, err := WithCharset(r, charset)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	src.Reader = decoded
	return src, nil
}

// WithCharset wraps r so it yields UTF-8
func WithCharset(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case "utf8", "utf-8", "":
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
}

func extension(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}
