// Package codec reads and writes collection fixtures.
//
// A fixture document maps collection names to record lists:
//
//	users:
//	  - {id: 1, name: ada}
//	posts:
//	  - {title: notes, user_id: 1}
//
// YAML and JSON share the shape. Seed loads a document into backends and
// Dump reads backends back into one.
package codec

import (
	"io"
	"path/filepath"
	"sort"
	"strings"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
)

// Fixtures maps collection names to their records
type Fixtures map[string][]domain.Record

// Names returns the collection names, sorted
func (f Fixtures) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Importer parses fixtures from a format
type Importer interface {
	Parse(r io.Reader) (Fixtures, error)
	Format() string
}

// Exporter writes fixtures in a format
type Exporter interface {
	Export(fixtures Fixtures, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// ErrUnknownFormat is returned for formats without a codec
var ErrUnknownFormat = errors.New("unknown fixture format")

// ForFormat returns the codec for "yaml", "yml" or "json"
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
}

// ForPath picks the codec from a file extension
func ForPath(path string) (Codec, error) {
	return ForFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}
