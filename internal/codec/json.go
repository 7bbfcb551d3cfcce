package codec

import (
	"encoding/json"
	"io"

	"rowmap/internal/errors"
)

// JSONCodec handles JSON fixtures
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports fixtures from JSON. Numbers stay json.Number.
func (c *JSONCodec) Parse(r io.Reader) (Fixtures, error) {
	fixtures := Fixtures{}
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&fixtures); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to parse JSON")
	}
	return fixtures, nil
}

// Export writes fixtures as indented JSON
func (c *JSONCodec) Export(fixtures Fixtures, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(fixtures); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}
