package codec

import (
	"io"

	"gopkg.in/yaml.v3"

	"rowmap/internal/errors"
)

// YAMLCodec handles YAML fixtures
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports fixtures from YAML. An empty document yields no fixtures.
func (c *YAMLCodec) Parse(r io.Reader) (Fixtures, error) {
	fixtures := Fixtures{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&fixtures); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}
	return fixtures, nil
}

// Export writes fixtures as YAML
func (c *YAMLCodec) Export(fixtures Fixtures, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(normalizeFixtures(fixtures)); err != nil {
		return errors.Wrap(err, "failed to encode YAML")
	}
	return nil
}
