package registry

import (
	"io"

	"gopkg.in/yaml.v3"
)

type yamlDump struct {
	Documents []*Entry `yaml:"documents"`
}

// WriteYAML writes entries as a YAML document with a top-level "documents" list.
func WriteYAML(w io.Writer, entries []*Entry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlDump{Documents: entries}); err != nil {
		_ = enc.Close()
		return ErrEncodeFailed.WithCause(err)
	}
	return enc.Close()
}

// ReadYAML parses a document written by WriteYAML.
func ReadYAML(r io.Reader) ([]*Entry, error) {
	var dump yamlDump
	if err := yaml.NewDecoder(r).Decode(&dump); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, ErrEncodeFailed.WithCause(err)
	}
	return dump.Documents, nil
}
