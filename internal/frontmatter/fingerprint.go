package frontmatter

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"
)

// Fingerprint returns the mdfp content fingerprint of a document. Fields are
// serialized with sorted keys so the result does not depend on map order; a
// stored fingerprint field is ignored.
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	canonical, err := Canonical(fields)
	if err != nil {
		return "", err
	}
	return mdfp.CalculateFingerprintFromParts(canonical, string(body)), nil
}

// Canonical serializes fields as LF-terminated YAML with recursively sorted
// keys and no trailing newline. Empty input yields "".
func Canonical(fields map[string]any) (string, error) {
	hashed := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != mdfp.FingerprintField {
			hashed[k] = v
		}
	}
	if len(hashed) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sortedNode(hashed)); err != nil {
		_ = enc.Close()
		return "", ErrInvalidYAML.WithCause(err)
	}
	if err := enc.Close(); err != nil {
		return "", ErrInvalidYAML.WithCause(err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func sortedNode(v any) *yaml.Node {
	switch vv := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range keys {
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, sortedNode(vv[k]))
		}
		return n
	case map[any]any:
		converted := make(map[string]any, len(vv))
		for k, val := range vv {
			converted[fmt.Sprint(k)] = val
		}
		return sortedNode(converted)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range vv {
			n.Content = append(n.Content, sortedNode(item))
		}
		return n
	default:
		var n yaml.Node
		if err := n.Encode(v); err != nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(v)}
		}
		return &n
	}
}
