// Package frontmatter splits the YAML block at the top of a source document
// from its Markdown body and turns it into document variables.
package frontmatter

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
)

var (
	// ErrUnterminated indicates an opening "---" without a closing one.
	ErrUnterminated = errors.ParseError("frontmatter opening delimiter has no closing delimiter").Build()

	// ErrInvalidYAML indicates the frontmatter block is not a YAML mapping.
	ErrInvalidYAML = errors.ParseError("frontmatter is not valid YAML").Build()
)

// Block is a document split into its frontmatter and body.
type Block struct {
	// Raw is the YAML between the delimiters; nil when there is no frontmatter.
	Raw []byte
	// Body is everything after the closing delimiter.
	Body []byte
	// BodyLine is the 1-based source line the body starts on.
	BodyLine int
}

// Present reports whether the document had a frontmatter block, even an empty one.
func (b Block) Present() bool { return b.Raw != nil }

// Split separates a leading "---" delimited block from the body. LF and CRLF
// line endings are both accepted.
func Split(content []byte) (Block, error) {
	nl := []byte("\n")
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = []byte("\r\n")
	}

	open := append([]byte("---"), nl...)
	if !bytes.HasPrefix(content, open) {
		return Block{Body: content, BodyLine: 1}, nil
	}
	rest := content[len(open):]

	if bytes.HasPrefix(rest, open) {
		return Block{Raw: []byte{}, Body: rest[len(open):], BodyLine: 3}, nil
	}

	closing := append(append([]byte(nil), nl...), open...)
	idx := bytes.Index(rest, closing)
	if idx < 0 {
		return Block{}, ErrUnterminated
	}

	raw := rest[:idx+len(nl)]
	return Block{
		Raw:      raw,
		Body:     rest[idx+len(closing):],
		BodyLine: bytes.Count(raw, []byte("\n")) + 3,
	}, nil
}

// Fields decodes the block into a map. An absent or empty block yields an
// empty map.
func (b Block) Fields() (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(b.Raw)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(b.Raw, &fields); err != nil {
		return nil, ErrInvalidYAML.WithCause(err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}
