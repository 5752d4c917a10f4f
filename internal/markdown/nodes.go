package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Extension adds the docweave conventions to a goldmark instance:
// "__ url" anonymous target lines and "|name|" variable substitutions.
var Extension = &docweaveExtension{}

type docweaveExtension struct{}

func (e *docweaveExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(
			util.Prioritized(&anonymousTargetParser{}, 250),
		),
		parser.WithInlineParsers(
			util.Prioritized(&substitutionParser{}, 900),
		),
	)
}

// KindAnonymousTarget is the kind of AnonymousTarget nodes.
var KindAnonymousTarget = ast.NewNodeKind("AnonymousTarget")

// AnonymousTarget is a "__ url" line: the target of the next unbound
// anonymous reference ("[text](_)") of the document.
type AnonymousTarget struct {
	ast.BaseBlock
	URL string
}

// Kind implements Node.Kind.
func (n *AnonymousTarget) Kind() ast.NodeKind { return KindAnonymousTarget }

// Dump implements Node.Dump.
func (n *AnonymousTarget) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"URL": n.URL}, nil)
}

type anonymousTargetParser struct{}

func (b *anonymousTargetParser) Trigger() []byte {
	return []byte{'_'}
}

func (b *anonymousTargetParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 {
		return nil, parser.NoChildren
	}
	url, ok := anonymousTargetURL(line[pos:])
	if !ok {
		return nil, parser.NoChildren
	}
	node := &AnonymousTarget{URL: url}
	node.Lines().Append(segment)
	reader.Advance(segment.Len() - 1)
	return node, parser.NoChildren
}

func (b *anonymousTargetParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	return parser.Close
}

func (b *anonymousTargetParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *anonymousTargetParser) CanInterruptParagraph() bool { return true }

func (b *anonymousTargetParser) CanAcceptIndentedLine() bool { return false }

// anonymousTargetURL matches `__ <url>`, where url is a single token.
func anonymousTargetURL(line []byte) (string, bool) {
	if len(line) < 4 || line[0] != '_' || line[1] != '_' || (line[2] != ' ' && line[2] != '\t') {
		return "", false
	}
	url := bytes.TrimSpace(line[3:])
	if len(url) == 0 || bytes.ContainsAny(url, " \t") {
		return "", false
	}
	return string(url), true
}

// KindSubstitution is the kind of Substitution nodes.
var KindSubstitution = ast.NewNodeKind("Substitution")

// Substitution is a "|name|" reference to a document variable.
type Substitution struct {
	ast.BaseInline
	Name string
}

// Kind implements Node.Kind.
func (n *Substitution) Kind() ast.NodeKind { return KindSubstitution }

// Dump implements Node.Dump.
func (n *Substitution) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.Name}, nil)
}

type substitutionParser struct{}

func (s *substitutionParser) Trigger() []byte {
	return []byte{'|'}
}

func (s *substitutionParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	end := bytes.IndexByte(line[1:], '|')
	if end <= 0 {
		return nil
	}
	name := line[1 : end+1]
	for _, c := range name {
		if !isNameByte(c) {
			return nil
		}
	}
	block.Advance(end + 2)
	return &Substitution{Name: string(name)}
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' || c == '.'
}
