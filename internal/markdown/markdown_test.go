package markdown

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/docweave/internal/compilation"
	"git.home.luguber.info/inful/docweave/internal/diagnostics"
	"git.home.luguber.info/inful/docweave/internal/frontmatter"
	"git.home.luguber.info/inful/docweave/internal/links"
	"git.home.luguber.info/inful/docweave/internal/registry"
)

func newContext(t *testing.T, logical string, initialLevel int) (*compilation.Context, *diagnostics.Collector) {
	t.Helper()
	collector := diagnostics.NewCollector()
	cctx := compilation.New(compilation.Options{
		InitialHeaderLevel: initialLevel,
		Diagnostics:        collector,
		Logger:             slog.New(slog.DiscardHandler),
	})
	cctx.Bind(logical, "src/"+logical)
	return cctx, collector
}

const introSource = `---
title: Guide Intro
product: docweave
---
Intro
=====

Read the [setup guide](ref:setup) and [the FAQ](_).

Section
-------

__ https://faq.example.com

[Setup]: install.md
`

func TestParseRecordsLinksVariablesAndHeadings(t *testing.T) {
	cctx, collector := newContext(t, "guide/intro.md", 1)

	doc, err := NewParser().Parse(cctx, []byte(introSource))
	require.NoError(t, err)

	assert.Equal(t, "guide/intro.md", doc.LogicalPath)
	assert.Equal(t, "Guide Intro", doc.Title)
	assert.Equal(t, []registry.Heading{
		{Level: 1, Title: "Intro", Anchor: "intro"},
		{Level: 2, Title: "Section", Anchor: "section"},
	}, doc.Headings)
	assert.NotEmpty(t, doc.Fingerprint)

	assert.Equal(t, map[string]string{
		"setup":   "install.md",
		"the faq": "https://faq.example.com",
	}, cctx.Links())
	assert.Equal(t, "docweave", cctx.Variable("product", nil))
	assert.Empty(t, cctx.PendingAnonymous())
	assert.Equal(t, 0, collector.Len())

	entry := doc.Entry(cctx)
	assert.Equal(t, "guide/intro.md", entry.LogicalPath)
	assert.Equal(t, "Guide Intro", entry.Title)
	assert.Equal(t, doc.Fingerprint, entry.Fingerprint)
	assert.Equal(t, "install.md", entry.Links["setup"])
	assert.Len(t, entry.Headings, 2)
}

func TestHeadingLevelsFollowFirstAppearance(t *testing.T) {
	source := []byte("## A\n\n# B\n\n## C\n")

	cctx, _ := newContext(t, "a.md", 1)
	doc, err := NewParser().Parse(cctx, source)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 1}, levels(doc))

	cctx, _ = newContext(t, "a.md", 2)
	doc, err = NewParser().Parse(cctx, source)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 2}, levels(doc))

	cctx, _ = newContext(t, "a.md", 6)
	doc, err = NewParser().Parse(cctx, source)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 6, 6}, levels(doc))
}

func TestHeadingLevelsAreSetOnTheAST(t *testing.T) {
	cctx, _ := newContext(t, "a.md", 1)
	doc, err := NewParser().Parse(cctx, []byte("### Deep first\n\n# Then top\n"))
	require.NoError(t, err)

	var astLevels []int
	_ = ast.Walk(doc.Root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering {
			astLevels = append(astLevels, h.Level)
		}
		return ast.WalkContinue, nil
	})
	assert.Equal(t, []int{1, 2}, astLevels)
}

func levels(doc *Document) []int {
	out := make([]int, 0, len(doc.Headings))
	for _, h := range doc.Headings {
		out = append(out, h.Level)
	}
	return out
}

func TestAnonymousTargetWithoutReferenceFails(t *testing.T) {
	cctx, collector := newContext(t, "a.md", 1)

	_, err := NewParser().Parse(cctx, []byte("Text.\n\n__ https://example.com\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, links.ErrAnonymousUnderflow)
	assert.True(t, collector.HasErrors())
}

func TestAnonymousReferencesBindInOrder(t *testing.T) {
	cctx, collector := newContext(t, "a.md", 1)

	source := "__ one.md\n\nSee [first](_) and [second](_) and [third](_).\n\n__ two.md\n"
	_, err := NewParser().Parse(cctx, []byte(source))
	require.NoError(t, err)

	assert.Equal(t, "one.md", cctx.Link("first", false))
	assert.Equal(t, "two.md", cctx.Link("second", false))
	assert.Equal(t, []string{"third"}, cctx.PendingAnonymous())

	items := collector.For("a.md")
	require.Len(t, items, 1)
	assert.Equal(t, diagnostics.SeverityWarning, items[0].Severity)
	assert.Equal(t, "third", items[0].Detail)
}

func TestAnonymousTargetInsideFenceIsCode(t *testing.T) {
	cctx, _ := newContext(t, "a.md", 1)
	_, err := NewParser().Parse(cctx, []byte("```text\n__ https://example.com\n```\n"))
	require.NoError(t, err)
	assert.Empty(t, cctx.Links())
}

func TestAnonymousTargetURL(t *testing.T) {
	url, ok := anonymousTargetURL([]byte("__ https://example.com\n"))
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", url)

	for _, line := range []string{"__init__ is special\n", "__ two words\n", "___\n", "__ \n"} {
		_, ok := anonymousTargetURL([]byte(line))
		assert.False(t, ok, line)
	}
}

func TestSubstitutionNodes(t *testing.T) {
	cctx, _ := newContext(t, "a.md", 1)
	source := "---\nversion: 2\nproduct: docweave\n---\nVersion |version| of |product| and |unknown|, a | b | c.\n"

	doc, err := NewParser().Parse(cctx, []byte(source))
	require.NoError(t, err)

	var names []string
	var paragraph ast.Node
	_ = ast.Walk(doc.Root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *Substitution:
			names = append(names, node.Name)
		case *ast.Paragraph:
			paragraph = node
		}
		return ast.WalkContinue, nil
	})
	assert.Equal(t, []string{"version", "product", "unknown"}, names)
	require.NotNil(t, paragraph)
	assert.Equal(t, "Version 2 of docweave and |unknown|, a | b | c.", PlainText(paragraph, doc.Source, cctx))
}

func TestImagesAreCollectedAsAssets(t *testing.T) {
	cctx, _ := newContext(t, "guide/a.md", 1)
	source := "![logo](img/logo.png) ![remote](https://example.com/x.png) ![root](/shared/y.svg)\n"

	doc, err := NewParser().Parse(cctx, []byte(source))
	require.NoError(t, err)
	assert.Equal(t, []string{"img/logo.png", "/shared/y.svg"}, doc.Assets)
}

func TestTitleFallsBackToHeadingThenFilename(t *testing.T) {
	cctx, _ := newContext(t, "guide/install.md", 1)
	doc, err := NewParser().Parse(cctx, []byte("# Installing |product|\n\nBody.\n"))
	require.NoError(t, err)
	assert.Equal(t, "Installing |product|", doc.Title)

	cctx, _ = newContext(t, "guide/install.md", 1)
	doc, err = NewParser().Parse(cctx, []byte("Body only.\n"))
	require.NoError(t, err)
	assert.Equal(t, "install", doc.Title)
}

func TestFingerprintFailureIsReported(t *testing.T) {
	cctx, collector := newContext(t, "a.md", 1)
	p := NewParser()
	p.fingerprint = func(map[string]any, []byte) (string, error) {
		return "", frontmatter.ErrInvalidYAML
	}

	_, err := p.Parse(cctx, []byte("---\ntitle: x\n---\n# A\n"))
	assert.ErrorIs(t, err, frontmatter.ErrInvalidYAML)
	items := collector.For("a.md")
	require.Len(t, items, 1)
	assert.Equal(t, "could not fingerprint document", items[0].Message)
	assert.True(t, collector.HasErrors())
}

func TestInvalidFrontmatterFailsDocument(t *testing.T) {
	cctx, collector := newContext(t, "a.md", 1)
	_, err := NewParser().Parse(cctx, []byte("---\ntitle: x\n# no closing\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, frontmatter.ErrUnterminated)
	assert.True(t, collector.HasErrors())
}
