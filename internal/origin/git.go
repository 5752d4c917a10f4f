package origin

import (
	"context"
	stderrors "errors"
	"path"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitOrigin reads documents from the tree of a commit, without a checkout.
type GitOrigin struct {
	repoPath   string
	revision   string
	commit     plumbing.Hash
	subdir     string
	tree       *object.Tree
	extensions []string
}

// NewGitOrigin resolves revision (branch, tag or hash; "" means HEAD) in the
// repository at repoPath. When subdir is set only that directory of the tree
// is exposed, and logical paths are relative to it.
func NewGitOrigin(repoPath, revision, subdir string, extensions ...string) (*GitOrigin, error) {
	if revision == "" {
		revision = "HEAD"
	}
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, ErrOpenFailed.WithCause(err).WithContext("repo", repoPath)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, ErrOpenFailed.WithCause(err).WithContext("repo", repoPath).WithContext("revision", revision)
	}

	commitObj, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, ErrOpenFailed.WithCause(err).WithContext("revision", revision)
	}

	tree, err := commitObj.Tree()
	if err != nil {
		return nil, ErrOpenFailed.WithCause(err).WithContext("revision", revision)
	}

	subdir = cleanLogical(subdir)
	if subdir != "" {
		tree, err = tree.Tree(subdir)
		if err != nil {
			return nil, ErrOpenFailed.WithCause(err).WithContext("revision", revision).WithContext("subdir", subdir)
		}
	}

	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &GitOrigin{
		repoPath:   repoPath,
		revision:   revision,
		commit:     commitObj.Hash,
		subdir:     subdir,
		tree:       tree,
		extensions: extensions,
	}, nil
}

// Commit returns the resolved commit hash.
func (o *GitOrigin) Commit() string { return o.commit.String() }

// Documents lists the document blobs of the tree, skipping hidden entries.
func (o *GitOrigin) Documents(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := o.tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !isDocument(f.Name, o.extensions) || slices.ContainsFunc(strings.Split(f.Name, "/"), hidden) {
			return nil
		}
		docs = append(docs, Document{LogicalPath: f.Name, PhysicalPath: o.PhysicalPath(f.Name)})
		return nil
	})
	if err != nil {
		return nil, ErrListFailed.WithCause(err).WithContext("revision", o.revision)
	}
	slices.SortFunc(docs, func(a, b Document) int { return strings.Compare(a.LogicalPath, b.LogicalPath) })
	return docs, nil
}

// ReadFile returns the blob content at logicalPath.
func (o *GitOrigin) ReadFile(logicalPath string) ([]byte, error) {
	name := cleanLogical(logicalPath)
	f, err := o.tree.File(name)
	if err != nil {
		if stderrors.Is(err, object.ErrFileNotFound) {
			return nil, ErrNotFound.WithCause(err).WithContext("path", name).WithContext("revision", o.revision)
		}
		return nil, ErrReadFailed.WithCause(err).WithContext("path", name)
	}
	contents, err := f.Contents()
	if err != nil {
		return nil, ErrReadFailed.WithCause(err).WithContext("path", name)
	}
	return []byte(contents), nil
}

// PhysicalPath returns "<short commit>:<path in repository>".
func (o *GitOrigin) PhysicalPath(logicalPath string) string {
	return o.commit.String()[:12] + ":" + path.Join(o.subdir, cleanLogical(logicalPath))
}

func (o *GitOrigin) String() string {
	return o.repoPath + "@" + o.revision
}
