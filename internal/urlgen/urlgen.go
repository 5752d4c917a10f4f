// Package urlgen computes the relative, absolute, canonical and output URLs that
// link the documents of a compiled tree to each other.
//
// Every function works on slash-separated logical paths (never OS paths), keeps
// query strings and fragments intact, and never fails: an empty input means "no
// target" and yields an empty result. Three URL shapes are distinguished:
//
//	external        https://example.com/x, //cdn/x, mailto:me@example.com
//	root-relative   /guide/install.md   (relative to the documentation root)
//	doc-relative    ../install.md       (relative to the referencing document)
package urlgen

import (
	"path"
	"strings"
)

// IsExternal reports whether url carries a scheme or is protocol-relative.
func IsExternal(url string) bool {
	if strings.HasPrefix(url, "//") {
		return true
	}
	i := strings.IndexByte(url, ':')
	if i <= 0 {
		return false
	}
	for j, r := range url[:i] {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case j > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// Dir returns the directory of a logical path, or "" for top-level documents.
func Dir(logicalPath string) string {
	d := path.Dir(strings.TrimPrefix(logicalPath, "/"))
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// RelativeURL returns url as seen from the document directory dir.
//
// Root-relative URLs are rewritten into the ../ walk needed to reach them from
// dir; doc-relative URLs are only cleaned. The result never starts with a slash
// unless it is external.
func RelativeURL(dir, url string) string {
	if url == "" {
		return ""
	}
	if passThrough(url) {
		return url
	}
	p, suffix := splitSuffix(url)
	if !strings.HasPrefix(p, "/") {
		return cleanRelative(p) + suffix
	}
	return relativePath(dir, strings.TrimLeft(p, "/")) + suffix
}

// AbsoluteURL joins baseDir and url with a single separator.
//
// Root-relative and external URLs are already absolute and returned unchanged.
func AbsoluteURL(baseDir, url string) string {
	if url == "" {
		return ""
	}
	if IsExternal(url) || strings.HasPrefix(url, "/") {
		return url
	}
	if baseDir == "" {
		return collapse(url)
	}
	return collapse(strings.TrimRight(baseDir, "/") + "/" + url)
}

// CanonicalURL resolves url against baseDir into a clean logical path without
// a leading slash. ".." segments that climb above the root are dropped.
func CanonicalURL(baseDir, url string) string {
	if url == "" {
		return ""
	}
	if passThrough(url) {
		return url
	}
	p, suffix := splitSuffix(url)
	joined := p
	if !strings.HasPrefix(p, "/") && baseDir != "" {
		joined = baseDir + "/" + p
	}
	return canonicalize(joined) + suffix
}

// GenerateURL turns path, written relative to the document directory baseDir
// (or root-relative), into the link embedded in that document's output.
func GenerateURL(path, baseDir string) string {
	canonical := CanonicalURL(baseDir, path)
	if canonical == "" || passThrough(canonical) {
		return canonical
	}
	return RelativeURL(baseDir, "/"+canonical)
}

// OutputURL returns where the target of url ends up under outputRoot.
func OutputURL(outputRoot, baseDir, url string) string {
	canonical := CanonicalURL(baseDir, url)
	if canonical == "" || passThrough(canonical) {
		return canonical
	}
	return AbsoluteURL(outputRoot, canonical)
}

// AbsoluteRelativePath locates url, referenced from the document directory dir,
// below currentDirectory.
func AbsoluteRelativePath(currentDirectory, dir, url string) string {
	rel := RelativeURL(dir, url)
	if rel == "" || passThrough(rel) {
		return rel
	}
	return path.Clean(currentDirectory + "/" + dir + "/" + rel)
}

// WithExtension swaps the extension of an internal link when it is one of from
// (compared case-insensitively). Query strings and fragments are kept.
func WithExtension(url, ext string, from ...string) string {
	if url == "" || passThrough(url) {
		return url
	}
	p, suffix := splitSuffix(url)
	current := path.Ext(p)
	for _, f := range from {
		if strings.EqualFold(current, f) {
			return p[:len(p)-len(current)] + ext + suffix
		}
	}
	return url
}

func passThrough(url string) bool {
	return url[0] == '#' || url[0] == '?' || IsExternal(url)
}

func splitSuffix(url string) (string, string) {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i], url[i:]
	}
	return url, ""
}

func cleanRelative(p string) string {
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") {
		if cleaned == "." {
			return "./"
		}
		return cleaned + "/"
	}
	return cleaned
}

func relativePath(fromDir, target string) string {
	from := segments(fromDir)
	to := segments(target)

	i := 0
	for i < len(from) && i < len(to) && from[i] == to[i] {
		i++
	}
	parts := make([]string, 0, len(from)-i+len(to)-i)
	for range from[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[i:]...)
	if len(parts) == 0 {
		return "./"
	}
	out := strings.Join(parts, "/")
	if strings.HasSuffix(target, "/") {
		out += "/"
	}
	return out
}

func segments(p string) []string {
	raw := strings.Split(p, "/")
	out := raw[:0:0]
	for _, s := range raw {
		if s == "" || s == "." {
			continue
		}
		out = append(out, s)
	}
	return out
}

func canonicalize(p string) string {
	stack := make([]string, 0, strings.Count(p, "/")+1)
	for _, s := range strings.Split(p, "/") {
		switch s {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, s)
		}
	}
	out := strings.Join(stack, "/")
	if out != "" && strings.HasSuffix(p, "/") {
		out += "/"
	}
	return out
}

// collapse removes duplicate separators and "." segments without resolving
// "..", keeping a leading "./", "/" or scheme prefix intact.
func collapse(p string) string {
	prefix := ""
	if i := strings.Index(p, "://"); i >= 0 && IsExternal(p) {
		prefix, p = p[:i+3], p[i+3:]
	}
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for i, s := range parts {
		last := i == len(parts)-1
		switch {
		case i == 0:
			out = append(out, s)
		case s == "" && !last, s == ".":
		default:
			out = append(out, s)
		}
	}
	return prefix + strings.Join(out, "/")
}
