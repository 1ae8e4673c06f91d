// Package resolver turns manifest-relative asset paths into absolute URLs.
package resolver

import (
	"regexp"
	"strings"
)

var absoluteURL = regexp.MustCompile(`(?i)^https?://`)

// Resolver resolves paths against one item's root URL.
type Resolver struct {
	root string
}

// New creates a resolver for an item. The root is the base URL followed
// directly by the item identifier, so baseURL normally ends with a slash.
func New(baseURL, itemID string) *Resolver {
	return &Resolver{root: baseURL + itemID}
}

// NewFromRoot creates a resolver for an already-assembled root URL.
func NewFromRoot(root string) *Resolver {
	return &Resolver{root: root}
}

// Root returns the item root URL.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns the absolute URL of an item-level path such as
// "metadata.json" or "scans/30/cover.jpg". Absolute http(s) URLs pass through
// unchanged. An empty path has no URL.
func (r *Resolver) Resolve(path string) (string, bool) {
	return r.resolve(path, "")
}

// ResolveDisk returns the absolute URL of a file inside a disk folder,
// "<root>/disks/disk <diskNum>/<path>".
func (r *Resolver) ResolveDisk(path, diskNum string) (string, bool) {
	return r.resolve(path, diskNum)
}

func (r *Resolver) resolve(path, diskNum string) (string, bool) {
	if path == "" {
		return "", false
	}
	if absoluteURL.MatchString(path) {
		return path, true
	}

	full := path
	if diskNum != "" {
		full = "disks/disk " + diskNum + "/" + path
	}
	return join(r.root, full), true
}

// join concatenates with exactly one slash between root and path.
func join(root, path string) string {
	return strings.TrimRight(root, "/") + "/" + strings.TrimLeft(path, "/")
}
