// Package docstore reads and writes the documents under review. A document id is a slash-separated relative path ("docs/intro.md"); each Store maps it onto
// its own namespace (a directory, an S3 key prefix, or a map).
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned (wrapped) by Read when the document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// Store persists whole documents. Implementations are safe for concurrent use.
type Store interface {
	Read(ctx context.Context, id string) (string, error)
	Write(ctx context.Context, id string, content string) error
}

// ValidateID checks that id is a clean relative slash path with no "." or ".." elements.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("docstore: empty document id")
	}
	if strings.HasPrefix(id, "/") || strings.Contains(id, "\\") {
		return fmt.Errorf("docstore: document id %q must be a relative slash path", id)
	}
	for _, elem := range strings.Split(id, "/") {
		switch elem {
		case "":
			return fmt.Errorf("docstore: document id %q has an empty path element", id)
		case ".", "..":
			return fmt.Errorf("docstore: document id %q may not contain %q", id, elem)
		}
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
