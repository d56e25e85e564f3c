// Package content implements filesystem-backed blob storage for uploaded
// media. Records in sqlite reference blobs by path relative to the upload
// directory.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSBlobs verifies and resolves content blobs stored under a single upload
// directory.
type FSBlobs struct {
	dir string
}

// NewFSBlobs creates a checker rooted at dir.
func NewFSBlobs(dir string) *FSBlobs {
	return &FSBlobs{dir: dir}
}

// Path resolves a stored reference to an absolute path. Absolute references
// are used as-is so records written by older versions keep working.
func (b *FSBlobs) Path(ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(b.dir, ref)
}

// Check reports whether the blob behind ref exists and is a regular file.
func (b *FSBlobs) Check(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("empty content reference")
	}
	info, err := os.Stat(b.Path(ref))
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", ref)
	}
	return nil
}
