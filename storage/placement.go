// Package storage decides where uploaded files live on disk: a
// date-partitioned directory under the upload root and a collision-safe
// stored name. The physical write is deferred until the caller has durably
// inserted the post metadata.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// storedNameSep separates the random id from the original filename. The id is
// hex only, so the first occurrence of the separator always ends the id.
const storedNameSep = "_"

// Placement describes the resolved destination for one uploaded file.
type Placement struct {
	// Dir is the absolute-or-relative destination directory on disk,
	// using platform separators.
	Dir string
	// DatePath is the partition to persist with the record, e.g. "/2024/03/11".
	// Always forward slashes regardless of platform.
	DatePath string
	// StoredName is "<8 hex chars>_<original filename>".
	StoredName string
	// OriginalName is the uploaded filename as received (base name only).
	OriginalName string
}

// Resolve computes the date partition for now, ensures the directory chain
// exists, and generates the stored name. Creating an already-existing chain
// is not an error; any other mkdir failure is fatal to the request and must
// be returned before the metadata insert is attempted.
func Resolve(baseDir string, now time.Time, originalName string) (*Placement, error) {
	datePath := "/" + now.Format("2006/01/02")
	dir := filepath.Join(baseDir, now.Format("2006"), now.Format("01"), now.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}

	original := filepath.Base(originalName)
	if original == "." || original == string(filepath.Separator) || original == "" {
		original = fmt.Sprintf("file_%d", now.UnixNano())
	}

	return &Placement{
		Dir:          dir,
		DatePath:     datePath,
		StoredName:   GenerateStoredName(original),
		OriginalName: original,
	}, nil
}

// GenerateStoredName prefixes name with an 8-hex-char random id drawn from a
// v4 UUID. Hex characters never contain the separator, so the original name
// is recoverable by splitting on the first underscore.
func GenerateStoredName(name string) string {
	return uuid.NewString()[:8] + storedNameSep + name
}

// SplitStoredName recovers the random id and original filename from a stored
// name, splitting on the first separator only. The second return value is the
// input unchanged when no separator is present.
func SplitStoredName(stored string) (id, original string) {
	id, original, found := strings.Cut(stored, storedNameSep)
	if !found {
		return "", stored
	}
	return id, original
}

// Commit writes the uploaded bytes to the resolved destination. It must be
// invoked only after the corresponding metadata insert succeeded; when the
// insert fails the caller skips Commit and no file exists on disk.
func (p *Placement) Commit(src io.Reader) error {
	dst := filepath.Join(p.Dir, p.StoredName)
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}
