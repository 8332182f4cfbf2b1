package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"careaudit-backend/internal/shared/util"
)

// ErrNotFound is returned when a storage key has no object.
var ErrNotFound = errors.New("object not found")

// SourcesDir is the top-level prefix for uploaded source documents.
const SourcesDir = "sources"

const sniffLen = 512

// Object describes a stored source document.
type Object struct {
	Key      string
	Size     int64
	MimeType string
}

// ObjectStore holds uploaded source documents until the worker consumes them.
type ObjectStore interface {
	Save(ctx context.Context, owner string, fileName string, r io.Reader) (Object, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// NewKey builds a storage key of the form
// sources/<owner hash>/<yyyymmdd>/<uuid>_<file name>.
func NewKey(owner, fileName string, now time.Time) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(
		SourcesDir,
		util.HashOwnerKey(owner),
		now.UTC().Format("20060102"),
		uuid.NewString()+"_"+name,
	), nil
}

// Sniff detects the MIME type from the head of r. The returned reader
// replays the sniffed bytes before the rest of r.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("sniff: %w", err)
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}
