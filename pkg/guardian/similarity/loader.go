package similarity

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ImageLoader resolves an image reference to its encoded bytes.
type ImageLoader interface {
	Load(ctx context.Context, ref string) ([]byte, error)
}

// DefaultMaxImageBytes bounds how much of one image reference is read.
const DefaultMaxImageBytes = 32 << 20

// ErrOutsideRoot is returned for paths that resolve outside the loader's Root.
var ErrOutsideRoot = errors.New("image path escapes the image root")

// SourceLoader understands the two image references a content body may hold:
// a data URI ("data:image/png;base64,...") or a filesystem path.
//
// When Root is set, paths are resolved against it and must stay inside it.
// An empty Root leaves paths unrestricted, which only suits local tools.
type SourceLoader struct {
	Root     string
	MaxBytes int64 // 0 means DefaultMaxImageBytes
}

// NewSourceLoader creates a loader confined to root
func NewSourceLoader(root string) *SourceLoader {
	return &SourceLoader{Root: root}
}

func (l *SourceLoader) Load(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, errors.New("empty image reference")
	}
	if strings.HasPrefix(ref, "data:") {
		return decodeDataURI(ref, l.maxBytes())
	}

	path, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", ref, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat image %s: %w", ref, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("image %s is not a regular file", ref)
	}

	limit := l.maxBytes()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", ref, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image %s exceeds %d bytes", ref, limit)
	}
	return data, nil
}

// resolve maps ref to a filesystem path, confined to Root when it is set.
func (l *SourceLoader) resolve(ref string) (string, error) {
	if l.Root == "" {
		return filepath.Clean(ref), nil
	}
	root, err := filepath.Abs(l.Root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve image root: %w", err)
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, ref)
	}
	return path, nil
}

func (l *SourceLoader) maxBytes() int64 {
	if l.MaxBytes > 0 {
		return l.MaxBytes
	}
	return DefaultMaxImageBytes
}

// decodeDataURI extracts the payload of a base64 data URI.
func decodeDataURI(ref string, limit int64) ([]byte, error) {
	comma := strings.IndexByte(ref, ',')
	if comma < 0 {
		return nil, errors.New("malformed data URI: missing ','")
	}
	meta := ref[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("unsupported data URI: only base64 payloads are accepted")
	}
	payload := ref[comma+1:]
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > limit+2 {
		return nil, fmt.Errorf("data URI payload exceeds %d bytes", limit)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data URI payload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("data URI payload exceeds %d bytes", limit)
	}
	return data, nil
}

// DataURI encodes data as a base64 data URI with the given MIME type.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
