// Package blob stores immutable binary payloads on disk, keyed by random
// high-entropy tokens. A payload becomes visible only after it has been
// written in full; readers never observe partial writes.
package blob

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	appErrors "github.com/tarpaulin-lms/tarpaulin-api/pkg/errors"
)

const tokenBytes = 16

// knownExtensions maps accepted content types to their storage extension.
// Allowed types without a mapping fall back to ".bin".
var knownExtensions = map[string]string{
	"application/pdf": ".pdf",
	"application/zip": ".zip",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"text/plain":      ".txt",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

// Metadata is the side-channel record stored next to each payload.
type Metadata struct {
	ContentType  string    `json:"content_type"`
	AssignmentID string    `json:"assignment_id,omitempty"`
	StudentID    string    `json:"student_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	SizeBytes    int64     `json:"size_bytes"`
}

// PutResult reports the outcome of a completed write.
type PutResult struct {
	Token        string
	BytesWritten int64
}

// Store persists blobs under a base directory.
type Store struct {
	baseDir string
	mimeExt map[string]string
}

// New ensures the base directory exists and builds the content-type
// allow-list. Types outside the list are rejected before any storage I/O.
func New(baseDir string, allowedMIMEs []string) (*Store, error) {
	if baseDir == "" {
		baseDir = "./data/submissions"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	mimeExt := make(map[string]string, len(allowedMIMEs))
	for _, mt := range allowedMIMEs {
		normalized := normalizeContentType(mt)
		if normalized == "" {
			continue
		}
		ext, ok := knownExtensions[normalized]
		if !ok {
			ext = ".bin"
		}
		mimeExt[normalized] = ext
	}
	return &Store{baseDir: baseDir, mimeExt: mimeExt}, nil
}

// Put streams r into durable storage under a freshly generated token.
// The token is only returned once the full payload and its metadata are on
// disk; a failed copy removes the partial file and the token never becomes
// retrievable.
func (s *Store) Put(ctx context.Context, r io.Reader, contentType string, meta Metadata) (PutResult, error) {
	normalized := normalizeContentType(contentType)
	ext, allowed := s.mimeExt[normalized]
	if !allowed {
		return PutResult{}, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("content type %q not allowed", contentType))
	}

	token, err := newToken()
	if err != nil {
		return PutResult{}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to generate blob token")
	}

	partPath := filepath.Join(s.baseDir, token+ext+".part")
	finalPath := filepath.Join(s.baseDir, token+ext)
	metaPath := s.metaPath(token)
	discard := func() {
		_ = os.Remove(partPath)
		_ = os.Remove(metaPath)
	}

	file, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return PutResult{}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create blob file")
	}

	written, err := copyContext(ctx, file, r)
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		discard()
		return PutResult{}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to write blob")
	}

	meta.ContentType = normalized
	meta.SizeBytes = written
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	raw, err := json.Marshal(meta)
	if err == nil {
		err = os.WriteFile(metaPath, raw, 0o644)
	}
	if err != nil {
		discard()
		return PutResult{}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to write blob metadata")
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		discard()
		return PutResult{}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to finalize blob")
	}

	return PutResult{Token: token, BytesWritten: written}, nil
}

// Get returns a reader over the payload stored under token plus its
// metadata. A missing blob yields ErrNotFound, distinct from any other I/O
// failure. Blobs are immutable after Put, so concurrent reads need no
// coordination.
func (s *Store) Get(token string) (io.ReadCloser, Metadata, error) {
	if !validToken(token) {
		return nil, Metadata{}, appErrors.Clone(appErrors.ErrNotFound, "blob not found")
	}

	raw, err := os.ReadFile(s.metaPath(token))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Metadata{}, appErrors.Clone(appErrors.ErrNotFound, "blob not found")
		}
		return nil, Metadata{}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read blob metadata")
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, Metadata{}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "corrupt blob metadata")
	}

	ext, ok := s.mimeExt[meta.ContentType]
	if !ok {
		if ext, ok = knownExtensions[meta.ContentType]; !ok {
			ext = ".bin"
		}
	}
	file, err := os.Open(filepath.Join(s.baseDir, token+ext))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Metadata{}, appErrors.Clone(appErrors.ErrNotFound, "blob not found")
		}
		return nil, Metadata{}, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open blob")
	}
	return file, meta, nil
}

// Delete removes a blob and its metadata. Absence is not an error.
func (s *Store) Delete(token string) error {
	if !validToken(token) {
		return nil
	}
	raw, err := os.ReadFile(s.metaPath(token))
	if err == nil {
		var meta Metadata
		if json.Unmarshal(raw, &meta) == nil {
			ext, ok := knownExtensions[meta.ContentType]
			if !ok {
				ext = ".bin"
			}
			if err := os.Remove(filepath.Join(s.baseDir, token+ext)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("delete blob: %w", err)
			}
		}
	}
	if err := os.Remove(s.metaPath(token)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob metadata: %w", err)
	}
	return nil
}

func (s *Store) metaPath(token string) string {
	return filepath.Join(s.baseDir, token+".json")
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func validToken(token string) bool {
	if len(token) != tokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

func normalizeContentType(ct string) string {
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// copyContext copies src into dst in chunks, aborting when ctx is done so a
// stalled upload cannot hold the request open indefinitely.
func copyContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
			if wn < n {
				return written, io.ErrShortWrite
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}
