package imagestore

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// ErrNotFound is returned when neither the requested image nor the default
// placeholder exists.
var ErrNotFound = errors.New("image not found")

// Store writes uploaded images to a flat directory, one file per token.
// Concurrent writes need no locking: every upload gets a fresh token.
type Store struct {
	dir         string
	defaultPath string
}

// New creates the image directory if needed. defaultPath names the
// placeholder served for unknown tokens; it may point at a missing file.
func New(dir, defaultPath string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, defaultPath: defaultPath}, nil
}

// Save writes the content verbatim to <token>.jpg and returns the token.
// No format validation, no dedup: identical uploads get distinct files.
func (s *Store) Save(r io.Reader) (string, error) {
	token := uuid.New().String()

	dst, err := os.Create(filepath.Join(s.dir, token+".jpg"))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return token, nil
}

// Path resolves a token to a file on disk. An unknown or malformed token
// resolves to the default placeholder; ErrNotFound when that is missing too.
func (s *Store) Path(token string) (string, error) {
	if _, err := uuid.Parse(token); err == nil {
		path := filepath.Join(s.dir, token+".jpg")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if _, err := os.Stat(s.defaultPath); err == nil {
		return s.defaultPath, nil
	}
	return "", ErrNotFound
}

// Open returns the stored content for a token, falling back to the default
// placeholder.
func (s *Store) Open(token string) (io.ReadCloser, error) {
	path, err := s.Path(token)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Thumbnail returns the image scaled to the given width as JPEG. Stored
// content is verbatim and may not decode as an image; in that case the
// original bytes are returned unchanged.
func (s *Store) Thumbnail(token string, width int) ([]byte, error) {
	path, err := s.Path(token)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return raw, nil
	}

	bounds := src.Bounds()
	if width <= 0 || width >= bounds.Dx() {
		return raw, nil
	}

	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, nil); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
