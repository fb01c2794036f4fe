// Package proofstore keeps the proof files employees attach when verifying a completion.
package proofstore

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// MaxSize is the largest accepted proof in bytes.
const MaxSize = 5 << 20

// Upload errors. Messages are shown to employees verbatim.
var (
	ErrTooLarge    = errors.New("File size must be less than 5MB.")
	ErrInvalidType = errors.New("Invalid file type. Only JPG, PNG, GIF, and PDF files are allowed.")
	ErrEmpty       = errors.New("Uploaded file is empty.")
)

// allowed maps detected MIME types to the stored extension.
var allowed = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/gif":       "gif",
	"application/pdf": "pdf",
}

// Store saves proofs below baseDir/proofs.
type Store struct {
	baseDir string
}

// New creates a proof store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Save reads at most MaxSize bytes from r, checks the content type and writes the file.
// PRE: r is the raw upload body
// POST: Returns "proofs/proof_<unix>_<rand>.<ext>" relative to the base directory
func (s *Store) Save(r io.Reader, now time.Time) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("read proof: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxSize {
		return "", ErrTooLarge
	}
	ext, ok := Extension(data)
	if !ok {
		return "", ErrInvalidType
	}

	dir := filepath.Join(s.baseDir, "proofs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create proof dir: %w", err)
	}
	name := fmt.Sprintf("proof_%d_%s.%s", now.Unix(), randomSuffix(), ext)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write proof: %w", err)
	}
	return "proofs/" + name, nil
}

// Extension returns the stored extension for an accepted proof, sniffed from its content.
func Extension(data []byte) (string, bool) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowed[m.String()]; ok {
			return ext, true
		}
	}
	return "", false
}

// Open opens a stored proof by its relative path.
// Paths outside the proofs directory are refused.
func (s *Store) Open(relPath string) (*os.File, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Remove deletes a saved proof, e.g. when the verification it belonged to failed.
func (s *Store) Remove(relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) resolve(relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") || !strings.HasPrefix(clean, "proofs"+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid proof path %q", relPath)
	}
	return filepath.Join(s.baseDir, clean), nil
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}
