// Package storage keeps uploaded payment proofs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxProofSize is the largest accepted upload.
const MaxProofSize = 5 * 1024 * 1024

var (
	// ErrInvalidFile means the upload was refused before anything was written.
	ErrInvalidFile = errors.New("invalid proof file")
	// ErrUpload means the file could not be stored.
	ErrUpload = errors.New("proof upload failed")
)

// AllowedProofTypes defines the accepted file extensions.
var AllowedProofTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// ProofStore persists a proof file and returns the reference stored on the request.
// Delete removes a stored proof that was never attached; a missing file is not an error.
type ProofStore interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// ValidateProofFile checks size and extension.
func ValidateProofFile(file *multipart.FileHeader) error {
	if file == nil {
		return fmt.Errorf("%w: no file", ErrInvalidFile)
	}
	if file.Size > MaxProofSize {
		return fmt.Errorf("%w: file size exceeds 5MB limit", ErrInvalidFile)
	}
	if file.Size == 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !AllowedProofTypes[ext] {
		return fmt.Errorf("%w: allowed types are jpg, jpeg, png, pdf", ErrInvalidFile)
	}
	return nil
}

// LocalProofStore writes proofs to Dir, which is served under URLPrefix.
type LocalProofStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalProofStore(dir, urlPrefix string) *LocalProofStore {
	return &LocalProofStore{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (s *LocalProofStore) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if err := ValidateProofFile(file); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	filename := uuid.New().String() + strings.ToLower(filepath.Ext(file.Filename))
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create upload directory: %v", ErrUpload, err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("%w: failed to open uploaded file: %v", ErrUpload, err)
	}
	defer src.Close()

	path := filepath.Join(s.Dir, filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create destination file: %v", ErrUpload, err)
	}
	if _, err := dst.ReadFrom(src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: failed to save file: %v", ErrUpload, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	return s.URLPrefix + "/" + filename, nil
}

func (s *LocalProofStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUpload, err)
	}
	name := filepath.Base(strings.TrimPrefix(ref, s.URLPrefix))
	if name == "." || name == string(filepath.Separator) || !AllowedProofTypes[strings.ToLower(filepath.Ext(name))] {
		return fmt.Errorf("%w: unknown reference %q", ErrInvalidFile, ref)
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: failed to remove %s: %v", ErrUpload, name, err)
	}
	return nil
}
