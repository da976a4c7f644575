package assets

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
)

// StagedFile is a multipart upload spooled to local disk while it waits for
// its single remote store attempt. Discard removes the file and is safe to
// call more than once; only the first call touches the filesystem.
type StagedFile struct {
	path        string
	Size        int64
	Name        string
	ContentType string
}

// Path reports where the staged bytes live. Empty after Discard.
func (f *StagedFile) Path() string { return f.path }

// Stage copies the multipart file into dir. On copy failure the partial file
// is removed before the error is returned.
func Stage(file multipart.File, header *multipart.FileHeader, dir string) (*StagedFile, error) {
	tmp, err := os.CreateTemp(dir, "staged-asset-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()
	written, err := io.Copy(tmp, file)
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	name := ""
	contentType := ""
	if header != nil {
		name = header.Filename
		contentType = header.Header.Get("Content-Type")
	}
	return &StagedFile{
		path:        tmp.Name(),
		Size:        written,
		Name:        name,
		ContentType: contentType,
	}, nil
}

// ReadAll loads the staged bytes for the store attempt.
func (f *StagedFile) ReadAll() ([]byte, error) {
	if f == nil || f.path == "" {
		return nil, fmt.Errorf("staged file missing")
	}
	return os.ReadFile(f.path)
}

// Discard removes the staged file.
func (f *StagedFile) Discard() {
	if f == nil || f.path == "" {
		return
	}
	_ = os.Remove(f.path)
	f.path = ""
}
