package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/audio-transcribe/client/internal/core/domain"
)

// OpenUpload opens path for upload and sniffs its content type. The caller
// closes the returned closer once the upload finished.
func OpenUpload(path string) (domain.UploadFile, io.Closer, error) {
	if strings.TrimSpace(path) == "" {
		return domain.UploadFile{}, nil, domain.NewValidationError(missingFileMessage)
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.UploadFile{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return domain.UploadFile{}, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return domain.UploadFile{}, nil, domain.NewValidationError(missingFileMessage)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return domain.UploadFile{}, nil, fmt.Errorf("detect type of %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return domain.UploadFile{}, nil, fmt.Errorf("rewind %s: %w", path, err)
	}

	return domain.UploadFile{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: mt.String(),
		Content:     f,
	}, f, nil
}

// IsAudio reports whether the sniffed content type is an audio format.
// Some containers (ogg, mp4) are detected under their generic type and
// count as audio when the extension says so.
func IsAudio(file domain.UploadFile) bool {
	if strings.HasPrefix(file.ContentType, "audio/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".ogg", ".oga", ".opus", ".m4a", ".webm":
		return true
	}
	return false
}
