package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/audio-transcribe/client/internal/core/domain"
)

const uploadField = "file"

// UploadJob posts the file as multipart field "file" and returns the created job.
func (c *Client) UploadJob(ctx context.Context, file domain.UploadFile) (*domain.Job, error) {
	body, contentType, err := encodeUpload(file)
	if err != nil {
		return nil, fmt.Errorf("upload job: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/users/me/jobs/", body, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload job: %w", err)
	}

	var resp jobResponse
	if err := c.do(ctx, "upload_job", req, &resp); err != nil {
		return nil, err
	}
	job := resp.toDomain()
	return &job, nil
}

// encodeUpload buffers the multipart body. Uploads are capped well below
// anything that would need streaming.
func encodeUpload(file domain.UploadFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	partType := file.ContentType
	if partType == "" {
		partType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     uploadField,
		"filename": file.Name,
	}))
	header.Set("Content-Type", partType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if file.Content != nil {
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", file.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
