package apiclient

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Upload is one file part of a multipart request.
type Upload struct {
	Filename string
	Content  io.Reader
}

// multipartFilesField is the part name the backend reads file uploads from.
const multipartFilesField = "files"

// CallWithFiles posts a multipart body of fields plus file parts to path and
// decodes the response into out when out is non-nil. The call is aborted
// after the configured upload time limit; that abort surfaces as an
// ErrTimeout chain, distinct from transport failures, and any response
// arriving after it is discarded. The Content-Type header is owned by the
// multipart writer (boundary), never set to JSON.
func (c *Client) CallWithFiles(ctx context.Context, path string, fields map[string]string, uploads []Upload, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return errors.Wrapf(err, "[CallWithFiles] writing field %q", name)
		}
	}
	for _, upload := range uploads {
		part, err := writer.CreateFormFile(multipartFilesField, filepath.Base(upload.Filename))
		if err != nil {
			return errors.Wrapf(err, "[CallWithFiles] creating part %q", upload.Filename)
		}
		if _, err := io.Copy(part, upload.Content); err != nil {
			return errors.Wrapf(err, "[CallWithFiles] reading %q", upload.Filename)
		}
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "[CallWithFiles] finalizing multipart body")
	}

	uploadCtx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(uploadCtx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return errors.Wrap(err, "[CallWithFiles] building request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setCommonHeaders(req)

	c.logger.Debug().Str("path", path).Int("files", len(uploads)).Msg("multipart api call")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Only our own deadline maps to the timeout kind; a cancelled
		// parent context is the caller's doing.
		if stderrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return errors.Wrapf(ErrTimeout, "[CallWithFiles] POST %s", path)
		}
		return errors.Wrapf(err, "[CallWithFiles] POST %s", path)
	}
	defer resp.Body.Close()

	if !successStatus(resp.StatusCode) {
		return errors.Wrapf(responseError(resp), "[CallWithFiles] POST %s", path)
	}

	return decodeBody(resp.Body, out, http.MethodPost, path)
}

// OpenUploads opens local paths as Upload parts. The returned closer must be
// called once the request has completed, on every code path.
func OpenUploads(paths ...string) ([]Upload, func(), error) {
	uploads := make([]Upload, 0, len(paths))
	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, errors.Wrapf(err, "[OpenUploads] opening %q", p)
		}
		files = append(files, f)
		uploads = append(uploads, Upload{Filename: filepath.Base(p), Content: f})
	}

	return uploads, closeAll, nil
}
