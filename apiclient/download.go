package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var dispositionFilename = regexp.MustCompile(`filename="?([^"]+)"?`)

// DownloadBlob executes a request expecting a binary body and saves it under
// dir. The filename comes from the Content-Disposition header, falling back
// to fallbackName when the header is absent, unparsable, or unsafe. Returns
// the path the file was saved to. The file handle is released on every code
// path; a failed write removes the partial file.
func (c *Client) DownloadBlob(ctx context.Context, method, path string, body any, dir, fallbackName string) (string, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", errors.Wrap(err, "[DownloadBlob] encoding request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", errors.Wrap(err, "[DownloadBlob] building request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "[DownloadBlob] %s %s", method, path)
	}
	defer resp.Body.Close()

	if !successStatus(resp.StatusCode) {
		return "", errors.Wrapf(responseError(resp), "[DownloadBlob] %s %s", method, path)
	}

	name := filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = fallbackName
	}

	dest := filepath.Join(dir, name)
	file, err := os.Create(dest)
	if err != nil {
		return "", errors.Wrapf(err, "[DownloadBlob] creating %q", dest)
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(dest)
		return "", errors.Wrapf(err, "[DownloadBlob] writing %q", dest)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(dest)
		return "", errors.Wrapf(err, "[DownloadBlob] closing %q", dest)
	}

	c.logger.Debug().Str("path", path).Str("saved", dest).Msg("blob downloaded")
	return dest, nil
}

// filenameFromDisposition extracts a safe filename from a
// Content-Disposition header. Returns "" when absent or unsafe.
func filenameFromDisposition(header string) string {
	match := dispositionFilename.FindStringSubmatch(header)
	if match == nil {
		return ""
	}
	name := strings.TrimSpace(match[1])
	if !safeFilename(name) {
		return ""
	}
	return name
}

// safeFilename rejects names that could escape the download directory or
// hide the file: path separators, traversal, leading dots, oversized names.
func safeFilename(name string) bool {
	if name == "" || len(name) > 255 || name[0] == '.' {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return true
}
