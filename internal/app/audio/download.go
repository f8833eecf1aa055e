package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
)

// MaxDownloadBytes caps the size of a downloaded source.
const MaxDownloadBytes = 512 << 20

// IsURL reports whether source names an http(s) resource rather than a
// local file.
func IsURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Download fetches rawURL into a new file under dir and returns its path.
// The file keeps the extension of the URL path so that the format check of
// ConvertTo16kHzMonoWav applies; the caller removes it.
func Download(ctx context.Context, client *http.Client, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if !isSupportedInput(ext) {
		return "", fmt.Errorf("unsupported audio format not in %v: %q", supportedInputs, ext)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %s", rawURL, resp.Status)
	}

	file, err := os.CreateTemp(dir, "download-*"+ext)
	if err != nil {
		return "", err
	}

	n, err := io.Copy(file, io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > MaxDownloadBytes {
		err = fmt.Errorf("download %s: larger than %d bytes", rawURL, MaxDownloadBytes)
	}
	if err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}
