package fetch

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/logger"
)

// audioExtensions lists the media suffixes the transcription service accepts.
var audioExtensions = []string{".mp3", ".wav", ".flac", ".ogg", ".m4a", ".amr"}

// Fetcher downloads the sample interview recording and unpacks it into a
// local working directory.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Fetch downloads sourceURL into destDir and returns the path of the audio
// file to transcribe. Gzipped tar archives are extracted; any other payload
// is saved as-is under its URL basename.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, destDir string) (string, error) {
	if sourceURL == "" {
		return "", fmt.Errorf("sample audio URL is empty")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create working directory: %w", err)
	}

	logger.Info(ctx, "downloading sample audio", logger.Fields{
		"url": sourceURL,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download sample audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("sample audio download returned status %d", resp.StatusCode)
	}

	name := urlBasename(sourceURL)
	if strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz") {
		audioPath, err := extractArchive(resp.Body, destDir)
		if err != nil {
			return "", err
		}
		logger.Info(ctx, "sample audio extracted", logger.Fields{
			"path": audioPath,
		})
		return audioPath, nil
	}

	audioPath := filepath.Join(destDir, name)
	out, err := os.Create(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to create local audio file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to save sample audio: %w", err)
	}

	logger.Info(ctx, "sample audio saved", logger.Fields{
		"path": audioPath,
	})
	return audioPath, nil
}

// extractArchive unpacks a gzipped tar stream into destDir and returns the
// first extracted audio file. Entries that would escape destDir are rejected.
func extractArchive(r io.Reader, destDir string) (string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	var audioPath string
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read archive entry: %w", err)
		}

		target := filepath.Join(destDir, filepath.Clean(header.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return "", fmt.Errorf("archive entry escapes destination: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", fmt.Errorf("failed to create directory for %s: %w", target, err)
			}
			out, err := os.Create(target)
			if err != nil {
				return "", fmt.Errorf("failed to create %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return "", fmt.Errorf("failed to extract %s: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return "", fmt.Errorf("failed to close %s: %w", target, err)
			}
			if audioPath == "" && isAudioFile(target) {
				audioPath = target
			}
		}
	}

	if audioPath == "" {
		return "", fmt.Errorf("archive contains no audio file")
	}
	return audioPath, nil
}

func isAudioFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range audioExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

func urlBasename(sourceURL string) string {
	if u, err := url.Parse(sourceURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(sourceURL)
}
