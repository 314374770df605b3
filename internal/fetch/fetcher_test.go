package fetch

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// buildArchive creates a gzipped tar with the given name/content entries.
func buildArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

// TestFetchExtractsArchive downloads a tar.gz and returns the audio file in
// it.
func TestFetchExtractsArchive(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"README.txt":          "sample data",
		"audio/interview.mp3": "not-really-mp3-bytes",
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	t.Cleanup(server.Close)

	dest := t.TempDir()
	audioPath, err := NewFetcher().Fetch(context.Background(), server.URL+"/samples/interview.tar.gz", dest)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if filepath.Base(audioPath) != "interview.mp3" {
		t.Fatalf("audio path = %q, want interview.mp3", audioPath)
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		t.Fatalf("read extracted audio: %v", err)
	}
	if string(data) != "not-really-mp3-bytes" {
		t.Fatalf("extracted content = %q", data)
	}
}

// TestFetchSavesPlainFile saves non-archive payloads under their URL
// basename.
func TestFetchSavesPlainFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio-bytes"))
	}))
	t.Cleanup(server.Close)

	dest := t.TempDir()
	audioPath, err := NewFetcher().Fetch(context.Background(), server.URL+"/interview.wav", dest)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if filepath.Base(audioPath) != "interview.wav" {
		t.Fatalf("audio path = %q, want interview.wav", audioPath)
	}
}

// TestFetchRejectsEscapingArchiveEntries guards against path traversal.
func TestFetchRejectsEscapingArchiveEntries(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"../escape.mp3": "nope",
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	t.Cleanup(server.Close)

	if _, err := NewFetcher().Fetch(context.Background(), server.URL+"/evil.tar.gz", t.TempDir()); err == nil {
		t.Fatal("expected error for escaping archive entry")
	}
}

// TestFetchArchiveWithoutAudio fails rather than guessing a media file.
func TestFetchArchiveWithoutAudio(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"notes.txt": "no audio here",
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	t.Cleanup(server.Close)

	if _, err := NewFetcher().Fetch(context.Background(), server.URL+"/empty.tar.gz", t.TempDir()); err == nil {
		t.Fatal("expected error for archive without audio")
	}
}

// TestFetchSurfacesHTTPErrors propagates download failures.
func TestFetchSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(server.Close)

	if _, err := NewFetcher().Fetch(context.Background(), server.URL+"/missing.tar.gz", t.TempDir()); err == nil {
		t.Fatal("expected error for 410 response")
	}
}
