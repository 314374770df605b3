package storage

import "testing"

// TestURIRoundTrip pins the gs:// rendering and parsing.
func TestURIRoundTrip(t *testing.T) {
	uri := URI("interviews", "runs/abc/audio.mp3")
	if uri != "gs://interviews/runs/abc/audio.mp3" {
		t.Fatalf("uri = %q", uri)
	}

	bucket, key, err := ParseURI(uri)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if bucket != "interviews" || key != "runs/abc/audio.mp3" {
		t.Fatalf("parsed bucket=%q key=%q", bucket, key)
	}
}

// TestParseURIRejectsMalformedInput covers the failure shapes.
func TestParseURIRejectsMalformedInput(t *testing.T) {
	for _, uri := range []string{
		"",
		"https://bucket/key",
		"gs://bucket-only",
		"gs:///key-without-bucket",
		"gs://bucket/",
	} {
		if _, _, err := ParseURI(uri); err == nil {
			t.Fatalf("expected error for %q", uri)
		}
	}
}
