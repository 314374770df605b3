package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/config"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/generate"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/render"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/transcribe"
)

const transcriptJSON = `{
  "job_name": "clinical-notes-test",
  "status": "COMPLETED",
  "results": {
    "transcripts": [{"transcript": "full text"}],
    "audio_segments": [
      {"id": 0, "start_time": "0.0", "end_time": "2.0", "speaker_label": "spk_0", "transcript": "What brings you in?"},
      {"id": 1, "start_time": "2.2", "end_time": "5.0", "speaker_label": "spk_1", "transcript": "A cough for two weeks."}
    ]
  }
}`

type fakeFetcher struct {
	dir string
}

func (f *fakeFetcher) Fetch(ctx context.Context, sourceURL, destDir string) (string, error) {
	path := filepath.Join(f.dir, "interview.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeStore struct {
	uploads    []string
	transcript []byte
}

func (s *fakeStore) Upload(ctx context.Context, bucket, key string, r io.Reader) error {
	if _, err := io.ReadAll(r); err != nil {
		return err
	}
	s.uploads = append(s.uploads, bucket+"/"+key)
	return nil
}

func (s *fakeStore) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	return s.transcript, nil
}

type fakeTranscriber struct {
	input    transcribe.JobInput
	terminal *transcribe.Job
	startErr error
}

func (f *fakeTranscriber) StartJob(ctx context.Context, input transcribe.JobInput) (*transcribe.Job, error) {
	f.input = input
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &transcribe.Job{Name: input.Name, Status: transcribe.StatusSubmitted}, nil
}

func (f *fakeTranscriber) WaitForCompletion(ctx context.Context, name string) (*transcribe.Job, error) {
	job := *f.terminal
	job.Name = name
	return &job, nil
}

type fakeGenerator struct {
	text string
}

func (g *fakeGenerator) Invoke(ctx context.Context, request generate.Request) (*generate.Response, error) {
	return &generate.Response{
		ID:      "gen-1",
		Content: []generate.ContentBlock{{Type: "text", Text: g.text}},
	}, nil
}

func (g *fakeGenerator) InvokeStream(ctx context.Context, request generate.Request, onDelta func(string)) (string, error) {
	for _, fragment := range []string{g.text[:len(g.text)/2], g.text[len(g.text)/2:]} {
		onDelta(fragment)
	}
	return g.text, nil
}

type recordingStore struct {
	created     bool
	transcribed bool
	summarized  bool
	failedWith  string
}

func (r *recordingStore) CreateRun(ctx context.Context, runID, audioURI string, startedAt time.Time) error {
	r.created = true
	return nil
}

func (r *recordingStore) MarkTranscribed(ctx context.Context, runID, jobName, transcriptURI string) error {
	r.transcribed = true
	return nil
}

func (r *recordingStore) MarkSummarized(ctx context.Context, runID, summary string) error {
	r.summarized = true
	return nil
}

func (r *recordingStore) MarkFailed(ctx context.Context, runID, errorMessage string) error {
	r.failedWith = errorMessage
	return nil
}

func (r *recordingStore) Close() error { return nil }

func testConfig(t *testing.T) config.Config {
	return config.Config{
		SampleAudioURL:   "https://example.com/interview.tar.gz",
		WorkDir:          t.TempDir(),
		GCSBucket:        "interviews",
		LanguageCode:     "en-US",
		Specialty:        "PRIMARYCARE",
		ConversationType: "CONVERSATION",
		MaxSpeakers:      2,
		ModelID:          "claude-3-5-sonnet-latest",
		MaxTokens:        4096,
	}
}

func newTestPipeline(t *testing.T, terminal *transcribe.Job, out io.Writer) (*Pipeline, *fakeStore, *fakeTranscriber, *recordingStore) {
	t.Helper()
	store := &fakeStore{transcript: []byte(transcriptJSON)}
	transcriber := &fakeTranscriber{terminal: terminal}
	runs := &recordingStore{}
	p := New(
		testConfig(t),
		&fakeFetcher{dir: t.TempDir()},
		store,
		transcriber,
		transcriber,
		&fakeGenerator{text: "CHIEF COMPLAINT: cough [2]."},
		runs,
		render.New(out),
	)
	return p, store, transcriber, runs
}

// TestRunBlocking walks the whole sequential flow in blocking mode.
func TestRunBlocking(t *testing.T) {
	completed := &transcribe.Job{
		Status:        transcribe.StatusCompleted,
		TranscriptURI: "gs://interviews/runs/x/transcript.json",
	}
	p, store, transcriber, runs := newTestPipeline(t, completed, io.Discard)

	result, err := p.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(store.uploads) != 1 || !strings.HasPrefix(store.uploads[0], "interviews/runs/") {
		t.Fatalf("uploads = %v", store.uploads)
	}
	if !strings.HasSuffix(store.uploads[0], "/interview.mp3") {
		t.Fatalf("upload key = %q", store.uploads[0])
	}
	if result.MediaURI != "gs://"+store.uploads[0] {
		t.Fatalf("media URI = %q", result.MediaURI)
	}

	if !transcriber.input.Settings.ShowSpeakerLabels {
		t.Fatal("diarization not enabled on job input")
	}
	if transcriber.input.OutputBucket != "interviews" {
		t.Fatalf("output bucket = %q", transcriber.input.OutputBucket)
	}
	if !strings.HasPrefix(transcriber.input.Name, "clinical-notes-") {
		t.Fatalf("job name = %q", transcriber.input.Name)
	}

	if !strings.Contains(result.Dialogue, "1. spk_0: What brings you in?") {
		t.Fatalf("dialogue = %q", result.Dialogue)
	}
	if result.Summary != "CHIEF COMPLAINT: cough [2]." {
		t.Fatalf("summary = %q", result.Summary)
	}

	if !runs.created || !runs.transcribed || !runs.summarized {
		t.Fatalf("run ledger incomplete: %+v", runs)
	}
	if runs.failedWith != "" {
		t.Fatalf("unexpected failure recorded: %q", runs.failedWith)
	}
}

// TestRunStreaming renders fragments incrementally and returns the
// concatenated summary.
func TestRunStreaming(t *testing.T) {
	completed := &transcribe.Job{
		Status:        transcribe.StatusCompleted,
		TranscriptURI: "gs://interviews/runs/x/transcript.json",
	}
	var out bytes.Buffer
	p, _, _, _ := newTestPipeline(t, completed, &out)

	result, err := p.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Summary != "CHIEF COMPLAINT: cough [2]." {
		t.Fatalf("summary = %q", result.Summary)
	}
	if !strings.Contains(out.String(), "CHIEF COMPLAINT") {
		t.Fatal("streamed fragments not rendered")
	}
}

// TestRunJobFailed surfaces the service's failure reason as a typed error
// and records the failure.
func TestRunJobFailed(t *testing.T) {
	failed := &transcribe.Job{
		Status:        transcribe.StatusFailed,
		FailureReason: "unsupported media format",
	}
	p, _, _, runs := newTestPipeline(t, failed, io.Discard)

	_, err := p.Run(context.Background(), false)
	if err == nil {
		t.Fatal("expected error for failed job")
	}

	var jobErr *transcribe.JobFailedError
	if !errors.As(err, &jobErr) {
		t.Fatalf("err = %v, want JobFailedError", err)
	}
	if jobErr.Reason != "unsupported media format" {
		t.Fatalf("reason = %q", jobErr.Reason)
	}
	if !strings.Contains(runs.failedWith, "unsupported media format") {
		t.Fatalf("failure not recorded: %q", runs.failedWith)
	}
}

// TestRunSubmissionFailure stops the pipeline before polling.
func TestRunSubmissionFailure(t *testing.T) {
	p, _, transcriber, runs := newTestPipeline(t, nil, io.Discard)
	transcriber.startErr = fmt.Errorf("API returned 403: bad token")

	if _, err := p.Run(context.Background(), false); err == nil {
		t.Fatal("expected submission error")
	}
	if runs.failedWith == "" {
		t.Fatal("submission failure not recorded")
	}
}
