package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/config"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/generate"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/logger"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/prompt"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/render"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/runstore"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/storage"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/transcribe"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/transcript"
)

// Fetcher downloads the sample recording into a working directory.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, destDir string) (string, error)
}

// ObjectStore is the slice of the storage client the pipeline uses.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, r io.Reader) error
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}

// TranscriptionClient submits transcription jobs.
type TranscriptionClient interface {
	StartJob(ctx context.Context, input transcribe.JobInput) (*transcribe.Job, error)
}

// JobWaiter blocks until a job reaches a terminal status.
type JobWaiter interface {
	WaitForCompletion(ctx context.Context, name string) (*transcribe.Job, error)
}

// Generator invokes the text-generation endpoint.
type Generator interface {
	Invoke(ctx context.Context, request generate.Request) (*generate.Response, error)
	InvokeStream(ctx context.Context, request generate.Request, onDelta func(string)) (string, error)
}

// RunResult captures what one pipeline run produced.
type RunResult struct {
	RunID         string
	JobName       string
	MediaURI      string
	TranscriptURI string
	Dialogue      string
	Summary       string
}

// Pipeline is the strictly sequential audio-to-summary flow: fetch, upload,
// transcribe, poll, format, prompt, generate, render. Each step's output is
// consumed by exactly the next step.
type Pipeline struct {
	cfg        config.Config
	fetcher    Fetcher
	store      ObjectStore
	transcribe TranscriptionClient
	waiter     JobWaiter
	generator  Generator
	runs       runstore.Store
	renderer   *render.Renderer
}

func New(
	cfg config.Config,
	fetcher Fetcher,
	store ObjectStore,
	transcribeClient TranscriptionClient,
	waiter JobWaiter,
	generator Generator,
	runs runstore.Store,
	renderer *render.Renderer,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		store:      store,
		transcribe: transcribeClient,
		waiter:     waiter,
		generator:  generator,
		runs:       runs,
		renderer:   renderer,
	}
}

// Run executes one end-to-end pipeline pass. When streaming is true the
// summary is generated in streaming mode and rendered incrementally;
// otherwise a single blocking call is made.
func (p *Pipeline) Run(ctx context.Context, streaming bool) (*RunResult, error) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)

	logger.Info(ctx, "starting pipeline run", logger.Fields{
		"streaming": streaming,
	})

	p.renderer.Status("fetching sample audio")
	audioPath, err := p.fetcher.Fetch(ctx, p.cfg.SampleAudioURL, filepath.Join(p.cfg.WorkDir, runID))
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	p.renderer.Status("uploading audio to object storage")
	mediaKey := "runs/" + runID + "/" + filepath.Base(audioPath)
	mediaURI, err := p.uploadAudio(ctx, audioPath, mediaKey)
	if err != nil {
		return nil, err
	}

	if err := p.runs.CreateRun(ctx, runID, mediaURI, time.Now().UTC()); err != nil {
		logger.Error(ctx, "failed to record run start", err)
	}

	p.renderer.Status("submitting transcription job")
	jobName := "clinical-notes-" + runID
	transcriptKey := "runs/" + runID + "/transcript.json"
	job, err := p.transcribe.StartJob(ctx, transcribe.JobInput{
		Name:             jobName,
		LanguageCode:     p.cfg.LanguageCode,
		MediaURI:         mediaURI,
		OutputBucket:     p.cfg.GCSBucket,
		OutputKey:        transcriptKey,
		Specialty:        p.cfg.Specialty,
		ConversationType: p.cfg.ConversationType,
		Settings: transcribe.Settings{
			ShowSpeakerLabels: true,
			MaxSpeakerLabels:  p.cfg.MaxSpeakers,
		},
	})
	if err != nil {
		p.markFailed(ctx, runID, err)
		return nil, fmt.Errorf("job submission failed: %w", err)
	}

	p.renderer.Status("waiting for transcription to complete")
	job, err = p.waiter.WaitForCompletion(ctx, job.Name)
	if err != nil {
		p.markFailed(ctx, runID, err)
		return nil, fmt.Errorf("wait for transcription failed: %w", err)
	}
	if job.Status == transcribe.StatusFailed {
		failure := &transcribe.JobFailedError{Name: job.Name, Reason: job.FailureReason}
		p.markFailed(ctx, runID, failure)
		return nil, failure
	}

	p.renderer.Status("formatting diarized transcript")
	dialogue, err := p.fetchDialogue(ctx, job.TranscriptURI)
	if err != nil {
		p.markFailed(ctx, runID, err)
		return nil, err
	}

	if err := p.runs.MarkTranscribed(ctx, runID, job.Name, job.TranscriptURI); err != nil {
		logger.Error(ctx, "failed to record transcription", err)
	}

	p.renderer.Status("generating clinical summary")
	summary, err := p.summarize(ctx, dialogue, streaming)
	if err != nil {
		p.markFailed(ctx, runID, err)
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	p.renderer.Final("Clinical Summary", summary)

	if err := p.runs.MarkSummarized(ctx, runID, summary); err != nil {
		logger.Error(ctx, "failed to record summary", err)
	}

	logger.Info(ctx, "pipeline run complete", logger.Fields{
		"job_name":       job.Name,
		"transcript_uri": job.TranscriptURI,
		"summary_chars":  len(summary),
	})

	return &RunResult{
		RunID:         runID,
		JobName:       job.Name,
		MediaURI:      mediaURI,
		TranscriptURI: job.TranscriptURI,
		Dialogue:      dialogue,
		Summary:       summary,
	}, nil
}

// uploadAudio pushes the local audio file under the per-run prefix and
// returns the URI the transcription service should read it from. When a
// signing identity is configured, a signed HTTPS URL is handed out instead
// of the gs:// form so the service does not need bucket access.
func (p *Pipeline) uploadAudio(ctx context.Context, audioPath, key string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	if err := p.store.Upload(ctx, p.cfg.GCSBucket, key, f); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	if p.cfg.GCSSigningEmail != "" {
		signed, err := storage.SignedDownloadURL(p.cfg.GCSBucket, key, p.cfg.GCSSigningEmail, p.cfg.GCSSigningPrivateKey, p.cfg.SignedURLTTL)
		if err != nil {
			return "", fmt.Errorf("failed to sign media URL: %w", err)
		}
		return signed, nil
	}
	return storage.URI(p.cfg.GCSBucket, key), nil
}

// fetchDialogue downloads the transcript result and flattens it into the
// numbered dialogue form.
func (p *Pipeline) fetchDialogue(ctx context.Context, transcriptURI string) (string, error) {
	bucket, key, err := storage.ParseURI(transcriptURI)
	if err != nil {
		return "", fmt.Errorf("bad transcript location: %w", err)
	}

	data, err := p.store.Download(ctx, bucket, key)
	if err != nil {
		return "", fmt.Errorf("transcript download failed: %w", err)
	}

	result, err := transcript.ParseResult(data)
	if err != nil {
		return "", err
	}
	segments, err := result.Segments()
	if err != nil {
		return "", err
	}
	return transcript.FormatDialogue(segments)
}

func (p *Pipeline) summarize(ctx context.Context, dialogue string, streaming bool) (string, error) {
	request := generate.Request{
		Model: p.cfg.ModelID,
		Messages: []generate.Message{
			{Role: "user", Content: prompt.Build(dialogue)},
		},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	}

	if streaming {
		return p.generator.InvokeStream(ctx, request, p.renderer.Chunk)
	}

	response, err := p.generator.Invoke(ctx, request)
	if err != nil {
		return "", err
	}
	return response.Text(), nil
}

func (p *Pipeline) markFailed(ctx context.Context, runID string, cause error) {
	if err := p.runs.MarkFailed(ctx, runID, cause.Error()); err != nil {
		logger.Error(ctx, "failed to record run failure", err)
	}
}
