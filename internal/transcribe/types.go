package transcribe

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state reported by the transcription service.
// The service owns all transitions; clients only observe.
type JobStatus string

const (
	StatusSubmitted  JobStatus = "SUBMITTED"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether no further progress updates will occur.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Settings controls speaker diarization on a transcription job.
type Settings struct {
	ShowSpeakerLabels bool `json:"show_speaker_labels"`
	MaxSpeakerLabels  int  `json:"max_speaker_labels,omitempty"`
}

// JobInput describes a medical transcription job submission.
type JobInput struct {
	Name             string   `json:"name"`
	LanguageCode     string   `json:"language_code"`
	MediaURI         string   `json:"media_uri"`
	OutputBucket     string   `json:"output_bucket"`
	OutputKey        string   `json:"output_key"`
	Specialty        string   `json:"specialty"`
	ConversationType string   `json:"type"`
	Settings         Settings `json:"settings"`
}

// Job is the service's view of a transcription job.
type Job struct {
	Name          string     `json:"name"`
	Status        JobStatus  `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	TranscriptURI string     `json:"transcript_uri,omitempty"`
}

// JobFailedError is returned when a job reaches FAILED, preserving the
// service's failure reason.
type JobFailedError struct {
	Name   string
	Reason string
}

func (e *JobFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transcription job %s failed", e.Name)
	}
	return fmt.Sprintf("transcription job %s failed: %s", e.Name, e.Reason)
}
