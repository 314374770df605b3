package transcript

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Result is the diarized transcript JSON the transcription service writes to
// object storage on job completion.
type Result struct {
	JobName string `json:"job_name"`
	Status  string `json:"status"`
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
		AudioSegments []rawSegment `json:"audio_segments"`
	} `json:"results"`
}

type rawSegment struct {
	ID           int    `json:"id"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	SpeakerLabel string `json:"speaker_label"`
	Transcript   string `json:"transcript"`
}

// Segment is one diarized span of the interview. LineNumber is assigned
// locally in arrival order, starting at 1, and is strictly increasing.
type Segment struct {
	LineNumber int
	StartTime  float64
	EndTime    float64
	Speaker    string
	Text       string
}

// ParseResult decodes the transcript JSON produced by the service.
func ParseResult(data []byte) (*Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse transcript result: %w", err)
	}
	return &result, nil
}

// Segments converts the raw diarized spans into ordered Segments. A completed
// job with no speech segments is an error, as is a segment without a speaker
// label; both indicate malformed diarization output.
func (r *Result) Segments() ([]Segment, error) {
	raw := r.Results.AudioSegments
	if len(raw) == 0 {
		return nil, fmt.Errorf("transcript contains no speech segments")
	}

	segments := make([]Segment, 0, len(raw))
	for i, s := range raw {
		if strings.TrimSpace(s.SpeakerLabel) == "" {
			return nil, fmt.Errorf("segment %d is missing a speaker label", s.ID)
		}

		start, err := strconv.ParseFloat(s.StartTime, 64)
		if err != nil {
			return nil, fmt.Errorf("segment %d has invalid start time %q: %w", s.ID, s.StartTime, err)
		}
		end, err := strconv.ParseFloat(s.EndTime, 64)
		if err != nil {
			return nil, fmt.Errorf("segment %d has invalid end time %q: %w", s.ID, s.EndTime, err)
		}

		segments = append(segments, Segment{
			LineNumber: i + 1,
			StartTime:  start,
			EndTime:    end,
			Speaker:    s.SpeakerLabel,
			Text:       strings.TrimSpace(s.Transcript),
		})
	}
	return segments, nil
}

// FormatDialogue flattens segments into the numbered "N. speaker: text" form
// the prompt embeds. Line numbers come from the segments unchanged.
func FormatDialogue(segments []Segment) (string, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("no segments to format")
	}

	var b strings.Builder
	for i, s := range segments {
		if i > 0 && s.LineNumber <= segments[i-1].LineNumber {
			return "", fmt.Errorf("line numbers are not strictly increasing at segment %d", s.LineNumber)
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", s.LineNumber, s.Speaker, s.Text)
	}
	return b.String(), nil
}
