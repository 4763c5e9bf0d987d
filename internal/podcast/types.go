package podcast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors shared by the stores and services.
var (
	// ErrInvalidRecord reports a record that is not valid JSON or lacks a required field.
	ErrInvalidRecord = errors.New("invalid podcast record")
	// ErrNotFound reports a missing record file.
	ErrNotFound = errors.New("record not found")
	// ErrExists reports an exclusive create that lost against an existing file.
	ErrExists = errors.New("record already exists")
	// ErrInvalidFeedURL reports a submitted feed URL that is not an absolute http(s) URL.
	ErrInvalidFeedURL = errors.New("invalid feed url")
	// ErrFeedCheck reports a feed URL that could not be fetched or parsed, or has no episodes.
	ErrFeedCheck = errors.New("feed check failed")
)

// Details identifies the podcast and episode a record was generated for.
type Details struct {
	PodcastTitle string `json:"podcast_title"`
	EpisodeTitle string `json:"episode_title"`
	EpisodeImage string `json:"episode_image"`
}

// Record is one processed podcast. Raw keeps the full JSON document so
// fields this service does not display survive a sync or a submission.
type Record struct {
	Details    Details `json:"podcast_details"`
	Summary    string  `json:"podcast_summary"`
	Guest      string  `json:"podcast_guest"`
	Highlights string  `json:"podcast_highlights"`

	Raw json.RawMessage `json:"-"`
}

var (
	requiredKeys        = []string{"podcast_details", "podcast_summary", "podcast_guest", "podcast_highlights"}
	requiredDetailsKeys = []string{"podcast_title", "episode_title", "episode_image"}
)

// Decode parses a record and checks every displayed field is present.
func Decode(data []byte) (Record, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := requireKeys(top, requiredKeys, ""); err != nil {
		return Record{}, err
	}
	var details map[string]json.RawMessage
	if err := json.Unmarshal(top["podcast_details"], &details); err != nil {
		return Record{}, fmt.Errorf("%w: podcast_details: %v", ErrInvalidRecord, err)
	}
	if err := requireKeys(details, requiredDetailsKeys, "podcast_details."); err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	rec.Raw = compact.Bytes()
	return rec, nil
}

func requireKeys(m map[string]json.RawMessage, keys []string, prefix string) error {
	if m == nil {
		return fmt.Errorf("%w: expected a JSON object", ErrInvalidRecord)
	}
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return fmt.Errorf("%w: missing %s%s", ErrInvalidRecord, prefix, k)
		}
	}
	return nil
}

// Title is the catalog key for the record.
func (r Record) Title() string {
	return r.Details.PodcastTitle
}

// HighlightLines splits the highlights block into one entry per line.
func (r Record) HighlightLines() []string {
	if r.Highlights == "" {
		return nil
	}
	return strings.Split(r.Highlights, "\n")
}

// JSON returns the stored document, re-encoding the typed fields when the
// record was built in code rather than decoded.
func (r Record) JSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

// ValidateFilename rejects record names that would escape the record directory.
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("record name is required")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("invalid record name %q", name)
	}
	return nil
}

// Row is one line of the spreadsheet mirror: the record file name and the
// JSON-encoded record.
type Row struct {
	Filename string `json:"json"`
	Value    string `json:"value"`
}

// AddedEvent is published after a submission persists a new record.
type AddedEvent struct {
	SubmissionID string    `json:"submission_id"`
	FeedURL      string    `json:"feed_url"`
	Filename     string    `json:"filename"`
	PodcastTitle string    `json:"podcast_title"`
	EpisodeTitle string    `json:"episode_title"`
	AddedAt      time.Time `json:"added_at"`
}

// Submission is a ledger entry for one processed feed.
type Submission struct {
	ID           string    `json:"id"`
	FeedURL      string    `json:"feed_url"`
	Filename     string    `json:"filename"`
	PodcastTitle string    `json:"podcast_title"`
	SubmittedAt  time.Time `json:"submitted_at"`
}
