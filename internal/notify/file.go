package notify

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"listing-radar/internal/domain"
)

// FileNotifier appends one JSON line per alert to a file, the feed the
// dashboard tails.
type FileNotifier struct {
	path string
	mu   sync.Mutex
}

// NewFileNotifier creates a FileNotifier writing to path.
func NewFileNotifier(path string) *FileNotifier {
	return &FileNotifier{path: path}
}

// Compile-time interface check.
var _ Notifier = (*FileNotifier)(nil)

// Name implements Notifier.
func (n *FileNotifier) Name() string { return "file" }

// alertRecord is the serialized alert line.
type alertRecord struct {
	Candidate *domain.TokenCandidate `json:"candidate"`
	Verdict   domain.Verdict         `json:"verdict"`
}

// Notify implements Notifier.
func (n *FileNotifier) Notify(_ context.Context, c *domain.TokenCandidate, v domain.Verdict) error {
	data, err := json.Marshal(alertRecord{Candidate: c, Verdict: v})
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	f, err := os.OpenFile(n.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
