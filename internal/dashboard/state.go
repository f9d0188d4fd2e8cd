package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/devfolio/portfolio-api/internal/models"
)

// State is the on-disk form of a dashboard, so local changes made in
// fallback or offline mode survive between CLI runs.
type State struct {
	SavedAt   time.Time         `json:"savedAt"`
	Pending   map[string]int    `json:"pending,omitempty"`
	LastIDs   map[string]int64  `json:"lastIds,omitempty"`
	Messages  []models.Message  `json:"messages"`
	Ratings   []models.Rating   `json:"ratings"`
	BlogPosts []models.BlogPost `json:"blogPosts"`
	Projects  []models.Project  `json:"projects"`
}

// Snapshot captures the mirrors and the local change counters.
func (d *Dashboard) Snapshot() State {
	st := d.Status()
	return State{
		SavedAt:   d.now().UTC(),
		Pending:   st.Pending,
		LastIDs: map[string]int64{
			Messages:  d.Messages.lastID(),
			Ratings:   d.Ratings.lastID(),
			BlogPosts: d.BlogPosts.lastID(),
			Projects:  d.Projects.lastID(),
		},
		Messages:  d.Messages.Items(),
		Ratings:   d.Ratings.Items(),
		BlogPosts: d.BlogPosts.Items(),
		Projects:  d.Projects.Items(),
	}
}

// Restore loads st into the mirrors.
func (d *Dashboard) Restore(st State) {
	d.Messages.replace(st.Messages)
	d.Ratings.replace(st.Ratings)
	d.BlogPosts.replace(st.BlogPosts)
	d.Projects.replace(st.Projects)
	d.Messages.setLastID(st.LastIDs[Messages])
	d.Ratings.setLastID(st.LastIDs[Ratings])
	d.BlogPosts.setLastID(st.LastIDs[BlogPosts])
	d.Projects.setLastID(st.LastIDs[Projects])
	d.mu.Lock()
	d.pending = map[string]int{}
	for k, n := range st.Pending {
		if n > 0 {
			d.pending[k] = n
		}
	}
	d.mu.Unlock()
	d.notify()
}

// SaveState writes st as JSON, replacing path atomically.
func SaveState(path string, st State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadState reads a state file. A missing file yields an empty state.
func LoadState(path string) (State, error) {
	var st State
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, fmt.Errorf("parse %s: %w", path, err)
	}
	return st, nil
}
