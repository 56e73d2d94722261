package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tabedit/internal/document"
)

const (
	viewStateFileName = "view_state.json"
	maxViewStates     = 100
)

// ViewState remembers where the cursor was in recently edited files so a relaunch
// lands on the same sheet and cell. Callers should tolerate missing or stale data.
type ViewState struct {
	Version int                 `json:"version"`
	Files   map[string]FileView `json:"files,omitempty"`
}

type FileView struct {
	Sheet   string    `json:"sheet,omitempty"`
	Row     int       `json:"row"`
	Col     int       `json:"col"`
	SavedAt time.Time `json:"savedAt"`
}

func viewStatePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, viewStateFileName), nil
}

func viewKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// LoadViewState reads the state file. A missing or corrupt file yields an empty state.
func LoadViewState() (*ViewState, error) {
	path, err := viewStatePath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ViewState{Version: 1}, nil
		}
		return nil, err
	}
	var st ViewState
	if err := json.Unmarshal(b, &st); err != nil {
		return &ViewState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

// SaveViewState writes st, keeping only the most recently saved files.
func SaveViewState(st *ViewState) error {
	if st == nil {
		return nil
	}
	path, err := viewStatePath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	st.Version = 1
	st.prune(maxViewStates)
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, viewStateFileName+".*.tmp", path, b, 0o644)
}

func (st *ViewState) prune(limit int) {
	if len(st.Files) <= limit {
		return
	}
	keys := make([]string, 0, len(st.Files))
	for k := range st.Files {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return st.Files[keys[i]].SavedAt.After(st.Files[keys[j]].SavedAt)
	})
	for _, k := range keys[limit:] {
		delete(st.Files, k)
	}
}

// Remember records the active sheet and cursor of doc for path.
func (st *ViewState) Remember(path string, doc *document.Document, now time.Time) {
	if path == "" || doc == nil {
		return
	}
	if st.Files == nil {
		st.Files = map[string]FileView{}
	}
	cur := doc.Cursor()
	st.Files[viewKey(path)] = FileView{
		Sheet:   doc.Active().Name,
		Row:     cur.Row,
		Col:     cur.Col,
		SavedAt: now.UTC(),
	}
}

// Restore moves doc to the remembered sheet and cursor for path. Positions are
// clamped; an unknown sheet leaves the active sheet alone.
func (st *ViewState) Restore(path string, doc *document.Document) bool {
	if st == nil || doc == nil {
		return false
	}
	v, ok := st.Files[viewKey(path)]
	if !ok {
		return false
	}
	if v.Sheet != "" {
		_ = doc.SwitchSheet(v.Sheet)
	}
	doc.SetCursor(v.Row, v.Col)
	return true
}
