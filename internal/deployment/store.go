package deployment

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"kira-treasury-go/internal/deployerr"
)

// ErrNotFound is returned by Load when no deployment record exists yet.
var ErrNotFound = errors.New("deployment record not found")

// Store reads and rewrites the deployment record. It is a single-writer
// checkpoint store: atomicity comes from writing a sibling temp file and
// renaming it over the record, so a reader never observes a partial
// write even if the writer crashes mid-save.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the record location, for operator-facing messages.
func (st *Store) Path() string { return st.path }

// Load returns the current record, or ErrNotFound when none exists.
func (st *Store) Load() (*State, error) {
	raw, err := os.ReadFile(st.path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &deployerr.PersistenceError{Op: "read", Path: st.path, Err: err}
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, &deployerr.MalformedStateError{Path: st.path, Err: err}
	}
	return &state, nil
}

// Save merges update into the existing record (or a fresh one if none
// exists), stamps the mutation time, and atomically rewrites the file.
// Re-applying an identical update changes nothing but the timestamp.
func (st *Store) Save(update *State) (*State, error) {
	state, err := st.Load()
	if errors.Is(err, ErrNotFound) {
		state = &State{}
	} else if err != nil {
		return nil, err
	}

	if err := state.merge(update); err != nil {
		return nil, err
	}
	state.Timestamp = time.Now().UTC()

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, &deployerr.PersistenceError{Op: "encode", Path: st.path, Err: err}
	}

	dir := filepath.Dir(st.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &deployerr.PersistenceError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return nil, &deployerr.PersistenceError{Op: "write", Path: st.path, Err: err}
	}
	if err := os.Rename(tmp, st.path); err != nil {
		os.Remove(tmp)
		return nil, &deployerr.PersistenceError{Op: "rename", Path: st.path, Err: err}
	}
	return state, nil
}
