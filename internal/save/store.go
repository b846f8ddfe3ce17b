package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/playmatatu/clawmachine/internal/prize"
)

// LocalProfile is the profile ID used by single-player front-ends.
const LocalProfile = 0

// ErrNoSave is returned by Load when the profile has never been saved.
var ErrNoSave = errors.New("save: no save for profile")

// Store persists save slots keyed by profile.
type Store interface {
	Load(ctx context.Context, profileID int) (*State, error)
	Save(ctx context.Context, profileID int, st *State) error
}

// WinRecorder is implemented by stores that keep a prize history.
type WinRecorder interface {
	RecordWin(ctx context.Context, profileID int, award prize.Award) error
}

// FileStore keeps one JSON file per profile in a directory.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Path returns the file backing profileID.
func (s *FileStore) Path(profileID int) string {
	if profileID == LocalProfile {
		return filepath.Join(s.Dir, "save-file.json")
	}
	return filepath.Join(s.Dir, fmt.Sprintf("save-file-%d.json", profileID))
}

func (s *FileStore) Load(_ context.Context, profileID int) (*State, error) {
	path := s.Path(profileID)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSave
	}
	if err != nil {
		return nil, fmt.Errorf("read save %s: %w", path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse save %s: %w", path, err)
	}
	return &st, nil
}

func (s *FileStore) Save(_ context.Context, profileID int, st *State) error {
	data, err := json.MarshalIndent(st, "", "    ")
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}

	path := s.Path(profileID)
	f, err := os.CreateTemp(s.Dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp save: %w", err)
	}
	tmp := f.Name()
	_, werr := f.Write(data)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmp)
		return fmt.Errorf("write save %s: %w", tmp, werr)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod save %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace save %s: %w", path, err)
	}
	log.Printf("[SAVE] profile=%d coins=%d balls=%d -> %s", profileID, st.Coins, st.Balls, path)
	return nil
}

// LoadOrNew loads the profile's slot, falling back to fresh when none exists.
func LoadOrNew(ctx context.Context, store Store, profileID int, fresh func() *State) (*State, error) {
	st, err := store.Load(ctx, profileID)
	if errors.Is(err, ErrNoSave) {
		log.Printf("[SAVE] no save for profile=%d, starting fresh", profileID)
		return fresh(), nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}
