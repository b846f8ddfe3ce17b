package save

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/playmatatu/clawmachine/internal/prize"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.Local)
}

func TestRestoreCoinAccrual(t *testing.T) {
	saved := at(2025, 3, 10, 9, 0)
	tests := []struct {
		name    string
		coins   int
		elapsed time.Duration
		want    int
	}{
		{"no time passed", 5, 0, 5},
		{"just under one period", 5, 299 * time.Second, 5},
		{"one period", 5, 300 * time.Second, 6},
		{"ten periods", 3, 50 * time.Minute, 13},
		{"capped at max", 15, 2 * time.Hour, 20},
		{"already above max", 25, 0, 20},
		{"clock went backwards", 5, -10 * time.Minute, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &State{LastSaved: Timestamp{saved}, Coins: tt.coins, Balls: 20}
			got := Restore(st, saved.Add(tt.elapsed), DefaultLimits())
			if got.Coins != tt.want {
				t.Errorf("coins = %d, want %d", got.Coins, tt.want)
			}
		})
	}
}

func TestRestoreBallBudget(t *testing.T) {
	saved := at(2025, 3, 10, 9, 0)
	tests := []struct {
		name  string
		balls int
		now   time.Time
		want  int
	}{
		{"same day resumes", 15, at(2025, 3, 10, 18, 0), 5},
		{"same day full machine", 20, at(2025, 3, 10, 9, 5), 0},
		{"same day empty machine", 0, at(2025, 3, 10, 9, 5), 20},
		{"next day resets", 3, at(2025, 3, 11, 0, 1), 0},
		{"saved more than max", 30, at(2025, 3, 10, 10, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &State{LastSaved: Timestamp{saved}, Coins: 1, Balls: tt.balls}
			got := Restore(st, tt.now, DefaultLimits())
			if got.Spawned != tt.want {
				t.Errorf("spawned = %d, want %d", got.Spawned, tt.want)
			}
		})
	}
}

func TestRestoreClonesCatalog(t *testing.T) {
	st := &State{LastSaved: Timestamp{at(2025, 1, 1, 0, 0)}, Prizes: prize.DefaultCatalog()}
	r := Restore(st, at(2025, 1, 1, 0, 0), DefaultLimits())
	r.Catalog.Award(fixedIntn(0))

	if won, _ := st.Prizes.Counts(); won != 0 {
		t.Errorf("restored catalog shares storage with the save")
	}

	empty := Restore(&State{LastSaved: Timestamp{at(2025, 1, 1, 0, 0)}}, at(2025, 1, 1, 0, 0), DefaultLimits())
	if empty.Catalog == nil {
		t.Errorf("nil catalog not replaced with empty one")
	}
}

type fixedIntn int

func (f fixedIntn) IntN(n int) int { return int(f) % n }

func TestTimestampParsesSavedFormats(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{`"2024-11-20T14:03:12.123456"`, time.Date(2024, 11, 20, 14, 3, 12, 123456000, time.Local)},
		{`"2024-11-20T14:03:12"`, time.Date(2024, 11, 20, 14, 3, 12, 0, time.Local)},
		{`"2024-11-20T14:03:12Z"`, time.Date(2024, 11, 20, 14, 3, 12, 0, time.UTC)},
	}
	for _, tt := range tests {
		var ts Timestamp
		if err := json.Unmarshal([]byte(tt.raw), &ts); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if !ts.Equal(tt.want) {
			t.Errorf("%s parsed as %v, want %v", tt.raw, ts.Time, tt.want)
		}
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Errorf("expected error for malformed timestamp")
	}
}

func TestStateUsesSaveFileKeys(t *testing.T) {
	st := NewState(at(2025, 5, 1, 12, 0), prize.DefaultCatalog(), DefaultLimits())
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"Last Saved DateTime", "Coins", "Gacha Balls", "Prizes"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if string(raw["Last Saved DateTime"]) != `"2025-05-01T12:00:00.000000"` {
		t.Errorf("unexpected timestamp encoding %s", raw["Last Saved DateTime"])
	}
}

type fakeSource struct {
	coins, balls int
	catalog      prize.Catalog
}

func (f fakeSource) Coins() int             { return f.coins }
func (f fakeSource) BallCount() int         { return f.balls }
func (f fakeSource) Catalog() prize.Catalog { return f.catalog }

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()
	now := at(2025, 6, 1, 10, 30)

	catalog := prize.DefaultCatalog()
	catalog.Award(fixedIntn(3))
	catalog.Award(fixedIntn(8))

	if err := store.Save(ctx, LocalProfile, Capture(fakeSource{coins: 7, balls: 12, catalog: catalog}, now)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load(ctx, LocalProfile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	r := Restore(loaded, now, DefaultLimits())
	if r.Coins != 7 {
		t.Errorf("coins = %d, want 7", r.Coins)
	}
	if r.Spawned != 8 {
		t.Errorf("spawned = %d, want 8", r.Spawned)
	}
	for _, sec := range catalog.Sections() {
		for _, sub := range catalog.Subsections(sec) {
			for _, key := range catalog.Keys(sec, sub) {
				want := catalog[sec][sub][key]
				if got := r.Catalog[sec][sub][key]; got != want {
					t.Errorf("%s/%s/%s = %+v, want %+v", sec, sub, key, got, want)
				}
			}
		}
	}
}

func TestFileStoreConcurrentSaves(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	now := at(2025, 6, 1, 10, 30)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Save(context.Background(), 4, Capture(fakeSource{coins: i, balls: 3, catalog: prize.Catalog{}}, now))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Save: %v", err)
		}
	}

	if _, err := store.Load(context.Background(), 4); err != nil {
		t.Fatalf("Load after concurrent saves: %v", err)
	}
	left, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("temp files left behind: %v", left)
	}
}

func TestFileStoreMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()

	if _, err := store.Load(ctx, 3); !errors.Is(err, ErrNoSave) {
		t.Errorf("missing save: got %v, want ErrNoSave", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "save-file-4.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Load(ctx, 4); err == nil || errors.Is(err, ErrNoSave) {
		t.Errorf("malformed save: got %v, want parse error", err)
	}
}

func TestLoadOrNewFallsBackToFresh(t *testing.T) {
	store := NewFileStore(t.TempDir())
	now := at(2025, 2, 2, 2, 2)
	st, err := LoadOrNew(context.Background(), store, LocalProfile, func() *State {
		return NewState(now, prize.DefaultCatalog(), DefaultLimits())
	})
	if err != nil {
		t.Fatalf("LoadOrNew: %v", err)
	}
	if st.Coins != 20 || st.Balls != 20 {
		t.Errorf("unexpected fresh state coins=%d balls=%d", st.Coins, st.Balls)
	}
}
