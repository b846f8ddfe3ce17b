package game

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/playmatatu/clawmachine/internal/prize"
	"github.com/playmatatu/clawmachine/internal/save"
)

// Event types delivered to subscribers and relayed between instances.
const (
	EventSnapshot      = "snapshot"
	EventBallCollected = "ball_collected"
	EventPrizeWon      = "prize_won"
	EventStopped       = "machine_stopped"
)

var ErrMachineStopped = errors.New("machine stopped")

// Event is a machine notification.
type Event struct {
	Type      string       `json:"type"`
	ProfileID int          `json:"profile_id"`
	Origin    string       `json:"origin,omitempty"`
	Snapshot  *Snapshot    `json:"snapshot,omitempty"`
	BallID    int          `json:"ball_id,omitempty"`
	Award     *prize.Award `json:"award,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// Machine is a running Session owned by a single runner goroutine. Every
// access to the session goes through do, which hands a closure to the runner.
type Machine struct {
	ProfileID int
	StartedAt time.Time

	session *Session
	cmds    chan func(*Session)
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once

	mu        sync.Mutex
	subs      map[int]chan Event
	nextSub   int
	idleSince time.Time
	closed    bool

	captured uint64 // runner only
	saveMu   sync.Mutex
	savedSeq uint64
}

func newMachine(profileID int, s *Session, now time.Time) *Machine {
	return &Machine{
		ProfileID: profileID,
		StartedAt: now,
		session:   s,
		cmds:      make(chan func(*Session), 64),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		subs:      make(map[int]chan Event),
		idleSince: time.Now(),
	}
}

// do runs fn on the runner goroutine and waits for it to finish.
func (m *Machine) do(fn func(*Session)) error {
	finished := make(chan struct{})
	select {
	case m.cmds <- func(s *Session) { fn(s); close(finished) }:
	case <-m.done:
		return ErrMachineStopped
	}
	select {
	case <-finished:
		return nil
	case <-m.done:
		return ErrMachineStopped
	}
}

// Apply runs a command and returns the resulting snapshot. The command's own
// rejection, if any, is returned alongside the snapshot.
func (m *Machine) Apply(cmd Command) (Snapshot, error) {
	var snap Snapshot
	var applyErr error
	err := m.do(func(s *Session) {
		applyErr = s.Apply(cmd)
		snap = s.Snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	m.broadcast(Event{Type: EventSnapshot, ProfileID: m.ProfileID, Snapshot: &snap})
	return snap, applyErr
}

// Snapshot returns the current session state.
func (m *Machine) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := m.do(func(s *Session) { snap = s.Snapshot() })
	return snap, err
}

// Catalog returns a copy of the session's prize catalog.
func (m *Machine) Catalog() (prize.Catalog, error) {
	var c prize.Catalog
	err := m.do(func(s *Session) { c = s.Catalog().Clone() })
	return c, err
}

// capture snapshots the session into a save record. It must run on the
// runner; the sequence number orders the record against other captures.
func (m *Machine) capture(now time.Time) (uint64, *save.State) {
	m.captured++
	return m.captured, save.Capture(m.session, now)
}

// persist writes a captured record unless a later capture has already been
// saved. Saves for one machine never overlap.
func (m *Machine) persist(ctx context.Context, store save.Store, seq uint64, st *save.State) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	if seq <= m.savedSeq {
		log.Printf("[SAVE] profile=%d skipping stale capture %d (saved %d)", m.ProfileID, seq, m.savedSeq)
		return nil
	}
	if err := store.Save(ctx, m.ProfileID, st); err != nil {
		return err
	}
	m.savedSeq = seq
	return nil
}

// Subscribe registers for events. The channel is closed when the machine
// stops or cancel is called.
func (m *Machine) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Event, 64)
	if m.closed {
		close(ch)
		return ch, func() {}
	}

	m.nextSub++
	id := m.nextSub
	m.subs[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(cur)
			if len(m.subs) == 0 {
				m.idleSince = time.Now()
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (m *Machine) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Done is closed once the runner has saved and exited.
func (m *Machine) Done() <-chan struct{} { return m.done }

func (m *Machine) requestStop() {
	m.once.Do(func() { close(m.stop) })
}

// broadcast delivers ev to every subscriber, dropping it for any whose
// buffer is full.
func (m *Machine) broadcast(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// idleFor reports how long the machine has had no subscribers.
func (m *Machine) idleFor(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.subs) > 0 {
		return 0
	}
	return now.Sub(m.idleSince)
}

// closeSubs ends every subscription after a final event, evicting the
// oldest buffered event if a subscriber has fallen behind.
func (m *Machine) closeSubs(final Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, ch := range m.subs {
		select {
		case ch <- final:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- final
		}
		close(ch)
		delete(m.subs, id)
	}
}
