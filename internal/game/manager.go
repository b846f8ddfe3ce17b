package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/playmatatu/clawmachine/internal/clock"
	"github.com/playmatatu/clawmachine/internal/config"
	"github.com/playmatatu/clawmachine/internal/geometry"
	"github.com/playmatatu/clawmachine/internal/prize"
	rediskeys "github.com/playmatatu/clawmachine/internal/redis"
	"github.com/playmatatu/clawmachine/internal/save"
	"github.com/redis/go-redis/v9"
)

var (
	ErrMachineNotRunning = errors.New("machine not running")
	ErrNoSnapshot        = errors.New("no snapshot for profile")
)

// Options configures a Manager.
type Options struct {
	Tuning        Tuning
	Frames        *geometry.FrameTable
	Limits        save.Limits
	Clock         clock.Clock
	SnapshotEvery int
	IdleStop      time.Duration
	Seed          uint64
	InstanceID    string
}

// OptionsFromConfig derives manager options from the environment.
func OptionsFromConfig(cfg *config.Config, frames *geometry.FrameTable) Options {
	t := TuningFromConfig(cfg)
	lim := save.DefaultLimits()
	lim.MaxBalls = t.MaxBalls
	lim.MaxCoins = t.MaxCoins
	return Options{
		Tuning:        t,
		Frames:        frames,
		Limits:        lim,
		Clock:         clock.RealClock{},
		SnapshotEvery: cfg.SnapshotEveryTicks,
		IdleStop:      time.Duration(cfg.MachineIdleStopSeconds) * time.Second,
		Seed:          uint64(cfg.Seed),
	}
}

// Manager runs one Machine per profile
type Manager struct {
	store save.Store
	rdb   *redis.Client // optional; nil disables caching and the event relay
	opts  Options

	machines map[int]*Machine
	mu       sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a manager. rdb may be nil.
func NewManager(store save.Store, rdb *redis.Client, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.SnapshotEvery <= 0 {
		opts.SnapshotEvery = 1
	}
	if opts.InstanceID == "" {
		opts.InstanceID = generateInstanceID()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:    store,
		rdb:      rdb,
		opts:     opts,
		machines: make(map[int]*Machine),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// generateInstanceID tags events this process publishes so its own relay can
// skip them.
func generateInstanceID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "inst_" + hex.EncodeToString(b)
}

func (mgr *Manager) InstanceID() string { return mgr.opts.InstanceID }

// Start returns the profile's running machine, starting it from the saved
// slot when none is running. The slot is loaded without holding the registry
// lock; a machine started concurrently for the same profile wins.
func (mgr *Manager) Start(ctx context.Context, profileID int) (*Machine, bool, error) {
	if m, err := mgr.Get(profileID); err == nil {
		return m, false, nil
	}

	now := mgr.opts.Clock.Now()
	st, err := save.LoadOrNew(ctx, mgr.store, profileID, func() *save.State {
		return save.NewState(now, prize.DefaultCatalog(), mgr.opts.Limits)
	})
	if err != nil {
		return nil, false, fmt.Errorf("load save for profile %d: %w", profileID, err)
	}

	seed := mgr.opts.Seed
	if seed == 0 {
		seed = uint64(now.UnixNano())
	}
	rng := NewRand(seed + uint64(profileID))

	s, err := NewSession(mgr.opts.Tuning, mgr.opts.Frames, save.Restore(st, now, mgr.opts.Limits), rng)
	if err != nil {
		return nil, false, err
	}

	coins, spawned := s.Coins(), s.Spawned()

	mgr.mu.Lock()
	if m, ok := mgr.machines[profileID]; ok {
		mgr.mu.Unlock()
		s.Close()
		return m, false, nil
	}
	m := newMachine(profileID, s, now)
	mgr.machines[profileID] = m
	go mgr.run(m)
	mgr.mu.Unlock()

	log.Printf("[MACHINE] started profile=%d coins=%d spawned=%d", profileID, coins, spawned)
	return m, true, nil
}

// Get returns the profile's running machine.
func (mgr *Manager) Get(profileID int) (*Machine, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	m, ok := mgr.machines[profileID]
	if !ok {
		return nil, ErrMachineNotRunning
	}
	return m, nil
}

// Command applies cmd to the profile's running machine.
func (mgr *Manager) Command(profileID int, cmd Command) (Snapshot, error) {
	m, err := mgr.Get(profileID)
	if err != nil {
		return Snapshot{}, err
	}
	return m.Apply(cmd)
}

// Snapshot returns the live state of a running machine, falling back to the
// last snapshot cached in Redis.
func (mgr *Manager) Snapshot(ctx context.Context, profileID int) (Snapshot, error) {
	if m, err := mgr.Get(profileID); err == nil {
		return m.Snapshot()
	}
	return mgr.cachedSnapshot(ctx, profileID)
}

// Catalog returns the profile's prize catalog from the running machine or,
// when stopped, from the store.
func (mgr *Manager) Catalog(ctx context.Context, profileID int) (prize.Catalog, error) {
	if m, err := mgr.Get(profileID); err == nil {
		if c, err := m.Catalog(); err == nil {
			return c, nil
		}
	}
	st, err := save.LoadOrNew(ctx, mgr.store, profileID, func() *save.State {
		return save.NewState(mgr.opts.Clock.Now(), prize.DefaultCatalog(), mgr.opts.Limits)
	})
	if err != nil {
		return nil, err
	}
	return st.Prizes, nil
}

// Subscribe registers for the profile's machine events.
func (mgr *Manager) Subscribe(profileID int) (<-chan Event, func(), error) {
	m, err := mgr.Get(profileID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := m.Subscribe()
	return ch, cancel, nil
}

// Stop saves and stops the profile's machine and waits for the runner.
func (mgr *Manager) Stop(ctx context.Context, profileID int) error {
	m, err := mgr.Get(profileID)
	if err != nil {
		return err
	}
	m.requestStop()
	select {
	case <-m.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops every machine, saving each one.
func (mgr *Manager) Shutdown(ctx context.Context) {
	mgr.cancel()

	mgr.mu.RLock()
	running := make([]*Machine, 0, len(mgr.machines))
	for _, m := range mgr.machines {
		running = append(running, m)
	}
	mgr.mu.RUnlock()

	for _, m := range running {
		select {
		case <-m.Done():
		case <-ctx.Done():
			log.Printf("[MACHINE] shutdown timed out waiting for profile=%d", m.ProfileID)
			return
		}
	}
	log.Printf("[MACHINE] shutdown complete (%d machines)", len(running))
}

// ActiveCount returns the number of running machines.
func (mgr *Manager) ActiveCount() int {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return len(mgr.machines)
}

// run owns m.session until the machine stops.
func (mgr *Manager) run(m *Machine) {
	ticker := time.NewTicker(time.Second / time.Duration(mgr.opts.Tuning.TickRate))
	defer ticker.Stop()

	reason := "stopped"
	defer func() { mgr.finish(m, reason) }()

	for {
		select {
		case <-mgr.ctx.Done():
			reason = "shutdown"
			return
		case <-m.stop:
			return
		case fn := <-m.cmds:
			fn(m.session)
		case <-ticker.C:
			mgr.step(m)
			if mgr.opts.IdleStop > 0 && m.idleFor(time.Now()) >= mgr.opts.IdleStop {
				reason = "idle"
				return
			}
		}
	}
}

// step advances the session one tick and fans out whatever happened.
func (mgr *Manager) step(m *Machine) {
	s := m.session
	res := s.Tick()
	if !res.Advanced {
		return
	}

	if res.Collected != 0 {
		mgr.emit(m, Event{Type: EventBallCollected, ProfileID: m.ProfileID, BallID: res.Collected})
	}
	if res.Award != nil {
		log.Printf("[MACHINE] profile=%d won %s/%s/%s", m.ProfileID, res.Award.Section, res.Award.Subsection, res.Award.Key)
		mgr.emit(m, Event{Type: EventPrizeWon, ProfileID: m.ProfileID, Award: res.Award})
		if rec, ok := mgr.store.(save.WinRecorder); ok {
			award := *res.Award
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rec.RecordWin(ctx, m.ProfileID, award); err != nil {
					log.Printf("[MACHINE] failed to record win for profile=%d: %v", m.ProfileID, err)
				}
			}()
		}
	}

	forced := res.Collected != 0 || res.SpawnedBall != 0 || res.CoinAdded
	broadcast, cache := snapshotDue(s.Ticks(), mgr.opts.SnapshotEvery, s.Tuning().TickRate, forced)
	if !broadcast && !cache {
		return
	}
	snap := s.Snapshot()
	if broadcast {
		m.broadcast(Event{Type: EventSnapshot, ProfileID: m.ProfileID, Snapshot: &snap})
	}
	if cache {
		mgr.cacheSnapshot(m.ProfileID, snap)
	}
}

// snapshotDue reports whether tick should broadcast a snapshot and whether it
// should refresh the Redis cache, which happens once per simulated second.
func snapshotDue(tick uint64, every, tickRate int, forced bool) (broadcast, cache bool) {
	broadcast = forced || tick%uint64(every) == 0
	cache = tick%uint64(tickRate) == 0
	return broadcast, cache
}

// emit delivers ev locally and publishes it for other instances.
func (mgr *Manager) emit(m *Machine, ev Event) {
	m.broadcast(ev)
	mgr.publish(ev)
}

// finish saves the session, tears it down and deregisters the machine.
func (mgr *Manager) finish(m *Machine, reason string) {
	defer close(m.done)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap := m.session.Snapshot()
	seq, st := m.capture(mgr.opts.Clock.Now())
	if err := m.persist(ctx, mgr.store, seq, st); err != nil {
		log.Printf("[MACHINE] failed to save profile=%d: %v", m.ProfileID, err)
	}
	mgr.cacheSnapshot(m.ProfileID, snap)
	m.session.Close()

	mgr.mu.Lock()
	if cur, ok := mgr.machines[m.ProfileID]; ok && cur == m {
		delete(mgr.machines, m.ProfileID)
	}
	mgr.mu.Unlock()

	final := Event{Type: EventStopped, ProfileID: m.ProfileID, Reason: reason}
	m.closeSubs(final)
	mgr.publish(final)
	log.Printf("[MACHINE] stopped profile=%d reason=%s", m.ProfileID, reason)
}

// cacheSnapshot stores the latest snapshot in Redis for an hour.
func (mgr *Manager) cacheSnapshot(profileID int, snap Snapshot) {
	if mgr.rdb == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[REDIS] failed to encode snapshot for profile=%d: %v", profileID, err)
		return
	}
	if err := mgr.rdb.SetEx(context.Background(), rediskeys.MachineStateKey(profileID), data, time.Hour).Err(); err != nil {
		log.Printf("[REDIS] failed to cache snapshot for profile=%d: %v", profileID, err)
	}
}

func (mgr *Manager) cachedSnapshot(ctx context.Context, profileID int) (Snapshot, error) {
	if mgr.rdb == nil {
		return Snapshot{}, ErrMachineNotRunning
	}
	data, err := mgr.rdb.Get(ctx, rediskeys.MachineStateKey(profileID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read cached snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse cached snapshot: %w", err)
	}
	return snap, nil
}

// publish sends ev on the shared events channel, tagged with this instance.
func (mgr *Manager) publish(ev Event) {
	if mgr.rdb == nil {
		return
	}
	ev.Origin = mgr.opts.InstanceID
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[REDIS] failed to encode %s event: %v", ev.Type, err)
		return
	}
	if err := mgr.rdb.Publish(context.Background(), rediskeys.MachineEventsChannel, data).Err(); err != nil {
		log.Printf("[REDIS] publish %s for profile=%d failed: %v", ev.Type, ev.ProfileID, err)
	}
}

// Tuning returns the constants every machine runs with.
func (mgr *Manager) Tuning() Tuning { return mgr.opts.Tuning }

// Running returns the IDs of every running machine in ascending order.
func (mgr *Manager) Running() []int {
	mgr.mu.RLock()
	ids := make([]int, 0, len(mgr.machines))
	for id := range mgr.machines {
		ids = append(ids, id)
	}
	mgr.mu.RUnlock()
	sort.Ints(ids)
	return ids
}

// Checkpoint saves a running machine without stopping it.
func (mgr *Manager) Checkpoint(ctx context.Context, profileID int) error {
	m, err := mgr.Get(profileID)
	if err != nil {
		return err
	}
	var (
		seq uint64
		st  *save.State
	)
	if err := m.do(func(*Session) { seq, st = m.capture(mgr.opts.Clock.Now()) }); err != nil {
		return err
	}
	return m.persist(ctx, mgr.store, seq, st)
}
