package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/vending-machine/internal/core/domain"
	"github.com/rl1809/vending-machine/internal/port"
)

// InitRequest carries the starting state of a machine.
type InitRequest struct {
	Owner  string
	Admins []string
	Counts map[string]uint64
}

// Result is what a committed command reports back to its caller.
type Result struct {
	CommandID string         `json:"command_id"`
	Events    []domain.Event `json:"events"`
}

type Option func(*Machine)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithEventQueue publishes committed journal entries on a buffered queue of
// the given size. Consumers read it through Events.
func WithEventQueue(size int) Option {
	return func(m *Machine) {
		if size > 0 {
			m.events = make(chan port.Journal, size)
		}
	}
}

func WithIDGenerator(next func() string) Option {
	return func(m *Machine) {
		if next != nil {
			m.newID = next
		}
	}
}

// Machine applies commands to persisted state one at a time. Every command
// loads a snapshot, runs a pure transition and commits the staged result in
// a single write, or fails without writing.
type Machine struct {
	store  port.StateStore
	mode   domain.AccessMode
	logger *zap.Logger
	newID  func() string

	mu sync.Mutex

	pubMu  sync.RWMutex
	events chan port.Journal
	closed bool
}

func NewMachine(store port.StateStore, mode domain.AccessMode, opts ...Option) *Machine {
	m := &Machine{
		store:  store,
		mode:   mode,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Mode() domain.AccessMode {
	return m.mode
}

// Init establishes the initial inventory and access state.
func (m *Machine) Init(ctx context.Context, caller domain.Principal, req InitRequest) error {
	state, err := m.initialState(caller, req)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap, err := m.store.Load(ctx, stateKeys(m.mode))
	if err != nil {
		return storageError("load state", err)
	}
	if _, ok := snap.Values[KeyInventory]; ok {
		return domain.ErrAlreadyInitialized
	}
	values, err := encodeState(state)
	if err != nil {
		return storageError("stage state", err)
	}
	if err := m.store.Commit(ctx, snap.Version, values); err != nil {
		return storageError("commit state", err)
	}

	m.logger.Info("machine initialized",
		zap.String("mode", string(m.mode)),
		zap.String("caller", caller.String()),
		zap.Any("counts", state.Inventory.Counts()),
	)
	return nil
}

func (m *Machine) initialState(caller domain.Principal, req InitRequest) (domain.State, error) {
	counts := make(map[domain.Category]uint64, len(req.Counts))
	seen := make(map[domain.Category]string, len(req.Counts))
	for _, name := range sortedKeys(req.Counts) {
		c, err := domain.ParseCategory(name)
		if err != nil {
			return domain.State{}, err
		}
		if prev, ok := seen[c]; ok {
			return domain.State{}, fmt.Errorf("%w: %q and %q both name %s",
				domain.ErrInvalidMessage, prev, name, c.Key())
		}
		seen[c] = name
		counts[c] = req.Counts[name]
	}
	state := domain.State{
		Inventory: domain.NewInventory(counts),
		Access:    domain.Access{Mode: m.mode},
	}

	switch m.mode {
	case domain.AccessModeOwner:
		if len(req.Admins) > 0 {
			return domain.State{}, fmt.Errorf("%w: admins are not accepted in owner mode", domain.ErrInvalidMessage)
		}
		state.Access.Owner = caller
		if req.Owner != "" {
			owner, err := domain.ParsePrincipal(req.Owner)
			if err != nil {
				return domain.State{}, err
			}
			state.Access.Owner = owner
		}
	default:
		if req.Owner != "" {
			return domain.State{}, fmt.Errorf("%w: owner is not accepted in admins mode", domain.ErrInvalidMessage)
		}
		members, err := domain.ParsePrincipals(req.Admins)
		if err != nil {
			return domain.State{}, err
		}
		admins, err := domain.NewAdminSet(members)
		if err != nil {
			return domain.State{}, err
		}
		state.Access.Admins = admins
	}
	return state, nil
}

func (m *Machine) GetItem(ctx context.Context, caller domain.Principal, category string, amount uint64) (Result, error) {
	return m.execute(ctx, "get_item", caller, func(st domain.State) (domain.State, []domain.Event, error) {
		return st.GetItem(category, amount)
	})
}

func (m *Machine) Refill(ctx context.Context, caller domain.Principal, number uint64) (Result, error) {
	return m.execute(ctx, "refill", caller, func(st domain.State) (domain.State, []domain.Event, error) {
		return st.Refill(caller, number)
	})
}

func (m *Machine) AddMembers(ctx context.Context, caller domain.Principal, admins []domain.Principal) (Result, error) {
	return m.execute(ctx, "add_members", caller, func(st domain.State) (domain.State, []domain.Event, error) {
		return st.AddMembers(caller, admins)
	})
}

func (m *Machine) Leave(ctx context.Context, caller domain.Principal) (Result, error) {
	return m.execute(ctx, "leave", caller, func(st domain.State) (domain.State, []domain.Event, error) {
		return st.Leave(caller)
	})
}

// ItemsCount returns the counts of the last committed state.
func (m *Machine) ItemsCount(ctx context.Context) (map[string]uint64, error) {
	st, err := m.read(ctx)
	if err != nil {
		return nil, err
	}
	return st.Inventory.Counts(), nil
}

// AdminsList returns the principals holding privileged authority.
func (m *Machine) AdminsList(ctx context.Context) ([]string, error) {
	st, err := m.read(ctx)
	if err != nil {
		return nil, err
	}
	principals := st.Access.Principals()
	out := make([]string, 0, len(principals))
	for _, p := range principals {
		out = append(out, p.String())
	}
	return out, nil
}

func (m *Machine) Events() <-chan port.Journal {
	return m.events
}

// Close stops publishing and closes the event queue.
func (m *Machine) Close() {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	if m.events != nil {
		close(m.events)
	}
}

type transition func(domain.State) (domain.State, []domain.Event, error)

func (m *Machine) execute(ctx context.Context, command string, caller domain.Principal, fn transition) (Result, error) {
	start := time.Now()
	result := Result{CommandID: m.newID()}

	events, err := m.apply(ctx, fn)
	fields := []zap.Field{
		zap.String("command", command),
		zap.String("command_id", result.CommandID),
		zap.String("caller", caller.String()),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		if errors.Is(err, domain.ErrStorageFailure) {
			m.logger.Error("command failed", fields...)
		} else {
			m.logger.Warn("command rejected", fields...)
		}
		return Result{}, err
	}

	result.Events = events
	if result.Events == nil {
		result.Events = []domain.Event{}
	}
	m.logger.Info("command committed", append(fields, zap.Int("events", len(events)))...)
	if len(events) > 0 {
		m.publish(ctx, port.Journal{
			CommandID: result.CommandID,
			Command:   command,
			Caller:    caller,
			Events:    events,
		})
	}
	return result, nil
}

func (m *Machine) apply(ctx context.Context, fn transition) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, st, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	next, events, err := fn(st)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}

	values, err := encodeState(next)
	if err != nil {
		return nil, storageError("stage state", err)
	}
	if err := m.store.Commit(ctx, snap.Version, values); err != nil {
		return nil, storageError("commit state", err)
	}
	return events, nil
}

func (m *Machine) read(ctx context.Context) (domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, st, err := m.load(ctx)
	return st, err
}

func (m *Machine) load(ctx context.Context) (port.Snapshot, domain.State, error) {
	snap, err := m.store.Load(ctx, stateKeys(m.mode))
	if err != nil {
		return port.Snapshot{}, domain.State{}, storageError("load state", err)
	}
	raw, ok := snap.Values[KeyInventory]
	if !ok {
		return port.Snapshot{}, domain.State{}, domain.ErrNotInitialized
	}
	inventory, err := decodeInventory(raw)
	if err != nil {
		return port.Snapshot{}, domain.State{}, storageError("load state", err)
	}
	access, err := decodeAccess(m.mode, snap.Values)
	if err != nil {
		return port.Snapshot{}, domain.State{}, storageError("load state", err)
	}
	return snap, domain.State{Inventory: inventory, Access: access}, nil
}

func (m *Machine) publish(ctx context.Context, entry port.Journal) {
	m.pubMu.RLock()
	defer m.pubMu.RUnlock()
	if m.closed || m.events == nil {
		return
	}
	select {
	case m.events <- entry:
	case <-ctx.Done():
		m.logger.Warn("journal entry dropped",
			zap.String("command_id", entry.CommandID),
			zap.Error(ctx.Err()),
		)
	}
}

// sortedKeys fixes the order init counts are read in, so error messages
// name the same keys on every run.
func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageFailure, op, err)
}
