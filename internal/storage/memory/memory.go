// Package memory implements an in-process storage backend. It is the default
// for development and tests; state is lost on restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/onboardbuddy/internal/idgen"
	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/types"
)

// entry pairs a checklist with the lock that serializes its mutations.
type entry struct {
	mu sync.Mutex
	cl *types.Checklist
}

// MemoryStorage is a map-backed storage.Store.
type MemoryStorage struct {
	mu    sync.RWMutex
	byID  map[string]*entry
	order []string // checklist IDs in creation order

	pulseMu     sync.Mutex
	pulses      []types.PulseResponse
	enrollments map[string]types.PulseEnrollment

	now func() time.Time
}

var _ storage.Store = (*MemoryStorage)(nil)

// New creates an empty store.
func New() *MemoryStorage {
	return &MemoryStorage{
		byID:        make(map[string]*entry),
		enrollments: make(map[string]types.PulseEnrollment),
		now:         time.Now,
	}
}

func (m *MemoryStorage) Create(_ context.Context, employeeID, managerID, role string, items []storage.NewItem) (string, error) {
	now := m.now()
	cl := &types.Checklist{
		ID:         idgen.NewChecklistID(),
		EmployeeID: employeeID,
		ManagerID:  managerID,
		Role:       role,
		Items:      make([]*types.ChecklistItem, 0, len(items)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, it := range items {
		category := it.Category
		if category == "" {
			category = types.DefaultCategory
		}
		cl.Items = append(cl.Items, &types.ChecklistItem{
			ID:       idgen.NewItemID(),
			Text:     it.Text,
			Category: category,
		})
	}

	m.mu.Lock()
	m.byID[cl.ID] = &entry{cl: cl}
	m.order = append(m.order, cl.ID)
	m.mu.Unlock()
	return cl.ID, nil
}

func (m *MemoryStorage) lookup(id string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byID[id]
}

func (m *MemoryStorage) GetByID(_ context.Context, id string) (*types.Checklist, error) {
	e := m.lookup(id)
	if e == nil {
		return nil, storage.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cl.Clone(), nil
}

// snapshot returns entries in creation order without holding the map lock
// while individual checklists are read.
func (m *MemoryStorage) snapshot() []*entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

func (m *MemoryStorage) FindByEmployeeAndManager(_ context.Context, employeeID, managerID string) ([]*types.Checklist, error) {
	var out []*types.Checklist
	for _, e := range m.snapshot() {
		e.mu.Lock()
		cl := e.cl
		if (employeeID == "" || cl.EmployeeID == employeeID) && (managerID == "" || cl.ManagerID == managerID) {
			out = append(out, cl.Clone())
		}
		e.mu.Unlock()
	}
	return out, nil
}

func (m *MemoryStorage) SetItemCompletion(_ context.Context, checklistID, itemID string, completed bool) (bool, error) {
	e := m.lookup(checklistID)
	if e == nil {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	it := e.cl.Item(itemID)
	if it == nil {
		return false, nil
	}
	now := m.now()
	it.SetCompleted(completed, now)
	e.cl.UpdatedAt = now
	return true, nil
}

func (m *MemoryStorage) ToggleItem(_ context.Context, checklistID, itemID string) (bool, bool, error) {
	e := m.lookup(checklistID)
	if e == nil {
		return false, false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	it := e.cl.Item(itemID)
	if it == nil {
		return false, false, nil
	}
	now := m.now()
	it.SetCompleted(!it.Completed, now)
	e.cl.UpdatedAt = now
	return true, it.Completed, nil
}

func (m *MemoryStorage) ResolveItem(_ context.Context, itemID string) (*types.Checklist, *types.ChecklistItem, error) {
	if itemID == "" {
		return nil, nil, nil
	}
	for _, e := range m.snapshot() {
		e.mu.Lock()
		if e.cl.Item(itemID) != nil {
			cl := e.cl.Clone()
			e.mu.Unlock()
			return cl, cl.Item(itemID), nil
		}
		e.mu.Unlock()
	}
	return nil, nil, nil
}

func (m *MemoryStorage) ResolveItemByIDPrefix(_ context.Context, prefix string) (*types.Checklist, *types.ChecklistItem, error) {
	if prefix == "" {
		return nil, nil, nil
	}
	for _, e := range m.snapshot() {
		e.mu.Lock()
		for _, it := range e.cl.Items {
			if strings.HasPrefix(it.ID, prefix) {
				cl := e.cl.Clone()
				e.mu.Unlock()
				return cl, cl.Item(it.ID), nil
			}
		}
		e.mu.Unlock()
	}
	return nil, nil, nil
}

func (m *MemoryStorage) Close() error { return nil }

// ---------- Pulse ----------

func (m *MemoryStorage) RecordPulse(_ context.Context, resp types.PulseResponse) error {
	if resp.RecordedAt.IsZero() {
		resp.RecordedAt = m.now()
	}
	m.pulseMu.Lock()
	m.pulses = append(m.pulses, resp)
	m.pulseMu.Unlock()
	return nil
}

func (m *MemoryStorage) ListPulses(_ context.Context, userID string) ([]types.PulseResponse, error) {
	m.pulseMu.Lock()
	defer m.pulseMu.Unlock()
	var out []types.PulseResponse
	for _, p := range m.pulses {
		if userID == "" || p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStorage) SaveEnrollment(_ context.Context, e types.PulseEnrollment) error {
	m.pulseMu.Lock()
	defer m.pulseMu.Unlock()
	if prev, ok := m.enrollments[e.UserID]; ok && e.LastSent == "" {
		e.LastSent = prev.LastSent
	}
	e.Times = append([]types.PulseTime(nil), e.Times...)
	m.enrollments[e.UserID] = e
	return nil
}

func (m *MemoryStorage) ListEnrollments(_ context.Context) ([]types.PulseEnrollment, error) {
	m.pulseMu.Lock()
	defer m.pulseMu.Unlock()
	out := make([]types.PulseEnrollment, 0, len(m.enrollments))
	for _, e := range m.enrollments {
		e.Times = append([]types.PulseTime(nil), e.Times...)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryStorage) MarkPulseSent(_ context.Context, userID, day string) (bool, error) {
	m.pulseMu.Lock()
	defer m.pulseMu.Unlock()
	e, ok := m.enrollments[userID]
	if !ok {
		return false, storage.ErrNotFound
	}
	if e.LastSent == day {
		return false, nil
	}
	e.LastSent = day
	m.enrollments[userID] = e
	return true, nil
}
