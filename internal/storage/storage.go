// Package storage defines the persistence boundary for checklists and
// well-being pulse data.
//
// Implementations live in the memory and sqlstore sub-packages; the factory
// sub-package picks one from configuration.
package storage

import (
	"context"
	"errors"

	"github.com/steveyegge/onboardbuddy/internal/types"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// NewItem is the caller-supplied part of a checklist item at creation time.
type NewItem struct {
	Text     string
	Category string
}

// ChecklistRepository stores checklists and is the single source of truth for
// item completion state. Returned checklists are copies; mutating them has no
// effect on the store.
type ChecklistRepository interface {
	// Create assigns IDs and timestamps and stores a new checklist.
	Create(ctx context.Context, employeeID, managerID, role string, items []NewItem) (string, error)

	// GetByID returns ErrNotFound when no checklist has the given ID.
	GetByID(ctx context.Context, id string) (*types.Checklist, error)

	// FindByEmployeeAndManager filters on either ID; an empty filter matches
	// everything. Results are ordered by creation time.
	FindByEmployeeAndManager(ctx context.Context, employeeID, managerID string) ([]*types.Checklist, error)

	// SetItemCompletion returns false (and no error) when the checklist or item
	// does not exist.
	SetItemCompletion(ctx context.Context, checklistID, itemID string, completed bool) (bool, error)

	// ToggleItem flips an item's completion atomically and returns the new state.
	ToggleItem(ctx context.Context, checklistID, itemID string) (found bool, completed bool, err error)

	// ResolveItem finds the checklist owning the item with exactly itemID. A
	// missing item yields nil, nil, nil.
	ResolveItem(ctx context.Context, itemID string) (*types.Checklist, *types.ChecklistItem, error)

	// ResolveItemByIDPrefix scans all items for the first whose ID starts with
	// prefix, in checklist creation order then item order. It exists for legacy
	// action IDs that carry a truncated item ID; use ResolveItem otherwise.
	ResolveItemByIDPrefix(ctx context.Context, prefix string) (*types.Checklist, *types.ChecklistItem, error)

	Close() error
}

// PulseRepository stores well-being responses and pulse enrollments.
type PulseRepository interface {
	RecordPulse(ctx context.Context, resp types.PulseResponse) error
	// ListPulses returns responses for one user, or everyone when userID is empty.
	ListPulses(ctx context.Context, userID string) ([]types.PulseResponse, error)

	SaveEnrollment(ctx context.Context, e types.PulseEnrollment) error
	ListEnrollments(ctx context.Context) ([]types.PulseEnrollment, error)
	// MarkPulseSent records the day a scheduled pulse went out. It reports
	// false when the user already had a pulse on that day.
	MarkPulseSent(ctx context.Context, userID, day string) (bool, error)
}

// Store is the full persistence surface used by the bot.
type Store interface {
	ChecklistRepository
	PulseRepository
}
