// Package types defines the core data structures for the onboarding bot.
package types

import (
	"math"
	"time"
)

// DefaultCategory is used for items parsed from text without section markers.
const DefaultCategory = "General"

// ChecklistItem is a single onboarding task.
type ChecklistItem struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Category    string     `json:"category"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"` // non-nil iff Completed
}

// SetCompleted updates the completion flag and keeps CompletedAt consistent with it.
func (it *ChecklistItem) SetCompleted(completed bool, now time.Time) {
	it.Completed = completed
	if completed {
		if it.CompletedAt == nil {
			t := now
			it.CompletedAt = &t
		}
		return
	}
	it.CompletedAt = nil
}

// Checklist is an onboarding task list assigned to one employee by one manager.
type Checklist struct {
	ID         string           `json:"id"`
	EmployeeID string           `json:"employee_id"`
	ManagerID  string           `json:"manager_id"`
	Role       string           `json:"role"`
	Items      []*ChecklistItem `json:"items"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Clone returns a deep copy so callers never alias store state.
func (c *Checklist) Clone() *Checklist {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]*ChecklistItem, len(c.Items))
	for i, it := range c.Items {
		cp := *it
		if it.CompletedAt != nil {
			t := *it.CompletedAt
			cp.CompletedAt = &t
		}
		out.Items[i] = &cp
	}
	return &out
}

// Item returns the item with the given ID, or nil.
func (c *Checklist) Item(id string) *ChecklistItem {
	for _, it := range c.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// CategoryGroup is the items of one category, in discovery order.
type CategoryGroup struct {
	Name  string
	Items []*ChecklistItem
}

// Categories groups items by category in order of first appearance.
func (c *Checklist) Categories() []CategoryGroup {
	var groups []CategoryGroup
	index := make(map[string]int)
	for _, it := range c.Items {
		name := it.Category
		if name == "" {
			name = DefaultCategory
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, CategoryGroup{Name: name})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

// Progress summarizes completion of a set of items.
type Progress struct {
	Completed int
	Total     int
}

// Percent returns round(100*Completed/Total), or 0 for an empty set.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(p.Completed) / float64(p.Total)))
}

// ProgressOf counts completed items.
func ProgressOf(items []*ChecklistItem) Progress {
	p := Progress{Total: len(items)}
	for _, it := range items {
		if it.Completed {
			p.Completed++
		}
	}
	return p
}

// Progress returns the checklist-wide completion summary.
func (c *Checklist) Progress() Progress {
	return ProgressOf(c.Items)
}
