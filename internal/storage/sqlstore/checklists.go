package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/steveyegge/onboardbuddy/internal/idgen"
	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/types"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) Create(ctx context.Context, employeeID, managerID, role string, items []storage.NewItem) (string, error) {
	now := s.now()
	id := idgen.NewChecklistID()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checklists (id, employee_id, manager_id, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			id, employeeID, managerID, role, toNanos(now), toNanos(now),
		); err != nil {
			return fmt.Errorf("insert checklist: %w", err)
		}
		for i, it := range items {
			category := it.Category
			if category == "" {
				category = types.DefaultCategory
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO checklist_items (id, checklist_id, position, text, category, completed) VALUES (?, ?, ?, ?, ?, 0)`,
				idgen.NewItemID(), id, i, it.Text, category,
			); err != nil {
				return fmt.Errorf("insert checklist item %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*types.Checklist, error) {
	var cl *types.Checklist
	err := s.withRetry(ctx, func() error {
		var err error
		cl, err = s.loadChecklist(ctx, s.db, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cl, nil
}

// loadChecklist reads a checklist and its items.
func (s *Store) loadChecklist(ctx context.Context, q queryer, id string) (*types.Checklist, error) {
	var (
		cl               types.Checklist
		created, updated int64
	)
	row := q.QueryRowContext(ctx,
		`SELECT id, employee_id, manager_id, role, created_at, updated_at FROM checklists WHERE id = ?`, id)
	if err := row.Scan(&cl.ID, &cl.EmployeeID, &cl.ManagerID, &cl.Role, &created, &updated); err != nil {
		return nil, wrapDBError("get checklist "+id, err)
	}
	cl.CreatedAt = fromNanos(created)
	cl.UpdatedAt = fromNanos(updated)

	rows, err := q.QueryContext(ctx,
		`SELECT id, text, category, completed, completed_at FROM checklist_items WHERE checklist_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, wrapDBError("get checklist items", err)
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		cl.Items = append(cl.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("iterate checklist items", err)
	}
	return &cl, nil
}

func scanItem(rows *sql.Rows) (*types.ChecklistItem, error) {
	var (
		it          types.ChecklistItem
		completed   int
		completedAt sql.NullInt64
	)
	if err := rows.Scan(&it.ID, &it.Text, &it.Category, &completed, &completedAt); err != nil {
		return nil, fmt.Errorf("scan checklist item: %w", err)
	}
	it.Completed = completed != 0
	if completedAt.Valid {
		t := fromNanos(completedAt.Int64)
		it.CompletedAt = &t
	}
	return &it, nil
}

func (s *Store) FindByEmployeeAndManager(ctx context.Context, employeeID, managerID string) ([]*types.Checklist, error) {
	var (
		where []string
		args  []any
	)
	if employeeID != "" {
		where = append(where, "employee_id = ?")
		args = append(args, employeeID)
	}
	if managerID != "" {
		where = append(where, "manager_id = ?")
		args = append(args, managerID)
	}
	query := `SELECT id FROM checklists`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	var ids []string
	err := s.withRetry(ctx, func() error {
		ids = ids[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapDBError("find checklists", err)
	}

	out := make([]*types.Checklist, 0, len(ids))
	for _, id := range ids {
		cl, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	return out, nil
}

// mutateItem locks the checklist row, applies fn to the current completion
// state and writes the result back.
func (s *Store) mutateItem(ctx context.Context, checklistID, itemID string, fn func(current bool) bool) (bool, bool, error) {
	var found, completed bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		found, completed = false, false

		var locked string
		err := tx.QueryRowContext(ctx, `SELECT id FROM checklists WHERE id = ?`+s.dialect.forUpdate, checklistID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock checklist: %w", err)
		}

		var (
			current     int
			completedAt sql.NullInt64
		)
		err = tx.QueryRowContext(ctx,
			`SELECT completed, completed_at FROM checklist_items WHERE id = ? AND checklist_id = ?`+s.dialect.forUpdate,
			itemID, checklistID,
		).Scan(&current, &completedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read item: %w", err)
		}

		now := s.now()
		next := fn(current != 0)
		var at any
		switch {
		case next && completedAt.Valid:
			at = completedAt.Int64
		case next:
			at = toNanos(now)
		default:
			at = nil
		}
		flag := 0
		if next {
			flag = 1
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE checklist_items SET completed = ?, completed_at = ? WHERE id = ?`, flag, at, itemID); err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE checklists SET updated_at = ? WHERE id = ?`, toNanos(now), checklistID); err != nil {
			return fmt.Errorf("touch checklist: %w", err)
		}
		found, completed = true, next
		return nil
	})
	return found, completed, err
}

func (s *Store) SetItemCompletion(ctx context.Context, checklistID, itemID string, completed bool) (bool, error) {
	found, _, err := s.mutateItem(ctx, checklistID, itemID, func(bool) bool { return completed })
	return found, err
}

func (s *Store) ToggleItem(ctx context.Context, checklistID, itemID string) (bool, bool, error) {
	return s.mutateItem(ctx, checklistID, itemID, func(current bool) bool { return !current })
}

func (s *Store) ResolveItem(ctx context.Context, itemID string) (*types.Checklist, *types.ChecklistItem, error) {
	if itemID == "" {
		return nil, nil, nil
	}
	var checklistID string
	err := s.withRetry(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT i.checklist_id FROM checklist_items i WHERE i.id = ?`, itemID).Scan(&checklistID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, wrapDBError("resolve item", err)
	}
	cl, err := s.GetByID(ctx, checklistID)
	if err != nil {
		return nil, nil, err
	}
	return cl, cl.Item(itemID), nil
}

func (s *Store) ResolveItemByIDPrefix(ctx context.Context, prefix string) (*types.Checklist, *types.ChecklistItem, error) {
	if prefix == "" {
		return nil, nil, nil
	}
	var itemID, checklistID string
	err := s.withRetry(ctx, func() error {
		return s.db.QueryRowContext(ctx, `
SELECT i.id, i.checklist_id
FROM checklist_items i JOIN checklists c ON c.id = i.checklist_id
WHERE SUBSTR(i.id, 1, ?) = ?
ORDER BY c.created_at, c.id, i.position
LIMIT 1`, len(prefix), prefix).Scan(&itemID, &checklistID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, wrapDBError("resolve item prefix", err)
	}
	cl, err := s.GetByID(ctx, checklistID)
	if err != nil {
		return nil, nil, err
	}
	return cl, cl.Item(itemID), nil
}
