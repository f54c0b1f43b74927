package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/steveyegge/onboardbuddy/internal/idgen"
	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/types"
)

func (s *Store) RecordPulse(ctx context.Context, resp types.PulseResponse) error {
	if resp.RecordedAt.IsZero() {
		resp.RecordedAt = s.now()
	}
	id := idgen.New("pulse")
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO pulse_responses (id, user_id, dimension, level, recorded_at) VALUES (?, ?, ?, ?, ?)`,
			id, resp.UserID, resp.Dimension, string(resp.Level), toNanos(resp.RecordedAt))
		return err
	})
}

func (s *Store) ListPulses(ctx context.Context, userID string) ([]types.PulseResponse, error) {
	query := `SELECT user_id, dimension, level, recorded_at FROM pulse_responses`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY recorded_at, id`

	var out []types.PulseResponse
	err := s.withRetry(ctx, func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				p     types.PulseResponse
				level string
				at    int64
			)
			if err := rows.Scan(&p.UserID, &p.Dimension, &level, &at); err != nil {
				return err
			}
			p.Level = types.PulseLevel(level)
			p.RecordedAt = fromNanos(at)
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapDBError("list pulses", err)
	}
	return out, nil
}

func (s *Store) SaveEnrollment(ctx context.Context, e types.PulseEnrollment) error {
	times, err := json.Marshal(e.Times)
	if err != nil {
		return fmt.Errorf("encode pulse times: %w", err)
	}
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, s.dialect.upsertEnrollment, e.UserID, e.ChannelID, string(times), e.LastSent)
		return err
	})
}

func (s *Store) ListEnrollments(ctx context.Context) ([]types.PulseEnrollment, error) {
	var out []types.PulseEnrollment
	err := s.withRetry(ctx, func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx,
			`SELECT user_id, channel_id, times, last_sent FROM pulse_enrollments ORDER BY user_id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				e     types.PulseEnrollment
				times string
			)
			if err := rows.Scan(&e.UserID, &e.ChannelID, &times, &e.LastSent); err != nil {
				return err
			}
			if err := json.Unmarshal([]byte(times), &e.Times); err != nil {
				return fmt.Errorf("decode pulse times for %s: %w", e.UserID, err)
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapDBError("list enrollments", err)
	}
	return out, nil
}

func (s *Store) MarkPulseSent(ctx context.Context, userID, day string) (bool, error) {
	var sent bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sent = false
		var last string
		err := tx.QueryRowContext(ctx,
			`SELECT last_sent FROM pulse_enrollments WHERE user_id = ?`+s.dialect.forUpdate, userID).Scan(&last)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		if last == day {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE pulse_enrollments SET last_sent = ? WHERE user_id = ?`, day, userID); err != nil {
			return err
		}
		sent = true
		return nil
	})
	if err != nil {
		return false, wrapDBError("mark pulse sent", err)
	}
	return sent, nil
}
