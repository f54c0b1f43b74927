package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/types"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "buddy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// runRepositoryContract exercises the behaviour every storage.Store must share.
// It is reused by the Dolt integration test.
func runRepositoryContract(t *testing.T, s storage.Store) {
	ctx := context.Background()

	id, err := s.Create(ctx, "U123", "M1", "software-engineer", []storage.NewItem{
		{Text: "Set up laptop", Category: "First Day"},
		{Text: "Meet the team", Category: "First Day"},
		{Text: "Ship a fix", Category: "First Week"},
		{Text: "Read the handbook"},
	})
	require.NoError(t, err)

	cl, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "U123", cl.EmployeeID)
	assert.Equal(t, "M1", cl.ManagerID)
	require.Len(t, cl.Items, 4)
	assert.Equal(t, "Set up laptop", cl.Items[0].Text)
	assert.Equal(t, types.DefaultCategory, cl.Items[3].Category)

	_, err = s.GetByID(ctx, "cl-missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)

	ok, err := s.SetItemCompletion(ctx, id, cl.Items[1].ID, true)
	require.NoError(t, err)
	require.True(t, ok)
	first, _ := s.GetByID(ctx, id)
	require.NotNil(t, first.Items[1].CompletedAt)

	// Completing twice keeps the first timestamp.
	ok, err = s.SetItemCompletion(ctx, id, cl.Items[1].ID, true)
	require.NoError(t, err)
	require.True(t, ok)
	second, _ := s.GetByID(ctx, id)
	assert.True(t, first.Items[1].CompletedAt.Equal(*second.Items[1].CompletedAt))

	ok, err = s.SetItemCompletion(ctx, id, "item-nope", true)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.SetItemCompletion(ctx, "cl-nope", cl.Items[0].ID, true)
	require.NoError(t, err)
	assert.False(t, ok)

	found, completed, err := s.ToggleItem(ctx, id, cl.Items[1].ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, completed)
	after, _ := s.GetByID(ctx, id)
	assert.Nil(t, after.Items[1].CompletedAt)

	other, err := s.Create(ctx, "U999", "M1", "designer", []storage.NewItem{{Text: "x"}})
	require.NoError(t, err)

	list, err := s.FindByEmployeeAndManager(ctx, "", "M1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, other, list[1].ID)

	list, err = s.FindByEmployeeAndManager(ctx, "U999", "")
	require.NoError(t, err)
	require.Len(t, list, 1)

	target := cl.Items[2]
	rcl, rit, err := s.ResolveItemByIDPrefix(ctx, target.ID[:len(target.ID)-3])
	require.NoError(t, err)
	require.NotNil(t, rit)
	assert.Equal(t, target.ID, rit.ID)
	assert.Equal(t, id, rcl.ID)

	_, rit, err = s.ResolveItemByIDPrefix(ctx, "item-zzzzzzzzzzzzzzzzzzzzzz")
	require.NoError(t, err)
	assert.Nil(t, rit)

	rcl, rit, err = s.ResolveItem(ctx, target.ID)
	require.NoError(t, err)
	require.NotNil(t, rit)
	assert.Equal(t, target.ID, rit.ID)
	assert.Equal(t, id, rcl.ID)

	// Exact lookup never matches on a prefix.
	_, rit, err = s.ResolveItem(ctx, target.ID[:len(target.ID)-3])
	require.NoError(t, err)
	assert.Nil(t, rit)
	_, rit, err = s.ResolveItem(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, rit)

	// Pulse data.
	require.NoError(t, s.RecordPulse(ctx, types.PulseResponse{UserID: "U1", Dimension: "energy", Level: types.PulseHigh}))
	pulses, err := s.ListPulses(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, pulses, 1)
	assert.Equal(t, types.PulseHigh, pulses[0].Level)

	_, err = s.MarkPulseSent(ctx, "U1", "2025-03-01")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)

	require.NoError(t, s.SaveEnrollment(ctx, types.PulseEnrollment{
		UserID: "U1", ChannelID: "D1", Times: []types.PulseTime{{Hour: 9, Minute: 30}, {Hour: 15}},
	}))
	sent, err := s.MarkPulseSent(ctx, "U1", "2025-03-01")
	require.NoError(t, err)
	assert.True(t, sent)
	sent, err = s.MarkPulseSent(ctx, "U1", "2025-03-01")
	require.NoError(t, err)
	assert.False(t, sent)

	// Re-enrolling keeps the last delivery day.
	require.NoError(t, s.SaveEnrollment(ctx, types.PulseEnrollment{UserID: "U1", ChannelID: "D2", Times: []types.PulseTime{{Hour: 11}}}))
	enr, err := s.ListEnrollments(ctx)
	require.NoError(t, err)
	require.Len(t, enr, 1)
	assert.Equal(t, "D2", enr[0].ChannelID)
	assert.Equal(t, "2025-03-01", enr[0].LastSent)
	assert.Equal(t, []types.PulseTime{{Hour: 11}}, enr[0].Times)
}

func TestSQLiteRepositoryContract(t *testing.T) {
	runRepositoryContract(t, setupTestDB(t))
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "buddy.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	id, err := s.Create(ctx, "U1", "M1", "hr", []storage.NewItem{{Text: "Sign forms"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	cl, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Sign forms", cl.Items[0].Text)
}

func TestSQLiteConcurrentToggles(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	id, err := s.Create(ctx, "U1", "M1", "hr", []storage.NewItem{{Text: "x"}})
	require.NoError(t, err)
	cl, _ := s.GetByID(ctx, id)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.ToggleItem(ctx, id, cl.Items[0].ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _ := s.GetByID(ctx, id)
	assert.False(t, got.Items[0].Completed)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("driver: bad connection"), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("Error 1064: syntax error"), false},
	}
	for _, tt := range tests {
		if got := isRetryableError(tt.err); got != tt.want {
			t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestBuildServerDSN(t *testing.T) {
	cfg := ServerConfig{User: "root", Password: "pw", Host: "db", Port: 3307, TLS: true}
	got := buildServerDSN(cfg, "buddy")
	want := "root:pw@tcp(db:3307)/buddy?parseTime=true&tls=true"
	if got != want {
		t.Errorf("buildServerDSN() = %q, want %q", got, want)
	}
}

func TestValidateDatabaseName(t *testing.T) {
	assert.NoError(t, validateDatabaseName("onboard_buddy1"))
	assert.Error(t, validateDatabaseName("bad`name"))
	assert.Error(t, validateDatabaseName(""))
}
