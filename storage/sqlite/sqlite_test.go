package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/leadflow/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndCount(t *testing.T) {
	s := openTestStore(t)

	rec := core.LeadRecord{
		ID:        core.NewID(),
		VerdictID: core.NewID(),
		Kind:      core.DialogueLead,
		Score:     88,
		Band:      core.BandHot,
		Degraded:  false,
		ChannelID: "ch",
		SubjectID: "sess-1",
		Extras:    core.AnalysisExtras{BuyingSignals: []string{"asked for pricing"}},
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Append(context.Background(), rec))

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAppendDuplicateIDFails(t *testing.T) {
	s := openTestStore(t)

	rec := core.LeadRecord{ID: "same", VerdictID: "v1", ChannelID: "ch", SubjectID: "u1", CreatedAt: time.Now()}
	require.NoError(t, s.Append(context.Background(), rec))
	assert.Error(t, s.Append(context.Background(), rec))
}
