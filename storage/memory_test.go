package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/leadflow/core"
)

func TestInMemoryStoreAppendsInOrder(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Append(context.Background(), core.LeadRecord{ID: "r1", Score: 90}))
	require.NoError(t, s.Append(context.Background(), core.LeadRecord{ID: "r2", Score: 60}))

	recs := s.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "r1", recs[0].ID)
	assert.Equal(t, "r2", recs[1].ID)
}

func TestRecordsReturnsCopy(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Append(context.Background(), core.LeadRecord{ID: "r1"}))

	recs := s.Records()
	recs[0].ID = "mutated"
	assert.Equal(t, "r1", s.Records()[0].ID)
}
