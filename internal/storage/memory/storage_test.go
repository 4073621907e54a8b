package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.Store = New()
	s.Ctx = context.Background()
}

func TestReturnedMarkersAreCopies(t *testing.T) {
	ctx := context.Background()
	st := New()
	require.NoError(t, st.AddMarker(ctx, &model.Marker{ID: "m1", CreatedBy: "alice", Timestamp: time.Now()}))

	list, err := st.ListMarkers(ctx)
	require.NoError(t, err)
	list[0].CreatedBy = "mallory"

	list, err = st.ListMarkers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", list[0].CreatedBy)
}
