package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) Store {
	t.Helper()

	st, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Ping())
	return st
}

func testRun(id string, started time.Time) *RunRecord {
	return &RunRecord{
		ID:        id,
		Model:     "persistence",
		Date:      20230101,
		Time:      12,
		LeadTime:  240,
		Input:     "mars",
		Output:    "file",
		Path:      "persistence.nc",
		Status:    RunStatusCompleted,
		StartedAt: started,
		Duration:  3 * time.Minute,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	st := openTestStore(t)

	want := testRun("run-1", time.Now().UTC())
	require.NoError(t, st.SaveRun(want))

	got, err := st.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, want.Model, got.Model)
	assert.Equal(t, want.Date, got.Date)
	assert.Equal(t, want.LeadTime, got.LeadTime)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Duration, got.Duration)
}

func TestGetRunNotFound(t *testing.T) {
	st := openTestStore(t)

	got, err := st.GetRun("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveRunRequiresID(t *testing.T) {
	st := openTestStore(t)
	assert.Error(t, st.SaveRun(&RunRecord{}))
}

func TestListRunsNewestFirst(t *testing.T) {
	st := openTestStore(t)

	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, st.SaveRun(testRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := st.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Equal(t, "old", runs[2].ID)

	limited, err := st.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "new", limited[0].ID)
}

func TestSaveAndListAssets(t *testing.T) {
	st := openTestStore(t)

	now := time.Now().UTC()
	require.NoError(t, st.SaveAsset(&AssetRecord{
		Path: "/assets/a.bin", Model: "persistence", Size: 10, DownloadedAt: now,
	}))
	require.NoError(t, st.SaveAsset(&AssetRecord{
		Path: "/assets/b.bin", Model: "other", Size: 20, DownloadedAt: now,
	}))

	all, err := st.ListAssets("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := st.ListAssets("persistence")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "/assets/a.bin", mine[0].Path)
}

func TestSaveAssetRequiresPath(t *testing.T) {
	st := openTestStore(t)
	assert.Error(t, st.SaveAsset(&AssetRecord{}))
}
