package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inovacc/aimodels/internal/mars"
)

func TestResolveDate(t *testing.T) {
	now := time.Date(2023, 3, 1, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		date int
		want int
	}{
		{name: "explicit date", date: 20230215, want: 20230215},
		{name: "yesterday", date: -1, want: 20230228},
		{name: "today", date: 0, want: 20230301},
		{name: "a week ago", date: -7, want: 20230222},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveDate(tt.date, now))
		})
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		name    string
		in      int
		want    int
		wantErr bool
	}{
		{name: "hour form", in: 12, want: 12},
		{name: "hhmm form", in: 1200, want: 12},
		{name: "midnight", in: 0, want: 0},
		{name: "six", in: 6, want: 6},
		{name: "eighteen hhmm", in: 1800, want: 18},
		{name: "invalid hour", in: 9, wantErr: true},
		{name: "invalid hhmm", in: 930, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalysisDateTimes(t *testing.T) {
	t.Run("no lag", func(t *testing.T) {
		got := AnalysisDateTimes(20230101, 12, nil)
		assert.Equal(t, []mars.DateTime{{Date: 20230101, Time: 12}}, got)
	})

	t.Run("lagged", func(t *testing.T) {
		got := AnalysisDateTimes(20230101, 12, []int{-6, 0})
		assert.Equal(t, []mars.DateTime{
			{Date: 20230101, Time: 6},
			{Date: 20230101, Time: 12},
		}, got)
	})

	t.Run("lag crosses midnight", func(t *testing.T) {
		got := AnalysisDateTimes(20230101, 0, []int{-6, 0})
		assert.Equal(t, []mars.DateTime{
			{Date: 20221231, Time: 18},
			{Date: 20230101, Time: 0},
		}, got)
	})
}

func TestStagingDateTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.txt")
	content := "2023-01-01T12:00:00\n\n2023-01-02T00:00:00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := StagingDateTimes(path, []int{-6, 0})
	require.NoError(t, err)

	assert.Equal(t, []mars.DateTime{
		{Date: 20230101, Time: 6},
		{Date: 20230101, Time: 12},
		{Date: 20230101, Time: 18},
		{Date: 20230102, Time: 0},
	}, got)
}

func TestStagingDateTimesBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.txt")
	require.NoError(t, os.WriteFile(path, []byte("not-a-date\n"), 0o644))

	_, err := StagingDateTimes(path, nil)
	assert.Error(t, err)
}
