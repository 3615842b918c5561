package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(name string) ConnectionRecord {
	return ConnectionRecord{Name: name, ProfileURL: "https://www.linkedin.com/in/" + name}
}

func TestMergeDedupes(t *testing.T) {
	page1 := []ConnectionRecord{rec("a"), rec("b"), rec("c")}
	page2 := []ConnectionRecord{rec("c"), rec("d"), rec("d")}

	merged, r1 := Merge(nil, page1)
	assert.Equal(t, MergeResult{Added: 3}, r1)

	merged, r2 := Merge(merged, page2)
	assert.Equal(t, MergeResult{Added: 1, Duplicates: 2}, r2)

	var urls []string
	for _, r := range merged {
		urls = append(urls, r.ProfileURL)
	}
	assert.Equal(t, []string{
		"https://www.linkedin.com/in/a",
		"https://www.linkedin.com/in/b",
		"https://www.linkedin.com/in/c",
		"https://www.linkedin.com/in/d",
	}, urls)
}

func TestMergeIdempotent(t *testing.T) {
	page := []ConnectionRecord{rec("a"), rec("b")}

	merged, _ := Merge(nil, page)
	merged, again := Merge(merged, page)
	assert.Equal(t, 0, again.Added)
	assert.Equal(t, 2, again.Duplicates)
	assert.Len(t, merged, 2)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Create(ctx, &Session{
		ID:        "s1",
		TargetURL: "https://www.linkedin.com/in/jane",
		Status:    StatusRunning,
		AutoStart: true,
		StartedAt: time.Now(),
	}))

	res, err := store.MergeRecords(ctx, []ConnectionRecord{rec("a"), rec("b")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)

	page, err := store.AdvancePage(ctx, "https://www.linkedin.com/search/results/people/?page=2")
	require.NoError(t, err)
	assert.Equal(t, 1, page)

	require.NoError(t, store.SetStatus(ctx, StatusFailed, "navigation_timeout"))
	require.NoError(t, store.SetAutoStart(ctx, false))

	s, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, s.Status)
	assert.Equal(t, "navigation_timeout", s.Reason)
	assert.False(t, s.AutoStart)
	assert.Equal(t, 1, s.CurrentPageIndex)
	assert.Equal(t, "https://www.linkedin.com/search/results/people/?page=2", s.ListingURL)
	assert.Len(t, s.Records, 2)

	// Load возвращает копию
	s.Records[0].Name = "mutated"
	again, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Records[0].Name)

	require.NoError(t, store.Reset(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = store.MergeRecords(ctx, []ConnectionRecord{rec("c")})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusComplete.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusIdle.Terminal())
}

func TestMergeDoesNotWriteCallerBackingArray(t *testing.T) {
	backing := make([]ConnectionRecord, 1, 4)
	backing[0] = rec("a")

	merged, result := Merge(backing, []ConnectionRecord{rec("b")})
	assert.Equal(t, 1, result.Added)
	require.Len(t, merged, 2)

	// Запас ёмкости у вызывающего не тронут
	assert.Empty(t, backing[:2][1].ProfileURL)
}
