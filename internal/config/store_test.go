package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadReturnsSeededSnapshot(t *testing.T) {
	snap := &Snapshot{AppDir: "/repo"}
	store := NewStore(snap)

	got := store.Load()
	require.Same(t, snap, got)
}

func TestStore_UpdateInstallsNewSnapshot(t *testing.T) {
	store := NewStore(&Snapshot{AppDir: "/repo"})

	updated := store.Update(func(cur *Snapshot) *Snapshot {
		next := *cur
		next.AppDir = "/other"
		return &next
	})

	assert.Equal(t, "/other", updated.AppDir)
	assert.Equal(t, "/other", store.Load().AppDir)
}

func TestStore_ConcurrentLoadNeverObservesPartialUpdate(t *testing.T) {
	store := NewStore(&Snapshot{AppDir: "start"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Load().AppDir
		}()
		go func(n int) {
			defer wg.Done()
			store.Update(func(cur *Snapshot) *Snapshot {
				next := *cur
				next.AppDir = "updated"
				return &next
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, "updated", store.Load().AppDir)
}

func TestApplyUpdate_OnlyAllowedKeys(t *testing.T) {
	current := &Snapshot{EndPoint: "old", APIKey: "old-key", AppDir: "/repo"}

	next := ApplyUpdate(current, map[string]string{
		"end_point": "new",
		"api_key":   "new-key",
		"app_dir":   "/new-repo",
		"unknown":   "ignored",
	})

	assert.Equal(t, "new", next.EndPoint)
	assert.Equal(t, "new-key", next.APIKey)
	assert.Equal(t, "/new-repo", next.AppDir)
	assert.NotSame(t, current, next)
	assert.Equal(t, "old", current.EndPoint, "original snapshot must be untouched")
}
