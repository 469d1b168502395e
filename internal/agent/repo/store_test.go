package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
	"github.com/Chative-core-poc-v1/dialogue/pkg/sqlite"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSessionStore(rdb, ttl), mr
}

func newSQLiteStore(t *testing.T) *SQLiteSessionStore {
	t.Helper()
	cfg := sqlite.Config{Path: sqlite.MemoryPath}
	db, err := cfg.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := NewSQLiteSessionStore(context.Background(), db)
	require.NoError(t, err)
	return store
}

func stores(t *testing.T) map[string]model.SessionStore {
	t.Helper()
	rs, _ := newRedisStore(t, time.Hour)
	return map[string]model.SessionStore{
		"memory": NewMemorySessionStore(),
		"redis":  rs,
		"sqlite": newSQLiteStore(t),
	}
}

// lockingStores hold a session for the whole of an Update.
func lockingStores(t *testing.T) map[string]model.SessionStore {
	t.Helper()
	return map[string]model.SessionStore{
		"memory": NewMemorySessionStore(),
		"sqlite": newSQLiteStore(t),
	}
}

// blockedUpdate starts an Update on id that refreshes the session and waits
// for release before returning it.
func blockedUpdate(t *testing.T, store model.SessionStore, id string) (release func(), done <-chan error) {
	t.Helper()
	started := make(chan struct{})
	gate := make(chan struct{})
	errs := make(chan error, 1)
	go func() {
		_, err := store.Update(context.Background(), id, func(s *model.Session) (*model.Session, error) {
			close(started)
			<-gate
			s.AddMessage(model.RoleUser, "late turn")
			return s, nil
		})
		errs <- err
	}()
	<-started
	return func() { close(gate) }, errs
}

func TestSessionStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.Load(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, got)

			s := model.NewSession("abc")
			s.AddMessage(model.RoleUser, "hello")
			s.State.CurrentIntent = model.IntentGreeting
			s.State.ExtractedEntities["location"] = "petaling jaya"
			require.NoError(t, store.Save(ctx, s))

			got, err = store.Load(ctx, "abc")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "abc", got.ID)
			assert.Equal(t, model.IntentGreeting, got.State.CurrentIntent)
			assert.Equal(t, "petaling jaya", got.State.ExtractedEntities.String("location"))
			require.Len(t, got.Messages, 1)
			assert.True(t, s.CreatedAt.Equal(got.CreatedAt))

			require.NoError(t, store.Save(ctx, model.NewSession("abb")))
			ids, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"abb", "abc"}, ids)

			require.NoError(t, store.Delete(ctx, "abc"))
			got, err = store.Load(ctx, "abc")
			require.NoError(t, err)
			assert.Nil(t, got)

			assert.Error(t, store.Save(ctx, &model.Session{}))
		})
	}
}

func TestSessionStoreUpdate(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var sawNil bool
			s, err := store.Update(ctx, "u1", func(s *model.Session) (*model.Session, error) {
				sawNil = s == nil
				s = model.NewSession("u1")
				s.AddMessage(model.RoleUser, "first")
				return s, nil
			})
			require.NoError(t, err)
			assert.True(t, sawNil)
			assert.Len(t, s.Messages, 1)

			boom := errors.New("boom")
			_, err = store.Update(ctx, "u1", func(s *model.Session) (*model.Session, error) {
				s.AddMessage(model.RoleUser, "discarded")
				return nil, boom
			})
			require.ErrorIs(t, err, boom)

			got, err := store.Load(ctx, "u1")
			require.NoError(t, err)
			assert.Len(t, got.Messages, 1)
		})
	}
}

func TestSessionStoreConcurrentUpdatesAreNotLost(t *testing.T) {
	const writers = 8
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := store.Update(ctx, "shared", func(s *model.Session) (*model.Session, error) {
						if s == nil {
							s = model.NewSession("shared")
						}
						s.AddMessage(model.RoleUser, fmt.Sprintf("writer %d", i))
						return s, nil
					})
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			got, err := store.Load(ctx, "shared")
			require.NoError(t, err)
			assert.Len(t, got.Messages, writers)
		})
	}
}

func TestSessionStorePrune(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			old := model.NewSession("old")
			old.LastActivity = time.Now().UTC().Add(-48 * time.Hour)
			require.NoError(t, store.Save(ctx, old))
			require.NoError(t, store.Save(ctx, model.NewSession("fresh")))

			n, err := store.Prune(ctx, 24*time.Hour)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			ids, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"fresh"}, ids)
		})
	}
}

func TestRedisSessionStoreRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	require.NoError(t, store.Save(ctx, model.NewSession("ttl")))
	mr.FastForward(30 * time.Minute)
	assert.Equal(t, 30*time.Minute, mr.TTL("session:ttl"))

	_, err := store.Update(ctx, "ttl", func(s *model.Session) (*model.Session, error) {
		s.AddMessage(model.RoleUser, "still here")
		return s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("session:ttl"))

	mr.FastForward(2 * time.Hour)
	got, err := store.Load(ctx, "ttl")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSessionStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)
	mr.Close()

	_, err := store.Load(ctx, "any")
	require.Error(t, err)
	assert.Equal(t, errx.KindUpstreamUnavailable, errx.KindOf(err))
}

func TestSessionStoreDeleteWaitsForUpdate(t *testing.T) {
	ctx := context.Background()
	for name, store := range lockingStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, model.NewSession("busy")))
			release, updated := blockedUpdate(t, store, "busy")

			deleted := make(chan error, 1)
			go func() { deleted <- store.Delete(ctx, "busy") }()

			select {
			case <-deleted:
				t.Fatal("delete finished while an update was in flight")
			case <-time.After(50 * time.Millisecond):
			}
			release()
			require.NoError(t, <-updated)
			require.NoError(t, <-deleted)

			got, err := store.Load(ctx, "busy")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestSessionStorePruneKeepsRefreshedSession(t *testing.T) {
	ctx := context.Background()
	for name, store := range lockingStores(t) {
		t.Run(name, func(t *testing.T) {
			stale := model.NewSession("idle")
			stale.LastActivity = time.Now().UTC().Add(-48 * time.Hour)
			require.NoError(t, store.Save(ctx, stale))
			release, updated := blockedUpdate(t, store, "idle")

			pruned := make(chan int, 1)
			go func() {
				n, err := store.Prune(ctx, 24*time.Hour)
				assert.NoError(t, err)
				pruned <- n
			}()

			time.Sleep(50 * time.Millisecond)
			release()
			require.NoError(t, <-updated)
			assert.Equal(t, 0, <-pruned)

			got, err := store.Load(ctx, "idle")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Len(t, got.Messages, 1)
		})
	}
}

func TestRedisSessionStorePruneSkipsUnreadable(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)
	require.NoError(t, mr.Set("session:broken", "{not json"))

	old := model.NewSession("old")
	old.LastActivity = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, store.Save(ctx, old))

	n, err := store.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, mr.Exists("session:broken"))
}

func TestSQLiteSessionStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := sqlite.Config{Path: filepath.Join(t.TempDir(), "sessions.db"), BusyTimeout: 1000}

	db, err := cfg.Open(ctx)
	require.NoError(t, err)
	store, err := NewSQLiteSessionStore(ctx, db)
	require.NoError(t, err)
	_, err = store.Update(ctx, "kept", func(s *model.Session) (*model.Session, error) {
		s = model.NewSession("kept")
		s.State.ExtractedEntities[model.SlotLocation] = "bangsar"
		return s, nil
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = cfg.Open(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err = NewSQLiteSessionStore(ctx, db)
	require.NoError(t, err)

	got, err := store.Load(ctx, "kept")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bangsar", got.State.ExtractedEntities.String(model.SlotLocation))
}
