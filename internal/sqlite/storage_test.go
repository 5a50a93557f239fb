package sqlite_test

import (
	"context"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/teenjuna/replay/internal/sqlite"
	"github.com/teenjuna/replay/internal/testing/require"
)

type input struct {
	data     []byte
	metadata []byte
	rawSize  int
}

var inputs = []input{
	{data: []byte{1}, metadata: []byte(`{"records_count":1}`), rawSize: 10},
	{data: []byte{2, 2}, metadata: []byte(`{"records_count":2}`), rawSize: 20},
	{data: []byte{3, 3, 3}, metadata: []byte(`{"records_count":3}`), rawSize: 30},
}

func TestNew(t *testing.T) {
	run(t, func(t *testing.T, file string) {
		storage, err := sqlite.New(withFile(file))
		require.Nil(t, err)
		require.NotNil(t, storage)
		deferClose(t, storage)
	})
}

func TestPush(t *testing.T) {
	run(t, func(t *testing.T, file string) {
		storage, err := sqlite.New(withFile(file))
		require.Nil(t, err)

		id1, err := storage.Push(t.Context(), []byte{1}, []byte(`{}`), 1)
		require.Nil(t, err)
		id2, err := storage.Push(t.Context(), []byte{2}, []byte(`{}`), 1)
		require.Nil(t, err)
		require.True(t, id1 < id2, "ids don't sort by creation")

		require.Nil(t, storage.Close())

		id, err := storage.Push(t.Context(), []byte{3}, []byte(`{}`), 1)
		require.ErrorIs(t, err, sqlite.ErrClosed)
		require.Equal(t, id, "")
		require.ErrorIs(t, storage.Close(), sqlite.ErrClosed)
	})
}

func TestClaimOneByOne(t *testing.T) {
	run(t, func(t *testing.T, file string) {
		storage, _ := sqlite.New(withFile(file))
		deferClose(t, storage)
		push(t, storage, inputs...)

		for _, i := range inputs {
			entries, err := storage.Claim(t.Context())
			require.Nil(t, err)
			require.Len(t, entries, 1)

			entry := entries[0]
			require.Equal(t, entry.Data, i.data)
			require.Equal(t, entry.Metadata, i.metadata)
			require.Equal(t, entry.RawSize, i.rawSize)
			require.Equal(t, entry.ClaimedTimes, 1)
			require.NotEqual(t, entry.ID, "")
			require.True(t, !entry.ClaimedAt.Before(entry.PushedAt), "claimed before pushed")
		}

		entries, err := storage.Claim(t.Context())
		require.Nil(t, err)
		require.Len(t, entries, 0)
	})
}

func TestClaimMany(t *testing.T) {
	run(t, func(t *testing.T, file string) {
		storage, _ := sqlite.New(withFile(file), func(c *sqlite.Config) {
			c.Claim(2)
		})
		deferClose(t, storage)
		push(t, storage, inputs...)

		entries, err := storage.Claim(t.Context())
		require.Nil(t, err)
		require.Len(t, entries, 2)
		require.Equal(t, entries[0].Data, inputs[0].data)
		require.Equal(t, entries[1].Data, inputs[1].data)

		entries, err = storage.Claim(t.Context())
		require.Nil(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, entries[0].Data, inputs[2].data)

		entries, err = storage.Claim(t.Context())
		require.Nil(t, err)
		require.Len(t, entries, 0)
	})
}

func TestClaimAtomicity(t *testing.T) {
	const (
		workers    = 50
		iterations = 50
	)
	run(t, func(t *testing.T, file string) {
		storage, _ := sqlite.New(withFile(file), func(c *sqlite.Config) {
			c.Workers(workers)
		})
		deferClose(t, storage)
		push(t, storage, inputs[0])

		var (
			claimed = new(atomic.Bool)
			wg      = new(sync.WaitGroup)
		)
		for range workers {
			wg.Go(func() {
				for range iterations {
					entries, err := storage.Claim(t.Context())
					require.Nil(t, err)
					if len(entries) == 0 {
						continue
					}

					require.Equal(t, claimed.Swap(true), false)
					require.Equal(t, claimed.Swap(false), true)
					require.Nil(t, storage.Release(t.Context(), entries[0].ID))
				}
			})
		}
		wg.Wait()
	})
}

func TestRelease(t *testing.T) {
	run(t, func(t *testing.T, file string) {
		storage, _ := sqlite.New(withFile(file), func(c *sqlite.Config) {
			c.Claim(3)
		})
		deferClose(t, storage)
		push(t, storage, inputs...)

		entries1, err := storage.Claim(t.Context())
		require.Nil(t, err)
		require.Len(t, entries1, 3)

		entries2, err := storage.Claim(t.Context())
		require.Nil(t, err)
		require.Len(t, entries2, 0)

		require.Nil(t, storage.Release(t.Context(), ids(entries1)...))

		entries3, err := storage.Claim(t.Context())
		require.Nil(t, err)
		require.Len(t, entries3, 3)
		for i := range entries3 {
			require.Equal(t, entries3[i].ID, entries1[i].ID)
			require.Equal(t, entries3[i].Data, entries1[i].Data)
			require.Equal(t, entries3[i].PushedAt, entries1[i].PushedAt)
			require.Equal(t, entries3[i].ClaimedTimes, 2)
		}
	})
}

func TestReleaseCooldown(t *testing.T) {
	const cooldown = time.Minute

	run(t, func(t *testing.T, file string) {
		storage, _ := sqlite.New(withFile(file), func(c *sqlite.Config) {
			c.Claim(2).Cooldown(cooldown)
		})
		deferClose(t, storage)
		push(t, storage, inputs[:2]...)

		synctest.Test(t, func(t *testing.T) {
			ctx := context.Background()

			entries, err := storage.Claim(ctx)
			require.Nil(t, err)
			require.Len(t, entries, 2)
			require.Nil(t, storage.Release(ctx, ids(entries)...))

			stats, err := storage.Stats(ctx)
			require.Nil(t, err)
			require.True(t, stats.NextCooldownEnd.Equal(time.Now().Add(cooldown)), "wrong cooldown end")

			entries, err = storage.Claim(ctx)
			require.Nil(t, err)
			require.Len(t, entries, 0)

			time.Sleep(cooldown)

			entries, err = storage.Claim(ctx)
			require.Nil(t, err)
			require.Len(t, entries, 2)
		})
	})
}

func TestDelete(t *testing.T) {
	run(t, func(t *testing.T, file string) {
		storage, _ := sqlite.New(withFile(file), func(c *sqlite.Config) {
			c.Claim(2)
		})
		deferClose(t, storage)
		push(t, storage, inputs[:2]...)

		entries1, err := storage.Claim(t.Context())
		require.Nil(t, err)
		require.Len(t, entries1, 2)

		require.Nil(t, storage.Delete(t.Context(), entries1[0].ID))
		require.Nil(t, storage.Release(t.Context(), entries1[1].ID))

		entries2, err := storage.Claim(t.Context())
		require.Nil(t, err)
		require.Len(t, entries2, 1)
		require.Equal(t, entries2[0].ID, entries1[1].ID)
		require.Equal(t, entries2[0].ClaimedTimes, 2)

		require.Nil(t, storage.Delete(t.Context()))
	})
}

func TestStats(t *testing.T) {
	run(t, func(t *testing.T, file string) {
		storage, _ := sqlite.New(withFile(file))
		deferClose(t, storage)

		stats, err := storage.Stats(t.Context())
		require.Nil(t, err)
		require.Equal(t, *stats, sqlite.Stats{NextCooldownEnd: time.Unix(0, 0)})

		push(t, storage, inputs...)

		stats, err = storage.Stats(t.Context())
		require.Nil(t, err)
		require.Equal(t, stats.Segments, 3)
		require.Equal(t, stats.Bytes, 6)
		require.Equal(t, stats.RawBytes, 60)
	})
}

func TestReopenReleasesClaims(t *testing.T) {
	file := path.Join(t.TempDir(), "outbox.db")

	storage, err := sqlite.New(withFile(file))
	require.Nil(t, err)
	push(t, storage, inputs[0])

	entries, err := storage.Claim(t.Context())
	require.Nil(t, err)
	require.Len(t, entries, 1)
	require.Nil(t, storage.Close())

	storage, err = sqlite.New(withFile(file))
	require.Nil(t, err)
	deferClose(t, storage)

	entries, err = storage.Claim(t.Context())
	require.Nil(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, entries[0].Data, inputs[0].data)
	require.Equal(t, entries[0].ClaimedTimes, 2)
}

func run(t *testing.T, fn func(t *testing.T, file string)) {
	t.Helper()
	t.Run("In file", func(t *testing.T) {
		t.Helper()
		fn(t, path.Join(t.TempDir(), "outbox.db"))
	})
	t.Run("In memory", func(t *testing.T) {
		t.Helper()
		fn(t, ":memory:")
	})
}

func withFile(file string) sqlite.ConfigFunc {
	return func(c *sqlite.Config) {
		c.File(file)
	}
}

func push(t *testing.T, storage *sqlite.Storage, inputs ...input) {
	t.Helper()
	for _, i := range inputs {
		_, err := storage.Push(t.Context(), i.data, i.metadata, i.rawSize)
		require.Nil(t, err)
	}
}

func ids(entries []sqlite.Entry) []sqlite.ID {
	ids := make([]sqlite.ID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func deferClose(t *testing.T, storage *sqlite.Storage) {
	t.Cleanup(func() {
		if err := storage.Close(); err != nil {
			t.Fatalf("close storage: %v", err)
		}
	})
}
