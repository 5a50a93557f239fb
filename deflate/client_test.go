package deflate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/teenjuna/replay/deflate"
	"github.com/teenjuna/replay/internal/testing/require"
)

func TestClientWriteFlush(t *testing.T) {
	client := startClient(t)

	var sizes []int
	for _, data := range []string{"foo", "bar", "baz"} {
		size, err := client.Write(t.Context(), data)
		require.Nil(t, err)
		sizes = append(sizes, size)
	}
	require.True(t, sizes[0] < sizes[1] && sizes[1] < sizes[2], "sizes are not increasing")

	res, err := client.Flush(t.Context(), nil)
	require.Nil(t, err)
	require.Equal(t, res.SizeInBytes, 9)
	require.Equal(t, decompress(t, res.Data), "foobarbaz")
	require.Equal(t, client.Pending(), 0)

	data := "next"
	res, err = client.Flush(t.Context(), &data)
	require.Nil(t, err)
	require.Equal(t, res.SizeInBytes, 4)
	require.Equal(t, decompress(t, res.Data), "next")
}

func TestClientPipelining(t *testing.T) {
	const writers = 100
	client := startClient(t)

	var wg sync.WaitGroup
	for range writers {
		wg.Go(func() {
			_, err := client.Write(t.Context(), "x")
			require.Nil(t, err)
		})
	}
	wg.Wait()
	require.Equal(t, client.Pending(), 0)

	res, err := client.Flush(t.Context(), nil)
	require.Nil(t, err)
	require.Equal(t, res.SizeInBytes, writers)
	require.Equal(t, len(decompress(t, res.Data)), writers)
}

func TestClientSession(t *testing.T) {
	client := startClient(t)

	session, err := client.Segment()
	require.Nil(t, err)

	_, err = client.Segment()
	require.ErrorIs(t, err, deflate.ErrSegmentInProgress)
	_, err = client.Write(t.Context(), "intruder")
	require.ErrorIs(t, err, deflate.ErrSegmentInProgress)
	_, err = client.Flush(t.Context(), nil)
	require.ErrorIs(t, err, deflate.ErrSegmentInProgress)

	size, err := session.Write(t.Context(), `{"records":[`)
	require.Nil(t, err)
	require.Equal(t, session.Size(), size)

	tail := `]}`
	res, err := session.Flush(t.Context(), &tail)
	require.Nil(t, err)
	require.Equal(t, decompress(t, res.Data), `{"records":[]}`)

	_, err = session.Write(t.Context(), "late")
	require.ErrorIs(t, err, deflate.ErrSessionDone)
	_, err = session.Flush(t.Context(), nil)
	require.ErrorIs(t, err, deflate.ErrSessionDone)
	require.ErrorIs(t, session.Abort(t.Context()), deflate.ErrSessionDone)

	// The compressor is free again.
	_, err = client.Write(t.Context(), "free")
	require.Nil(t, err)
	res, err = client.Flush(t.Context(), nil)
	require.Nil(t, err)
	require.Equal(t, decompress(t, res.Data), "free")
}

func TestClientSessionAbort(t *testing.T) {
	client := startClient(t)

	session, err := client.Segment()
	require.Nil(t, err)
	_, err = session.Write(t.Context(), "dropped")
	require.Nil(t, err)
	require.Nil(t, session.Abort(t.Context()))

	session, err = client.Segment()
	require.Nil(t, err)
	res, err := session.Flush(t.Context(), nil)
	require.Nil(t, err)
	require.Equal(t, res.SizeInBytes, 0)
	require.Equal(t, decompress(t, res.Data), "")
}

func TestClientSessionFailedWrite(t *testing.T) {
	port, channel := deflate.Pipe()
	go func() {
		zero := 0
		for {
			req, err := channel.Receive(context.Background())
			if err != nil {
				return
			}
			res := deflate.Response{ID: req.ID, Error: "boom"}
			if req.Action == deflate.ActionFlush {
				res = deflate.Response{ID: req.ID, Result: []byte{}, SizeInBytes: &zero}
			}
			if err := channel.Send(context.Background(), res); err != nil {
				return
			}
		}
	}()
	client := deflate.NewClient(port)
	t.Cleanup(func() { _ = client.Close() })

	session, err := client.Segment()
	require.Nil(t, err)

	_, err = session.Write(t.Context(), "foo")
	var resErr *deflate.ResponseError
	require.True(t, errors.As(err, &resErr), "not a response error")
	require.Equal(t, resErr.Message, "boom")

	_, err = session.Write(t.Context(), "bar")
	require.Equal(t, err, error(resErr))

	_, err = session.Flush(t.Context(), nil)
	require.True(t, errors.As(err, &resErr), "flush of an incomplete segment succeeded")

	_, err = client.Segment()
	require.Nil(t, err)
}

func TestClientTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// Nobody serves the other end.
		port, _ := deflate.Pipe()
		client := deflate.NewClient(port, func(c *deflate.ClientConfig) {
			c.Timeout(time.Second)
		})
		defer client.Close()

		started := time.Now()
		_, err := client.Write(t.Context(), "foo")
		require.ErrorIs(t, err, deflate.ErrTimeout)
		require.Equal(t, time.Since(started), time.Second)
		require.Equal(t, client.Pending(), 0)
	})
}

func TestClientContextCancel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		port, _ := deflate.Pipe()
		client := deflate.NewClient(port, func(c *deflate.ClientConfig) {
			c.Timeout(0)
		})
		defer client.Close()

		ctx, cancel := context.WithTimeout(t.Context(), time.Minute)
		defer cancel()

		_, err := client.Flush(ctx, nil)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, client.Pending(), 0)
	})
}

func TestClientClose(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		port, _ := deflate.Pipe()
		client := deflate.NewClient(port, func(c *deflate.ClientConfig) {
			c.Timeout(0)
		})

		done := make(chan error, 1)
		go func() {
			_, err := client.Write(t.Context(), "foo")
			done <- err
		}()

		synctest.Wait()
		require.Equal(t, client.Pending(), 1)

		require.Nil(t, client.Close())
		require.ErrorIs(t, <-done, deflate.ErrClosed)
		require.ErrorIs(t, client.Close(), deflate.ErrClosed)

		_, err := client.Write(t.Context(), "bar")
		require.ErrorIs(t, err, deflate.ErrClosed)
		_, err = client.Segment()
		require.ErrorIs(t, err, deflate.ErrClosed)
	})
}

func TestClientDropsUnknownResponses(t *testing.T) {
	port, channel := deflate.Pipe()
	go func() {
		enc := deflate.NewEncoder(-1)
		for {
			req, err := channel.Receive(context.Background())
			if err != nil {
				return
			}
			stray := 0
			if err := channel.Send(context.Background(), deflate.Response{ID: -req.ID, Size: &stray}); err != nil {
				return
			}
			if err := channel.Send(context.Background(), enc.Handle(req)); err != nil {
				return
			}
		}
	}()
	client := deflate.NewClient(port)
	t.Cleanup(func() { _ = client.Close() })

	size, err := client.Write(t.Context(), "foo")
	require.Nil(t, err)
	require.True(t, size > 0, "got the stray response")

	res, err := client.Flush(t.Context(), nil)
	require.Nil(t, err)
	require.Equal(t, decompress(t, res.Data), "foo")
}

func TestClientResponseOutOfOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		port, channel := deflate.Pipe()
		go func() {
			first, err := channel.Receive(context.Background())
			if err != nil {
				return
			}
			second, err := channel.Receive(context.Background())
			if err != nil {
				return
			}
			size := 1
			_ = channel.Send(context.Background(), deflate.Response{ID: second.ID, Size: &size})
			_ = channel.Send(context.Background(), deflate.Response{ID: first.ID, Size: &size})
		}()
		client := deflate.NewClient(port, func(c *deflate.ClientConfig) {
			c.Timeout(0)
		})
		defer client.Close()

		first := make(chan error, 1)
		go func() {
			_, err := client.Write(t.Context(), "foo")
			first <- err
		}()
		synctest.Wait()

		size, err := client.Write(t.Context(), "bar")
		require.Nil(t, err)
		require.Equal(t, size, 1)
		require.ErrorIs(t, <-first, deflate.ErrOutOfOrder)

		synctest.Wait()
		require.Equal(t, client.Pending(), 0)
	})
}

func TestClientConfig(t *testing.T) {
	c := &deflate.ClientConfig{}

	require.PanicWithError(t, "timeout can't be < 0", func() {
		c.Timeout(-time.Second)
	})
	require.PanicWithError(t, "logger can't be nil", func() {
		c.Logger(nil)
	})
	require.PanicWithError(t, "port can't be nil", func() {
		deflate.NewClient(nil)
	})
}

func startClient(t *testing.T) *deflate.Client {
	t.Helper()
	port, _ := startWorker(t)
	client := deflate.NewClient(port)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}
