package segment_test

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/sync/errgroup"

	"github.com/teenjuna/replay/deflate"
	"github.com/teenjuna/replay/internal/testing/require"
	"github.com/teenjuna/replay/segment"
)

var view1 = segment.Context{Application: "app", Session: "session", View: "view-1"}

func TestCollectorLayout(t *testing.T) {
	collector, sink := start(t)

	records := []segment.Record{
		{Type: segment.RecordMeta, Timestamp: 10, Data: json.RawMessage(`{"href":"https://example.org"}`)},
		{Type: segment.RecordFullSnapshot, Timestamp: 12, Data: json.RawMessage(`{"node":{"id":1}}`)},
		{Type: segment.RecordIncrementalSnapshot, Timestamp: 11},
	}
	for _, r := range records {
		require.Nil(t, collector.Add(t.Context(), r))
	}
	require.Nil(t, collector.Flush(t.Context(), segment.ReasonBeforeUnload))

	segments := sink.Segments()
	require.Len(t, segments, 1)

	raw, body := decode(t, segments[0])
	require.True(t, strings.HasPrefix(raw, `{"records":[{"type":4,"timestamp":10,`), "wrong head: "+raw)
	require.True(t, strings.HasSuffix(raw, `"source":"browser"}`+"\n"), "wrong tail: "+raw)
	require.Equal(t, segments[0].RawSize, len(raw))
	require.Equal(t, body.Records, records)
	require.Equal(t, body.Metadata, segment.Metadata{
		Application:     segment.Ref{ID: "app"},
		Session:         segment.Ref{ID: "session"},
		View:            segment.Ref{ID: "view-1"},
		Start:           10,
		End:             12,
		RecordsCount:    3,
		CreationReason:  segment.ReasonInit,
		HasFullSnapshot: true,
		IndexInView:     0,
		Source:          "browser",
	})
	require.Equal(t, segments[0].Metadata, body.Metadata)
}

func TestCollectorEmptyFlush(t *testing.T) {
	collector, sink := start(t)

	require.Nil(t, collector.Flush(t.Context(), segment.ReasonBeforeUnload))
	require.Len(t, sink.Segments(), 0)

	// The reason is still remembered for the next segment.
	require.Nil(t, collector.Add(t.Context(), segment.Record{Type: segment.RecordLoad}))
	require.Nil(t, collector.Flush(t.Context(), segment.ReasonBeforeUnload))

	segments := sink.Segments()
	require.Len(t, segments, 1)
	require.Equal(t, segments[0].Metadata.CreationReason, segment.ReasonBeforeUnload)
	require.Equal(t, segments[0].Metadata.HasFullSnapshot, false)
}

func TestCollectorViews(t *testing.T) {
	collector, sink := start(t)
	view2 := segment.Context{Application: "app", Session: "session", View: "view-2"}

	add := func(ts int64) {
		t.Helper()
		require.Nil(t, collector.Add(t.Context(), segment.Record{Type: segment.RecordLoad, Timestamp: ts}))
	}

	add(1)
	require.Nil(t, collector.Flush(t.Context(), segment.ReasonDurationLimit))
	add(2)
	require.Nil(t, collector.ChangeView(t.Context(), view2))
	add(3)
	require.Nil(t, collector.Flush(t.Context(), segment.ReasonBytesLimit))
	add(4)
	require.Nil(t, collector.Close(t.Context()))

	type summary struct {
		view   string
		reason segment.CreationReason
		index  int
		start  int64
	}
	var got []summary
	for _, s := range sink.Segments() {
		got = append(got, summary{
			view:   s.Metadata.View.ID,
			reason: s.Metadata.CreationReason,
			index:  s.Metadata.IndexInView,
			start:  s.Metadata.Start,
		})
	}
	require.Equal(t, got, []summary{
		{view: "view-1", reason: segment.ReasonInit, index: 0, start: 1},
		{view: "view-1", reason: segment.ReasonDurationLimit, index: 1, start: 2},
		{view: "view-2", reason: segment.ReasonViewChange, index: 0, start: 3},
		{view: "view-2", reason: segment.ReasonBytesLimit, index: 1, start: 4},
	})
}

func TestCollectorDurationLimit(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		collector, sink := start(t, func(c *segment.Config) {
			c.DurationLimit(time.Second)
		})

		require.Nil(t, collector.Add(t.Context(), segment.Record{Type: segment.RecordLoad, Timestamp: 1}))

		time.Sleep(time.Second - time.Millisecond)
		synctest.Wait()
		require.Len(t, sink.Segments(), 0)

		time.Sleep(time.Millisecond)
		synctest.Wait()
		require.Len(t, sink.Segments(), 1)

		require.Nil(t, collector.Add(t.Context(), segment.Record{Type: segment.RecordLoad, Timestamp: 2}))
		require.Nil(t, collector.Flush(t.Context(), segment.ReasonBeforeUnload))

		// The timer of the flushed segment doesn't touch the next one.
		time.Sleep(time.Minute)
		synctest.Wait()

		segments := sink.Segments()
		require.Len(t, segments, 2)
		require.Equal(t, segments[1].Metadata.CreationReason, segment.ReasonDurationLimit)
		require.Equal(t, segments[1].Metadata.RecordsCount, 1)
	})
}

func TestCollectorBytesLimit(t *testing.T) {
	const limit = 512

	collector, sink := start(t, func(c *segment.Config) {
		c.BytesLimit(limit)
	})

	// Products of large primes compress badly, so the limit is reached quickly.
	for i := range 200 {
		data, _ := json.Marshal(map[string]int64{"v": int64(i) * 7919 * 104729})
		require.Nil(t, collector.Add(t.Context(), segment.Record{
			Type:      segment.RecordIncrementalSnapshot,
			Timestamp: int64(i),
			Data:      data,
		}))
	}
	require.Nil(t, collector.Close(t.Context()))

	segments := sink.Segments()
	require.True(t, len(segments) > 1, "bytes limit never reached")

	var (
		count int
		next  int64
	)
	for i, s := range segments {
		if i > 0 {
			require.Equal(t, s.Metadata.CreationReason, segment.ReasonBytesLimit)
		}
		_, body := decode(t, s)
		for _, r := range body.Records {
			require.Equal(t, r.Timestamp, next)
			next++
		}
		count += s.Metadata.RecordsCount
	}
	require.Equal(t, count, 200)
}

func TestCollectorClosed(t *testing.T) {
	collector, _ := start(t)

	require.Nil(t, collector.Close(t.Context()))
	require.ErrorIs(t, collector.Close(t.Context()), segment.ErrClosed)
	require.ErrorIs(t, collector.Add(t.Context(), segment.Record{}), segment.ErrClosed)
	require.ErrorIs(t, collector.Flush(t.Context(), segment.ReasonBeforeUnload), segment.ErrClosed)
	require.ErrorIs(t, collector.ChangeView(t.Context(), view1), segment.ErrClosed)
}

func TestCollectorSinkError(t *testing.T) {
	errSink := errors.New("sink is full")
	client := startClient(t)
	collector := segment.New(client, segment.SinkFunc(func(context.Context, *segment.Segment) error {
		return errSink
	}), view1)

	require.Nil(t, collector.Add(t.Context(), segment.Record{Type: segment.RecordLoad}))
	require.ErrorIs(t, collector.Flush(t.Context(), segment.ReasonBeforeUnload), errSink)

	// The compressor was released anyway.
	_, err := client.Segment()
	require.Nil(t, err)
}

func TestCollectorCompressorBusy(t *testing.T) {
	client := startClient(t)
	collector := segment.New(client, &memorySink{}, view1)

	session, err := client.Segment()
	require.Nil(t, err)

	err = collector.Add(t.Context(), segment.Record{Type: segment.RecordLoad})
	require.ErrorIs(t, err, deflate.ErrSegmentInProgress)

	require.Nil(t, session.Abort(t.Context()))
	require.Nil(t, collector.Add(t.Context(), segment.Record{Type: segment.RecordLoad}))
}

func TestCollectorCanceledAddOverStream(t *testing.T) {
	var (
		requestsR, requestsW   = io.Pipe()
		responsesR, responsesW = io.Pipe()
		workerStream           = deflate.NewStream(requestsR, responsesW)
		worker                 = deflate.NewWorker(workerStream.WorkerChannel())
		client                 = deflate.NewClient(deflate.NewStream(responsesR, requestsW).CallerPort())
		sink                   = &memorySink{}
		collector              = segment.New(client, sink, view1)
		group                  errgroup.Group
	)
	group.Go(func() error {
		return worker.Run(context.Background())
	})
	t.Cleanup(func() {
		_ = client.Close()
		_ = group.Wait()
		_ = workerStream.Close()
	})

	first := segment.Record{Type: segment.RecordMeta, Timestamp: 1}
	second := segment.Record{Type: segment.RecordIncrementalSnapshot, Timestamp: 2}
	third := segment.Record{Type: segment.RecordIncrementalSnapshot, Timestamp: 3}

	require.Nil(t, collector.Add(t.Context(), first))

	canceled, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, collector.Add(canceled, second), context.Canceled)

	// The dropped segment leaves nothing behind in the compressor.
	require.Nil(t, collector.Add(t.Context(), third))
	require.Nil(t, collector.Flush(t.Context(), segment.ReasonBeforeUnload))

	segments := sink.Segments()
	require.Len(t, segments, 1)
	raw, body := decode(t, segments[0])
	require.True(t, strings.HasPrefix(raw, `{"records":[{"type":3,"timestamp":3}]`), "wrong head: "+raw)
	require.Equal(t, body.Records, []segment.Record{third})
}

func TestCollectorMetrics(t *testing.T) {
	registry := prometheus.NewPedanticRegistry()
	collector, _ := start(t, func(c *segment.Config) {
		c.Prometheus(segment.Prometheus(registry))
	})

	require.Nil(t, collector.Add(t.Context(), segment.Record{Type: segment.RecordLoad}))
	require.Nil(t, collector.Add(t.Context(), segment.Record{Type: segment.RecordLoad}))
	require.Nil(t, collector.Close(t.Context()))

	err := testutil.GatherAndCompare(registry, strings.NewReader(`
		# HELP replay_segment_records Number of records written into segments
		# TYPE replay_segment_records counter
		replay_segment_records 2
		# HELP replay_segment_segments Number of finished segments
		# TYPE replay_segment_segments counter
		replay_segment_segments{reason="before_unload"} 1
	`), "replay_segment_records", "replay_segment_segments")
	require.Nil(t, err)
}

func TestConfig(t *testing.T) {
	c := &segment.Config{}

	require.PanicWithError(t, "duration limit can't be <= 0", func() {
		c.DurationLimit(0)
	})
	require.PanicWithError(t, "bytes limit can't be <= 0", func() {
		c.BytesLimit(0)
	})
	require.PanicWithError(t, "source can't be empty", func() {
		c.Source("")
	})
	require.PanicWithError(t, "codec can't be nil", func() {
		c.Codec(nil)
	})
	require.PanicWithError(t, "logger can't be nil", func() {
		c.Logger(nil)
	})
	require.PanicWithError(t, "compressor can't be nil", func() {
		segment.New(nil, &memorySink{}, view1)
	})
}

type memorySink struct {
	mu       sync.Mutex
	segments []*segment.Segment
}

func (s *memorySink) Send(_ context.Context, segment *segment.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append(s.segments, segment)
	return nil
}

func (s *memorySink) Segments() []*segment.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*segment.Segment(nil), s.segments...)
}

type body struct {
	Records []segment.Record `json:"records"`
	segment.Metadata
}

func decode(t *testing.T, s *segment.Segment) (string, body) {
	t.Helper()

	r, err := zlib.NewReader(bytes.NewReader(s.Data))
	require.Nil(t, err)
	raw, err := io.ReadAll(r)
	require.Nil(t, err)

	var b body
	require.Nil(t, json.Unmarshal(raw, &b))
	return string(raw), b
}

func start(t *testing.T, configFuncs ...func(*segment.Config)) (*segment.Collector, *memorySink) {
	t.Helper()
	sink := &memorySink{}
	return segment.New(startClient(t), sink, view1, configFuncs...), sink
}

func startClient(t *testing.T) *deflate.Client {
	t.Helper()

	var (
		port, channel = deflate.Pipe()
		worker        = deflate.NewWorker(channel)
		client        = deflate.NewClient(port)
		ctx, cancel   = context.WithCancel(context.Background())
		group         errgroup.Group
	)
	group.Go(func() error {
		return worker.Run(ctx)
	})
	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		if err := group.Wait(); err != nil {
			t.Errorf("worker: %v", err)
		}
	})

	return client
}
