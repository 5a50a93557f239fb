// Package sqlite implements the segment outbox: finished segments are stored until an upload
// worker claims them and either deletes them after a successful upload or releases them for a
// later retry.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrClosed is returned by Storage methods when the storage has been closed.
	ErrClosed = errors.New("storage is closed")
)

const (
	memory = ":memory:"
)

// Storage is a persistent segment outbox backed by SQLite.
type Storage struct {
	cfg    *Config
	db     *sql.DB
	closed atomic.Bool
}

// New creates a new Storage with the provided configuration functions.
//
// Default configuration:
//   - File: ":memory:"
//   - Workers: 1
//   - Claim: 1
//   - Cooldown: 0
//   - Durable: false
//
// Segments left claimed by a previous process are released.
func New(configFuncs ...ConfigFunc) (*Storage, error) {
	cfg := &Config{}
	cfg.File(memory)
	cfg.Workers(1)
	cfg.Claim(1)
	for _, cf := range configFuncs {
		if cf != nil {
			cf(cfg)
		}
	}

	db, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	if err := setup(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setup: %w", err)
	}

	return &Storage{cfg: cfg, db: db}, nil
}

// Push stores a finished segment. Data is the compressed segment, metadata its JSON metadata
// and rawSize its uncompressed length.
func (s *Storage) Push(ctx context.Context, data, metadata []byte, rawSize int) (ID, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`
		insert into segment (
			id,
			data,
			metadata,
			raw_size,
			pushed_at,
			claimed,
			claimed_at,
			claimed_times,
			cooldown_end
		) values (
			:id,
			:data,
			:metadata,
			:raw_size,
			:pushed_at,
			0,
			0,
			0,
			0
		)
		`,
		sql.Named("id", id.String()),
		sql.Named("data", data),
		sql.Named("metadata", string(metadata)),
		sql.Named("raw_size", rawSize),
		sql.Named("pushed_at", toTimestamp(time.Now())),
	)
	if err != nil {
		return "", s.wrap(err)
	}

	return id.String(), nil
}

// Claim atomically claims the oldest segments that aren't claimed and whose cooldown has
// ended. At most [Config.Claim] segments are returned; the slice is empty when none are ready.
func (s *Storage) Claim(ctx context.Context) ([]Entry, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`
		update segment
		set
			claimed = 1,
			claimed_at = :now,
			claimed_times = claimed_times + 1
		where
			id in (
				select id from segment
				where
					claimed = 0 and
					cooldown_end <= :now
				order by
					pushed_at asc,
					id asc
				limit :limit
			)
		returning
			id,
			data,
			metadata,
			raw_size,
			pushed_at,
			claimed_at,
			claimed_times
		`,
		sql.Named("now", toTimestamp(time.Now())),
		sql.Named("limit", s.cfg.claim),
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", s.wrap(err))
	}
	defer rows.Close()

	entries := make([]Entry, 0, s.cfg.claim)
	for rows.Next() {
		var (
			e                   Entry
			metadata            string
			pushedAt, claimedAt int64
		)
		if err := rows.Scan(
			&e.ID,
			&e.Data,
			&metadata,
			&e.RawSize,
			&pushedAt,
			&claimedAt,
			&e.ClaimedTimes,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.Metadata = []byte(metadata)
		e.PushedAt = fromTimestamp(pushedAt)
		e.ClaimedAt = fromTimestamp(claimedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	// "returning" doesn't follow the order of the subquery.
	sortEntries(entries)

	return entries, nil
}

// Release makes claimed segments available again once [Config.Cooldown] has passed.
func (s *Storage) Release(ctx context.Context, ids ...ID) error {
	if s.closed.Load() {
		return ErrClosed
	}

	var cooldownEnd int64
	if s.cfg.cooldown != 0 {
		cooldownEnd = toTimestamp(time.Now().Add(s.cfg.cooldown))
	}

	_, err := s.db.ExecContext(ctx,
		`
		update segment
		set
			claimed = 0,
			cooldown_end = :cooldown_end
		where
			id in (
				select value from json_each(:ids)
			)
		`,
		sql.Named("ids", jsonIDs(ids)),
		sql.Named("cooldown_end", cooldownEnd),
	)
	return s.wrap(err)
}

// Delete removes segments for good, typically after they were uploaded.
func (s *Storage) Delete(ctx context.Context, ids ...ID) error {
	if s.closed.Load() {
		return ErrClosed
	}

	_, err := s.db.ExecContext(ctx,
		`
		delete from segment
		where
			id in (
				select value from json_each(:ids)
			)
		`,
		sql.Named("ids", jsonIDs(ids)),
	)
	return s.wrap(err)
}

// Stats returns current storage statistics.
func (s *Storage) Stats(ctx context.Context) (*Stats, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var (
		stats           Stats
		nextCooldownEnd int64
	)
	err := s.db.QueryRowContext(ctx,
		`
		select
			count(*),
			coalesce(sum(length(data)), 0),
			coalesce(sum(raw_size), 0),
			coalesce(min(case when claimed = 0 and cooldown_end > 0 then cooldown_end end), 0)
		from
			segment
		`,
	).Scan(
		&stats.Segments,
		&stats.Bytes,
		&stats.RawBytes,
		&nextCooldownEnd,
	)
	if err != nil {
		return nil, s.wrap(err)
	}
	stats.NextCooldownEnd = fromTimestamp(nextCooldownEnd)

	return &stats, nil
}

// Close closes the underlying SQLite database. After closing, all methods return [ErrClosed].
func (s *Storage) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}
	return s.db.Close()
}

func (s *Storage) wrap(err error) error {
	if err != nil && s.closed.Load() {
		return ErrClosed
	}
	return err
}

// ID identifies a stored segment. IDs are UUIDv7, so they sort by creation time.
type ID = string

// Entry is a stored segment.
type Entry struct {
	ID ID
	// Data is the compressed segment.
	Data []byte
	// Metadata is the JSON metadata of the segment.
	Metadata []byte
	// RawSize is the uncompressed length of the segment.
	RawSize int
	// PushedAt is the time when the segment was stored.
	PushedAt time.Time
	// ClaimedAt is the time of the last claim.
	ClaimedAt time.Time
	// ClaimedTimes is the number of times the segment has been claimed.
	ClaimedTimes int
}

// Stats represents statistics about the storage.
type Stats struct {
	// Segments is the number of stored segments, claimed or not.
	Segments int
	// Bytes is the total compressed size of the stored segments.
	Bytes int
	// RawBytes is the total uncompressed size of the stored segments.
	RawBytes int
	// NextCooldownEnd is the earliest cooldown end among released segments. It is the Unix epoch
	// when no segment was released with a cooldown.
	NextCooldownEnd time.Time
}

func open(cfg *Config) (*sql.DB, error) {
	file := cfg.file
	params := url.Values{}
	params.Add("_txlock", "immediate")
	params.Add("_timeout", "5000") // 5s
	if file == memory {
		file = uuid.NewString()
		params.Add("mode", "memory")
		params.Add("cache", "shared")
	} else {
		params.Add("_journal", "wal")
		if cfg.durable {
			params.Add("_sync", "full")
		} else {
			params.Add("_sync", "normal")
		}
	}

	dsn := url.URL{Scheme: "file", Opaque: file, RawQuery: params.Encode()}
	db, err := sql.Open("sqlite3", dsn.String())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)
	if cfg.file == memory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.workers)
		db.SetMaxIdleConns(cfg.workers)
	}

	return db, nil
}

func setup(db *sql.DB) error {
	if _, err := db.Exec(
		`
		create table if not exists segment (
			id            text primary key,
			data          blob not null,
			metadata      text not null,
			raw_size      int not null,
			pushed_at     int not null,
			claimed       int not null,
			claimed_at    int not null,
			claimed_times int not null,
			cooldown_end  int not null
		) strict
		`,
	); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(
		`
		create index if not exists idx_segment_ready_to_claim
		on segment (pushed_at, cooldown_end, id)
		where claimed = 0
		`,
	); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	// A previous process may have died holding claims.
	if _, err := db.Exec("update segment set claimed = 0 where claimed = 1"); err != nil {
		return fmt.Errorf("release segments: %w", err)
	}

	return nil
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := a.PushedAt.Compare(b.PushedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func jsonIDs(ids []ID) string {
	if ids == nil {
		ids = []ID{}
	}
	jsonIDs, _ := json.Marshal(ids)
	return string(jsonIDs)
}

func toTimestamp(time time.Time) int64 {
	return time.UnixNano()
}

func fromTimestamp(timestamp int64) time.Time {
	return time.Unix(0, timestamp)
}
