package kv

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/m-mizutani/goerr/v2"

	domain "github.com/bryanwahyu/prodpulse/internal/domain/analysis"
)

const seqBandwidth = 100

var (
	historyPrefix = []byte("history/")
	seqKey        = []byte("seq/history")
)

type Config struct {
	// Path is the data directory; ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger
}

// HistoryRepository stores events in an embedded Badger database. Keys are
// ordered by identity, then creation time, then id.
type HistoryRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func Open(cfg Config) (*HistoryRepository, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, goerr.New("badger path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, goerr.Wrap(err, "failed to create badger directory", goerr.V("path", cfg.Path))
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open badger", goerr.V("path", cfg.Path))
	}
	seq, err := db.GetSequence(seqKey, seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to open id sequence")
	}
	return &HistoryRepository{db: db, seq: seq}, nil
}

func (r *HistoryRepository) Append(ctx context.Context, ev *domain.Event) (domain.EventID, error) {
	if ev == nil {
		return 0, goerr.New("event is nil")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := r.seq.Next()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to allocate event id")
	}
	// sequence mulai dari 0, id mulai dari 1
	id := domain.EventID(n + 1)

	rec := *ev
	rec.ID = id
	rec.CreatedAt = ev.CreatedAt.UTC()
	value, err := json.Marshal(&rec)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to encode event")
	}

	key := eventKey(rec.Identity, rec.CreatedAt, id)
	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}); err != nil {
		return 0, goerr.Wrap(err, "failed to write event", goerr.V("identity", ev.Identity))
	}
	ev.ID = id
	return id, nil
}

func (r *HistoryRepository) CountSince(ctx context.Context, identity string, since time.Time) (int, error) {
	prefix := identityPrefix(identity)
	start := append(bytes.Clone(prefix), encodeTime(since)...)

	n := 0
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count events", goerr.V("identity", identity))
	}
	return n, nil
}

func (r *HistoryRepository) ListSince(ctx context.Context, identity string, since time.Time, limit int) ([]*domain.Event, error) {
	prefix := identityPrefix(identity)
	lower := encodeTime(since)
	out := make([]*domain.Event, 0)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		end := append(bytes.Clone(prefix), bytes.Repeat([]byte{0xff}, 16)...)
		for it.Seek(end); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if bytes.Compare(item.Key()[len(prefix):len(prefix)+8], lower) < 0 {
				break
			}
			var ev domain.Event
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return goerr.Wrap(err, "failed to decode event", goerr.V("key", string(item.Key())))
			}
			out = append(out, &ev)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list events", goerr.V("identity", identity))
	}
	return out, nil
}

func (r *HistoryRepository) Ping(ctx context.Context) error {
	if r.db.IsClosed() {
		return goerr.New("badger is closed")
	}
	return nil
}

func (r *HistoryRepository) Close() error {
	if err := r.seq.Release(); err != nil {
		_ = r.db.Close()
		return goerr.Wrap(err, "failed to release id sequence")
	}
	return r.db.Close()
}

func identityPrefix(identity string) []byte {
	p := make([]byte, 0, len(historyPrefix)+hex.EncodedLen(len(identity))+1)
	p = append(p, historyPrefix...)
	p = hex.AppendEncode(p, []byte(identity))
	return append(p, '/')
}

func eventKey(identity string, at time.Time, id domain.EventID) []byte {
	k := identityPrefix(identity)
	k = append(k, encodeTime(at)...)
	return binary.BigEndian.AppendUint64(k, uint64(id))
}

// encodeTime maps t to 8 sortable bytes. Times outside the UnixNano range clamp.
func encodeTime(t time.Time) []byte {
	var ns uint64
	switch {
	case t.Before(time.Unix(0, 0)):
		ns = 0
	case t.After(time.Unix(0, math.MaxInt64)):
		ns = math.MaxInt64
	default:
		ns = uint64(t.UnixNano())
	}
	return binary.BigEndian.AppendUint64(nil, ns)
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
