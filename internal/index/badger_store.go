package index

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	xxhash "github.com/OneOfOne/xxhash"
	"github.com/dgraph-io/badger/v3"

	"github.com/paraswtf/fftrack/internal/config"
	"github.com/paraswtf/fftrack/internal/fftrackerr"
	"github.com/paraswtf/fftrack/internal/fingerprint"
)

var (
	headerKey    = []byte{0x00}
	deletedPfx   = byte(0x01)
	postingPfx   = byte(0x02)
)

// BadgerIndex is the Index backed by an embedded Badger database, the
// same store the teacher's indexer and matcher open directly.
type BadgerIndex struct {
	db *badger.DB

	mu      sync.RWMutex
	deleted map[uint64]struct{}
	header  config.Header
}

// Open opens (creating if absent) a Badger index at dir and checks its
// persisted header against cfg. dir == "" opens an in-memory store, used
// by tests. A brand-new store adopts cfg's header; an existing store with
// a differing header returns SchemaMismatch before any payload I/O runs.
func Open(dir string, cfg config.Config) (*BadgerIndex, error) {
	const op = "index.Open"
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fftrackerr.New(op, fftrackerr.Internal, err)
	}

	idx := &BadgerIndex{db: db, deleted: make(map[uint64]struct{})}
	wantHeader := cfg.Header()

	existing, ok, err := readHeader(db)
	if err != nil {
		db.Close()
		return nil, fftrackerr.New(op, fftrackerr.StoreCorruption, err)
	}
	if !ok {
		if err := writeHeader(db, wantHeader); err != nil {
			db.Close()
			return nil, fftrackerr.New(op, fftrackerr.Internal, err)
		}
		idx.header = wantHeader
	} else {
		if !existing.Compatible(wantHeader) {
			db.Close()
			return nil, fftrackerr.New(op, fftrackerr.SchemaMismatch, nil)
		}
		idx.header = existing
	}

	if err := idx.loadTombstones(); err != nil {
		db.Close()
		return nil, fftrackerr.New(op, fftrackerr.Internal, err)
	}
	return idx, nil
}

func headerBytes(h config.Header) []byte {
	buf := make([]byte, 8*5)
	binary.BigEndian.PutUint64(buf[0:8], uint64(h.SchemaVersion))
	binary.BigEndian.PutUint64(buf[8:16], uint64(h.Fs))
	binary.BigEndian.PutUint64(buf[16:24], uint64(h.W))
	binary.BigEndian.PutUint64(buf[24:32], uint64(h.H))
	binary.BigEndian.PutUint64(buf[32:40], uint64(h.PMax))
	return buf
}

func writeHeader(db *badger.DB, h config.Header) error {
	body := headerBytes(h)
	sum := xxhash.Checksum64(body)
	val := make([]byte, len(body)+8)
	copy(val, body)
	binary.BigEndian.PutUint64(val[len(body):], sum)
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(headerKey, val)
	})
}

func readHeader(db *badger.DB) (config.Header, bool, error) {
	var h config.Header
	var found bool
	var val []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(headerKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(v []byte) error {
			val = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil || !found {
		return h, found, err
	}
	if len(val) != 8*5+8 {
		return h, true, errors.New("index: corrupt header length")
	}
	body, sum := val[:8*5], val[8*5:]
	if xxhash.Checksum64(body) != binary.BigEndian.Uint64(sum) {
		return h, true, errors.New("index: header checksum mismatch")
	}
	h = config.Header{
		SchemaVersion: int(binary.BigEndian.Uint64(body[0:8])),
		Fs:            int(binary.BigEndian.Uint64(body[8:16])),
		W:             int(binary.BigEndian.Uint64(body[16:24])),
		H:             int(binary.BigEndian.Uint64(body[24:32])),
		PMax:          int(binary.BigEndian.Uint64(body[32:40])),
	}
	return h, true, nil
}

func (idx *BadgerIndex) loadTombstones() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{deletedPfx}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if len(key) != 9 {
				continue
			}
			idx.deleted[binary.BigEndian.Uint64(key[1:])] = struct{}{}
		}
		return nil
	})
}

func postingKey(h uint32, trackID uint64, anchorT int) []byte {
	key := make([]byte, 1+4+8+4)
	key[0] = postingPfx
	binary.BigEndian.PutUint32(key[1:5], h)
	binary.BigEndian.PutUint64(key[5:13], trackID)
	binary.BigEndian.PutUint32(key[13:17], uint32(anchorT))
	return key
}

func postingHashPrefix(h uint32) []byte {
	key := make([]byte, 1+4)
	key[0] = postingPfx
	binary.BigEndian.PutUint32(key[1:5], h)
	return key
}

// InsertTrack writes every posting for trackID inside a single Badger
// transaction: Badger's transactions are all-or-nothing, so a crash
// mid-ingest leaves either the fully-populated set of postings or none of
// them, matching the atomic-ingest invariant. A track's postings never
// arrive twice with the same key (hash, trackID, anchor) forms the key),
// so re-running a failed ingest is safe.
func (idx *BadgerIndex) InsertTrack(ctx context.Context, trackID uint64, hashes []fingerprint.Hash) error {
	const op = "index.InsertTrack"
	select {
	case <-ctx.Done():
		return fftrackerr.New(op, fftrackerr.Cancelled, ctx.Err())
	default:
	}

	err := idx.db.Update(func(txn *badger.Txn) error {
		for _, h := range hashes {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			key := postingKey(h.H, trackID, h.TA)
			if err := txn.Set(key, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fftrackerr.New(op, fftrackerr.Cancelled, err)
		}
		return fftrackerr.New(op, fftrackerr.Internal, err)
	}

	idx.mu.Lock()
	delete(idx.deleted, trackID)
	idx.mu.Unlock()
	return nil
}

// Lookup scans the postings sharing hash h's key prefix. If the posting
// count exceeds the index's P_max, h is a hot hash and Lookup returns nil
// without reporting an error: hot hashes carry little discriminative
// power and scanning their full posting list would dominate query cost.
func (idx *BadgerIndex) Lookup(ctx context.Context, h uint32) ([]Posting, error) {
	const op = "index.Lookup"
	select {
	case <-ctx.Done():
		return nil, fftrackerr.New(op, fftrackerr.Cancelled, ctx.Err())
	default:
	}

	prefix := postingHashPrefix(h)
	var out []Posting
	err := idx.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if len(key) != 17 {
				continue
			}
			trackID := binary.BigEndian.Uint64(key[5:13])
			anchor := int(int32(binary.BigEndian.Uint32(key[13:17])))
			out = append(out, Posting{TrackID: trackID, AnchorT: anchor})
			if len(out) > idx.header.PMax {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fftrackerr.New(op, fftrackerr.Internal, err)
	}
	if len(out) > idx.header.PMax {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.deleted) == 0 {
		return out, nil
	}
	filtered := out[:0:0]
	for _, p := range out {
		if _, dead := idx.deleted[p.TrackID]; dead {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

// DeleteTrack tombstones trackID: it is persisted immediately so Lookup
// never returns its postings again, even across a restart. The postings
// themselves are then deleted by purgePostings before DeleteTrack returns,
// and are never observed once the tombstone key is durable.
func (idx *BadgerIndex) DeleteTrack(ctx context.Context, trackID uint64) error {
	const op = "index.DeleteTrack"
	key := make([]byte, 9)
	key[0] = deletedPfx
	binary.BigEndian.PutUint64(key[1:], trackID)

	err := idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, nil)
	})
	if err != nil {
		return fftrackerr.New(op, fftrackerr.Internal, err)
	}

	idx.mu.Lock()
	idx.deleted[trackID] = struct{}{}
	idx.mu.Unlock()

	return idx.purgePostings(trackID)
}

// purgePostings physically deletes trackID's posting keys via a batched
// full scan. It runs after the tombstone is durable, so a crash midway
// only leaves unreachable garbage, never a visible posting.
func (idx *BadgerIndex) purgePostings(trackID uint64) error {
	wb := idx.db.NewWriteBatch()
	defer wb.Cancel()

	err := idx.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{postingPfx}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if len(key) != 17 {
				continue
			}
			if binary.BigEndian.Uint64(key[5:13]) != trackID {
				continue
			}
			if err := wb.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return wb.Flush()
}

func (idx *BadgerIndex) SchemaVersion() int { return idx.header.SchemaVersion }

func (idx *BadgerIndex) Header() config.Header { return idx.header }

func (idx *BadgerIndex) Close() error { return idx.db.Close() }
