// Package logstore implements the replicated log store: an append-only,
// fsync-on-write record of {index, term, type, bytes} entries backed by
// go.etcd.io/bbolt, the same embedded-storage library the teacher uses for
// its own state (pkg/storage/boltdb.go). Every append blocks the caller
// until the entry is durable on disk, mirroring logStoreAppendEntry's
// walFsync(pWal, true) in the original core.
//
// The store satisfies hashicorp/raft's LogStore interface directly so a
// real raft.Raft can be built on top of it without an adapter layer, the
// way the teacher hands raftboltdb's BoltStore to raft.NewRaft.
package logstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/hashicorp/raft"
	bolt "go.etcd.io/bbolt"

	"github.com/chronodb/nodecore/pkg/types"
)

var (
	bucketEntries = []byte("entries")
	bucketMeta    = []byte("meta")

	keyDurableIndex = []byte("durable_index")
)

// CommitIndexProvider supplies the consensus-node-owned application commit
// index. The log store's own durable index (the highest index fsynced to
// disk) is tracked internally; the *applied* commit index is deliberately
// not — it belongs to whatever drives the state machine forward, mirroring
// logStoreGetCommitIndex's `return pData->pSyncNode->commitIndex` in the
// original core rather than reading it back out of the WAL.
type CommitIndexProvider interface {
	CommitIndex() uint64
}

// Store is the bbolt-backed log store for one role's replicated log.
type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	parent CommitIndexProvider

	firstIndex uint64
	lastIndex  uint64
	lastTerm   uint64
}

// Open opens (creating if necessary) the WAL file at <dir>/log.db.
func Open(dir string, parent CommitIndexProvider) (*Store, error) {
	path := filepath.Join(dir, "log.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, types.WrapError(types.ErrIO, "open log store", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		db.Close()
		return nil, types.WrapError(types.ErrWal, "initialize log store buckets", err)
	}

	s := &Store{db: db, parent: parent}
	if err := s.loadBounds(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) loadBounds() error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		c := b.Cursor()

		if k, v := c.First(); k != nil {
			s.firstIndex = indexFromKey(k)
			_ = v
		}
		if k, v := c.Last(); k != nil {
			s.lastIndex = indexFromKey(k)
			e, err := decodeEntry(k, v)
			if err != nil {
				return err
			}
			s.lastTerm = e.Term
		}
		return nil
	})
}

func indexKey(index uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, index)
	return k
}

func indexFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k)
}

type entryValue struct {
	Term  uint64
	Type  types.EntryType
	Bytes []byte
}

func encodeEntry(v entryValue) ([]byte, error) {
	return json.Marshal(v)
}

func decodeEntry(k, data []byte) (types.Entry, error) {
	var v entryValue
	if err := json.Unmarshal(data, &v); err != nil {
		return types.Entry{}, err
	}
	return types.Entry{
		Index: indexFromKey(k),
		Term:  v.Term,
		Type:  v.Type,
		Bytes: v.Bytes,
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes entry to the log and fsyncs before returning, the
// blocking-caller-until-durable contract spec.md requires. On a non-empty
// log index must be exactly LastIndex()+1; out-of-order appends are a
// programmer error in this core, same as the assert(pEntry->index ==
// lastIndex+1) in logStoreAppendEntry. An append to an empty log is
// accepted at any index and sets FirstIndex.
func (s *Store) Append(entry types.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastIndex != 0 && entry.Index != s.lastIndex+1 {
		return types.NewError(types.ErrWal, fmt.Sprintf("append out of order: got index %d, want %d", entry.Index, s.lastIndex+1))
	}

	val, err := encodeEntry(entryValue{Term: entry.Term, Type: entry.Type, Bytes: entry.Bytes})
	if err != nil {
		return types.WrapError(types.ErrWal, "encode entry", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put(indexKey(entry.Index), val)
	})
	if err != nil {
		// WAL errors are propagated to the caller rather than discarded:
		// unlike the original core's release-build logStoreAppendEntry
		// (which only asserts in debug), callers here must see append
		// failures so they can halt rather than report false durability.
		return types.WrapError(types.ErrWal, "append log entry", err)
	}

	if s.firstIndex == 0 {
		s.firstIndex = entry.Index
	}
	s.lastIndex = entry.Index
	s.lastTerm = entry.Term
	return nil
}

// Get reads the entry at index.
func (s *Store) Get(index uint64) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(index)
}

// getLocked is Get's body without its own locking, for callers that already
// hold s.mu (in either mode — bolt.Tx.View doesn't care which, and nothing
// here mutates Store fields). A missing or out-of-range index is a normal
// NotFound outcome, not a WAL failure, so callers can tell the two apart.
func (s *Store) getLocked(index uint64) (types.Entry, error) {
	if index < s.firstIndex || index > s.lastIndex || s.lastIndex == 0 {
		return types.Entry{}, types.NewError(types.ErrNotFound, fmt.Sprintf("index %d out of range [%d,%d]", index, s.firstIndex, s.lastIndex))
	}

	var entry types.Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		k := indexKey(index)
		v := tx.Bucket(bucketEntries).Get(k)
		if v == nil {
			return types.NewError(types.ErrNotFound, fmt.Sprintf("missing entry at index %d", index))
		}
		e, err := decodeEntry(k, v)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, err
}

// Truncate discards every entry from fromIndex onward, the Go analogue of
// logStoreTruncate's walRollback.
func (s *Store) Truncate(fromIndex uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		c := b.Cursor()
		for k, _ := c.Seek(indexKey(fromIndex)); k != nil; k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return types.WrapError(types.ErrWal, "truncate log store", err)
	}

	if fromIndex > s.lastIndex {
		return nil
	}
	if fromIndex <= s.firstIndex {
		s.firstIndex = 0
		s.lastIndex = 0
		s.lastTerm = 0
		return nil
	}
	s.lastIndex = fromIndex - 1
	if e, err := s.getLocked(s.lastIndex); err == nil {
		s.lastTerm = e.Term
	}
	return nil
}

// LastIndex returns the highest durable index, or 0 if the log is empty.
func (s *Store) LastIndex() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastIndex
}

// LastTerm returns the term of the last durable entry.
func (s *Store) LastTerm() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTerm
}

// UpdateCommitIndex persists the durability-side commit index, i.e. how
// far the WAL itself has been told it is safe to truncate behind. This is
// distinct from CommitIndex below.
func (s *Store) UpdateCommitIndex(index uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, index)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyDurableIndex, buf)
	})
	if err != nil {
		return types.WrapError(types.ErrWal, "update commit index", err)
	}
	return nil
}

// CommitIndex returns the consensus-node-owned application commit index
// via the parent provider, not the WAL's own durable index — see the
// package doc comment and logStoreGetCommitIndex in the original core.
func (s *Store) CommitIndex() uint64 {
	if s.parent == nil {
		return 0
	}
	return s.parent.CommitIndex()
}

// Describe returns a diagnostic snapshot of the store's bounds. It is not
// part of the hot path, the Go replacement for the original core's debug
// JSON dumpers (logStore2Json and friends).
type Snapshot struct {
	FirstIndex uint64
	LastIndex  uint64
	LastTerm   uint64
	CommitIdx  uint64
}

func (s *Store) Describe() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		FirstIndex: s.firstIndex,
		LastIndex:  s.lastIndex,
		LastTerm:   s.lastTerm,
		CommitIdx:  s.CommitIndex(),
	}
}

// --- raft.LogStore ---

var _ raft.LogStore = (*Store)(nil)

func (s *Store) FirstIndex() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.firstIndex, nil
}

func (s *Store) GetLog(index uint64, log *raft.Log) error {
	e, err := s.Get(index)
	if err != nil {
		return err
	}
	log.Index = e.Index
	log.Term = e.Term
	log.Type = raft.LogType(e.Type)
	log.Data = e.Bytes
	return nil
}

func (s *Store) StoreLog(log *raft.Log) error {
	return s.StoreLogs([]*raft.Log{log})
}

func (s *Store) StoreLogs(logs []*raft.Log) error {
	for _, log := range logs {
		entry := types.Entry{
			Index: log.Index,
			Term:  log.Term,
			Type:  types.EntryType(log.Type),
			Bytes: log.Data,
		}
		if err := s.Append(entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteRange(min, max uint64) error {
	// raft only ever calls DeleteRange with min == FirstIndex() (log
	// compaction) or to clear a whole log on reset; Truncate from min
	// covers both since this store only ever drops a contiguous tail.
	_ = max
	return s.Truncate(min)
}
