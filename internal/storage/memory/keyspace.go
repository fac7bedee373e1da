package memory

import (
	"bytes"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/yndnr/respkv/internal/storage"
)

const btreeDegree = 32

// entry is an immutable key/value pair. Updates replace the entry.
type entry struct {
	key   []byte
	value []byte

	// expireAt is the expiry in Unix nanoseconds; 0 means none.
	expireAt int64
}

func (e *entry) expiredAt(now int64) bool {
	return e.expireAt != 0 && e.expireAt <= now
}

func lessEntry(a, b *entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// keyspace is one database.
type keyspace struct {
	engine *Engine

	mu   sync.RWMutex
	tree *btree.BTreeG[*entry]

	// expires indexes entries with a timeout, keyed by string(key).
	expires map[string]*entry
}

var _ storage.Keyspace = (*keyspace)(nil)

func newKeyspace(e *Engine) *keyspace {
	return &keyspace{
		engine:  e,
		tree:    btree.NewG(btreeDegree, lessEntry),
		expires: make(map[string]*entry),
	}
}

func (ks *keyspace) nowNano() int64 {
	return ks.engine.now().UnixNano()
}

func (ks *keyspace) check() error {
	if ks.engine.closed.Load() {
		return storage.ErrClosed
	}
	return nil
}

// lookup returns the live entry for key. Caller holds mu.
func (ks *keyspace) lookup(key []byte, now int64) (*entry, bool) {
	ent, ok := ks.tree.Get(&entry{key: key})
	if !ok || ent.expiredAt(now) {
		return nil, false
	}
	return ent, true
}

// lookupForWrite is lookup that also evicts an expired entry. Caller holds
// mu for writing.
func (ks *keyspace) lookupForWrite(key []byte, now int64) (*entry, bool) {
	ent, ok := ks.tree.Get(&entry{key: key})
	if !ok {
		return nil, false
	}
	if ent.expiredAt(now) {
		ks.evict(ent)
		return nil, false
	}
	return ent, true
}

// evict removes an expired entry. Caller holds mu for writing.
func (ks *keyspace) evict(ent *entry) {
	ks.remove(ent)
	ks.engine.expired.Add(1)
}

func (ks *keyspace) remove(ent *entry) {
	ks.tree.Delete(ent)
	if ent.expireAt != 0 {
		delete(ks.expires, string(ent.key))
	}
}

// put installs ent, replacing any entry with the same key. Caller holds mu
// for writing.
func (ks *keyspace) put(ent *entry) {
	ks.tree.ReplaceOrInsert(ent)
	if ent.expireAt != 0 {
		ks.expires[string(ent.key)] = ent
	} else {
		delete(ks.expires, string(ent.key))
	}
}

// Get returns the value of key.
func (ks *keyspace) Get(key []byte) ([]byte, bool, error) {
	if err := ks.check(); err != nil {
		return nil, false, err
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()

	ent, ok := ks.lookup(key, ks.nowNano())
	if !ok {
		return nil, false, nil
	}
	return ent.value, true, nil
}

// Keys returns the live keys matching pattern in byte order.
func (ks *keyspace) Keys(pattern []byte) ([][]byte, error) {
	if err := ks.check(); err != nil {
		return nil, err
	}

	all := storage.MatchesAll(pattern)
	prefix := storage.LiteralPrefix(pattern)

	ks.mu.RLock()
	defer ks.mu.RUnlock()

	now := ks.nowNano()
	keys := make([][]byte, 0)
	visit := func(ent *entry) bool {
		if len(prefix) > 0 && !bytes.HasPrefix(ent.key, prefix) {
			return false
		}
		if ent.expiredAt(now) {
			return true
		}
		if all || storage.Match(pattern, ent.key) {
			keys = append(keys, bytes.Clone(ent.key))
		}
		return true
	}

	if len(prefix) > 0 {
		ks.tree.AscendGreaterOrEqual(&entry{key: prefix}, visit)
	} else {
		ks.tree.Ascend(visit)
	}
	return keys, nil
}

// Set stores value under key.
func (ks *keyspace) Set(key, value []byte, opts storage.SetOptions) (bool, error) {
	if err := ks.check(); err != nil {
		return false, err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	now := ks.nowNano()
	old, exists := ks.lookupForWrite(key, now)
	if (opts.NX && exists) || (opts.XX && !exists) {
		return false, nil
	}

	ent := &entry{value: bytes.Clone(value)}
	if ent.value == nil {
		ent.value = []byte{}
	}
	if exists {
		ent.key = old.key
	} else {
		ent.key = bytes.Clone(key)
	}

	switch {
	case opts.KeepTTL && exists:
		ent.expireAt = old.expireAt
	case !opts.ExpireAt.IsZero():
		ent.expireAt = opts.ExpireAt.UnixNano()
	}

	if ent.expiredAt(now) {
		// An expiry already in the past behaves as an immediate delete.
		if exists {
			ks.remove(old)
		}
		ks.engine.expired.Add(1)
		return true, nil
	}

	ks.put(ent)
	return true, nil
}

// Delete removes keys.
func (ks *keyspace) Delete(keys ...[]byte) (int, error) {
	if err := ks.check(); err != nil {
		return 0, err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	now := ks.nowNano()
	removed := 0
	for _, key := range keys {
		ent, ok := ks.lookupForWrite(key, now)
		if !ok {
			continue
		}
		ks.remove(ent)
		removed++
	}
	return removed, nil
}

// Exists counts keys that exist.
func (ks *keyspace) Exists(keys ...[]byte) (int, error) {
	if err := ks.check(); err != nil {
		return 0, err
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()

	now := ks.nowNano()
	n := 0
	for _, key := range keys {
		if _, ok := ks.lookup(key, now); ok {
			n++
		}
	}
	return n, nil
}

// Expire sets the absolute expiry of key.
func (ks *keyspace) Expire(key []byte, at time.Time) (bool, error) {
	if err := ks.check(); err != nil {
		return false, err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	now := ks.nowNano()
	ent, ok := ks.lookupForWrite(key, now)
	if !ok {
		return false, nil
	}

	deadline := at.UnixNano()
	if deadline <= now {
		ks.remove(ent)
		return true, nil
	}

	ks.put(&entry{key: ent.key, value: ent.value, expireAt: deadline})
	return true, nil
}

// Persist clears the expiry of key.
func (ks *keyspace) Persist(key []byte) (bool, error) {
	if err := ks.check(); err != nil {
		return false, err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	ent, ok := ks.lookupForWrite(key, ks.nowNano())
	if !ok || ent.expireAt == 0 {
		return false, nil
	}

	ks.put(&entry{key: ent.key, value: ent.value})
	return true, nil
}

// TTL returns the remaining time to live of key.
func (ks *keyspace) TTL(key []byte) (time.Duration, error) {
	if err := ks.check(); err != nil {
		return 0, err
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()

	now := ks.nowNano()
	ent, ok := ks.lookup(key, now)
	if !ok {
		return 0, storage.ErrNoKey
	}
	if ent.expireAt == 0 {
		return 0, storage.ErrNoExpiry
	}
	return time.Duration(ent.expireAt - now), nil
}

// Len returns the number of live keys.
func (ks *keyspace) Len() (int, error) {
	stats, err := ks.Stats()
	if err != nil {
		return 0, err
	}
	return stats.Keys, nil
}

// Stats counts live keys and keys with a timeout.
func (ks *keyspace) Stats() (storage.KeyspaceStats, error) {
	if err := ks.check(); err != nil {
		return storage.KeyspaceStats{}, err
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()

	now := ks.nowNano()
	var (
		stale    int
		volatile int
		ttlSum   int64
	)
	for _, ent := range ks.expires {
		if ent.expiredAt(now) {
			stale++
			continue
		}
		volatile++
		ttlSum += ent.expireAt - now
	}

	stats := storage.KeyspaceStats{
		Keys:    ks.tree.Len() - stale,
		Expires: volatile,
	}
	if volatile > 0 {
		stats.AvgTTL = time.Duration(ttlSum / int64(volatile))
	}
	return stats, nil
}

// Flush removes every key.
func (ks *keyspace) Flush() error {
	if err := ks.check(); err != nil {
		return err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.tree.Clear(false)
	ks.expires = make(map[string]*entry)
	return nil
}
