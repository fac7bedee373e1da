package badgerstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/respkv/internal/storage"
)

const headerLen = 8

// record is a decoded stored value.
type record struct {
	value []byte

	// expireAt is the expiry in Unix milliseconds; 0 means none.
	expireAt int64
}

func (r record) expiredAt(nowMs int64) bool {
	return r.expireAt != 0 && r.expireAt <= nowMs
}

func encodeRecord(value []byte, expireAt int64) []byte {
	buf := make([]byte, headerLen+len(value))
	binary.BigEndian.PutUint64(buf, uint64(expireAt))
	copy(buf[headerLen:], value)
	return buf
}

func decodeExpiry(raw []byte) int64 {
	if len(raw) < headerLen {
		return 0
	}
	return int64(binary.BigEndian.Uint64(raw))
}

// keyspace is one database, addressed by a one-byte key prefix.
type keyspace struct {
	engine *Engine
	prefix byte
}

var _ storage.Keyspace = (*keyspace)(nil)

func (ks *keyspace) storeKey(key []byte) []byte {
	k := make([]byte, 1+len(key))
	k[0] = ks.prefix
	copy(k[1:], key)
	return k
}

func (ks *keyspace) nowMs() int64 {
	return ks.engine.now().UnixMilli()
}

// load reads the live record for key.
func (ks *keyspace) load(txn *badger.Txn, key []byte, nowMs int64) (record, bool, error) {
	item, err := txn.Get(ks.storeKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return record{}, false, nil
	}
	if err != nil {
		return record{}, false, err
	}

	raw, err := item.ValueCopy(nil)
	if err != nil {
		return record{}, false, err
	}
	rec := record{expireAt: decodeExpiry(raw)}
	if len(raw) >= headerLen {
		rec.value = raw[headerLen:]
	}
	if rec.expiredAt(nowMs) {
		return record{}, false, nil
	}
	return rec, true, nil
}

// store writes value with expireAt (Unix ms, 0 for none).
func (ks *keyspace) store(txn *badger.Txn, key, value []byte, expireAt int64) error {
	entry := badger.NewEntry(ks.storeKey(key), encodeRecord(value, expireAt))
	if expireAt != 0 {
		// Round up so Badger never drops a key before its header expiry.
		entry.ExpiresAt = uint64((expireAt + 999) / 1000)
	}
	return txn.SetEntry(entry)
}

// Get returns the value of key.
func (ks *keyspace) Get(key []byte) ([]byte, bool, error) {
	var (
		rec record
		ok  bool
	)
	err := ks.engine.view(func(txn *badger.Txn) error {
		var err error
		rec, ok, err = ks.load(txn, key, ks.nowMs())
		return err
	})
	if err != nil || !ok {
		return nil, false, err
	}
	if rec.value == nil {
		rec.value = []byte{}
	}
	return rec.value, true, nil
}

// scan visits the live keys of this database that start with prefix, in
// byte order. The key passed to fn excludes the database prefix and is only
// valid during the call.
func (ks *keyspace) scan(txn *badger.Txn, prefix []byte, nowMs int64, fn func(key []byte, expireAt int64)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = append([]byte{ks.prefix}, prefix...)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		if item.IsDeletedOrExpired() {
			continue
		}
		var expireAt int64
		if err := item.Value(func(raw []byte) error {
			expireAt = decodeExpiry(raw)
			return nil
		}); err != nil {
			return err
		}
		if expireAt != 0 && expireAt <= nowMs {
			continue
		}
		fn(item.Key()[1:], expireAt)
	}
	return nil
}

// Keys returns the live keys matching pattern in byte order.
func (ks *keyspace) Keys(pattern []byte) ([][]byte, error) {
	all := storage.MatchesAll(pattern)
	prefix := storage.LiteralPrefix(pattern)

	var keys [][]byte
	err := ks.engine.view(func(txn *badger.Txn) error {
		keys = make([][]byte, 0)
		return ks.scan(txn, prefix, ks.nowMs(), func(key []byte, _ int64) {
			if all || storage.Match(pattern, key) {
				keys = append(keys, bytes.Clone(key))
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Set stores value under key.
func (ks *keyspace) Set(key, value []byte, opts storage.SetOptions) (bool, error) {
	var applied bool
	err := ks.engine.update(func(txn *badger.Txn) error {
		applied = false
		now := ks.nowMs()
		old, exists, err := ks.load(txn, key, now)
		if err != nil {
			return err
		}
		if (opts.NX && exists) || (opts.XX && !exists) {
			return nil
		}

		var expireAt int64
		switch {
		case opts.KeepTTL && exists:
			expireAt = old.expireAt
		case !opts.ExpireAt.IsZero():
			expireAt = opts.ExpireAt.UnixMilli()
		}

		applied = true
		if expireAt != 0 && expireAt <= now {
			if exists {
				return txn.Delete(ks.storeKey(key))
			}
			return nil
		}
		return ks.store(txn, key, value, expireAt)
	})
	return applied, err
}

// Delete removes keys.
func (ks *keyspace) Delete(keys ...[]byte) (int, error) {
	var removed int
	err := ks.engine.update(func(txn *badger.Txn) error {
		removed = 0
		now := ks.nowMs()
		for _, key := range keys {
			_, ok, err := ks.load(txn, key, now)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := txn.Delete(ks.storeKey(key)); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// Exists counts keys that exist.
func (ks *keyspace) Exists(keys ...[]byte) (int, error) {
	var n int
	err := ks.engine.view(func(txn *badger.Txn) error {
		now := ks.nowMs()
		for _, key := range keys {
			_, ok, err := ks.load(txn, key, now)
			if err != nil {
				return err
			}
			if ok {
				n++
			}
		}
		return nil
	})
	return n, err
}

// Expire sets the absolute expiry of key.
func (ks *keyspace) Expire(key []byte, at time.Time) (bool, error) {
	var ok bool
	err := ks.engine.update(func(txn *badger.Txn) error {
		now := ks.nowMs()
		var (
			rec record
			err error
		)
		rec, ok, err = ks.load(txn, key, now)
		if err != nil || !ok {
			return err
		}

		deadline := at.UnixMilli()
		if deadline <= now {
			return txn.Delete(ks.storeKey(key))
		}
		return ks.store(txn, key, rec.value, deadline)
	})
	return ok, err
}

// Persist clears the expiry of key.
func (ks *keyspace) Persist(key []byte) (bool, error) {
	var persisted bool
	err := ks.engine.update(func(txn *badger.Txn) error {
		persisted = false
		rec, ok, err := ks.load(txn, key, ks.nowMs())
		if err != nil || !ok || rec.expireAt == 0 {
			return err
		}
		persisted = true
		return ks.store(txn, key, rec.value, 0)
	})
	return persisted, err
}

// TTL returns the remaining time to live of key.
func (ks *keyspace) TTL(key []byte) (time.Duration, error) {
	var ttl time.Duration
	err := ks.engine.view(func(txn *badger.Txn) error {
		now := ks.nowMs()
		rec, ok, err := ks.load(txn, key, now)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrNoKey
		}
		if rec.expireAt == 0 {
			return storage.ErrNoExpiry
		}
		ttl = time.Duration(rec.expireAt-now) * time.Millisecond
		return nil
	})
	return ttl, err
}

// Len returns the number of live keys.
func (ks *keyspace) Len() (int, error) {
	stats, err := ks.Stats()
	return stats.Keys, err
}

// Stats counts live keys and keys with a timeout.
func (ks *keyspace) Stats() (storage.KeyspaceStats, error) {
	var (
		stats  storage.KeyspaceStats
		ttlSum int64
	)
	err := ks.engine.view(func(txn *badger.Txn) error {
		now := ks.nowMs()
		return ks.scan(txn, nil, now, func(_ []byte, expireAt int64) {
			stats.Keys++
			if expireAt != 0 {
				stats.Expires++
				ttlSum += expireAt - now
			}
		})
	})
	if err != nil {
		return storage.KeyspaceStats{}, err
	}
	if stats.Expires > 0 {
		stats.AvgTTL = time.Duration(ttlSum/int64(stats.Expires)) * time.Millisecond
	}
	return stats, nil
}

// Flush removes every key of this database.
func (ks *keyspace) Flush() error {
	if ks.engine.closed.Load() {
		return storage.ErrClosed
	}
	return ks.engine.mapError(ks.engine.db.DropPrefix([]byte{ks.prefix}))
}
