// Package badgerstore provides a durable storage engine on Badger v3.
//
// All databases share one Badger instance. A stored key is the database
// index byte followed by the client key, so each database is a key prefix
// and FLUSHDB is a prefix drop. A stored value is an 8-byte big-endian
// expiry in Unix milliseconds (0 for none) followed by the client value.
// Keys with a timeout are also written with a Badger TTL rounded up to the
// next second, so Badger discards them during compaction; the header gives
// millisecond precision in between.
//
// A background loop runs value log GC at the configured interval.
package badgerstore
