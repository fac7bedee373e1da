package redisserver

import (
	"errors"
	"strconv"
	"time"

	"github.com/yndnr/respkv/internal/protocol/resp"
	"github.com/yndnr/respkv/internal/storage"
)

// DEL key [key ...]
func cmdDel(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.DB.Delete(args[1:]...)
	if err != nil {
		return ctx.storageError(err)
	}
	return resp.Integer(int64(n))
}

// EXISTS key [key ...]
func cmdExists(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.DB.Exists(args[1:]...)
	if err != nil {
		return ctx.storageError(err)
	}
	return resp.Integer(int64(n))
}

// EXPIRE key seconds
func cmdExpire(ctx *Context, args [][]byte) resp.Value {
	return expireGeneric(ctx, args, time.Second)
}

// PEXPIRE key milliseconds
func cmdPExpire(ctx *Context, args [][]byte) resp.Value {
	return expireGeneric(ctx, args, time.Millisecond)
}

// expireGeneric sets a relative timeout. A non-positive timeout deletes
// the key.
func expireGeneric(ctx *Context, args [][]byte, unit time.Duration) resp.Value {
	n, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return resp.Error(errNotInteger)
	}
	at, ok := expireTime(ctx.Now(), n, unit)
	if !ok {
		return resp.Errorf("ERR invalid expire time in '%s' command", ctx.cmd.Name)
	}

	set, err := ctx.DB.Expire(args[1], at)
	if err != nil {
		return ctx.storageError(err)
	}
	return boolInteger(set)
}

// TTL key
func cmdTTL(ctx *Context, args [][]byte) resp.Value {
	return ttlGeneric(ctx, args[1], time.Second)
}

// PTTL key
func cmdPTTL(ctx *Context, args [][]byte) resp.Value {
	return ttlGeneric(ctx, args[1], time.Millisecond)
}

// ttlGeneric returns the remaining time to live in unit, rounded to the
// nearest unit, -1 for a key without expiry and -2 for a missing key.
func ttlGeneric(ctx *Context, key []byte, unit time.Duration) resp.Value {
	ttl, err := ctx.DB.TTL(key)
	switch {
	case errors.Is(err, storage.ErrNoKey):
		return resp.Integer(-2)
	case errors.Is(err, storage.ErrNoExpiry):
		return resp.Integer(-1)
	case err != nil:
		return ctx.storageError(err)
	}

	ms := ttl.Milliseconds()
	if unit == time.Second {
		return resp.Integer((ms + 500) / 1000)
	}
	return resp.Integer(ms)
}

// PERSIST key
func cmdPersist(ctx *Context, args [][]byte) resp.Value {
	removed, err := ctx.DB.Persist(args[1])
	if err != nil {
		return ctx.storageError(err)
	}
	return boolInteger(removed)
}

// KEYS pattern
func cmdKeys(ctx *Context, args [][]byte) resp.Value {
	keys, err := ctx.DB.Keys(args[1])
	if err != nil {
		return ctx.storageError(err)
	}
	return resp.BulkArray(keys)
}

func boolInteger(b bool) resp.Value {
	if b {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}
