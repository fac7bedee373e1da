package redisserver

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/respkv/internal/protocol/resp"
	"github.com/yndnr/respkv/internal/storage"
)

// GET key
func cmdGet(ctx *Context, args [][]byte) resp.Value {
	value, ok, err := ctx.DB.Get(args[1])
	if err != nil {
		return ctx.storageError(err)
	}

	ctx.srv.keyspaceLookup(ok)
	if !ok {
		return resp.NullBulk()
	}
	return resp.Bulk(value)
}

// SET key value [NX | XX] [EX seconds | PX milliseconds | KEEPTTL]
func cmdSet(ctx *Context, args [][]byte) resp.Value {
	opts, errReply, ok := parseSetOptions(args[3:], ctx.Now())
	if !ok {
		return errReply
	}

	written, err := ctx.DB.Set(args[1], args[2], opts)
	if err != nil {
		return ctx.storageError(err)
	}
	if !written {
		return resp.NullBulk()
	}
	return resp.OK()
}

func parseSetOptions(args [][]byte, now time.Time) (storage.SetOptions, resp.Value, bool) {
	var (
		opts    storage.SetOptions
		expires bool
	)

	for i := 0; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "NX":
			if opts.XX {
				return opts, resp.Error(errSyntax), false
			}
			opts.NX = true
		case "XX":
			if opts.NX {
				return opts, resp.Error(errSyntax), false
			}
			opts.XX = true
		case "KEEPTTL":
			if expires {
				return opts, resp.Error(errSyntax), false
			}
			opts.KeepTTL = true
		case "EX", "PX":
			if expires || opts.KeepTTL || i+1 >= len(args) {
				return opts, resp.Error(errSyntax), false
			}
			unit := time.Second
			if strings.EqualFold(string(args[i]), "PX") {
				unit = time.Millisecond
			}
			i++
			n, err := strconv.ParseInt(string(args[i]), 10, 64)
			if err != nil {
				return opts, resp.Error(errNotInteger), false
			}
			at, ok := expireTime(now, n, unit)
			if !ok || n <= 0 {
				return opts, resp.Error("ERR invalid expire time in 'set' command"), false
			}
			opts.ExpireAt = at
			expires = true
		default:
			return opts, resp.Error(errSyntax), false
		}
	}
	return opts, resp.Value{}, true
}

// expireTime returns now plus n units. It reports false when the deadline
// does not fit in int64 nanoseconds since the epoch. A non-positive n yields
// now.
func expireTime(now time.Time, n int64, unit time.Duration) (time.Time, bool) {
	if n > math.MaxInt64/int64(unit) || n < math.MinInt64/int64(unit) {
		return time.Time{}, false
	}
	d := time.Duration(n) * unit
	if d <= 0 {
		return now, true
	}
	if int64(d) > math.MaxInt64-now.UnixNano() {
		return time.Time{}, false
	}
	return now.Add(d), true
}
