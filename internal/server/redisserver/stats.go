package redisserver

import (
	"sync/atomic"
	"time"
)

// serverStats are the counters reported by INFO stats.
type serverStats struct {
	connectedClients    atomic.Int64
	connectionsReceived atomic.Int64
	rejectedConnections atomic.Int64
	commandsProcessed   atomic.Int64
	errorReplies        atomic.Int64
	netInputBytes       atomic.Int64
	netOutputBytes      atomic.Int64
	keyspaceHits        atomic.Int64
	keyspaceMisses      atomic.Int64
	peakHeap            atomic.Uint64
}

// commandStats are the per-command counters reported by INFO commandstats.
type commandStats struct {
	calls         atomic.Int64
	usec          atomic.Int64
	rejectedCalls atomic.Int64
	failedCalls   atomic.Int64
}

func (c *commandStats) observe(elapsed time.Duration, failed bool) {
	c.calls.Add(1)
	c.usec.Add(elapsed.Microseconds())
	if failed {
		c.failedCalls.Add(1)
	}
}
