package redisserver

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/respkv/internal/protocol/resp"
	"github.com/yndnr/respkv/internal/storage"
)

// client is the server side of one connection. Fields above mu are owned
// by the connection goroutine; fields guarded by mu are also read by
// CLIENT LIST from other connections.
type client struct {
	id        int64
	conn      net.Conn
	dec       *resp.Decoder
	w         *resp.Writer
	addr      string
	laddr     string
	createdAt time.Time
	limiter   *rate.Limiter

	db              storage.Keyspace
	authenticated   bool
	closeAfterReply bool

	mu         sync.Mutex
	name       string
	dbIndex    int
	lastCmd    string
	lastActive time.Time

	closed atomic.Bool
}

func (s *Server) newClient(nc net.Conn) *client {
	now := time.Now()
	c := &client{
		id:            s.nextID.Add(1),
		conn:          nc,
		dec:           resp.NewDecoder(),
		w:             resp.NewWriter(countingWriter{w: nc, n: &s.stats.netOutputBytes}),
		addr:          addrString(nc.RemoteAddr()),
		laddr:         addrString(nc.LocalAddr()),
		createdAt:     now,
		lastActive:    now,
		authenticated: s.auth == nil,
	}
	if s.cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), max(s.cfg.RateBurst, 1))
	}
	return c
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}

func (c *client) close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

func (c *client) selectDB(index int, ks storage.Keyspace) {
	c.db = ks
	c.mu.Lock()
	c.dbIndex = index
	c.mu.Unlock()
}

func (c *client) touch(cmd string) {
	c.mu.Lock()
	c.lastCmd = cmd
	c.lastActive = time.Now()
	c.mu.Unlock()
}

func (c *client) setName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

func (c *client) getName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// info renders the CLIENT LIST line of c.
func (c *client) info(now time.Time) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd := c.lastCmd
	if cmd == "" {
		cmd = "NULL"
	}
	return fmt.Sprintf("id=%d addr=%s laddr=%s name=%s age=%d idle=%d flags=N db=%d cmd=%s",
		c.id, c.addr, c.laddr, c.name,
		int64(now.Sub(c.createdAt).Seconds()),
		int64(now.Sub(c.lastActive).Seconds()),
		c.dbIndex, cmd)
}

// clientList renders every connected client ordered by id.
func (s *Server) clientList() string {
	clients := s.clients.Values()
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	now := time.Now()
	var b strings.Builder
	for _, c := range clients {
		b.WriteString(c.info(now))
		b.WriteByte('\n')
	}
	return b.String()
}
