package redisserver

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/protocol/resp"
	"github.com/yndnr/respkv/internal/storage"
)

// compatVersion is the Redis version whose RESP2 behavior the server
// follows. Client libraries read it from INFO to pick features.
const compatVersion = "7.0.0"

type infoSection struct {
	name      string
	title     string
	inDefault bool
	render    func(s *Server, b *infoBuilder) error
}

var infoSections = []infoSection{
	{"server", "Server", true, (*Server).infoServer},
	{"clients", "Clients", true, (*Server).infoClients},
	{"memory", "Memory", true, (*Server).infoMemory},
	{"persistence", "Persistence", true, (*Server).infoPersistence},
	{"stats", "Stats", true, (*Server).infoStats},
	{"replication", "Replication", true, (*Server).infoReplication},
	{"cpu", "CPU", true, (*Server).infoCPU},
	{"commandstats", "Commandstats", false, (*Server).infoCommandStats},
	{"keyspace", "Keyspace", true, (*Server).infoKeyspace},
}

// INFO [section]
func cmdInfo(ctx *Context, args [][]byte) resp.Value {
	section := "default"
	if len(args) == 2 {
		section = strings.ToLower(string(args[1]))
	}

	text, err := ctx.srv.info(section)
	if err != nil {
		return ctx.storageError(err)
	}
	return resp.BulkString(text)
}

// info renders the requested section. "all" and "everything" select every
// section and "default" the default ones; an unknown name yields "".
func (s *Server) info(section string) (string, error) {
	var parts []string
	for _, sec := range infoSections {
		var include bool
		switch section {
		case "all", "everything":
			include = true
		case "default":
			include = sec.inDefault
		default:
			include = section == sec.name
		}
		if !include {
			continue
		}

		b := &infoBuilder{}
		b.sb.WriteString("# " + sec.title + "\r\n")
		if err := sec.render(s, b); err != nil {
			return "", err
		}
		parts = append(parts, b.sb.String())
	}
	return strings.Join(parts, "\r\n"), nil
}

type infoBuilder struct {
	sb strings.Builder
}

func (b *infoBuilder) add(key string, value any) {
	fmt.Fprintf(&b.sb, "%s:%v\r\n", key, value)
}

func (s *Server) infoServer(b *infoBuilder) error {
	bi := buildinfo.Get()
	uptime := int64(time.Since(s.startTime).Seconds())
	executable, _ := os.Executable()

	b.add("redis_version", compatVersion)
	b.add("respkv_version", bi.Version)
	b.add("redis_git_sha1", bi.ShortCommit())
	b.add("redis_git_dirty", boolFlag(bi.Modified))
	b.add("redis_mode", "standalone")
	b.add("os", runtime.GOOS+" "+runtime.GOARCH)
	b.add("arch_bits", strconv.IntSize)
	b.add("go_version", bi.GoVersion)
	b.add("process_id", os.Getpid())
	b.add("run_id", s.runID)
	b.add("tcp_port", s.tcpPort())
	b.add("server_time_usec", time.Now().UnixMicro())
	b.add("uptime_in_seconds", uptime)
	b.add("uptime_in_days", uptime/86400)
	b.add("hz", s.cfg.Hz)
	b.add("configured_hz", s.cfg.Hz)
	b.add("executable", executable)
	b.add("config_file", s.cfg.ConfigFile)
	return nil
}

// tcpPort returns the port of the plain listener, falling back to the
// configured address before it is bound.
func (s *Server) tcpPort() int {
	addr := s.cfg.Addr
	if a := s.Addr(); a != nil {
		addr = a.String()
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}

func (s *Server) infoClients(b *infoBuilder) error {
	b.add("connected_clients", s.clients.Count())
	b.add("maxclients", s.maxClients())
	b.add("blocked_clients", 0)
	return nil
}

func (s *Server) infoMemory(b *infoBuilder) error {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	used := ms.HeapAlloc
	peak := s.stats.peakHeap.Load()
	for used > peak && !s.stats.peakHeap.CompareAndSwap(peak, used) {
		peak = s.stats.peakHeap.Load()
	}
	if used > peak {
		peak = used
	}

	rss := ms.Sys
	var total uint64
	if s.procstat != nil {
		if sample, err := s.procstat.Sample(); err == nil {
			if sample.RSS > 0 {
				rss = sample.RSS
			}
			total = sample.TotalSystemMemory
		}
	}

	b.add("used_memory", used)
	b.add("used_memory_human", humanBytes(used))
	b.add("used_memory_rss", rss)
	b.add("used_memory_rss_human", humanBytes(rss))
	b.add("used_memory_peak", peak)
	b.add("used_memory_peak_human", humanBytes(peak))
	b.add("used_memory_sys", ms.Sys)
	b.add("total_system_memory", total)
	b.add("total_system_memory_human", humanBytes(total))
	b.add("maxmemory", 0)
	b.add("maxmemory_human", "0B")
	b.add("maxmemory_policy", "noeviction")
	ratio := 0.0
	if used > 0 {
		ratio = float64(rss) / float64(used)
	}
	b.add("mem_fragmentation_ratio", fmt.Sprintf("%.2f", ratio))
	b.add("mem_allocator", "go")
	return nil
}

func (s *Server) infoPersistence(b *infoBuilder) error {
	b.add("loading", 0)
	b.add("storage_engine", s.cfg.StorageEngine)
	b.add("rdb_changes_since_last_save", 0)
	b.add("rdb_bgsave_in_progress", 0)
	b.add("rdb_last_save_time", s.startTime.Unix())
	b.add("aof_enabled", 0)
	return nil
}

func (s *Server) infoStats(b *infoBuilder) error {
	var expired int64
	if ec, ok := s.engine.(storage.ExpiryCounter); ok {
		expired = ec.ExpiredKeys()
	}

	b.add("total_connections_received", s.stats.connectionsReceived.Load())
	b.add("total_commands_processed", s.stats.commandsProcessed.Load())
	b.add("total_net_input_bytes", s.stats.netInputBytes.Load())
	b.add("total_net_output_bytes", s.stats.netOutputBytes.Load())
	b.add("rejected_connections", s.stats.rejectedConnections.Load())
	b.add("expired_keys", expired)
	b.add("evicted_keys", 0)
	b.add("keyspace_hits", s.stats.keyspaceHits.Load())
	b.add("keyspace_misses", s.stats.keyspaceMisses.Load())
	b.add("total_error_replies", s.stats.errorReplies.Load())
	return nil
}

func (s *Server) infoReplication(b *infoBuilder) error {
	b.add("role", "master")
	b.add("connected_slaves", 0)
	b.add("master_repl_offset", 0)
	return nil
}

func (s *Server) infoCPU(b *infoBuilder) error {
	var user, sys float64
	if s.procstat != nil {
		if sample, err := s.procstat.Sample(); err == nil {
			user, sys = sample.CPUUser, sample.CPUSystem
		}
	}
	b.add("used_cpu_sys", fmt.Sprintf("%.6f", sys))
	b.add("used_cpu_user", fmt.Sprintf("%.6f", user))
	return nil
}

func (s *Server) infoCommandStats(b *infoBuilder) error {
	for _, c := range s.sortedCommands() {
		calls := c.stats.calls.Load()
		rejected := c.stats.rejectedCalls.Load()
		if calls == 0 && rejected == 0 {
			continue
		}
		usec := c.stats.usec.Load()
		perCall := 0.0
		if calls > 0 {
			perCall = float64(usec) / float64(calls)
		}
		b.add("cmdstat_"+c.Name, fmt.Sprintf("calls=%d,usec=%d,usec_per_call=%.2f,rejected_calls=%d,failed_calls=%d",
			calls, usec, perCall, rejected, c.stats.failedCalls.Load()))
	}
	return nil
}

func (s *Server) infoKeyspace(b *infoBuilder) error {
	for i := 0; i < s.engine.Databases(); i++ {
		ks, err := s.engine.Select(i)
		if err != nil {
			return err
		}
		st, err := ks.Stats()
		if err != nil {
			return err
		}
		if st.Keys == 0 {
			continue
		}
		b.add(fmt.Sprintf("db%d", i), fmt.Sprintf("keys=%d,expires=%d,avg_ttl=%d",
			st.Keys, st.Expires, st.AvgTTL.Milliseconds()))
	}
	return nil
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// humanBytes formats n the way INFO memory does.
func humanBytes(n uint64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%dB", n)
	case n < unit*unit:
		return fmt.Sprintf("%.2fK", float64(n)/unit)
	case n < unit*unit*unit:
		return fmt.Sprintf("%.2fM", float64(n)/(unit*unit))
	case n < unit*unit*unit*unit:
		return fmt.Sprintf("%.2fG", float64(n)/(unit*unit*unit))
	default:
		return fmt.Sprintf("%.2fT", float64(n)/(unit*unit*unit*unit))
	}
}
