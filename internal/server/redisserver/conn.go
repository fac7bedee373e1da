package redisserver

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/yndnr/respkv/internal/protocol/resp"
)

const readBufferSize = 16 * 1024

// ServeConn runs the connection loop on nc until the peer disconnects, a
// protocol error occurs or the server shuts down. nc is closed on return.
func (s *Server) ServeConn(nc net.Conn) {
	if n := s.stats.connectedClients.Add(1); n > int64(s.maxClients()) {
		s.stats.connectedClients.Add(-1)
		s.reject(nc)
		return
	}
	defer s.stats.connectedClients.Add(-1)

	c := s.newClient(nc)
	s.clients.Set(c.id, c)
	s.stats.connectionsReceived.Add(1)
	s.metrics.ConnectionOpened()

	log := s.logger.With("client_id", c.id, "remote", c.addr)
	log.Debug("client connected")

	defer func() {
		s.clients.Delete(c.id)
		_ = c.close()
		s.metrics.ConnectionClosed()
		log.Debug("client disconnected")
	}()

	if err := s.initClient(c); err != nil {
		log.Error("cannot select default database", "error", err)
		return
	}

	buf := make([]byte, readBufferSize)
	for {
		if s.cfg.IdleTimeout > 0 {
			if err := nc.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
				return
			}
		}

		n, err := nc.Read(buf)
		if n > 0 {
			s.stats.netInputBytes.Add(int64(n))
			c.dec.Feed(buf[:n])
			if !s.process(c) {
				return
			}
		}
		if err != nil {
			var ne net.Error
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			case errors.As(err, &ne) && ne.Timeout():
				log.Debug("idle timeout")
			default:
				log.Debug("read failed", "error", err)
			}
			return
		}
	}
}

func (s *Server) maxClients() int {
	if s.cfg.MaxClients <= 0 {
		return DefaultConfig().MaxClients
	}
	return s.cfg.MaxClients
}

func (s *Server) reject(nc net.Conn) {
	defer nc.Close()

	s.stats.rejectedConnections.Add(1)
	s.metrics.ConnectionRejected()
	s.logger.Warn("connection rejected, max clients reached", "remote", addrString(nc.RemoteAddr()))

	if s.cfg.WriteTimeout > 0 {
		_ = nc.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	_, _ = nc.Write(resp.AppendValue(nil, resp.Error("ERR max number of clients reached")))
}

func (s *Server) initClient(c *client) error {
	ks, err := s.engine.Select(0)
	if err != nil {
		return err
	}
	c.selectDB(0, ks)
	return nil
}

// process dispatches every complete frame buffered in the decoder and
// flushes the replies once. It reports whether the connection stays open.
func (s *Server) process(c *client) bool {
	for {
		frame, err := c.dec.Next()
		if errors.Is(err, resp.ErrIncomplete) {
			break
		}
		if err != nil {
			s.metrics.IncProtocolError()
			s.logger.Warn("protocol error", "client_id", c.id, "remote", c.addr, "error", err)
			_ = c.w.WriteValue(resp.Error("ERR " + err.Error()))
			_ = s.flush(c)
			return false
		}

		reply := s.dispatch(c, frame)
		if err := c.w.WriteValue(reply); err != nil {
			return false
		}
		if c.closeAfterReply {
			_ = s.flush(c)
			return false
		}
	}
	return s.flush(c) == nil
}

func (s *Server) flush(c *client) error {
	if c.w.Buffered() == 0 {
		return nil
	}
	if s.cfg.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	if err := c.w.Flush(); err != nil {
		s.logger.Debug("write failed", "client_id", c.id, "error", err)
		return err
	}
	return nil
}

// countingWriter adds the bytes written to the connection to a counter.
type countingWriter struct {
	w io.Writer
	n *atomic.Int64
}

func (cw countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n.Add(int64(n))
	return n, err
}
