// Package server implements the TCP front end, grounded on
// tinydb_event_loop.c's accept/on_data/on_disconnect contract. The
// REDESIGN FLAG applies here: Go's native goroutine-per-connection model
// replaces the source's single epoll/kqueue-driven event-loop thread —
// each accepted connection parks its own goroutine on blocking reads
// instead of the source's non-blocking fd plus manual multiplexing, but
// the observable contract (line-delimited requests, synchronous
// same-connection responses, doubling per-connection buffers, clean
// fd/subscription teardown on disconnect) is unchanged.
package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/dreamware/tinydb/internal/command"
	"github.com/dreamware/tinydb/internal/metrics"
	"github.com/dreamware/tinydb/internal/protocol"
	"github.com/dreamware/tinydb/internal/tlog"
)

// Config carries the listener's tunables, mirroring config.h's
// COMMAND_BUFFER_SIZE/hard-ceiling pair (spec Open Question 4).
type Config struct {
	Addr              string
	CommandBufferSize int
	CommandBufferMax  int
}

// Server accepts connections and dispatches their request lines through
// an Executor.
type Server struct {
	cfg  Config
	exec *command.Executor
}

// New creates a Server bound to cfg.Addr once Serve is called.
func New(cfg Config, exec *command.Executor) *Server {
	return &Server{cfg: cfg, exec: exec}
}

// Serve listens and accepts connections until ctx is canceled, mirroring
// the event loop's "repeatedly calls Wait" main loop with `running=false`
// replaced by context cancellation. It returns nil on a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	log := tlog.WithComponent("server")
	log.Info().Str("addr", s.cfg.Addr).Msg("listening")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return nil
			default:
				log.Error().Err(err).Msg("accept failed")
				wg.Wait()
				return err
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// connSubscriber adapts one net.Conn to command.Session's pub/sub
// identity and serializes every write to the connection: the command
// loop's synchronous replies and the worker pool's asynchronous publish
// fan-out both write to the same fd (spec §5's shared resource list), so
// both paths must go through the same mutex.
type connSubscriber struct {
	id   string
	conn net.Conn
	mu   sync.Mutex
}

func (c *connSubscriber) ID() string { return c.id }

func (c *connSubscriber) Send(message string) error {
	return c.write(message + "\n")
}

func (c *connSubscriber) write(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.conn, s)
	return err
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	sub := &connSubscriber{id: id, conn: conn}
	sess := command.NewSession(sub)

	log := tlog.WithComponent("server").With().
		Str("conn", id).
		Str("remote", conn.RemoteAddr().String()).
		Logger()
	log.Info().Msg("connection accepted")
	metrics.ActiveConnections.Inc()

	defer func() {
		conn.Close()
		s.exec.UnsubscribeAll(id)
		metrics.ActiveConnections.Dec()
		log.Info().Msg("connection closed")
	}()

	bufSize := s.cfg.CommandBufferSize
	bufMax := s.cfg.CommandBufferMax
	if bufMax < bufSize {
		bufMax = bufSize
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, bufSize), bufMax)

	for scanner.Scan() {
		line := scanner.Text()
		cmd := protocol.Parse(line)
		if cmd != nil {
			metrics.CommandsTotal.WithLabelValues(cmd.Name).Inc()
		}

		resp := s.exec.Execute(ctx, sess, cmd)
		if resp == "" {
			continue
		}
		if err := sub.write(resp); err != nil {
			log.Warn().Err(err).Msg("write failed, closing connection")
			return
		}
	}

	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("read error, closing connection")
	}
}
