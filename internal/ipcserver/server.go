// Package ipcserver is the request/reply front end spec.md §6 calls for: a
// single process-local socket that accepts `upsert_path` and
// `scan_arbitrages{,_quick}` requests and dispatches them onto a wrapped
// ArbitrageService, which is single-threaded by design and already
// serializes its own access.
package ipcserver

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"arbengine/internal/arb"
	"arbengine/internal/metrics"
)

// maxFrameSize bounds a single request so a malformed length prefix can
// never make the server try to allocate an unbounded buffer.
const maxFrameSize = 16 << 20

// request is the pre-parsed (operation, args) envelope spec.md §6 says is
// out of the core's scope to define; this is the request-handler's concrete
// choice of wire format: length-prefixed JSON over a unix socket, matching
// the req/rep cadence of the original's zeromq.ReqSocket without depending
// on a message-broker library the pack does not carry.
type request struct {
	Operation string             `json:"operation"`
	N0        string             `json:"n0,omitempty"`
	N1        string             `json:"n1,omitempty"`
	Edge      *arb.DecoratedEdge `json:"edge,omitempty"`
}

type response struct {
	OK      bool                `json:"ok"`
	Error   string              `json:"error,omitempty"`
	Changed bool                `json:"changed,omitempty"`
	Paths   []arb.DecoratedPath `json:"paths,omitempty"`
}

const (
	opUpsertPath           = "upsert_path"
	opScanArbitrages       = "scan_arbitrages"
	opScanArbitragesQuick  = "scan_arbitrages_quick"
	opScanArbitragesSparse = "scan_arbitrages_sparse"
)

// Server binds a unix socket at an ipc://<path> endpoint and serves requests
// against svc one connection at a time, matching spec.md §5's single-threaded
// core: the accept loop never hands two in-flight requests to svc
// concurrently, though ArbitrageService's own mutex would tolerate it.
type Server struct {
	socketPath string
	svc        *arb.ArbitrageService
	metrics    *metrics.Metrics

	listener net.Listener
}

// New parses an ipc://<path> endpoint and returns a Server ready to Serve.
func New(endpoint string, svc *arb.ArbitrageService, m *metrics.Metrics) (*Server, error) {
	path, ok := strings.CutPrefix(endpoint, "ipc://")
	if !ok {
		return nil, fmt.Errorf("ipcserver: endpoint %q missing ipc:// prefix", endpoint)
	}
	return &Server{socketPath: path, svc: svc, metrics: m}, nil
}

// Serve removes any stale socket file, binds, and accepts connections until
// ctx is cancelled. On listener error it returns that error, matching
// spec.md §7's "IPC bind / socket failure: fatal, exit" policy; the caller
// (cmd/arbengine, under errgroup) is expected to treat a non-nil return as
// fatal. On ctx cancellation the socket file is unlinked before returning.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.RemoveAll(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("binding ipc socket %s: %w", s.socketPath, err)
	}
	s.listener = ln

	log.Info().Str("socket", s.socketPath).Msg("ipc server listening")

	go func() {
		<-ctx.Done()
		ln.Close()
		os.RemoveAll(s.socketPath)
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting ipc connection: %w", err)
		}
		s.handleConn(conn)
	}
}

// handleConn reads every length-prefixed request on conn in sequence,
// replying to each before reading the next, until the client closes the
// connection or a framing error occurs.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		req, err := readFrame(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Msg("ipc server: framing error, closing connection")
			}
			return
		}

		resp := s.dispatch(req)

		if err := writeFrame(conn, resp); err != nil {
			log.Warn().Err(err).Msg("ipc server: failed writing response, closing connection")
			return
		}
	}
}

func (s *Server) dispatch(raw []byte) response {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.record("malformed", "error")
		return response{OK: false, Error: fmt.Sprintf("malformed request: %v", err)}
	}

	switch req.Operation {
	case opUpsertPath:
		return s.handleUpsert(req)
	case opScanArbitrages:
		paths := s.svc.ScanArbitrages()
		s.record(req.Operation, "ok")
		return response{OK: true, Paths: paths}
	case opScanArbitragesQuick:
		paths := s.svc.ScanArbitragesQuick()
		s.record(req.Operation, "ok")
		return response{OK: true, Paths: paths}
	case opScanArbitragesSparse:
		paths := s.svc.ScanArbitragesSparse()
		s.record(req.Operation, "ok")
		return response{OK: true, Paths: paths}
	default:
		s.record(req.Operation, "error")
		return response{OK: false, Error: fmt.Sprintf("unknown operation %q", req.Operation)}
	}
}

func (s *Server) handleUpsert(req request) response {
	if req.Edge == nil {
		s.record(req.Operation, "error")
		return response{OK: false, Error: "upsert_path requires edge"}
	}
	changed, err := s.svc.UpsertPath(req.N0, req.N1, *req.Edge)
	if err != nil {
		s.record(req.Operation, "error")
		return response{OK: false, Error: err.Error()}
	}
	s.record(req.Operation, "ok")
	return response{OK: true, Changed: changed}
}

func (s *Server) record(op, status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordIPCRequest(op, status)
}

// readFrame reads one 4-byte big-endian length prefix followed by that many
// bytes of JSON payload.
func readFrame(r *bufio.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length == 0 || length > maxFrameSize {
		return nil, fmt.Errorf("frame length %d out of bounds", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeFrame writes resp as a length-prefixed JSON payload.
func writeFrame(w io.Writer, resp response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling response: %w", err)
	}
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}
