// Package daemon implements the line-delimited JSON IPC server and
// client: a Unix stream socket, created mode 0600, that rejects
// peers whose EUID differs from the daemon's, and serializes concurrent
// Run requests.

package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"winewarden/internal/types"
	"winewarden/utils"
)

// RunRequestPayload is the "Run" request's payload, carrying the same
// parameters the `run` CLI subcommand accepts
type RunRequestPayload struct {
	Executable string   `json:"executable"`
	Args       []string `json:"args"`
	Prefix     string   `json:"prefix"`
	Trust      string   `json:"trust,omitempty"`
	EventLog   string   `json:"event_log,omitempty"`
	NoRun      bool     `json:"no_run,omitempty"`
	PirateSafe bool     `json:"pirate_safe,omitempty"`
	Live       bool     `json:"live,omitempty"`
	LiveFS     bool     `json:"live_fs,omitempty"`
	LiveProc   bool     `json:"live_proc,omitempty"`
	LiveNet    bool     `json:"live_net,omitempty"`
	PollMS     int      `json:"poll_ms,omitempty"`
}

// Request is one line-delimited IPC request: {type: "Ping"} | {type:
// "Status"} | {type: "Run", payload: RunRequestPayload}.
type Request struct {
	Type    string            `json:"type"`
	Payload RunRequestPayload `json:"payload,omitempty"`
}

// Response is one line-delimited IPC response: Pong | Status | RunResult |
// Error, discriminated by Type.
type Response struct {
	Type    string               `json:"type"`
	Active  int                  `json:"active,omitempty"`
	Report  *types.SessionReport `json:"report,omitempty"`
	Message string               `json:"message,omitempty"`
}

// RunFunc executes a Run request's payload and returns the resulting
// session report. The CLI wires this to its own run orchestration so
// package daemon never needs to know about bootstrap/supervisor/policy.
type RunFunc func(ctx context.Context, payload RunRequestPayload) (types.SessionReport, error)

// Server is the daemon side of the IPC protocol.
type Server struct {
	SocketPath string
	Run        RunFunc
	Logger     *slog.Logger

	mu     sync.Mutex // guards active
	active int
	runMu  sync.Mutex // serializes concurrent Run requests
}

// ListenAndServe binds the Unix socket at mode 0600 and serves connections
// until ctx is cancelled, removing the socket file on the way out.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := utils.ValidateSocketPath(s.SocketPath); err != nil {
		return err
	}
	os.Remove(s.SocketPath)

	ln, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", s.SocketPath, err)
	}
	if err := os.Chmod(s.SocketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket %s: %w", s.SocketPath, err)
	}
	defer os.Remove(s.SocketPath)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return
	}
	if !s.peerAllowed(unixConn) {
		s.writeResponse(conn, Response{Type: "Error", Message: "peer not permitted"})
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			s.writeResponse(conn, Response{Type: "Error", Message: "invalid request: " + err.Error()})
			continue
		}
		s.writeResponse(conn, s.dispatch(ctx, req))
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	switch req.Type {
	case "Ping":
		return Response{Type: "Pong"}
	case "Status":
		s.mu.Lock()
		active := s.active
		s.mu.Unlock()
		return Response{Type: "Status", Active: active}
	case "Run":
		return s.dispatchRun(ctx, req.Payload)
	default:
		return Response{Type: "Error", Message: "unknown request type " + req.Type}
	}
}

func (s *Server) dispatchRun(ctx context.Context, payload RunRequestPayload) Response {
	if s.Run == nil {
		return Response{Type: "Error", Message: "daemon does not accept run requests"}
	}

	s.mu.Lock()
	s.active++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	s.runMu.Lock()
	defer s.runMu.Unlock()

	report, err := s.Run(ctx, payload)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("daemon run request failed", "err", err)
		}
		return Response{Type: "Error", Message: err.Error()}
	}
	return Response{Type: "RunResult", Report: &report}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	conn.Write(append(data, '\n'))
}

// peerAllowed rejects connections from a peer whose EUID differs from the
// daemon's
func (s *Server) peerAllowed(conn *net.UnixConn) bool {
	raw, err := conn.SyscallConn()
	if err != nil {
		return false
	}
	var cred *unix.Ucred
	var credErr error
	err = raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil || credErr != nil || cred == nil {
		return false
	}
	return int(cred.Uid) == os.Geteuid()
}
