package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/sanlink/sanlink/data"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Handler serves one RPC method. Returned entities (or trees containing
// them) are encoded to the tagged form before leaving the process.
type Handler func(ctx context.Context, p Params) (any, error)

// Server dispatches framed requests to registered handlers. Handlers are
// registered before Serve and the method table is read-only afterwards.
type Server struct {
	handlers        map[string]Handler
	requireSameUser bool
}

func NewServer(requireSameUser bool) *Server {
	return &Server{
		handlers:        make(map[string]Handler),
		requireSameUser: requireSameUser,
	}
}

// Handle registers h for method. Registering a method twice is a wiring
// bug, not a runtime condition.
func (s *Server) Handle(method string, h Handler) {
	if _, dup := s.handlers[method]; dup {
		panic("rpc: duplicate handler registration: " + method)
	}
	s.handlers[method] = h
}

// Serve accepts connections until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if s.requireSameUser {
			if err := checkPeer(conn); err != nil {
				log.Warn().Err(err).Msg("rejecting plugin connection")
				conn.Close()
				continue
			}
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	connectionsGauge.Inc()
	defer connectionsGauge.Dec()

	for {
		payload, err := readFrame(conn)
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				log.Warn().Err(err).Msg("dropping plugin connection")
			}
			return
		}

		req, err := parseRequest(payload)
		if err != nil {
			s.respond(conn, &Response{Error: wireError(err)})
			continue
		}

		resp := s.dispatch(ctx, req)
		if !s.respond(conn, resp) {
			return
		}

		// shutdown closes the connection after the response goes out.
		if req.Method == "shutdown" {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	start := time.Now()
	resp := &Response{ID: req.ID}

	h, ok := s.handlers[req.Method]
	if !ok && req.Method == "shutdown" {
		// Built-in no-op so every backend gets a clean session teardown.
		h, ok = func(context.Context, Params) (any, error) { return nil, nil }, true
	}
	if !ok {
		resp.Error = callErrorf(CodeUnknownMethod, "unknown method %q", req.Method)
	} else {
		result, err := h(ctx, Params(req.Params))
		if err != nil {
			resp.Error = wireError(err)
		} else if tree, err := data.Encode(result); err != nil {
			resp.Error = wireError(err)
		} else {
			resp.Result = tree
		}
	}

	code := 0
	if resp.Error != nil {
		code = resp.Error.Code
	}
	requestsTotal.WithLabelValues(req.Method, strconv.Itoa(code)).Inc()
	requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	log.Debug().
		Str("method", req.Method).
		Int("code", code).
		Dur("duration", time.Since(start)).
		Msg("rpc")

	return resp
}

func (s *Server) respond(conn net.Conn, resp *Response) bool {
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("marshal response failed")
		return false
	}
	if err := writeFrame(conn, payload); err != nil {
		log.Warn().Err(err).Msg("write response failed")
		return false
	}
	return true
}

// parseRequest unpacks the envelope and decodes params, so handlers see
// live entities and full-precision numbers.
func parseRequest(payload []byte) (*Request, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var req Request
	if err := dec.Decode(&req); err != nil {
		return nil, callErrorf(CodeInvalidArgument, "invalid request envelope: %v", err)
	}
	if req.Method == "" {
		return nil, callErrorf(CodeInvalidArgument, "request method is empty")
	}
	if req.Params != nil {
		decoded, err := data.Decode(req.Params)
		if err != nil {
			return nil, err
		}
		// A tagged params object decodes to an entity, not a mapping.
		m, ok := decoded.(map[string]any)
		if !ok {
			return nil, callErrorf(CodeInvalidArgument, "params must be a plain mapping")
		}
		req.Params = m
	}
	return &req, nil
}

// wireError maps handler failures to wire codes. CallError values pass
// through so backends can pick their own code.
func wireError(err error) *CallError {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}
	var de *data.Error
	if errors.As(err, &de) {
		switch de.Code {
		case data.ErrUnknownType:
			return &CallError{Code: CodeUnknownType, Message: de.Message}
		case data.ErrInvalid, data.ErrConstruct, data.ErrCapability:
			return &CallError{Code: CodeInvalidArgument, Message: de.Message}
		}
	}
	return &CallError{Code: CodeInternal, Message: err.Error()}
}

// checkPeer verifies a unix-socket peer runs as the same user as the
// server. Non-unix connections (tests use net.Pipe) pass through.
func checkPeer(conn net.Conn) error {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return err
	}
	var cred *unix.Ucred
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return err
	}
	if credErr != nil {
		return credErr
	}
	if cred.Uid != uint32(os.Getuid()) {
		return callErrorf(CodeInvalidArgument, "peer uid %d does not match server uid %d", cred.Uid, os.Getuid())
	}
	return nil
}
