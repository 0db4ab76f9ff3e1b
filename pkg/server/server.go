package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Server handles msgpack IPC for a single client over a reader/writer pair,
// normally stdin and stdout.
type Server struct {
	client  *client
	dec     *msgpack.Decoder
	enc     *msgpack.Encoder
	writeMu sync.Mutex
	deps    Deps
	served  int
}

// NewServer creates a stdio server.
func NewServer(deps Deps, sessionID string) *Server {
	return NewServerWithIO(os.Stdin, os.Stdout, deps, sessionID)
}

// NewServerWithIO creates a server reading requests from r and writing responses to w.
func NewServerWithIO(r io.Reader, w io.Writer, deps Deps, sessionID string) *Server {
	deps = deps.withDefaults()
	s := &Server{
		dec:  msgpack.NewDecoder(r),
		enc:  msgpack.NewEncoder(w),
		deps: deps,
	}
	s.client = newClient(deps, sessionID, s.send)
	return s
}

// Start signals readiness and serves requests until the input closes.
// A pending input request is answered before Start returns.
func (s *Server) Start() error {
	s.deps.Logger.Debug("Starting Server.")
	defer s.client.close()

	if err := s.send(StatusResponse{Status: "ready", Prefix: s.client.storedPrefix()}); err != nil {
		return fmt.Errorf("failed to signal readiness: %w", err)
	}

	for {
		raw, err := s.dec.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.client.flush()
				s.deps.Logger.Debug("input closed", "served", s.served)
				return nil
			}
			s.deps.Logger.Errorf("Reading request: %v", err)
			return fmt.Errorf("failed to read request: %w", err)
		}

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.deps.Logger.Errorf("Unmarshaling request: %v", err)
			s.client.replyError("", "invalid msgpack request", 400)
			continue
		}
		s.served++
		s.client.handle(req)
	}
}

// send encodes one response frame. Debounced replies arrive from timer
// goroutines, so writes are serialized.
func (s *Server) send(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.enc.Encode(v)
}
