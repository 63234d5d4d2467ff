// Package mockinstrument runs an in-process ColourSpace Link instrument
// endpoint. It speaks the real wire framing and answers each inbound
// command through a pluggable Responder, which makes it the test double
// for the client link as well as the core of the csmock binary.
package mockinstrument

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/cslink/internal/protocol/frame"
)

// Request is one decoded inbound command. Red/Green/Blue are populated
// only for measurement requests.
type Request struct {
	Command string
	Red     uint16
	Green   uint16
	Blue    uint16
}

// Responder maps one request to the frames the instrument sends back. A
// nil entry in the returned slice stands for the disconnect signal.
type Responder func(req Request) [][]byte

// EchoResponder answers measurement requests with a result that echoes
// the requested channels and reports the given chromaticity point.
func EchoResponder(x, y float64) Responder {
	return func(req Request) [][]byte {
		if req.Command != "measurement" {
			return nil
		}
		payload := fmt.Appendf(nil,
			"<?xml version=\"1.0\" encoding=\"UTF-8\" ?>\n<CS_RMC version=1>\n"+
				"<measurement>\n<result>\n<red>%d</red>\n<green>%d</green>\n<blue>%d</blue>\n"+
				"<x>%.4f</x>\n<y>%.4f</y>\n</result>\n</measurement>\n</CS_RMC>",
			req.Red, req.Green, req.Blue, x, y)
		return [][]byte{payload}
	}
}

// StaticResponder answers every measurement request with the same fixed
// payloads, ignoring the request body.
func StaticResponder(payloads ...[]byte) Responder {
	return func(req Request) [][]byte {
		if req.Command != "measurement" {
			return nil
		}
		return payloads
	}
}

// Server is one listening mock endpoint. It accepts any number of
// connections and serves each until the peer hangs up.
type Server struct {
	ln      net.Listener
	respond Responder
	log     zerolog.Logger

	mu       sync.Mutex
	requests []Request
	closed   bool

	wg sync.WaitGroup
}

// Listen binds a mock instrument to addr ("127.0.0.1:0" for an ephemeral
// test port) and starts its accept loop.
func Listen(addr string, respond Responder) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mockinstrument: listen %q: %w", addr, err)
	}
	s := &Server{
		ln:      ln,
		respond: respond,
		log:     log.With().Str("component", "mockinstrument").Str("addr", ln.Addr().String()).Logger(),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Requests returns a copy of every request decoded so far, in arrival
// order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Close stops the listener and waits for connection handlers to drain.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				s.log.Warn().Err(err).Msg("accept failed")
			}
			return
		}
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	fr := frame.New(conn)
	for {
		payload, err := fr.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Debug().Err(err).Msg("connection ended")
			}
			return
		}

		req := decodeRequest(payload)
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()
		s.log.Debug().Str("command", req.Command).Msg("request decoded")

		for _, out := range s.respond(req) {
			if out == nil {
				if err := fr.WriteDisconnect(); err != nil {
					return
				}
				continue
			}
			if err := fr.WriteFrame(out); err != nil {
				return
			}
		}
	}
}

// decodeRequest extracts the command name and any channel values from an
// inbound payload. The client's own templates are well formed but the
// unquoted envelope attribute still requires non-strict parsing.
func decodeRequest(payload []byte) Request {
	var req Request
	dec := xml.NewDecoder(strings.NewReader(string(payload)))
	dec.Strict = false

	var stack []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return req
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			if len(stack) == 2 && req.Command == "" {
				req.Command = t.Name.Local
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			v, perr := strconv.ParseUint(text, 10, 16)
			if perr != nil {
				continue
			}
			switch stack[len(stack)-1] {
			case "red":
				req.Red = uint16(v)
			case "green":
				req.Green = uint16(v)
			case "blue":
				req.Blue = uint16(v)
			}
		}
	}
}
