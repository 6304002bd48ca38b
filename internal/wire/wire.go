// Package wire defines the length-framed JSON messages exchanged between the
// debug server and debug client.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dutt/synacore/internal/host"
)

// CommandKind discriminates the Command tagged union.
type CommandKind string

const (
	CommandNone            CommandKind = "None"
	CommandRun             CommandKind = "Run"
	CommandStep            CommandKind = "Step"
	CommandContinue        CommandKind = "Continue"
	CommandQuit            CommandKind = "Quit"
	CommandAddBreakpoint   CommandKind = "AddBreakpoint"
	CommandRemoveBreakpoint CommandKind = "RemoveBreakpoint"
	CommandPrintRegister   CommandKind = "PrintRegister"
	CommandPrintMemory     CommandKind = "PrintMemory"
)

// Command is a parsed client request.
type Command struct {
	Kind   CommandKind
	Addr   int // breakpoint address, register index, or memory start
	Length int // PrintMemory word count
}

// commandWire is the JSON wire shape for Command.
type commandWire struct {
	Kind CommandKind `json:"kind"`
	Args []int       `json:"args,omitempty"`
}

// MarshalJSON renders a Command as its tag-then-payload wire form.
func (c Command) MarshalJSON() ([]byte, error) {
	w := commandWire{Kind: c.Kind}
	switch c.Kind {
	case CommandAddBreakpoint, CommandRemoveBreakpoint, CommandPrintRegister:
		w.Args = []int{c.Addr}
	case CommandPrintMemory:
		w.Args = []int{c.Addr, c.Length}
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses a Command from its tag-then-payload wire form.
func (c *Command) UnmarshalJSON(data []byte) error {
	var w commandWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding command: %w", err)
	}
	c.Kind = w.Kind
	switch w.Kind {
	case CommandAddBreakpoint, CommandRemoveBreakpoint, CommandPrintRegister:
		if len(w.Args) != 1 {
			return fmt.Errorf("command %s expects one argument", w.Kind)
		}
		c.Addr = w.Args[0]
	case CommandPrintMemory:
		if len(w.Args) != 2 {
			return fmt.Errorf("command %s expects two arguments", w.Kind)
		}
		c.Addr, c.Length = w.Args[0], w.Args[1]
	}
	return nil
}

// ResponseKind discriminates the ResponseData tagged union.
type ResponseKind string

const (
	ResponseEmpty ResponseKind = "Empty"
	ResponseText  ResponseKind = "Text"
	ResponseState ResponseKind = "State"
	ResponseDump  ResponseKind = "Dump"
)

// VmState mirrors host.State on the wire.
type VmState struct {
	Registers [8]uint16            `json:"registers"`
	IP        int                  `json:"ip"`
	Count     uint32               `json:"count"`
	Here      [host.StateWindowSize]uint16 `json:"here"`
}

// StateFrom converts a host.State into its wire representation.
func StateFrom(s host.State) VmState {
	return VmState{Registers: s.Registers, IP: s.IP, Count: s.Count, Here: s.Here}
}

// Response is one server reply.
type Response struct {
	Kind  ResponseKind
	Text  string
	State VmState
	Start int
	Words []uint16
}

type responseWire struct {
	Kind  ResponseKind `json:"kind"`
	Text  string       `json:"text,omitempty"`
	State *VmState     `json:"state,omitempty"`
	Start int          `json:"start,omitempty"`
	Words []uint16     `json:"words,omitempty"`
}

// MarshalJSON renders a Response as its tag-then-payload wire form.
func (r Response) MarshalJSON() ([]byte, error) {
	w := responseWire{Kind: r.Kind}
	switch r.Kind {
	case ResponseText:
		w.Text = r.Text
	case ResponseState:
		s := r.State
		w.State = &s
	case ResponseDump:
		w.Start = r.Start
		w.Words = r.Words
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses a Response from its tag-then-payload wire form.
func (r *Response) UnmarshalJSON(data []byte) error {
	var w responseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	r.Kind = w.Kind
	r.Text = w.Text
	if w.State != nil {
		r.State = *w.State
	}
	r.Start = w.Start
	r.Words = w.Words
	return nil
}

// EnvelopeKind discriminates the outer Message tagged union.
type EnvelopeKind string

const (
	EnvelopeRequest   EnvelopeKind = "Request"
	EnvelopeResponse  EnvelopeKind = "Response"
	EnvelopeResponses EnvelopeKind = "Responses"
)

// Envelope is the outer frame payload: a request, a single response, or a
// bundle of responses (used by Continue).
type Envelope struct {
	Kind      EnvelopeKind
	Request   Command
	Response  Response
	Responses []Response
}

type envelopeWire struct {
	Kind      EnvelopeKind `json:"kind"`
	Request   *Command     `json:"request,omitempty"`
	Response  *Response    `json:"response,omitempty"`
	Responses []Response   `json:"responses,omitempty"`
}

// MarshalJSON renders an Envelope as its tag-then-payload wire form.
func (e Envelope) MarshalJSON() ([]byte, error) {
	w := envelopeWire{Kind: e.Kind}
	switch e.Kind {
	case EnvelopeRequest:
		req := e.Request
		w.Request = &req
	case EnvelopeResponse:
		resp := e.Response
		w.Response = &resp
	case EnvelopeResponses:
		w.Responses = e.Responses
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses an Envelope from its tag-then-payload wire form.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w envelopeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding envelope: %w", err)
	}
	e.Kind = w.Kind
	if w.Request != nil {
		e.Request = *w.Request
	}
	if w.Response != nil {
		e.Response = *w.Response
	}
	e.Responses = w.Responses
	return nil
}

// WriteFrame writes a length-prefixed JSON frame: a uint64 little-endian
// byte count followed by the JSON payload.
func WriteFrame(w io.Writer, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("writing frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON frame. io.EOF on the length
// prefix is returned unwrapped so callers can treat it as peer-closed.
func ReadFrame(r io.Reader) (Envelope, error) {
	var env Envelope
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return env, err
	}
	n := binary.LittleEndian.Uint64(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return env, fmt.Errorf("reading frame payload: %w", err)
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return env, fmt.Errorf("decoding frame: %w", err)
	}
	return env, nil
}
