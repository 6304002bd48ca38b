package debugserver_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/dutt/synacore/internal/debugserver"
	"github.com/dutt/synacore/internal/program"
	"github.com/dutt/synacore/internal/wire"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// loopProgram is scenario C from host_test.go: set r0=10, add r0+=r1 (r1=0),
// jt r0 -> 3, forming a tight loop with a breakpoint target at address 3.
var loopProgram = []uint16{1, 32768, 10, 9, 32768, 32768, 32769, 7, 32768, 3, 0}

func startServer(t *testing.T) net.Addr {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	p := &program.Program{Words: loopProgram, Path: "loop.bin"}

	// Server.Serve owns its own listener; reuse the ephemeral port by
	// closing this probe listener just before Serve binds the same addr.
	addr := ln.Addr()
	require.NoError(t, ln.Close())

	real := debugserver.New(addr.String(), p, zerolog.Nop())
	go func() {
		_ = real.Serve()
	}()
	time.Sleep(20 * time.Millisecond)
	return addr
}

func dial(t *testing.T, addr net.Addr) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	require.NoError(t, err)
	return conn, bufio.NewReader(conn)
}

func readGreeting(t *testing.T, conn net.Conn) string {
	t.Helper()
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestSessionGreeting(t *testing.T) {
	addr := startServer(t)
	conn, _ := dial(t, addr)
	defer conn.Close()

	greeting := readGreeting(t, conn)
	require.Equal(t, "Running loop.bin", greeting)
}

func TestStepReturnsState(t *testing.T) {
	addr := startServer(t)
	conn, _ := dial(t, addr)
	defer conn.Close()
	readGreeting(t, conn)

	require.NoError(t, wire.WriteFrame(conn, wire.Envelope{Kind: wire.EnvelopeRequest, Request: wire.Command{Kind: wire.CommandStep}}))
	env, err := wire.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, wire.EnvelopeResponse, env.Kind)
	require.Equal(t, wire.ResponseState, env.Response.Kind)
	require.Equal(t, 3, env.Response.State.IP)
	require.Equal(t, uint32(1), env.Response.State.Count)
}

func TestContinueHitsBreakpoint(t *testing.T) {
	addr := startServer(t)
	conn, _ := dial(t, addr)
	defer conn.Close()
	readGreeting(t, conn)

	require.NoError(t, wire.WriteFrame(conn, wire.Envelope{
		Kind:    wire.EnvelopeRequest,
		Request: wire.Command{Kind: wire.CommandAddBreakpoint, Addr: 3},
	}))
	ackEnv, err := wire.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, wire.ResponseText, ackEnv.Response.Kind)

	require.NoError(t, wire.WriteFrame(conn, wire.Envelope{Kind: wire.EnvelopeRequest, Request: wire.Command{Kind: wire.CommandContinue}}))

	ack, err := wire.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, "Continuing execution", ack.Response.Text)

	bundle, err := wire.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, wire.EnvelopeResponses, bundle.Kind)
	require.Len(t, bundle.Responses, 2)
	require.Equal(t, "Hit breakpoint at 3", bundle.Responses[0].Text)
	require.Equal(t, 3, bundle.Responses[1].State.IP)
}

func TestQuitEndsSession(t *testing.T) {
	addr := startServer(t)
	conn, _ := dial(t, addr)
	defer conn.Close()
	readGreeting(t, conn)

	require.NoError(t, wire.WriteFrame(conn, wire.Envelope{Kind: wire.EnvelopeRequest, Request: wire.Command{Kind: wire.CommandQuit}}))
	_, err := wire.ReadFrame(conn)
	require.Error(t, err)
}
