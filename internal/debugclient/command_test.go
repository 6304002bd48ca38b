package debugclient_test

import (
	"testing"

	"github.com/dutt/synacore/internal/debugclient"
	"github.com/dutt/synacore/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestParseLongAndShortForms(t *testing.T) {
	tests := []struct {
		line string
		kind wire.CommandKind
	}{
		{"r", wire.CommandRun},
		{"run", wire.CommandRun},
		{"s", wire.CommandStep},
		{"step", wire.CommandStep},
		{"c", wire.CommandContinue},
		{"continue", wire.CommandContinue},
		{"q", wire.CommandQuit},
		{"quit", wire.CommandQuit},
	}
	for _, tc := range tests {
		cmd, err := debugclient.ParseCommand(tc.line)
		require.NoError(t, err, tc.line)
		require.Equal(t, tc.kind, cmd.Kind, tc.line)
	}
}

func TestParseBreakpointCommands(t *testing.T) {
	cmd, err := debugclient.ParseCommand("b 10")
	require.NoError(t, err)
	require.Equal(t, wire.CommandAddBreakpoint, cmd.Kind)
	require.Equal(t, 10, cmd.Addr)

	cmd, err = debugclient.ParseCommand("del 10")
	require.NoError(t, err)
	require.Equal(t, wire.CommandRemoveBreakpoint, cmd.Kind)
	require.Equal(t, 10, cmd.Addr)
}

func TestParsePrintRegisterForms(t *testing.T) {
	for _, line := range []string{"p reg 3", "pr 3"} {
		cmd, err := debugclient.ParseCommand(line)
		require.NoError(t, err, line)
		require.Equal(t, wire.CommandPrintRegister, cmd.Kind)
		require.Equal(t, 3, cmd.Addr)
	}
}

func TestParsePrintRegisterRejectsEight(t *testing.T) {
	_, err := debugclient.ParseCommand("p reg 8")
	require.Error(t, err)
}

func TestParsePrintMemoryForms(t *testing.T) {
	cmd, err := debugclient.ParseCommand("p mem 100 5")
	require.NoError(t, err)
	require.Equal(t, wire.CommandPrintMemory, cmd.Kind)
	require.Equal(t, 100, cmd.Addr)
	require.Equal(t, 5, cmd.Length)

	cmd, err = debugclient.ParseCommand("pm 100")
	require.NoError(t, err)
	require.Equal(t, 1, cmd.Length)
}

func TestParseEmptyLine(t *testing.T) {
	_, err := debugclient.ParseCommand("   ")
	require.ErrorIs(t, err, debugclient.ErrEmptyLine)
}

func TestExpectedFrames(t *testing.T) {
	require.Equal(t, 2, debugclient.ExpectedFrames(wire.CommandRun))
	require.Equal(t, 2, debugclient.ExpectedFrames(wire.CommandContinue))
	require.Equal(t, 1, debugclient.ExpectedFrames(wire.CommandStep))
	require.Equal(t, 0, debugclient.ExpectedFrames(wire.CommandQuit))
}
