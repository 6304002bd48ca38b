package debugclient

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/dutt/synacore/internal/disasm"
	"github.com/dutt/synacore/internal/wire"
	"github.com/olekukonko/tablewriter"
)

// Client holds one debug session's connection and the last parsed command,
// re-sent when the user submits an empty line.
type Client struct {
	conn        net.Conn
	out         io.Writer
	lastCommand *wire.Command
}

// Dial connects to addr and reads the unframed greeting, returning it
// alongside the ready-to-use Client.
func Dial(addr string, out io.Writer) (*Client, string, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("connecting to %s: %w", addr, err)
	}
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("reading greeting: %w", err)
	}
	return &Client{conn: conn, out: out}, string(buf[:n]), nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// RunLine parses one REPL input line (an empty line repeats the previous
// command), sends it, and renders the expected number of response frames.
func (c *Client) RunLine(line string) error {
	cmd, err := ParseCommand(line)
	if err != nil {
		if err == ErrEmptyLine {
			if c.lastCommand == nil {
				return fmt.Errorf("no previous command to repeat")
			}
			cmd = *c.lastCommand
		} else {
			return err
		}
	} else {
		c.lastCommand = &cmd
	}

	if err := wire.WriteFrame(c.conn, wire.Envelope{Kind: wire.EnvelopeRequest, Request: cmd}); err != nil {
		return err
	}

	for i := 0; i < ExpectedFrames(cmd.Kind); i++ {
		env, err := wire.ReadFrame(c.conn)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		c.render(env)
	}
	return nil
}

func (c *Client) render(env wire.Envelope) {
	switch env.Kind {
	case wire.EnvelopeResponse:
		c.renderResponse(env.Response)
	case wire.EnvelopeResponses:
		for _, r := range env.Responses {
			c.renderResponse(r)
		}
	}
}

func (c *Client) renderResponse(r wire.Response) {
	switch r.Kind {
	case wire.ResponseText:
		fmt.Fprintln(c.out, r.Text)
	case wire.ResponseState:
		c.renderState(r.State)
	case wire.ResponseDump:
		c.renderDump(r.Start, r.Words)
	}
}

func (c *Client) renderState(s wire.VmState) {
	fmt.Fprintf(c.out, "%d/%d\n", s.IP, s.Count)

	table := tablewriter.NewWriter(c.out)
	table.SetHeader(registerHeaders())
	row := make([]string, len(s.Registers))
	for i, v := range s.Registers {
		row[i] = strconv.Itoa(int(v))
	}
	table.Append(row)
	table.Render()

	records := disasm.Walk(s.Here[:], s.IP)
	fmt.Fprintln(c.out, disasm.Serialize(records))
}

func (c *Client) renderDump(start int, words []uint16) {
	fmt.Fprintf(c.out, "Memory from %d\n", start)
	for i, w := range words {
		fmt.Fprintf(c.out, "%d: %d\n", start+i, w)
	}
}

func registerHeaders() []string {
	headers := make([]string, 8)
	for i := range headers {
		headers[i] = fmt.Sprintf("r%d", i)
	}
	return headers
}

// Repl runs the read-eval-print loop against in, writing prompts and
// responses to out, until the user quits or the stream ends.
func (c *Client) Repl(in io.Reader, out io.Writer) error {
	c.out = out
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if err := c.RunLine(line); err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		if c.lastCommand != nil && c.lastCommand.Kind == wire.CommandQuit {
			return nil
		}
	}
}
