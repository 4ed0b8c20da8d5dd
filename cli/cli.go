// Package cli is a line-oriented console that stands in for the messaging
// platform: it feeds typed lines to a Session and prints the replies.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Session   *Session
	In        io.Reader
	Out       io.Writer
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastInput string // for "again"/"g" repeat
}

// New creates a CLI on stdin and stdout.
func New(s *Session) *CLI {
	return &CLI{
		Session: s,
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run shows the intro, then loops: prompt, input, dispatch, output. It
// returns when input ends, on /quit, or when ctx is cancelled.
func (c *CLI) Run(ctx context.Context) {
	c.printReply(c.Session.Intro(ctx))

	scanner := bufio.NewScanner(c.In)
	for ctx.Err() == nil {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// "again" / "g" repeats the last line.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastInput == "" {
				c.printSystem("Nothing to repeat.")
				continue
			}
			input = c.lastInput
		} else {
			c.lastInput = input
		}

		reply := c.Session.Exec(ctx, input)
		c.printReply(reply)
		if reply.Quit {
			return
		}
	}
}

func (c *CLI) printReply(r Reply) {
	for _, line := range FormatReply(r) {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
