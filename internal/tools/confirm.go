package tools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Confirmer asks the operator whether a command outside the allow-list may run.
type Confirmer interface {
	Confirm(ctx context.Context, command string) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, command string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(ctx context.Context, command string) (bool, error) {
	return f(ctx, command)
}

// DenyAll declines every command without asking.
var DenyAll Confirmer = ConfirmerFunc(func(context.Context, string) (bool, error) {
	return false, nil
})

// TerminalConfirmer prompts on Out and reads the answer from In. It blocks
// until a line is read or ctx is done. Only "y" approves.
//
// A single goroutine owns In. A read abandoned by a cancelled prompt stays in
// flight and its line answers the next prompt.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer

	once     sync.Once
	mu       sync.Mutex
	pending  bool
	requests chan struct{}
	answers  chan answer
}

type answer struct {
	line string
	err  error
}

// NewTerminalConfirmer returns a prompting confirmer when stdin is a terminal
// and DenyAll otherwise.
func NewTerminalConfirmer(in *os.File, out io.Writer) Confirmer {
	if !term.IsTerminal(int(in.Fd())) {
		return DenyAll
	}
	return &TerminalConfirmer{In: in, Out: out}
}

func (c *TerminalConfirmer) start() {
	c.requests = make(chan struct{}, 1)
	c.answers = make(chan answer)
	go c.readLines(bufio.NewReader(c.In))
}

// readLines reads one line per request. After the first error every request
// gets that error back.
func (c *TerminalConfirmer) readLines(r *bufio.Reader) {
	var err error
	for range c.requests {
		var line string
		if err == nil {
			line, err = r.ReadString('\n')
		}
		c.answers <- answer{line: line, err: err}
	}
}

// Confirm implements Confirmer.
func (c *TerminalConfirmer) Confirm(ctx context.Context, command string) (bool, error) {
	c.once.Do(c.start)

	fmt.Fprintln(c.Out, "The agent wants to execute the following command that is not in the allow-list:")
	fmt.Fprintln(c.Out, "---")
	fmt.Fprintln(c.Out, command)
	fmt.Fprintln(c.Out, "---")
	fmt.Fprint(c.Out, "Enter 'y' to permit execution. Any other input will abort: ")

	c.mu.Lock()
	if !c.pending {
		c.pending = true
		c.requests <- struct{}{}
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-c.answers:
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
		if a.err != nil && a.line == "" {
			if errors.Is(a.err, io.EOF) {
				return false, nil
			}
			return false, a.err
		}
		return strings.EqualFold(strings.TrimSpace(a.line), "y"), nil
	}
}
