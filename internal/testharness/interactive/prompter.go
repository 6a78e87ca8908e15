// Package interactive asks the operator questions during a compliance run.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

// ErrAborted is returned when the operator interrupts a question.
var ErrAborted = errors.New("operator aborted")

// LineReader is the part of a readline instance the prompter uses.
type LineReader interface {
	SetPrompt(prompt string)
	Readline() (string, error)
	Close() error
}

// Prompter asks yes/no questions on the terminal. It implements
// engine.Prompter.
type Prompter struct {
	mu  sync.Mutex
	lr  LineReader
	rl  *readline.Instance
	out io.Writer
}

// New creates a prompter on the process terminal.
func New() (*Prompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Prompter{lr: rl, rl: rl, out: rl.Stdout()}, nil
}

// NewWithReader creates a prompter that reads answers from lr and writes
// hints to out.
func NewWithReader(lr LineReader, out io.Writer) *Prompter {
	return &Prompter{lr: lr, out: out}
}

// Stdout returns a writer that coordinates with the prompt. Use it for
// log output while questions may be pending.
func (p *Prompter) Stdout() io.Writer {
	if p.rl != nil {
		return p.rl.Stdout()
	}
	return p.out
}

// Confirm asks question until the operator answers yes or no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lr.SetPrompt(question + " (y/n) ")
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		line, err := p.lr.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt), errors.Is(err, io.EOF):
			return false, ErrAborted
		case err != nil:
			return false, err
		}
		if ok, valid := parseAnswer(line); valid {
			return ok, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
}

func parseAnswer(line string) (yes, valid bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}

// Close releases the terminal.
func (p *Prompter) Close() error {
	return p.lr.Close()
}
