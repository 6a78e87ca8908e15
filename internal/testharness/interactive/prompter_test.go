package interactive

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
)

// scripted replays canned lines.
type scripted struct {
	lines   []string
	err     error
	prompts []string
	closed  bool
}

func (s *scripted) SetPrompt(p string) { s.prompts = append(s.prompts, p) }

func (s *scripted) Readline() (string, error) {
	if len(s.lines) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scripted) Close() error {
	s.closed = true
	return nil
}

var _ engine.Prompter = (*Prompter)(nil)

func TestConfirmYes(t *testing.T) {
	lr := &scripted{lines: []string{" Yes "}}
	p := NewWithReader(lr, io.Discard)

	ok, err := p.Confirm(context.Background(), "Did the TV turn on?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Did the TV turn on? (y/n) "}, lr.prompts)
}

func TestConfirmRepromptsOnGarbage(t *testing.T) {
	lr := &scripted{lines: []string{"maybe", "", "n"}}
	var out bytes.Buffer
	p := NewWithReader(lr, &out)

	ok, err := p.Confirm(context.Background(), "Is the OSD text visible?")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("Please answer y or n.")))
}

func TestConfirmInterrupted(t *testing.T) {
	p := NewWithReader(&scripted{err: readline.ErrInterrupt}, io.Discard)
	_, err := p.Confirm(context.Background(), "q")
	assert.ErrorIs(t, err, ErrAborted)

	p = NewWithReader(&scripted{}, io.Discard)
	_, err = p.Confirm(context.Background(), "q")
	assert.ErrorIs(t, err, ErrAborted)
}

func TestConfirmCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewWithReader(&scripted{lines: []string{"y"}}, io.Discard)
	_, err := p.Confirm(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose(t *testing.T) {
	lr := &scripted{}
	require.NoError(t, NewWithReader(lr, io.Discard).Close())
	assert.True(t, lr.closed)
}
