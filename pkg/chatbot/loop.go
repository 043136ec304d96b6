// Package chatbot implements the interactive conversation loop.
package chatbot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	loggerpkg "github.com/minhyannv/echo-bot-go/pkg/logger"
	"github.com/minhyannv/echo-bot-go/pkg/transcript"
)

// ErrTerminated is returned by Run once the loop has ended.
var ErrTerminated = errors.New("chat loop already terminated")

// Sender sends the transcript to the remote model and returns the reply.
type Sender interface {
	Send(ctx context.Context, messages []transcript.Message) (string, error)
}

// State is the lifecycle state of a Loop.
type State int

const (
	StateRunning State = iota
	StateTerminated
)

func (s State) String() string {
	if s == StateTerminated {
		return "terminated"
	}
	return "running"
}

// Loop owns the transcript and drives one interactive session.
type Loop struct {
	sender     Sender
	transcript *transcript.Transcript
	logger     loggerpkg.Logger
	color      bool
	version    string
	state      State
}

// New returns a running Loop whose transcript holds only systemPrompt.
func New(sender Sender, systemPrompt string, opts ...Option) *Loop {
	deps := loopDeps{logger: loggerpkg.NopLogger{}, color: true, version: "dev"}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}
	return &Loop{
		sender:     sender,
		transcript: transcript.New(systemPrompt),
		logger:     deps.logger,
		color:      deps.color,
		version:    deps.version,
	}
}

// State reports whether the loop is still accepting input.
func (l *Loop) State() State {
	return l.state
}

// Transcript returns a copy of the current conversation.
func (l *Loop) Transcript() []transcript.Message {
	return l.transcript.Messages()
}

type readResult struct {
	line string
	err  error
}

// Run reads lines from in until exit, quit, end of input or ctx is done,
// writing replies and errors to out. Failed exchanges are reported inline
// and never end the loop.
func (l *Loop) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if l.state == StateTerminated {
		return ErrTerminated
	}
	if l.sender == nil {
		return errors.New("sender is required")
	}
	if in == nil {
		return errors.New("input reader is required")
	}
	if out == nil {
		out = io.Discard
	}

	st := newStyles(out, l.color)
	lines, stop := readLines(in)
	defer stop()

	l.greet(out)
	for {
		_, _ = fmt.Fprint(out, st.prompt.Render("> "))

		var res readResult
		var ok bool
		select {
		case <-ctx.Done():
			l.logger.Info("interrupted", nil)
			l.terminate(out, st)
			return nil
		case res, ok = <-lines:
		}
		if !ok {
			l.terminate(out, st)
			return nil
		}
		if res.err != nil {
			l.logger.Error("read input failed", map[string]any{"error": res.err.Error()})
			_, _ = fmt.Fprintf(out, "%s %v\n", st.err.Render("[Error]"), res.err)
			l.terminate(out, st)
			return nil
		}

		input := strings.TrimSpace(res.line)
		if input == "" {
			continue
		}

		handled, quit := l.handleCommand(input, out, st)
		if quit {
			l.logger.Info("user requested exit", map[string]any{"command": strings.ToLower(input)})
			l.terminate(out, st)
			return nil
		}
		if handled {
			continue
		}

		l.exchange(ctx, input, out, st)
		if ctx.Err() != nil {
			l.logger.Info("interrupted", nil)
			l.terminate(out, st)
			return nil
		}
	}
}

// handleCommand applies a control command. It reports whether input was a
// command and whether the loop should end.
func (l *Loop) handleCommand(input string, out io.Writer, st styles) (bool, bool) {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true, true
	case "/reset":
		l.transcript.Reset()
		l.logger.Info("conversation reset", nil)
		_, _ = fmt.Fprintln(out, st.notice.Render("Conversation context reset."))
		return true, false
	default:
		return false, false
	}
}

// exchange appends the user message, sends the transcript and appends the
// reply. On failure the user message stays in the transcript.
func (l *Loop) exchange(ctx context.Context, input string, out io.Writer, st styles) {
	l.transcript.AppendUser(input)
	l.logger.Debug("sending transcript", map[string]any{"messages": l.transcript.Len()})

	reply, err := l.sender.Send(ctx, l.transcript.Messages())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.logger.Error("send failed", map[string]any{"error": err.Error()})
		_, _ = fmt.Fprintf(out, "%s %v\n", st.err.Render("[Error]"), err)
		return
	}

	l.transcript.AppendAssistant(reply)
	_, _ = fmt.Fprintf(out, "%s %s\n", st.reply.Render("Echo:"), reply)
}

func (l *Loop) greet(out io.Writer) {
	header := fmt.Sprintf("Welcome to echo-bot v%s! Type 'exit' to quit.", l.version)
	_, _ = fmt.Fprintln(out, header)
	l.logger.Info(header, nil)
}

func (l *Loop) terminate(out io.Writer, st styles) {
	l.state = StateTerminated
	_, _ = fmt.Fprintf(out, "\n%s\n", st.farewell.Render("Goodbye!"))
	l.logger.Info("chat loop terminated", map[string]any{"messages": l.transcript.Len()})
}

// readLines reads in on its own goroutine so a blocked read never hides
// cancellation. Lines have no length limit. The channel is closed at end of
// input; stop releases the goroutine if the caller returns first.
func readLines(in io.Reader) (<-chan readResult, func()) {
	lines := make(chan readResult)
	done := make(chan struct{})

	go func() {
		defer close(lines)
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				select {
				case lines <- readResult{line: strings.TrimRight(line, "\r\n")}:
				case <-done:
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case lines <- readResult{err: fmt.Errorf("read input: %w", err)}:
				case <-done:
				}
				return
			}
		}
	}()

	return lines, func() { close(done) }
}
