package chatbot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minhyannv/echo-bot-go/pkg/completion"
	"github.com/minhyannv/echo-bot-go/pkg/transcript"
)

const systemPrompt = "You are Echo a helpful assistant."

type fakeSender struct {
	replies map[string]string
	err     error
	calls   [][]transcript.Message
}

func (f *fakeSender) Send(_ context.Context, messages []transcript.Message) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	last := messages[len(messages)-1].Content
	if reply, ok := f.replies[last]; ok {
		return reply, nil
	}
	return "echo: " + last, nil
}

func run(t *testing.T, loop *Loop, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := loop.Run(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func roles(messages []transcript.Message) []transcript.Role {
	out := make([]transcript.Role, len(messages))
	for i, m := range messages {
		out[i] = m.Role
	}
	return out
}

func TestRunSuccessfulExchange(t *testing.T) {
	sender := &fakeSender{replies: map[string]string{"Hi": "Hello!"}}
	loop := New(sender, systemPrompt, WithColor(false))

	out := run(t, loop, "Hi\nexit\n")

	if !strings.Contains(out, "Echo: Hello!") {
		t.Fatalf("expected reply in output, got:\n%s", out)
	}
	want := []transcript.Message{
		{Role: transcript.RoleSystem, Content: systemPrompt},
		{Role: transcript.RoleUser, Content: "Hi"},
		{Role: transcript.RoleAssistant, Content: "Hello!"},
	}
	got := loop.Transcript()
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("message %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestRunEachExchangeAddsUserThenAssistant(t *testing.T) {
	inputs := []string{"one", "two words", "  padded  ", "/resetting", "EXITS"}
	sender := &fakeSender{}
	loop := New(sender, systemPrompt, WithColor(false))

	run(t, loop, strings.Join(inputs, "\n")+"\n")

	got := loop.Transcript()
	if len(got) != 1+2*len(inputs) {
		t.Fatalf("expected %d messages, got %d", 1+2*len(inputs), len(got))
	}
	for i, input := range inputs {
		user, assistant := got[1+2*i], got[2+2*i]
		if user.Role != transcript.RoleUser || user.Content != strings.TrimSpace(input) {
			t.Fatalf("exchange %d: unexpected user message %+v", i, user)
		}
		if assistant.Role != transcript.RoleAssistant {
			t.Fatalf("exchange %d: expected assistant message, got %+v", i, assistant)
		}
	}
}

func TestRunSendsFullTranscript(t *testing.T) {
	sender := &fakeSender{}
	loop := New(sender, systemPrompt, WithColor(false))

	run(t, loop, "first\nsecond\n")

	if len(sender.calls) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(sender.calls))
	}
	second := roles(sender.calls[1])
	want := []transcript.Role{transcript.RoleSystem, transcript.RoleUser, transcript.RoleAssistant, transcript.RoleUser}
	if len(second) != len(want) {
		t.Fatalf("expected second send to carry %d messages, got %v", len(want), second)
	}
	for i := range want {
		if second[i] != want[i] {
			t.Fatalf("second send roles: expected %v, got %v", want, second)
		}
	}
}

func TestRunFailedExchangeKeepsUserMessage(t *testing.T) {
	sender := &fakeSender{err: &completion.Error{Kind: completion.KindTransport, Err: errors.New("API error")}}
	loop := New(sender, systemPrompt, WithColor(false))

	out := run(t, loop, "fail\nexit\n")

	if !strings.Contains(out, "[Error]") || !strings.Contains(out, "API error") {
		t.Fatalf("expected error line in output, got:\n%s", out)
	}
	got := roles(loop.Transcript())
	if len(got) != 2 || got[0] != transcript.RoleSystem || got[1] != transcript.RoleUser {
		t.Fatalf("expected [system user], got %v", got)
	}
	if loop.Transcript()[1].Content != "fail" {
		t.Fatalf("expected pending user message to be kept, got %+v", loop.Transcript()[1])
	}
	if !strings.Contains(out, "Goodbye!") {
		t.Fatalf("expected loop to continue to exit, got:\n%s", out)
	}
}

func TestRunConfigurationErrorDoesNotEndLoop(t *testing.T) {
	sender := &fakeSender{err: &completion.Error{Kind: completion.KindConfiguration, Err: errors.New("GITHUB_TOKEN is not set")}}
	loop := New(sender, systemPrompt, WithColor(false))

	out := run(t, loop, "hello\nagain\n")

	if strings.Count(out, "[Error]") != 2 {
		t.Fatalf("expected two error lines, got:\n%s", out)
	}
	if len(sender.calls) != 2 {
		t.Fatalf("expected both inputs to reach the sender, got %d", len(sender.calls))
	}
}

func TestRunBlankInputIsIgnored(t *testing.T) {
	sender := &fakeSender{}
	loop := New(sender, systemPrompt, WithColor(false))

	run(t, loop, "\n   \n\t\n")

	if len(sender.calls) != 0 {
		t.Fatalf("expected no sends, got %d", len(sender.calls))
	}
	if len(loop.Transcript()) != 1 {
		t.Fatalf("expected transcript length 1, got %d", len(loop.Transcript()))
	}
}

func TestRunReset(t *testing.T) {
	sender := &fakeSender{}
	loop := New(sender, systemPrompt, WithColor(false))

	out := run(t, loop, "one\ntwo\n/RESET\n")

	got := loop.Transcript()
	if len(got) != 1 {
		t.Fatalf("expected transcript length 1 after reset, got %d", len(got))
	}
	if got[0].Role != transcript.RoleSystem || got[0].Content != systemPrompt {
		t.Fatalf("expected original system message, got %+v", got[0])
	}
	if len(sender.calls) != 2 {
		t.Fatalf("expected reset not to call the sender, got %d calls", len(sender.calls))
	}
	if !strings.Contains(out, "Conversation context reset.") {
		t.Fatalf("expected reset notice, got:\n%s", out)
	}
}

func TestRunResetThenContinue(t *testing.T) {
	sender := &fakeSender{}
	loop := New(sender, systemPrompt, WithColor(false))

	run(t, loop, "one\n/reset\ntwo\n")

	last := sender.calls[len(sender.calls)-1]
	if len(last) != 2 || last[0].Role != transcript.RoleSystem || last[1].Content != "two" {
		t.Fatalf("expected send after reset to carry [system, two], got %+v", last)
	}
}

func TestRunTerminationIsUniform(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "exit", input: "exit\n"},
		{name: "quit", input: "quit\n"},
		{name: "mixed case", input: "  QuIt  \n"},
		{name: "end of input", input: ""},
		{name: "end of input without newline", input: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := New(&fakeSender{}, systemPrompt, WithColor(false))
			out := run(t, loop, tt.input)

			if !strings.HasSuffix(out, "\nGoodbye!\n") {
				t.Fatalf("expected farewell at end of output, got:\n%q", out)
			}
			if loop.State() != StateTerminated {
				t.Fatalf("expected terminated state, got %v", loop.State())
			}
		})
	}
}

func TestRunStopsReadingAfterExit(t *testing.T) {
	sender := &fakeSender{}
	loop := New(sender, systemPrompt, WithColor(false))

	run(t, loop, "exit\nnot sent\n")

	if len(sender.calls) != 0 {
		t.Fatalf("expected no sends after exit, got %d", len(sender.calls))
	}
}

func TestRunAfterTerminationFails(t *testing.T) {
	loop := New(&fakeSender{}, systemPrompt, WithColor(false))
	run(t, loop, "exit\n")

	err := loop.Run(context.Background(), strings.NewReader("hello\n"), io.Discard)
	if !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated, got %v", err)
	}
}

func TestRunCancelledContextSaysGoodbye(t *testing.T) {
	sender := &fakeSender{}
	loop := New(sender, systemPrompt, WithColor(false))

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := loop.Run(ctx, pr, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Goodbye!") {
		t.Fatalf("expected farewell on interrupt, got:\n%s", out.String())
	}
	if loop.State() != StateTerminated {
		t.Fatalf("expected terminated state, got %v", loop.State())
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no sends, got %d", len(sender.calls))
	}
}

type cancellingSender struct {
	cancel context.CancelFunc
}

func (s cancellingSender) Send(ctx context.Context, _ []transcript.Message) (string, error) {
	s.cancel()
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRunInterruptDuringSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := New(cancellingSender{cancel: cancel}, systemPrompt, WithColor(false))

	var out bytes.Buffer
	if err := loop.Run(ctx, strings.NewReader("hello\nmore\n"), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(out.String(), "[Error]") {
		t.Fatalf("interrupt should not be reported as an error, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Goodbye!") {
		t.Fatalf("expected farewell, got:\n%s", out.String())
	}
}

func TestRunGreets(t *testing.T) {
	loop := New(&fakeSender{}, systemPrompt, WithColor(false), WithVersion("1.2.3"))
	out := run(t, loop, "exit\n")

	if !strings.HasPrefix(out, "Welcome to echo-bot v1.2.3! Type 'exit' to quit.\n") {
		t.Fatalf("unexpected greeting:\n%s", out)
	}
}

func TestRunRequiresDependencies(t *testing.T) {
	if err := New(nil, systemPrompt).Run(context.Background(), strings.NewReader(""), io.Discard); err == nil {
		t.Fatal("expected error without sender")
	}
	if err := New(&fakeSender{}, systemPrompt).Run(context.Background(), nil, io.Discard); err == nil {
		t.Fatal("expected error without input")
	}
}

func TestRunAcceptsVeryLongLines(t *testing.T) {
	long := strings.Repeat("a", 2<<20)
	sender := &fakeSender{}
	loop := New(sender, systemPrompt, WithColor(false))

	out := run(t, loop, long+"\nsecond\nexit\n")

	if strings.Contains(out, "[Error]") {
		t.Fatalf("unexpected error line in output")
	}
	if len(sender.calls) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(sender.calls))
	}
	got := loop.Transcript()
	if len(got) != 5 || got[1].Content != long || got[3].Content != "second" {
		t.Fatalf("unexpected transcript: %d messages", len(got))
	}
}

func TestRunStripsCarriageReturns(t *testing.T) {
	sender := &fakeSender{}
	loop := New(sender, systemPrompt, WithColor(false))

	run(t, loop, "hello\r\nQUIT\r\n")

	if len(sender.calls) != 1 || sender.calls[0][1].Content != "hello" {
		t.Fatalf("unexpected sends: %+v", sender.calls)
	}
	if loop.State() != StateTerminated {
		t.Fatalf("expected terminated state, got %v", loop.State())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("device gone") }

func TestRunReportsReadFailure(t *testing.T) {
	loop := New(&fakeSender{}, systemPrompt, WithColor(false))

	var out bytes.Buffer
	if err := loop.Run(context.Background(), failingReader{}, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "[Error] read input: device gone") {
		t.Fatalf("expected read error in output, got:\n%s", out.String())
	}
	if !strings.HasSuffix(out.String(), "Goodbye!\n") {
		t.Fatalf("expected farewell, got:\n%s", out.String())
	}
}
