// Package completion sends a transcript to a chat-completion endpoint and
// returns the assistant reply.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	configpkg "github.com/minhyannv/echo-bot-go/pkg/config"
	"github.com/minhyannv/echo-bot-go/pkg/credential"
	loggerpkg "github.com/minhyannv/echo-bot-go/pkg/logger"
	"github.com/minhyannv/echo-bot-go/pkg/transcript"
)

const (
	acceptHeader = "application/vnd.github+json"
	apiVersion   = "2022-11-28"
)

// Client performs one blocking chat-completion request per Send.
type Client struct {
	config configpkg.Config
	client openai.Client
	creds  credential.Provider
	logger loggerpkg.Logger
}

// New builds a Client for cfg. Tokens are read from creds on every Send.
func New(cfg configpkg.Config, creds credential.Provider, opts ...Option) *Client {
	cfg = configpkg.Normalize(cfg)
	deps := clientDeps{logger: loggerpkg.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}
	if creds == nil {
		creds = credential.Static("")
	}

	return &Client{
		config: cfg,
		client: newOpenAIClient(cfg),
		creds:  creds,
		logger: deps.logger,
	}
}

func newOpenAIClient(cfg configpkg.Config) openai.Client {
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.Endpoint + "/"),
		option.WithHeader("Accept", acceptHeader),
		option.WithHeader("X-GitHub-Api-Version", apiVersion),
		option.WithHeader("Content-Type", "application/json"),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	return openai.NewClient(opts...)
}

// Send posts messages and returns choices[0].message.content. It never
// retains or modifies messages. A missing token fails with a configuration
// error before any request is made.
func (c *Client) Send(ctx context.Context, messages []transcript.Message) (string, error) {
	token, err := c.creds.Token()
	if err != nil {
		loggerpkg.Warn(c.logger, "bearer token unavailable", map[string]any{"variable": c.config.TokenEnv, "error": err.Error()})
		if errors.Is(err, credential.ErrNotSet) {
			err = fmt.Errorf("%s is not set; add it to the environment or a .env file", c.config.TokenEnv)
		}
		return "", &Error{Kind: KindConfiguration, Err: err}
	}

	params, err := c.newChatParams(messages)
	if err != nil {
		return "", &Error{Kind: KindConfiguration, Err: err}
	}

	c.logger.Debug("chat completion request", map[string]any{
		"model":    c.config.Model,
		"endpoint": c.config.Endpoint,
		"messages": len(messages),
	})
	completion, err := c.client.Chat.Completions.New(ctx, params, option.WithAPIKey(token))
	if err != nil {
		sendErr := classify(err)
		loggerpkg.Error(c.logger, "chat completion failed", map[string]any{
			"kind":   sendErr.Kind.String(),
			"status": sendErr.StatusCode,
			"error":  err.Error(),
		})
		return "", sendErr
	}

	if len(completion.Choices) == 0 {
		return "", &Error{Kind: KindParse, Err: errors.New("response has no choices")}
	}
	message := completion.Choices[0].Message
	if !message.JSON.Content.Valid() {
		return "", &Error{Kind: KindParse, Err: errors.New("response has no choices[0].message.content")}
	}

	loggerpkg.Info(c.logger, "chat completion received", map[string]any{
		"bytes":         len(message.Content),
		"finish_reason": completion.Choices[0].FinishReason,
	})
	return message.Content, nil
}

func (c *Client) newChatParams(messages []transcript.Message) (openai.ChatCompletionNewParams, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case transcript.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case transcript.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case transcript.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("invalid message role at index %d: %q", i, msg.Role)
		}
	}
	return openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.config.Model),
		Messages: out,
	}, nil
}

// classify maps an openai-go failure onto a Kind. Anything that is not an
// HTTP status or network failure came from decoding the body.
func classify(err error) *Error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindTransport, StatusCode: apiErr.StatusCode, Err: err}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTransport, Err: err}
	}
	return &Error{Kind: KindParse, Err: err}
}
