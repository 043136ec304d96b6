// Package main runs the echo-bot interactive chat client.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/minhyannv/echo-bot-go/pkg/chatbot"
	"github.com/minhyannv/echo-bot-go/pkg/completion"
	configpkg "github.com/minhyannv/echo-bot-go/pkg/config"
	"github.com/minhyannv/echo-bot-go/pkg/credential"
	loggerpkg "github.com/minhyannv/echo-bot-go/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.1.0"

// main is the program entry point.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run wires configuration, logging, credentials, the completion client and
// the chat loop, and returns the process exit code.
func run(ctx context.Context, in io.Reader, out, errOut io.Writer) int {
	cfg, err := configpkg.Load("")
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}

	appLogger, closer, err := loggerpkg.New(cfg.LoggerOptions())
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	defer closer.Close()

	appLogger.Debug("config loaded", map[string]any{
		"model":    cfg.Model,
		"endpoint": cfg.Endpoint,
		"timeout":  cfg.Timeout.String(),
	})

	creds := credential.NewEnvProvider(cfg.TokenEnv, cfg.EnvFiles, credential.WithLogger(appLogger))
	client := completion.New(cfg, creds, completion.WithLogger(appLogger))

	color := true
	if cfg.Color != nil {
		color = *cfg.Color
	}
	loop := chatbot.New(client, cfg.SystemPrompt,
		chatbot.WithLogger(appLogger),
		chatbot.WithColor(color),
		chatbot.WithVersion(version),
	)

	if err := loop.Run(ctx, in, out); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}
