package chatbot

import loggerpkg "github.com/minhyannv/echo-bot-go/pkg/logger"

// Option configures optional runtime dependencies for Loop.
type Option func(*loopDeps)

type loopDeps struct {
	logger  loggerpkg.Logger
	color   bool
	version string
}

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) Option {
	return func(d *loopDeps) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithColor toggles ANSI styling. Styling is also dropped automatically
// when the output is not a terminal.
func WithColor(enabled bool) Option {
	return func(d *loopDeps) {
		d.color = enabled
	}
}

// WithVersion sets the version shown in the greeting.
func WithVersion(v string) Option {
	return func(d *loopDeps) {
		if v != "" {
			d.version = v
		}
	}
}
