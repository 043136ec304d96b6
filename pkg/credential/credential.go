// Package credential supplies the bearer token for outbound requests.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	loggerpkg "github.com/minhyannv/echo-bot-go/pkg/logger"
)

// ErrNotSet is returned when no token is configured.
var ErrNotSet = errors.New("token is not set")

// Provider returns the bearer token. An absent token is reported as an
// error wrapping ErrNotSet.
type Provider interface {
	Token() (string, error)
}

// EnvProvider reads the token from an environment variable. Files listed
// in Files are loaded with godotenv before the first read; variables that
// are already set are never overwritten.
type EnvProvider struct {
	Variable string
	Files    []string

	logger  loggerpkg.Logger
	once    sync.Once
	loadErr error
}

// Option configures an EnvProvider.
type Option func(*EnvProvider)

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) Option {
	return func(p *EnvProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewEnvProvider returns a provider for variable backed by the given .env files.
func NewEnvProvider(variable string, files []string, opts ...Option) *EnvProvider {
	p := &EnvProvider{Variable: variable, Files: files, logger: loggerpkg.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Token implements Provider. When the variable is unset and a .env file
// failed to load, the load error is returned instead of ErrNotSet.
func (p *EnvProvider) Token() (string, error) {
	p.once.Do(p.loadFiles)
	token := strings.TrimSpace(os.Getenv(p.Variable))
	if token != "" {
		return token, nil
	}
	if p.loadErr != nil {
		return "", p.loadErr
	}
	return "", fmt.Errorf("%s: %w", p.Variable, ErrNotSet)
}

func (p *EnvProvider) loadFiles() {
	if p.logger == nil {
		p.logger = loggerpkg.NopLogger{}
	}
	var errs []error
	for _, f := range p.Files {
		err := godotenv.Load(f)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			continue
		}
		p.logger.Warn("load env file failed", map[string]any{"file": f, "error": err.Error()})
		errs = append(errs, fmt.Errorf("load %s: %w", f, err))
	}
	p.loadErr = errors.Join(errs...)
}

// Static is a fixed token. The zero value has no token.
type Static string

// Token implements Provider.
func (s Static) Token() (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", ErrNotSet
	}
	return token, nil
}
