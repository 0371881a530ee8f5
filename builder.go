package envist

import (
	"fmt"

	"github.com/go-logr/logr"
)

// ValidatorFunc validates a fully loaded Env. It runs at the end of Build
// and should return an error if the configuration is unusable.
type ValidatorFunc func(e *Env) error

// Builder provides a fluent interface for constructing an Env.
type Builder struct {
	path       string
	opts       Options
	validators []ValidatorFunc
}

// NewBuilder creates a builder with DefaultOptions and path ".env".
func NewBuilder() *Builder {
	return &Builder{
		path: ".env",
		opts: DefaultOptions(),
	}
}

// WithPath sets the env file path.
func (b *Builder) WithPath(path string) *Builder {
	b.path = path
	return b
}

// WithAcceptEmpty allows keys declared without values.
func (b *Builder) WithAcceptEmpty(accept bool) *Builder {
	b.opts.AcceptEmpty = accept
	return b
}

// WithAutoCast toggles annotation-driven casting at load time.
func (b *Builder) WithAutoCast(auto bool) *Builder {
	b.opts.AutoCast = auto
	return b
}

// WithLogger sets the structured logging sink.
func (b *Builder) WithLogger(log logr.Logger) *Builder {
	b.opts.Logger = log
	return b
}

// WithValidator adds a validation function; validators run in the order
// they are added.
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build loads the env file and runs all validators.
func (b *Builder) Build() (*Env, error) {
	e, err := NewWithOptions(b.path, b.opts)
	if err != nil {
		return nil, err
	}
	for _, validator := range b.validators {
		if err := validator(e); err != nil {
			return nil, fmt.Errorf("env validation failed: %w", err)
		}
	}
	return e, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Env {
	e, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("envist build failed: %v", err))
	}
	return e
}
