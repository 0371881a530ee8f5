package envist

import (
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	b := NewBuilder()
	assert.Equal(t, ".env", b.path)
	assert.True(t, b.opts.AutoCast)
	assert.False(t, b.opts.AcceptEmpty)
}

func TestBuilderBuild(t *testing.T) {
	path := writeEnvFile(t, "PORT <int> = 8080\nEMPTY =\n")

	env, err := NewBuilder().
		WithPath(path).
		WithAcceptEmpty(true).
		WithLogger(logr.Discard()).
		Build()
	require.NoError(t, err)

	v, err := env.Get("PORT")
	require.NoError(t, err)
	assert.Equal(t, int64(8080), v)
	assert.True(t, env.Has("EMPTY"))
}

func TestBuilderAutoCastOff(t *testing.T) {
	env, err := NewBuilder().
		WithPath(writeEnvFile(t, "PORT <int> = 8080\n")).
		WithAutoCast(false).
		Build()
	require.NoError(t, err)

	v, _ := env.Get("PORT")
	assert.Equal(t, "8080", v)
}

func TestBuilderValidators(t *testing.T) {
	path := writeEnvFile(t, "PORT <int> = 8080\n")

	t.Run("Pass", func(t *testing.T) {
		env, err := NewBuilder().
			WithPath(path).
			WithValidator(func(e *Env) error {
				if !e.Has("PORT") {
					return errors.New("PORT is required")
				}
				return nil
			}).
			Build()
		require.NoError(t, err)
		assert.NotNil(t, env)
	})

	t.Run("Fail", func(t *testing.T) {
		wantErr := errors.New("HOST is required")
		_, err := NewBuilder().
			WithPath(path).
			WithValidator(func(e *Env) error {
				if !e.Has("HOST") {
					return wantErr
				}
				return nil
			}).
			Build()
		require.Error(t, err)
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("RunInOrder", func(t *testing.T) {
		var ran []int
		_, err := NewBuilder().
			WithPath(path).
			WithValidator(func(e *Env) error { ran = append(ran, 1); return nil }).
			WithValidator(func(e *Env) error { ran = append(ran, 2); return errors.New("stop") }).
			WithValidator(func(e *Env) error { ran = append(ran, 3); return nil }).
			Build()
		require.Error(t, err)
		assert.Equal(t, []int{1, 2}, ran)
	})

	t.Run("NilIgnored", func(t *testing.T) {
		env, err := NewBuilder().
			WithPath(path).
			WithValidator(nil).
			Build()
		require.NoError(t, err)
		assert.NotNil(t, env)
	})
}

func TestBuilderLoadErrorPropagates(t *testing.T) {
	_, err := NewBuilder().
		WithPath("/nonexistent/nowhere.env").
		Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestMustBuild(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := NewBuilder().
			WithPath(writeEnvFile(t, "A = 1\n")).
			MustBuild()
		assert.Equal(t, 1, env.Len())
	})

	t.Run("Panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewBuilder().WithPath("/nonexistent/nowhere.env").MustBuild()
		})
	})
}
