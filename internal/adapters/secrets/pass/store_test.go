package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutUsesPassInsert(t *testing.T) {
	t.Parallel()

	called := false
	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			called = true
			assert.Equal(t, []string{"insert", "-m", "-f", "openai/gpt4"}, args)
			assert.Equal(t, "sk-secret\n", input)
			return "", "", nil
		},
	}

	err := store.Put(context.Background(), "openai/gpt4", "sk-secret")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestStoreGetUsesPassShowAndTrimsTrailingNewline(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "openai/gpt4"}, args)
			assert.Empty(t, input)
			return "sk-secret\r\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), "openai/gpt4")
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", value)
}

func TestStoreDeleteUsesPassRemove(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"rm", "-f", "openai/gpt4"}, args)
			assert.Empty(t, input)
			return "", "", nil
		},
	}

	err := store.Delete(context.Background(), "openai/gpt4")
	require.NoError(t, err)
}

func TestStoreGetSurfacesStderr(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "entry not found", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), "openai/gpt4")
	require.Error(t, err)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "openai/gpt4")
	assert.ErrorContains(t, err, "entry not found")
}
