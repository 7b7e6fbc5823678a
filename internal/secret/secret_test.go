package secret

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	values map[string]string
	closed bool
}

func (f *fakeProvider) Get(_ context.Context, path string) (string, error) {
	val, ok := f.values[path]
	if !ok {
		return "", errors.New("not found")
	}
	return val, nil
}

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}

func TestManager_SchemeRouting(t *testing.T) {
	m := NewManager()
	m.Register("fake", &fakeProvider{values: map[string]string{"api-key": "sk-123"}})

	val, err := m.Resolve(context.Background(), "fake://api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-123", val)
}

func TestManager_StaticPassthrough(t *testing.T) {
	m := NewManager()

	val, err := m.Resolve(context.Background(), "sk-plaintext")
	require.NoError(t, err)
	assert.Equal(t, "sk-plaintext", val)
}

func TestManager_UnknownScheme(t *testing.T) {
	m := NewManager()

	_, err := m.Resolve(context.Background(), "vault://secret/data/openai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault")
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	p := &fakeProvider{}
	m.Register("fake", p)

	require.NoError(t, m.Close())
	assert.True(t, p.closed)
}
