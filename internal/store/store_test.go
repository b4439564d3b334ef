package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finqa-cli/internal/config"
)

func TestFloat(t *testing.T) {
	v, ok := Float(3.5)
	assert.True(t, ok)
	assert.Equal(t, 3.5, v)

	v, ok = Float(int64(7))
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)

	_, ok = Float(nil)
	assert.False(t, ok)

	_, ok = Float("3.5")
	assert.False(t, ok)
}

func TestString(t *testing.T) {
	s, ok := String("hello")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	s, ok = String([]byte("bytes"))
	assert.True(t, ok)
	assert.Equal(t, "bytes", s)

	_, ok = String(42)
	assert.False(t, ok)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
