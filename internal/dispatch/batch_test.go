package dispatch_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floatit/go-push-service/internal/dispatch"
)

func TestChunk(t *testing.T) {
	tokens := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("tok-%d", i)
		}
		return out
	}

	t.Run("Empty Input Yields Zero Chunks", func(t *testing.T) {
		assert.Empty(t, dispatch.Chunk(nil, 500))
		assert.Empty(t, dispatch.Chunk([]string{}, 500))
	})

	t.Run("Exact Multiple", func(t *testing.T) {
		chunks := dispatch.Chunk(tokens(1000), 500)
		require.Len(t, chunks, 2)
		assert.Len(t, chunks[0], 500)
		assert.Len(t, chunks[1], 500)
	})

	t.Run("Short Final Chunk", func(t *testing.T) {
		chunks := dispatch.Chunk(tokens(1200), 500)
		require.Len(t, chunks, 3)
		assert.Len(t, chunks[0], 500)
		assert.Len(t, chunks[1], 500)
		assert.Len(t, chunks[2], 200)
	})

	t.Run("Concatenation Preserves Order", func(t *testing.T) {
		input := tokens(47)
		var flat []string
		for _, c := range dispatch.Chunk(input, 10) {
			flat = append(flat, c...)
		}
		assert.Equal(t, input, flat)
	})

	t.Run("Input Smaller Than Size", func(t *testing.T) {
		chunks := dispatch.Chunk(tokens(3), 500)
		require.Len(t, chunks, 1)
		assert.Len(t, chunks[0], 3)
	})
}
