package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalPayload_SortsKeys(t *testing.T) {
	got, err := marshalPayload(map[string]any{
		"zeta":  1,
		"alpha": 2,
		"mid":   map[string]any{"b": true, "a": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":{"a":null,"b":true},"zeta":1}`, string(got))
}

func TestMarshalPayload_Deterministic(t *testing.T) {
	payload := map[string]any{
		"cuisine": "korean",
		"rating":  5,
		"tags":    []any{"spicy", "favorite"},
	}

	first, err := marshalPayload(payload)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := marshalPayload(payload)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestMarshalPayload_NoHTMLEscaping(t *testing.T) {
	got, err := marshalPayload(map[string]any{"q": "a<b&c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"q":"a<b&c>d"}`, string(got))
}

func TestMarshalPayload_NormalizesNFC(t *testing.T) {
	// "e" + combining acute vs precomposed U+00E9 encode identically.
	decomposed, err := marshalPayload(map[string]any{"name": "café"})
	require.NoError(t, err)
	precomposed, err := marshalPayload(map[string]any{"name": "café"})
	require.NoError(t, err)
	assert.Equal(t, string(precomposed), string(decomposed))
}

func TestMarshalPayload_RejectsUnsupportedTypes(t *testing.T) {
	_, err := marshalPayload(map[string]any{"bad": make(chan int)})
	require.Error(t, err)
}
