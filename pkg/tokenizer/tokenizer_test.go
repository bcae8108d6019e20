package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeSplitsOnWhitespace(t *testing.T) {
	tokens := Encode("the quick\tbrown\n fox")
	require.Equal(t, []string{"the", "quick", "brown", "fox"}, tokens)
}

func TestEncodeEmpty(t *testing.T) {
	require.Empty(t, Encode(""))
	require.Empty(t, Encode("   \n\t  "))
}

func TestDecodeJoinsWithSingleSpace(t *testing.T) {
	require.Equal(t, "a b c", Decode([]string{"a", "b", "c"}))
	require.Equal(t, "", Decode(nil))
}

func TestCountMatchesEncode(t *testing.T) {
	text := "graduate programme induction schedule for week one"
	require.Equal(t, len(Encode(text)), Count(text))
	require.Equal(t, 7, Count(text))
}

func TestEncodeDeterministic(t *testing.T) {
	text := "same input same output"
	require.Equal(t, Encode(text), Encode(text))
}
