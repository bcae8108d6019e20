package tokenizer

import (
	"strings"
)

// Encode splits text into whitespace-delimited word tokens.
// Encoding then decoding normalizes whitespace but is otherwise
// lossless, and re-encoding decoded text yields the same tokens.
func Encode(text string) []string {
	return strings.Fields(text)
}

// Decode reassembles tokens into text.
func Decode(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Count returns the number of tokens in text.
func Count(text string) int {
	return len(Encode(text))
}
