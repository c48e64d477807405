// Package tiktoken wraps the tiktoken BPE tokenizer so prompt budgets can be
// enforced in model tokens rather than characters.
package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
)

type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New resolves the encoding for a model name, falling back to treating the
// name as an encoding name (e.g. "cl100k_base").
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Count implements the token counter consumed by the answer generator.
func (t *Tokenizer) Count(text string) int {
	return len(t.Encode(text))
}

// Decode reassembles text from token ids.
func (t *Tokenizer) Decode(ids []int) string {
	return t.enc.Decode(ids)
}
