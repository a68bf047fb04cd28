package tokens

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE vocabulary used when none is configured.
const DefaultEncoding = "cl100k_base"

// Backend turns text into a token count.
type Backend interface {
	Name() string
	Count(text string) (int, error)
}

// TiktokenBackend counts tokens with a BPE encoder.
type TiktokenBackend struct {
	encoding string
	encoder  *tiktoken.Tiktoken
}

// NewTiktokenBackend loads the named encoding, or the encoding of model when model is set.
// Loading may fetch the vocabulary over the network on first use and fails when that is
// not possible.
func NewTiktokenBackend(encoding, model string) (*TiktokenBackend, error) {
	if model != "" {
		encoder, err := tiktoken.EncodingForModel(model)
		if err != nil {
			return nil, fmt.Errorf("loading tokenizer for model %q: %w", model, err)
		}
		return &TiktokenBackend{encoding: model, encoder: encoder}, nil
	}

	if encoding == "" {
		encoding = DefaultEncoding
	}
	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer %q: %w", encoding, err)
	}
	return &TiktokenBackend{encoding: encoding, encoder: encoder}, nil
}

// Name returns "tiktoken".
func (b *TiktokenBackend) Name() string { return "tiktoken" }

// Encoding returns the loaded encoding or model name.
func (b *TiktokenBackend) Encoding() string { return b.encoding }

// Count encodes text, treating special-token strings as plain text.
func (b *TiktokenBackend) Count(text string) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tiktoken panic: %v", r)
		}
	}()
	return len(b.encoder.Encode(text, nil, nil)), nil
}

// wordOrSymbol matches runs of word characters or single punctuation characters.
var wordOrSymbol = regexp.MustCompile(`[\p{L}\p{N}_]+|[^\p{L}\p{N}_\s]`)

// RegexBackend approximates a tokenizer: one token per word run and one per
// punctuation character. Deterministic and linear in the input length.
type RegexBackend struct{}

// Name returns "regex".
func (RegexBackend) Name() string { return "regex" }

// Count returns the number of word runs and punctuation characters in text.
func (RegexBackend) Count(text string) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("regex tokenizer panic: %v", r)
		}
	}()
	return len(wordOrSymbol.FindAllStringIndex(text, -1)), nil
}

// countWords is the last resort when every backend failed.
func countWords(text string) int {
	return len(strings.Fields(text))
}
