package textsplitter

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// EncodingCL100kBase is the encoding shared by the GPT-3.5/GPT-4 and
// text-embedding model families.
const EncodingCL100kBase = "cl100k_base"

// TokenCounter counts model tokens in text.
type TokenCounter interface {
	CountTokens(text string) int
}

// TiktokenCounter counts tokens with a tiktoken encoding.
type TiktokenCounter struct {
	encoding     *tiktoken.Tiktoken
	encodingName string
}

// NewTiktokenCounter creates a counter for the given encoding name.
func NewTiktokenCounter(encodingName string) (*TiktokenCounter, error) {
	if encodingName == "" {
		encodingName = EncodingCL100kBase
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %s: %w", encodingName, err)
	}
	return &TiktokenCounter{encoding: enc, encodingName: encodingName}, nil
}

// CountTokens returns the number of tokens in the text.
func (t *TiktokenCounter) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// EncodingName returns the encoding name.
func (t *TiktokenCounter) EncodingName() string {
	return t.encodingName
}

var (
	defaultCounter     TokenCounter
	defaultCounterOnce sync.Once
	defaultCounterErr  error
)

// DefaultTokenCounter returns a shared cl100k_base counter.
// Safe for concurrent use.
func DefaultTokenCounter() (TokenCounter, error) {
	defaultCounterOnce.Do(func() {
		defaultCounter, defaultCounterErr = NewTiktokenCounter(EncodingCL100kBase)
	})
	return defaultCounter, defaultCounterErr
}

// Ensure TiktokenCounter implements TokenCounter.
var _ TokenCounter = (*TiktokenCounter)(nil)
