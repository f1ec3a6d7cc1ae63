package tokenizer

import (
	"github.com/shapestone/shape-core/pkg/tokenizer"
)

// NewTokenizer creates a tokenizer for form-field keys.
// Keys are bracket-structured, so the tokenizer uses three matchers:
// 1. Open bracket
// 2. Close bracket
// 3. Segment text (everything else)
//
// Note: spaces are part of a key ("first name"), so the default whitespace
// skipper is not used.
func NewTokenizer() tokenizer.Tokenizer {
	return tokenizer.NewTokenizerWithoutWhitespace(
		tokenizer.StringMatcherFunc(TokenOpen, "["),
		tokenizer.StringMatcherFunc(TokenClose, "]"),
		SegmentMatcher(),
	)
}

// NewTokenizerWithStream creates a form-key tokenizer using a pre-configured stream.
func NewTokenizerWithStream(stream tokenizer.Stream) tokenizer.Tokenizer {
	tok := NewTokenizer()
	tok.InitializeFromStream(stream)
	return tok
}

// SegmentMatcher matches any sequence of characters up to a bracket or EOS.
func SegmentMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		var value []rune

		for {
			r, ok := stream.PeekChar()
			if !ok {
				break
			}
			if r == '[' || r == ']' {
				break
			}
			stream.NextChar()
			value = append(value, r)
		}

		if len(value) == 0 {
			return nil
		}

		return tokenizer.NewToken(TokenSegment, value)
	}
}
