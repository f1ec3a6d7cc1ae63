package tokenizer

import (
	"testing"

	coretok "github.com/shapestone/shape-core/pkg/tokenizer"
)

func TestTokenize_NestedKey(t *testing.T) {
	tok := NewTokenizer()
	tok.Initialize("user[address][city]")

	tokens, eos := tok.Tokenize()
	if !eos {
		t.Error("expected EOS")
	}

	expected := []struct {
		kind  string
		value string
	}{
		{TokenSegment, "user"},
		{TokenOpen, "["},
		{TokenSegment, "address"},
		{TokenClose, "]"},
		{TokenOpen, "["},
		{TokenSegment, "city"},
		{TokenClose, "]"},
	}

	if len(tokens) != len(expected) {
		t.Fatalf("token count = %d, want %d. tokens = %v", len(tokens), len(expected), formatTokens(tokens))
	}

	for i, exp := range expected {
		if tokens[i].Kind() != exp.kind {
			t.Errorf("token[%d].Kind() = %q, want %q", i, tokens[i].Kind(), exp.kind)
		}
		if tokens[i].ValueString() != exp.value {
			t.Errorf("token[%d].Value() = %q, want %q", i, tokens[i].ValueString(), exp.value)
		}
	}
}

func TestTokenize_AppendKey(t *testing.T) {
	tok := NewTokenizer()
	tok.Initialize("tags[]")

	tokens, eos := tok.Tokenize()
	if !eos {
		t.Error("expected EOS")
	}

	// Expect: Segment("tags"), Open, Close — no segment between the brackets.
	if len(tokens) != 3 {
		t.Fatalf("token count = %d, want 3. tokens = %v", len(tokens), formatTokens(tokens))
	}
	if tokens[1].Kind() != TokenOpen || tokens[2].Kind() != TokenClose {
		t.Errorf("tokens = %v, want Segment, Open, Close", formatTokens(tokens))
	}
}

func TestTokenize_SpacesKept(t *testing.T) {
	tok := NewTokenizer()
	tok.Initialize("first name")

	tokens, _ := tok.Tokenize()
	if len(tokens) != 1 {
		t.Fatalf("token count = %d, want 1. tokens = %v", len(tokens), formatTokens(tokens))
	}
	if tokens[0].ValueString() != "first name" {
		t.Errorf("token[0].Value() = %q, want %q", tokens[0].ValueString(), "first name")
	}
}

func TestNewTokenizerWithStream(t *testing.T) {
	stream := coretok.NewStream("a[b]")
	tok := NewTokenizerWithStream(stream)

	tokens, eos := tok.Tokenize()
	if !eos {
		t.Error("expected EOS")
	}
	if len(tokens) == 0 {
		t.Fatal("expected tokens, got none")
	}
	if tokens[0].Kind() != TokenSegment || tokens[0].ValueString() != "a" {
		t.Errorf("tokens[0] = %v, want Segment('a')", tokens[0])
	}
}

func TestSegmentMatcher_StopsAtBracket(t *testing.T) {
	matcher := SegmentMatcher()
	stream := coretok.NewStream("files[0]")

	tok := matcher(stream)
	if tok == nil {
		t.Fatal("expected token, got nil")
	}
	if tok.Kind() != TokenSegment {
		t.Errorf("Kind = %q, want %q", tok.Kind(), TokenSegment)
	}
	if tok.ValueString() != "files" {
		t.Errorf("Value = %q, want files", tok.ValueString())
	}
}

func TestSegmentMatcher_StartWithBracket(t *testing.T) {
	matcher := SegmentMatcher()
	stream := coretok.NewStream("[x]")
	if tok := matcher(stream); tok != nil {
		t.Errorf("expected nil when starting with bracket, got %v", tok)
	}
}

func TestSegmentMatcher_EOS(t *testing.T) {
	matcher := SegmentMatcher()
	stream := coretok.NewStream("")
	if tok := matcher(stream); tok != nil {
		t.Errorf("expected nil for EOS stream, got %v", tok)
	}
}

func formatTokens(tokens []coretok.Token) string {
	s := "["
	for i, t := range tokens {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	s += "]"
	return s
}
