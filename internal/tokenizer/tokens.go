// Package tokenizer provides form-field key tokenization using Shape's tokenizer framework.
package tokenizer

// Token type constants for form-field keys such as "user[address][]".
const (
	TokenOpen    = "Open"    // [
	TokenClose   = "Close"   // ]
	TokenSegment = "Segment" // name or index text between brackets
)
