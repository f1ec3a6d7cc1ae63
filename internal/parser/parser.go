// Package parser implements a form-encoded query parser that produces
// shape-core AST nodes (ObjectNode, ArrayDataNode, LiteralNode).
//
// Bracketed keys build nested structures:
//
//	a=1&user[name]=bob&tags[]=x&tags[]=y
//
// maps to
//
//	{ "a": "1", "user": {"name": "bob"}, "tags": ["x", "y"] }
//
// A container whose members were all added with "[]" is an ArrayDataNode;
// any explicit key turns it into an ObjectNode. A later scalar replaces an
// earlier container under the same key and vice versa.
package parser

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shapestone/shape-core/pkg/ast"

	"github.com/shapestone/shape-message/internal/tokenizer"
)

var zeroPos = ast.Position{}

// Parser produces AST nodes from an application/x-www-form-urlencoded string.
type Parser struct {
	data string
}

// NewParser creates a new query parser for the given input.
// A leading "?" is ignored.
func NewParser(data string) *Parser {
	return &Parser{data: strings.TrimPrefix(data, "?")}
}

// ParseQuery parses raw and returns an AST ObjectNode.
func ParseQuery(raw string) ast.SchemaNode {
	return NewParser(raw).Parse()
}

// Parse parses the query and returns an AST ObjectNode. Malformed percent
// escapes are kept literally; the parse itself cannot fail.
func (p *Parser) Parse() ast.SchemaNode {
	root := newContainer()
	root.list = false

	for _, pair := range strings.Split(p.data, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = unescape(key)
		if key == "" {
			continue
		}
		base, segments := SplitKey(key)
		if base == "" {
			continue
		}
		root.insert(base, segments, unescape(value))
	}

	return root.toNode()
}

// SplitKey splits a form key into its base name and bracketed segments.
// "a[b][]" returns ("a", ["b", ""]). A key with unbalanced brackets is
// returned whole as the base with no segments. Text between a closing and
// the next opening bracket is ignored.
func SplitKey(key string) (string, []string) {
	tok := tokenizer.NewTokenizer()
	tok.Initialize(key)
	tokens, eos := tok.Tokenize()
	if !eos || len(tokens) == 0 || tokens[0].Kind() != tokenizer.TokenSegment {
		return key, nil
	}

	base := tokens[0].ValueString()
	var segments []string
	i := 1
	for i < len(tokens) {
		switch tokens[i].Kind() {
		case tokenizer.TokenOpen:
			// "[" Segment? "]"
			if i+1 < len(tokens) && tokens[i+1].Kind() == tokenizer.TokenClose {
				segments = append(segments, "")
				i += 2
				continue
			}
			if i+2 < len(tokens) && tokens[i+1].Kind() == tokenizer.TokenSegment && tokens[i+2].Kind() == tokenizer.TokenClose {
				segments = append(segments, tokens[i+1].ValueString())
				i += 3
				continue
			}
			return key, nil
		case tokenizer.TokenSegment:
			if len(segments) == 0 {
				return key, nil
			}
			i++
		default:
			return key, nil
		}
	}
	return base, segments
}

// formNode is the mutable build tree behind the AST.
type formNode struct {
	leaf     bool
	value    string
	order    []string
	children map[string]*formNode
	next     int
	list     bool
}

func newContainer() *formNode {
	return &formNode{children: make(map[string]*formNode), list: true}
}

func (n *formNode) set(key string, child *formNode) {
	if _, ok := n.children[key]; !ok {
		n.order = append(n.order, key)
	}
	n.children[key] = child
}

// key resolves a segment to a concrete child key, assigning the next index
// for "[]" segments.
func (n *formNode) key(segment string) string {
	if segment == "" {
		k := strconv.Itoa(n.next)
		n.next++
		return k
	}
	n.list = false
	if idx, err := strconv.Atoi(segment); err == nil && idx >= n.next {
		n.next = idx + 1
	}
	return segment
}

func (n *formNode) insert(base string, segments []string, value string) {
	cur := n
	path := append([]string{base}, segments...)
	for i, segment := range path {
		k := cur.key(segment)
		if i == len(path)-1 {
			cur.set(k, &formNode{leaf: true, value: value})
			return
		}
		child, ok := cur.children[k]
		if !ok || child.leaf {
			child = newContainer()
			cur.set(k, child)
		}
		cur = child
	}
}

func (n *formNode) toNode() ast.SchemaNode {
	if n.leaf {
		return ast.NewLiteralNode(n.value, zeroPos)
	}
	if n.list && len(n.order) > 0 {
		elements := make([]ast.SchemaNode, len(n.order))
		for i, k := range n.order {
			elements[i] = n.children[k].toNode()
		}
		return ast.NewArrayDataNode(elements, zeroPos)
	}
	props := make(map[string]ast.SchemaNode, len(n.children))
	for k, child := range n.children {
		props[k] = child.toNode()
	}
	return ast.NewObjectNode(props, zeroPos)
}

// unescape decodes a form-encoded component, keeping malformed escapes as-is.
func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return strings.ReplaceAll(s, "+", " ")
}
