package parser

import (
	"reflect"
	"testing"

	"github.com/shapestone/shape-core/pkg/ast"
)

// toNative flattens an AST into Go values for comparison.
func toNative(node ast.SchemaNode) interface{} {
	switch n := node.(type) {
	case *ast.LiteralNode:
		return n.Value()
	case *ast.ArrayDataNode:
		out := make([]interface{}, 0, len(n.Elements()))
		for _, e := range n.Elements() {
			out = append(out, toNative(e))
		}
		return out
	case *ast.ObjectNode:
		out := make(map[string]interface{}, len(n.Properties()))
		for k, v := range n.Properties() {
			out[k] = toNative(v)
		}
		return out
	}
	return nil
}

func TestParse_Flat(t *testing.T) {
	node := ParseQuery("a=1&b=two+words&c=%2Fpath")

	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		t.Fatalf("expected ObjectNode, got %T", node)
	}

	want := map[string]interface{}{"a": "1", "b": "two words", "c": "/path"}
	if got := toNative(obj); !reflect.DeepEqual(got, want) {
		t.Errorf("ParseQuery() = %v, want %v", got, want)
	}
}

func TestParse_Nested(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  map[string]interface{}
	}{
		{
			name:  "append list",
			query: "tags[]=x&tags[]=y",
			want:  map[string]interface{}{"tags": []interface{}{"x", "y"}},
		},
		{
			name:  "named keys",
			query: "user[name]=bob&user[age]=7",
			want:  map[string]interface{}{"user": map[string]interface{}{"name": "bob", "age": "7"}},
		},
		{
			name:  "deep",
			query: "a[b][c][]=1&a[b][c][]=2",
			want: map[string]interface{}{
				"a": map[string]interface{}{"b": map[string]interface{}{"c": []interface{}{"1", "2"}}},
			},
		},
		{
			name:  "mixed append and explicit index",
			query: "a[]=x&a[5]=y&a[]=z",
			want:  map[string]interface{}{"a": map[string]interface{}{"0": "x", "5": "y", "6": "z"}},
		},
		{
			name:  "scalar replaced by container",
			query: "a=1&a[]=2",
			want:  map[string]interface{}{"a": []interface{}{"2"}},
		},
		{
			name:  "container replaced by scalar",
			query: "a[]=1&a=2",
			want:  map[string]interface{}{"a": "2"},
		},
		{
			name:  "unbalanced bracket is literal",
			query: "a[b=1",
			want:  map[string]interface{}{"a[b": "1"},
		},
		{
			name:  "encoded brackets",
			query: "a%5Bb%5D=1",
			want:  map[string]interface{}{"a": map[string]interface{}{"b": "1"}},
		},
		{
			name:  "empty pairs and names skipped",
			query: "&&=x&k",
			want:  map[string]interface{}{"k": ""},
		},
		{
			name:  "leading question mark",
			query: "?q=go",
			want:  map[string]interface{}{"q": "go"},
		},
		{
			name:  "malformed escape kept",
			query: "p=100%",
			want:  map[string]interface{}{"p": "100%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toNative(ParseQuery(tt.query))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseQuery(%q) = %#v, want %#v", tt.query, got, tt.want)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	node := NewParser("").Parse()
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		t.Fatalf("expected ObjectNode, got %T", node)
	}
	if len(obj.Properties()) != 0 {
		t.Errorf("properties = %v, want empty", obj.Properties())
	}
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key          string
		wantBase     string
		wantSegments []string
	}{
		{"a", "a", nil},
		{"a[b]", "a", []string{"b"}},
		{"a[]", "a", []string{""}},
		{"a[b][]", "a", []string{"b", ""}},
		{"a[b]junk[c]", "a", []string{"b", "c"}},
		{"a[b", "a[b", nil},
		{"a]b", "a]b", nil},
		{"[a]", "[a]", nil},
	}

	for _, tt := range tests {
		base, segments := SplitKey(tt.key)
		if base != tt.wantBase || !reflect.DeepEqual(segments, tt.wantSegments) {
			t.Errorf("SplitKey(%q) = (%q, %q), want (%q, %q)", tt.key, base, segments, tt.wantBase, tt.wantSegments)
		}
	}
}
