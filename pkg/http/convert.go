package http

import (
	"encoding/json"
	"fmt"

	"github.com/shapestone/shape-core/pkg/ast"
)

var zeroPos = ast.Position{}

// RequestToNode converts a Request to an AST ObjectNode. The body is read
// with Stream.String, which rewinds seekable bodies.
func RequestToNode(req *Request) ast.SchemaNode {
	props := map[string]ast.SchemaNode{
		"type":          ast.NewLiteralNode("request", zeroPos),
		"method":        ast.NewLiteralNode(req.Method(), zeroPos),
		"uri":           ast.NewLiteralNode(req.URI().String(), zeroPos),
		"requestTarget": ast.NewLiteralNode(req.RequestTarget(), zeroPos),
		"version":       ast.NewLiteralNode(req.ProtocolVersion(), zeroPos),
		"headers":       HeadersToNode(req.HeaderMap()),
	}
	if body := req.Body(); body != nil && body.IsReadable() {
		props["body"] = ast.NewLiteralNode(body.String(), zeroPos)
	}
	return ast.NewObjectNode(props, zeroPos)
}

// ResponseToNode converts a Response to an AST ObjectNode.
func ResponseToNode(resp *Response) ast.SchemaNode {
	props := map[string]ast.SchemaNode{
		"type":       ast.NewLiteralNode("response", zeroPos),
		"version":    ast.NewLiteralNode(resp.ProtocolVersion(), zeroPos),
		"statusCode": ast.NewLiteralNode(int64(resp.StatusCode()), zeroPos),
		"reason":     ast.NewLiteralNode(resp.ReasonPhrase(), zeroPos),
		"headers":    HeadersToNode(resp.HeaderMap()),
	}
	if body := resp.Body(); body != nil && body.IsReadable() {
		props["body"] = ast.NewLiteralNode(body.String(), zeroPos)
	}
	return ast.NewObjectNode(props, zeroPos)
}

// ServerRequestToNode converts a ServerRequest to an AST ObjectNode holding
// the request fields plus cookies, query, parsedBody, attributes and
// uploadedFiles. Server parameters are left out; they may carry credentials.
func ServerRequestToNode(req *ServerRequest) ast.SchemaNode {
	base := RequestToNode(&req.Request).(*ast.ObjectNode).Properties()
	props := make(map[string]ast.SchemaNode, len(base)+5)
	for k, v := range base {
		props[k] = v
	}
	props["type"] = ast.NewLiteralNode("serverRequest", zeroPos)

	cookies := make(map[string]any, len(req.cookies))
	for k, v := range req.cookies {
		cookies[k] = v
	}
	props["cookies"] = ValueToNode(cookies)
	props["query"] = ValueToNode(req.QueryParams())
	props["parsedBody"] = ValueToNode(req.ParsedBody())
	props["attributes"] = ValueToNode(req.Attributes())
	props["uploadedFiles"] = ValueToNode(req.UploadedFiles())
	return ast.NewObjectNode(props, zeroPos)
}

// HeadersToNode converts headers to an ArrayDataNode of {key, value}
// objects, one per value, in insertion order.
func HeadersToNode(headers Headers) ast.SchemaNode {
	fields := headers.Fields()
	elements := make([]ast.SchemaNode, len(fields))
	for i, h := range fields {
		elements[i] = ast.NewObjectNode(map[string]ast.SchemaNode{
			"key":   ast.NewLiteralNode(h.Key, zeroPos),
			"value": ast.NewLiteralNode(h.Value, zeroPos),
		}, zeroPos)
	}
	return ast.NewArrayDataNode(elements, zeroPos)
}

// NodeToHeaders converts an ArrayDataNode of {key, value} objects back to
// Headers.
func NodeToHeaders(node ast.SchemaNode) (Headers, error) {
	arr, ok := node.(*ast.ArrayDataNode)
	if !ok {
		return Headers{}, fmt.Errorf("expected ArrayDataNode for headers, got %T", node)
	}
	pairs := make([]Header, 0, len(arr.Elements()))
	for _, elem := range arr.Elements() {
		obj, ok := elem.(*ast.ObjectNode)
		if !ok {
			continue
		}
		props := obj.Properties()
		var h Header
		if lit, ok := props["key"].(*ast.LiteralNode); ok {
			h.Key, _ = lit.Value().(string)
		}
		if lit, ok := props["value"].(*ast.LiteralNode); ok {
			h.Value, _ = lit.Value().(string)
		}
		pairs = append(pairs, h)
	}
	return NewHeaders(pairs)
}

// ValueToNode converts native values (maps, slices, scalars, upload trees)
// to AST nodes. Uploaded files become objects describing the file. Other
// values are converted through their JSON encoding.
func ValueToNode(v any) ast.SchemaNode {
	switch val := v.(type) {
	case nil:
		return ast.NewLiteralNode(nil, zeroPos)
	case string, bool, int64, float64:
		return ast.NewLiteralNode(val, zeroPos)
	case int:
		return ast.NewLiteralNode(int64(val), zeroPos)
	case *UploadedFile:
		return uploadedFileToNode(val)
	case map[string]any:
		props := make(map[string]ast.SchemaNode, len(val))
		for k, child := range val {
			props[k] = ValueToNode(child)
		}
		return ast.NewObjectNode(props, zeroPos)
	case map[string]string:
		props := make(map[string]ast.SchemaNode, len(val))
		for k, child := range val {
			props[k] = ast.NewLiteralNode(child, zeroPos)
		}
		return ast.NewObjectNode(props, zeroPos)
	case []any:
		elements := make([]ast.SchemaNode, len(val))
		for i, child := range val {
			elements[i] = ValueToNode(child)
		}
		return ast.NewArrayDataNode(elements, zeroPos)
	case []string:
		elements := make([]ast.SchemaNode, len(val))
		for i, child := range val {
			elements[i] = ast.NewLiteralNode(child, zeroPos)
		}
		return ast.NewArrayDataNode(elements, zeroPos)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ast.NewLiteralNode(fmt.Sprint(v), zeroPos)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return ast.NewLiteralNode(string(data), zeroPos)
	}
	return ValueToNode(generic)
}

func uploadedFileToNode(f *UploadedFile) ast.SchemaNode {
	props := map[string]ast.SchemaNode{
		"clientFilename":  ast.NewLiteralNode(f.ClientFilename(), zeroPos),
		"clientMediaType": ast.NewLiteralNode(f.ClientMediaType(), zeroPos),
		"error":           ast.NewLiteralNode(int64(f.Error()), zeroPos),
		"moved":           ast.NewLiteralNode(f.IsMoved(), zeroPos),
	}
	if size, ok := f.Size(); ok {
		props["size"] = ast.NewLiteralNode(size, zeroPos)
	}
	return ast.NewObjectNode(props, zeroPos)
}

// NodeToInterface converts an AST node to native Go types.
func NodeToInterface(node ast.SchemaNode) interface{} {
	switch n := node.(type) {
	case *ast.LiteralNode:
		return n.Value()
	case *ast.ArrayDataNode:
		elements := n.Elements()
		arr := make([]interface{}, len(elements))
		for i, elem := range elements {
			arr[i] = NodeToInterface(elem)
		}
		return arr
	case *ast.ObjectNode:
		props := n.Properties()
		m := make(map[string]interface{}, len(props))
		for k, v := range props {
			m[k] = NodeToInterface(v)
		}
		return m
	default:
		return nil
	}
}
