package http

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

// Fields of a raw upload record.
const (
	uploadFieldName    = "name"
	uploadFieldType    = "type"
	uploadFieldTmpName = "tmp_name"
	uploadFieldError   = "error"
	uploadFieldSize    = "size"
)

var uploadFields = []string{
	uploadFieldName,
	uploadFieldType,
	uploadFieldTmpName,
	uploadFieldError,
	uploadFieldSize,
}

// NormalizeUploadedFiles turns a raw upload description into an upload tree.
//
// A raw record is a map with the fields name, type, tmp_name, error and size.
// When error is a scalar the record becomes one *UploadedFile: an OK file is
// opened read-only from tmp_name, any other code gets an empty in-memory
// stream. When error is a sequence or a map, the other fields are parallel
// structures of the same shape, and each index or key yields one sub-record.
// Maps without an error field are descended into; other values are ignored.
//
// The result has the same keys as raw. Sequences become []any in index
// order. If any record cannot be opened, every stream opened by the call is
// closed and the error is returned.
func NormalizeUploadedFiles(raw map[string]any) (map[string]any, error) {
	var n uploadNormalizer
	out, err := n.normalizeMap(raw)
	if err != nil {
		for _, s := range n.opened {
			s.Close()
		}
		return nil, err
	}
	return out, nil
}

type uploadNormalizer struct {
	opened []*Stream
}

func (n *uploadNormalizer) normalizeMap(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		v, ok, err := n.normalizeValue(value)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = v
		}
	}
	return out, nil
}

func (n *uploadNormalizer) normalizeValue(value any) (any, bool, error) {
	switch v := value.(type) {
	case map[string]any:
		if _, ok := v[uploadFieldError]; ok {
			leaf, err := n.normalizeRecord(v)
			return leaf, err == nil, err
		}
		m, err := n.normalizeMap(v)
		return m, err == nil, err
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			child, ok, err := n.normalizeValue(item)
			if err != nil {
				return nil, false, err
			}
			if ok {
				out = append(out, child)
			}
		}
		return out, true, nil
	}
	return nil, false, nil
}

// normalizeRecord handles a record whose error field is present. Parallel
// sequences and maps are re-indexed into one sub-record per entry.
func (n *uploadNormalizer) normalizeRecord(rec map[string]any) (any, error) {
	errField := rec[uploadFieldError]

	if items, ok := asSequence(errField); ok {
		out := make([]any, len(items))
		for i := range items {
			sub := make(map[string]any, len(uploadFields))
			for _, field := range uploadFields {
				sub[field] = indexField(rec[field], i)
			}
			leaf, err := n.normalizeRecord(sub)
			if err != nil {
				return nil, err
			}
			out[i] = leaf
		}
		return out, nil
	}

	if keyed, ok := errField.(map[string]any); ok {
		out := make(map[string]any, len(keyed))
		for key := range keyed {
			sub := make(map[string]any, len(uploadFields))
			for _, field := range uploadFields {
				sub[field] = keyField(rec[field], key)
			}
			leaf, err := n.normalizeRecord(sub)
			if err != nil {
				return nil, err
			}
			out[key] = leaf
		}
		return out, nil
	}

	return n.newUploadedFile(rec)
}

func (n *uploadNormalizer) newUploadedFile(rec map[string]any) (*UploadedFile, error) {
	const op = "NormalizeUploadedFiles"

	code, ok := asInt(rec[uploadFieldError])
	if !ok {
		return nil, newError(op, ErrInvalidArgument, "invalid upload error code %v", rec[uploadFieldError])
	}
	size, ok := asInt(rec[uploadFieldSize])
	if !ok {
		size = -1
	}
	name, _ := rec[uploadFieldName].(string)
	mediaType, _ := rec[uploadFieldType].(string)

	var stream *Stream
	if code == UploadErrOK {
		tmp, _ := rec[uploadFieldTmpName].(string)
		if tmp == "" {
			return nil, newError(op, ErrInvalidArgument, "upload %q has no temporary file", name)
		}
		s, err := OpenStream(tmp, "r")
		if err != nil {
			return nil, err
		}
		n.opened = append(n.opened, s)
		stream = s
	} else {
		stream = NewMemoryStream("")
	}

	return NewUploadedFile(stream, int64(size), code, name, mediaType)
}

// asSequence returns the elements of any slice or array value other than a
// byte slice.
func asSequence(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func indexField(field any, i int) any {
	if items, ok := asSequence(field); ok && i < len(items) {
		return items[i]
	}
	if keyed, ok := field.(map[string]any); ok {
		return keyed[strconv.Itoa(i)]
	}
	return nil
}

func keyField(field any, key string) any {
	if keyed, ok := field.(map[string]any); ok {
		return keyed[key]
	}
	if items, ok := asSequence(field); ok {
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(items) {
			return items[i]
		}
	}
	return nil
}

// asInt converts the numeric representations found in decoded upload data.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
