package jsonx

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Node is a read-only cursor over a decoded JSON document.
// Every accessor is safe on a missing node: lookups through absent keys,
// out-of-range indexes or mismatched kinds yield another missing node, and
// scalar readers report presence through their second return value.
type Node struct {
	v      any
	exists bool
}

// Parse decodes b into a Node. Numbers keep their textual form so decimals
// round-trip exactly.
func Parse(b []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Node{}, fmt.Errorf("decode json: %w", err)
	}
	return Node{v: v, exists: true}, nil
}

// Wrap turns an already decoded value into a Node.
func Wrap(v any) Node { return Node{v: v, exists: true} }

// Exists reports whether the node was present in the document (null included).
func (n Node) Exists() bool { return n.exists }

// IsNull reports whether the node is absent or an explicit JSON null.
func (n Node) IsNull() bool { return !n.exists || n.v == nil }

// IsArray reports whether the node holds a JSON array.
func (n Node) IsArray() bool {
	_, ok := n.v.([]any)
	return n.exists && ok
}

// IsObject reports whether the node holds a JSON object.
func (n Node) IsObject() bool {
	_, ok := n.v.(map[string]any)
	return n.exists && ok
}

// Get returns the member key of an object node.
func (n Node) Get(key string) Node {
	m, ok := n.v.(map[string]any)
	if !ok {
		return Node{}
	}
	v, ok := m[key]
	if !ok {
		return Node{}
	}
	return Node{v: v, exists: true}
}

// Path walks nested object members.
func (n Node) Path(keys ...string) Node {
	cur := n
	for _, k := range keys {
		cur = cur.Get(k)
	}
	return cur
}

// At returns element i of an array node.
func (n Node) At(i int) Node {
	arr, ok := n.v.([]any)
	if !ok || i < 0 || i >= len(arr) {
		return Node{}
	}
	return Node{v: arr[i], exists: true}
}

// Len is the array length, or 0 for anything that is not an array.
func (n Node) Len() int {
	arr, ok := n.v.([]any)
	if !ok {
		return 0
	}
	return len(arr)
}

// Items returns the elements of an array node.
func (n Node) Items() []Node {
	arr, ok := n.v.([]any)
	if !ok {
		return nil
	}
	out := make([]Node, len(arr))
	for i, v := range arr {
		out[i] = Node{v: v, exists: true}
	}
	return out
}

// Last returns the final element of an array node.
func (n Node) Last() Node { return n.At(n.Len() - 1) }

// String returns the value of a JSON string node.
func (n Node) String() (string, bool) {
	s, ok := n.v.(string)
	return s, ok
}

// StringOr returns the string value or def when absent, null or not a string.
func (n Node) StringOr(def string) string {
	if s, ok := n.String(); ok {
		return s
	}
	return def
}

// text returns the textual form of a number or string node.
func (n Node) text() (string, bool) {
	switch v := n.v.(type) {
	case json.Number:
		return v.String(), true
	case string:
		return strings.TrimSpace(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Float parses a number or a numerically encoded string. Parsing always uses
// '.' as the decimal separator regardless of host locale. Only finite decimal
// values are accepted: "NaN", "Inf" and hex floats are not numbers in JSON.
func (n Node) Float() (float64, bool) {
	s, ok := n.text()
	if !ok || s == "" || strings.ContainsAny(s, "xX") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FloatOr returns the parsed float or def.
func (n Node) FloatOr(def float64) float64 {
	if f, ok := n.Float(); ok {
		return f
	}
	return def
}

// Int64 parses an integral number or string. Fractional values are truncated.
// Values outside the int64 range are rejected.
func (n Node) Int64() (int64, bool) {
	s, ok := n.text()
	if !ok || s == "" {
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	bi := d.BigInt()
	if !bi.IsInt64() {
		return 0, false
	}
	return bi.Int64(), true
}

// Int64Or returns the parsed integer or def.
func (n Node) Int64Or(def int64) int64 {
	if i, ok := n.Int64(); ok {
		return i
	}
	return def
}

// Int is Int64 narrowed to int.
func (n Node) Int() (int, bool) {
	i, ok := n.Int64()
	return int(i), ok
}

// IntOr returns the parsed int or def.
func (n Node) IntOr(def int) int {
	if i, ok := n.Int(); ok {
		return i
	}
	return def
}

// Decimal parses a number or numeric string without going through float64.
func (n Node) Decimal() (decimal.Decimal, bool) {
	s, ok := n.text()
	if !ok || s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// DecimalOr returns the parsed decimal or def.
func (n Node) DecimalOr(def decimal.Decimal) decimal.Decimal {
	if d, ok := n.Decimal(); ok {
		return d
	}
	return def
}
