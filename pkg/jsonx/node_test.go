package jsonx

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseInvalidDocument(t *testing.T) {
	if _, err := Parse([]byte(`{"data":`)); err == nil {
		t.Fatalf("expected error for truncated document")
	}
}

func TestMissingPathsFallBack(t *testing.T) {
	n, err := Parse([]byte(`{"data":{"result":[{"metric":{"country":"Sweden"}}]}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	metric := n.Path("data", "result").At(0).Get("metric")
	if got := metric.Get("country").StringOr("Unknown"); got != "Sweden" {
		t.Fatalf("country = %q", got)
	}
	if got := metric.Get("country_code").StringOr("XX"); got != "XX" {
		t.Fatalf("country_code = %q", got)
	}
	if n.Path("data", "result").At(5).Exists() {
		t.Fatalf("out of range index must not exist")
	}
	if n.Path("data", "nope", "deeper").At(0).Get("x").Exists() {
		t.Fatalf("walk through missing keys must stay missing")
	}
	if n.Get("data").Len() != 0 {
		t.Fatalf("object length should be 0")
	}
}

func TestNumericStringsUseDotSeparator(t *testing.T) {
	n, _ := Parse([]byte(`{"lat":"59.44","bad":"59,44","num":18.07,"count":"42","frac":"3.9"}`))
	if f := n.Get("lat").FloatOr(0); f != 59.44 {
		t.Fatalf("lat = %v", f)
	}
	if _, ok := n.Get("bad").Float(); ok {
		t.Fatalf("comma separated value must not parse")
	}
	if f := n.Get("num").FloatOr(0); f != 18.07 {
		t.Fatalf("num = %v", f)
	}
	if i := n.Get("count").IntOr(0); i != 42 {
		t.Fatalf("count = %v", i)
	}
	if i := n.Get("frac").IntOr(0); i != 3 {
		t.Fatalf("frac = %v", i)
	}
}

func TestDecimalIsExact(t *testing.T) {
	n, _ := Parse([]byte(`{"price":101.10,"prev":"100.99","null":null}`))
	p := n.Get("price").DecimalOr(decimal.Zero)
	prev := n.Get("prev").DecimalOr(decimal.Zero)
	if !p.Sub(prev).Equal(decimal.RequireFromString("0.11")) {
		t.Fatalf("difference = %s", p.Sub(prev))
	}
	if !n.Get("null").IsNull() || !n.Get("null").Exists() {
		t.Fatalf("explicit null should exist and be null")
	}
	if _, ok := n.Get("null").Decimal(); ok {
		t.Fatalf("null must not parse as decimal")
	}
}

func TestItemsAndLast(t *testing.T) {
	n, _ := Parse([]byte(`[{"value":"1"},{"value":"2"},{"value":"3"}]`))
	if !n.IsArray() || len(n.Items()) != 3 {
		t.Fatalf("expected array of 3")
	}
	if got := n.Last().Get("value").StringOr(""); got != "3" {
		t.Fatalf("last = %q", got)
	}
	if Wrap(nil).Last().Exists() {
		t.Fatalf("last of non-array must be missing")
	}
}

func TestFloatRejectsNonFinite(t *testing.T) {
	n, _ := Parse([]byte(`{"nan":"NaN","inf":"Inf","neg":"-infinity","hex":"0x1p4","huge":"1e400","ok":"-3.5e1"}`))
	for _, key := range []string{"nan", "inf", "neg", "hex", "huge"} {
		if f, ok := n.Get(key).Float(); ok {
			t.Fatalf("%s parsed as %v", key, f)
		}
	}
	if f := n.Get("nan").FloatOr(-1); f != -1 {
		t.Fatalf("fallback = %v", f)
	}
	if f := n.Get("ok").FloatOr(0); f != -35 {
		t.Fatalf("ok = %v", f)
	}
}

func TestInt64RejectsOutOfRange(t *testing.T) {
	n, _ := Parse([]byte(`{"big":"9223372036854775808.5","neg":-9223372036854775809.1,"exp":"1e30","max":"9223372036854775807","edge":"-9223372036854775808.9"}`))
	for _, key := range []string{"big", "neg", "exp"} {
		if i, ok := n.Get(key).Int64(); ok {
			t.Fatalf("%s parsed as %d", key, i)
		}
	}
	if i, ok := n.Get("max").Int64(); !ok || i != 9223372036854775807 {
		t.Fatalf("max = %d %v", i, ok)
	}
	if i, ok := n.Get("edge").Int64(); !ok || i != -9223372036854775808 {
		t.Fatalf("edge = %d %v", i, ok)
	}
}
