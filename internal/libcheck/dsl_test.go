package libcheck

import (
	"strings"
	"testing"
)

func TestParseTypedParam(t *testing.T) {
	tests := []struct {
		input string
		want  ParamValue
	}{
		{"bool(true)", BoolValue(true)},
		{"bool(false)", BoolValue(false)},
		{"bool(TRUE)", BoolValue(true)},
		{"bool(False)", BoolValue(false)},
		{"int(4221)", IntValue(4221)},
		{"int(-42)", IntValue(-42)},
		{"string(/echo/hello)", StringValue("/echo/hello")},
		{"string(hello world)", StringValue("hello world")},
	}
	for _, test := range tests {
		got, err := parseTypedParam(test.input)
		if err != nil {
			t.Errorf("parseTypedParam(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("parseTypedParam(%q) = %v, want %v", test.input, got, test.want)
		}
	}
}

func TestParseTypedParamErrors(t *testing.T) {
	for _, input := range []string{"invalid", "bool(maybe)", "int(abc)", "float(1.5)"} {
		if _, err := parseTypedParam(input); err == nil {
			t.Errorf("parseTypedParam(%q): expected error", input)
		}
	}
}

func TestParseValidatorNoParams(t *testing.T) {
	pv, err := ParseValidator("can_compile")
	if err != nil {
		t.Fatal(err)
	}
	if pv.Name != "can_compile" {
		t.Errorf("name = %q", pv.Name)
	}
	if len(pv.Params) != 0 {
		t.Errorf("params = %v, want none", pv.Params)
	}
}

func TestParseValidatorSingleParam(t *testing.T) {
	pv, err := ParseValidator("tcp_listening:int(4221)")
	if err != nil {
		t.Fatal(err)
	}
	if pv.Name != "tcp_listening" {
		t.Errorf("name = %q", pv.Name)
	}
	if len(pv.Params) != 1 || pv.Params[0] != IntValue(4221) {
		t.Errorf("params = %v", pv.Params)
	}
}

func TestParseValidatorMultipleParams(t *testing.T) {
	pv, err := ParseValidator("http_get:string(/echo/hello),int(200),string(hello)")
	if err != nil {
		t.Fatal(err)
	}
	want := []ParamValue{StringValue("/echo/hello"), IntValue(200), StringValue("hello")}
	if len(pv.Params) != len(want) {
		t.Fatalf("got %d params, want %d", len(pv.Params), len(want))
	}
	for i := range want {
		if pv.Params[i] != want[i] {
			t.Errorf("param %d = %v, want %v", i, pv.Params[i], want[i])
		}
	}
}

func TestParseValidatorMixedParams(t *testing.T) {
	pv, err := ParseValidator("http_header_present:string(Content-Type),bool(true)")
	if err != nil {
		t.Fatal(err)
	}
	if pv.Params[0] != StringValue("Content-Type") || pv.Params[1] != BoolValue(true) {
		t.Errorf("params = %v", pv.Params)
	}
}

func TestParseValidatorWhitespace(t *testing.T) {
	pv, err := ParseValidator("  http_get : string(/path) , int(200)  ")
	if err != nil {
		t.Fatal(err)
	}
	if pv.Name != "http_get" || len(pv.Params) != 2 {
		t.Errorf("parsed %q with %d params", pv.Name, len(pv.Params))
	}
}

func TestParseValidatorNestedParens(t *testing.T) {
	pv, err := ParseValidator("docker:string(a, b (c)),int(120)")
	if err != nil {
		t.Fatal(err)
	}
	if len(pv.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(pv.Params))
	}
	if s, _ := pv.Params[0].AsString(); s != "a, b (c)" {
		t.Errorf("param 0 = %q, want %q", s, "a, b (c)")
	}
}

func TestParseValidatorEmptyName(t *testing.T) {
	if _, err := ParseValidator(":int(123)"); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestParamAccessors(t *testing.T) {
	pv, err := ParseValidator("test:int(42),string(hello),bool(true)")
	if err != nil {
		t.Fatal(err)
	}

	if v, err := pv.IntParam(0); err != nil || v != 42 {
		t.Errorf("IntParam(0) = %d, %v", v, err)
	}
	if v, err := pv.StringParam(1); err != nil || v != "hello" {
		t.Errorf("StringParam(1) = %q, %v", v, err)
	}
	if v, err := pv.BoolParam(2); err != nil || !v {
		t.Errorf("BoolParam(2) = %v, %v", v, err)
	}

	if _, err := pv.IntParam(1); err == nil || !strings.Contains(err.Error(), "not an integer") {
		t.Errorf("IntParam(1) err = %v", err)
	}
	if _, err := pv.StringParam(0); err == nil || !strings.Contains(err.Error(), "not a string") {
		t.Errorf("StringParam(0) err = %v", err)
	}
	if _, err := pv.IntParam(10); err == nil || !strings.Contains(err.Error(), "missing parameter") {
		t.Errorf("IntParam(10) err = %v", err)
	}
}

func TestParamDefaults(t *testing.T) {
	pv, err := ParseValidator("job_processing_verified:int(8080)")
	if err != nil {
		t.Fatal(err)
	}
	if v := pv.IntParamOr(0, 9999); v != 8080 {
		t.Errorf("IntParamOr(0) = %d", v)
	}
	if v := pv.IntParamOr(1, 200); v != 200 {
		t.Errorf("IntParamOr(1) = %d", v)
	}
	if v := pv.StringParamOr(2, "completed"); v != "completed" {
		t.Errorf("StringParamOr(2) = %q", v)
	}
}
