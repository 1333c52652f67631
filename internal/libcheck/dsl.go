package libcheck

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamKind is the declared type of a validator parameter.
type ParamKind int

const (
	KindBool ParamKind = iota
	KindInt
	KindString
)

// ParamValue is one typed parameter from a validator spec string.
// Values are immutable once parsed.
type ParamValue struct {
	Kind ParamKind

	boolVal   bool
	intVal    int64
	stringVal string
}

func BoolValue(b bool) ParamValue     { return ParamValue{Kind: KindBool, boolVal: b} }
func IntValue(i int64) ParamValue     { return ParamValue{Kind: KindInt, intVal: i} }
func StringValue(s string) ParamValue { return ParamValue{Kind: KindString, stringVal: s} }

func (p ParamValue) AsBool() (bool, bool) {
	return p.boolVal, p.Kind == KindBool
}

func (p ParamValue) AsInt() (int64, bool) {
	return p.intVal, p.Kind == KindInt
}

func (p ParamValue) AsString() (string, bool) {
	return p.stringVal, p.Kind == KindString
}

func (p ParamValue) String() string {
	switch p.Kind {
	case KindBool:
		return strconv.FormatBool(p.boolVal)
	case KindInt:
		return strconv.FormatInt(p.intVal, 10)
	default:
		return p.stringVal
	}
}

// ParsedValidator is the outcome of parsing one spec string: a
// non-empty name and the positional parameter list in source order.
type ParsedValidator struct {
	Name   string
	Params []ParamValue
}

// IntParam returns the parameter at index as an integer. The error
// distinguishes a missing parameter from a mistyped one.
func (pv *ParsedValidator) IntParam(index int) (int64, error) {
	if index >= len(pv.Params) {
		return 0, fmt.Errorf("missing parameter at index %d", index)
	}
	v, ok := pv.Params[index].AsInt()
	if !ok {
		return 0, fmt.Errorf("parameter %d is not an integer", index)
	}
	return v, nil
}

// StringParam returns the parameter at index as a string.
func (pv *ParsedValidator) StringParam(index int) (string, error) {
	if index >= len(pv.Params) {
		return "", fmt.Errorf("missing parameter at index %d", index)
	}
	v, ok := pv.Params[index].AsString()
	if !ok {
		return "", fmt.Errorf("parameter %d is not a string", index)
	}
	return v, nil
}

// BoolParam returns the parameter at index as a boolean.
func (pv *ParsedValidator) BoolParam(index int) (bool, error) {
	if index >= len(pv.Params) {
		return false, fmt.Errorf("missing parameter at index %d", index)
	}
	v, ok := pv.Params[index].AsBool()
	if !ok {
		return false, fmt.Errorf("parameter %d is not a boolean", index)
	}
	return v, nil
}

// IntParamOr returns the parameter at index as an integer, or def when
// the parameter is absent or mistyped. Used for optional trailing
// parameters.
func (pv *ParsedValidator) IntParamOr(index int, def int64) int64 {
	v, err := pv.IntParam(index)
	if err != nil {
		return def
	}
	return v
}

// StringParamOr is IntParamOr for strings.
func (pv *ParsedValidator) StringParamOr(index int, def string) string {
	v, err := pv.StringParam(index)
	if err != nil {
		return def
	}
	return v
}

// ParseValidator parses a validator spec string of the form
// "name:kind(value),kind(value),...". The parameter list is optional.
func ParseValidator(input string) (*ParsedValidator, error) {
	input = strings.TrimSpace(input)

	name := input
	var paramsStr string
	if i := strings.Index(input, ":"); i >= 0 {
		name = strings.TrimSpace(input[:i])
		paramsStr = strings.TrimSpace(input[i+1:])
	}
	if name == "" {
		return nil, fmt.Errorf("validator name cannot be empty")
	}

	var params []ParamValue
	if paramsStr != "" {
		var err error
		params, err = parseParams(paramsStr)
		if err != nil {
			return nil, err
		}
	}
	return &ParsedValidator{Name: name, Params: params}, nil
}

// parseParams splits comma-separated parameters, tracking parenthesis
// depth so commas inside string(...) bodies are preserved.
func parseParams(input string) ([]ParamValue, error) {
	var params []ParamValue
	var current strings.Builder
	depth := 0

	flush := func() error {
		tok := current.String()
		current.Reset()
		if strings.TrimSpace(tok) == "" {
			return nil
		}
		p, err := parseTypedParam(tok)
		if err != nil {
			return err
		}
		params = append(params, p)
		return nil
	}

	for _, ch := range input {
		switch {
		case ch == '(':
			depth++
			current.WriteRune(ch)
		case ch == ')':
			depth--
			current.WriteRune(ch)
		case ch == ',' && depth == 0:
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			current.WriteRune(ch)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return params, nil
}

// parseTypedParam parses a single "kind(body)" token.
func parseTypedParam(input string) (ParamValue, error) {
	input = strings.TrimSpace(input)

	if inner, ok := stripWrapper(input, "bool("); ok {
		switch strings.ToLower(inner) {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		default:
			return ParamValue{}, fmt.Errorf("invalid boolean value: %s", inner)
		}
	}
	if inner, ok := stripWrapper(input, "int("); ok {
		v, err := strconv.ParseInt(inner, 10, 64)
		if err != nil {
			return ParamValue{}, fmt.Errorf("invalid integer value: %s", inner)
		}
		return IntValue(v), nil
	}
	if inner, ok := stripWrapper(input, "string("); ok {
		return StringValue(inner), nil
	}
	return ParamValue{}, fmt.Errorf("invalid parameter format: %s. expected bool(...), int(...), or string(...)", input)
}

func stripWrapper(input, prefix string) (string, bool) {
	if strings.HasPrefix(input, prefix) && strings.HasSuffix(input, ")") {
		return input[len(prefix) : len(input)-1], true
	}
	return "", false
}
