package libcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HTTPStatusValidator checks the status code of GET /.
type HTTPStatusValidator struct {
	Port           int
	ExpectedStatus int
}

func (v *HTTPStatusValidator) Name() string {
	return fmt.Sprintf("http response status %d", v.ExpectedStatus)
}

func (v *HTTPStatusValidator) Validate(ctx context.Context) (TestCase, error) {
	resp, err := httpRequest(ctx, v.Port, "GET", "/", nil, nil)
	if err != nil {
		return TestCase{}, err
	}
	if resp.StatusCode != v.ExpectedStatus {
		return Failing(v.Name(), fmt.Sprintf("expected status %d, got %d", v.ExpectedStatus, resp.StatusCode)), nil
	}
	return Passing(v.Name(), fmt.Sprintf("server returned %d as expected", v.ExpectedStatus)), nil
}

// HTTPGetValidator checks a GET request's status and optionally its
// trimmed body.
type HTTPGetValidator struct {
	Port           int
	Path           string
	ExpectedStatus int
	ExpectedBody   *string
}

func (v *HTTPGetValidator) Name() string {
	return fmt.Sprintf("GET %s returns %d", v.Path, v.ExpectedStatus)
}

func (v *HTTPGetValidator) Validate(ctx context.Context) (TestCase, error) {
	resp, err := httpRequest(ctx, v.Port, "GET", v.Path, nil, nil)
	if err != nil {
		return TestCase{}, err
	}

	var errs []string
	if resp.StatusCode != v.ExpectedStatus {
		errs = append(errs, fmt.Sprintf("expected status %d, got %d", v.ExpectedStatus, resp.StatusCode))
	}
	if v.ExpectedBody != nil {
		body := strings.TrimSpace(resp.Body)
		if body != *v.ExpectedBody {
			errs = append(errs, fmt.Sprintf("expected body '%s', got '%s'", *v.ExpectedBody, body))
		}
	}
	if len(errs) > 0 {
		return Failing(v.Name(), strings.Join(errs, "; ")), nil
	}
	return Passing(v.Name(), fmt.Sprintf("GET %s returned %d OK", v.Path, v.ExpectedStatus)), nil
}

// HTTPHeaderPresentValidator checks presence or absence of a response
// header.
type HTTPHeaderPresentValidator struct {
	Port        int
	Path        string
	HeaderName  string
	ShouldExist bool
}

func (v *HTTPHeaderPresentValidator) Name() string {
	mode := "present"
	if !v.ShouldExist {
		mode = "absent"
	}
	return fmt.Sprintf("header '%s' %s", v.HeaderName, mode)
}

func (v *HTTPHeaderPresentValidator) Validate(ctx context.Context) (TestCase, error) {
	resp, err := httpRequest(ctx, v.Port, "GET", v.Path, nil, nil)
	if err != nil {
		return TestCase{}, err
	}

	has := resp.HasHeader(v.HeaderName)
	switch {
	case has == v.ShouldExist && v.ShouldExist:
		return Passing(v.Name(), fmt.Sprintf("header '%s' is present", v.HeaderName)), nil
	case has == v.ShouldExist:
		return Passing(v.Name(), fmt.Sprintf("header '%s' is absent as expected", v.HeaderName)), nil
	case v.ShouldExist:
		return Failing(v.Name(), fmt.Sprintf("header '%s' not found in response", v.HeaderName)), nil
	default:
		return Failing(v.Name(), fmt.Sprintf("header '%s' should not be present", v.HeaderName)), nil
	}
}

// HTTPHeaderValueValidator checks a response header's exact value.
type HTTPHeaderValueValidator struct {
	Port          int
	Path          string
	HeaderName    string
	ExpectedValue string
}

func (v *HTTPHeaderValueValidator) Name() string {
	return fmt.Sprintf("header '%s' = '%s'", v.HeaderName, v.ExpectedValue)
}

func (v *HTTPHeaderValueValidator) Validate(ctx context.Context) (TestCase, error) {
	resp, err := httpRequest(ctx, v.Port, "GET", v.Path, nil, nil)
	if err != nil {
		return TestCase{}, err
	}

	value, ok := resp.Header(v.HeaderName)
	switch {
	case !ok:
		return Failing(v.Name(), fmt.Sprintf("header '%s' not found", v.HeaderName)), nil
	case value != v.ExpectedValue:
		return Failing(v.Name(), fmt.Sprintf("header '%s' expected '%s', got '%s'", v.HeaderName, v.ExpectedValue, value)), nil
	default:
		return Passing(v.Name(), fmt.Sprintf("header '%s' has value '%s'", v.HeaderName, v.ExpectedValue)), nil
	}
}

// HTTPGetWithHeaderValidator sends a GET with one custom request header
// and checks status and optional body.
type HTTPGetWithHeaderValidator struct {
	Port           int
	Path           string
	HeaderName     string
	HeaderValue    string
	ExpectedStatus int
	ExpectedBody   *string
}

func (v *HTTPGetWithHeaderValidator) Name() string {
	return fmt.Sprintf("GET %s with %s: %s", v.Path, v.HeaderName, v.HeaderValue)
}

func (v *HTTPGetWithHeaderValidator) Validate(ctx context.Context) (TestCase, error) {
	headers := []Header{{Name: v.HeaderName, Value: v.HeaderValue}}
	resp, err := httpRequest(ctx, v.Port, "GET", v.Path, headers, nil)
	if err != nil {
		return TestCase{}, err
	}

	var errs []string
	if resp.StatusCode != v.ExpectedStatus {
		errs = append(errs, fmt.Sprintf("expected status %d, got %d", v.ExpectedStatus, resp.StatusCode))
	}
	if v.ExpectedBody != nil {
		body := strings.TrimSpace(resp.Body)
		if body != *v.ExpectedBody {
			errs = append(errs, fmt.Sprintf("expected body '%s', got '%s'", *v.ExpectedBody, body))
		}
	}
	if len(errs) > 0 {
		return Failing(v.Name(), strings.Join(errs, "; ")), nil
	}
	msg := fmt.Sprintf("GET %s with header %s=%s returned %d OK", v.Path, v.HeaderName, v.HeaderValue, v.ExpectedStatus)
	return Passing(v.Name(), msg), nil
}

// ConcurrentRequestsValidator fans out N simultaneous GET requests and
// requires every one to return the expected status.
type ConcurrentRequestsValidator struct {
	Port           int
	NumConnections int
	Path           string
	ExpectedStatus int
}

func (v *ConcurrentRequestsValidator) Name() string {
	return fmt.Sprintf("%d concurrent requests", v.NumConnections)
}

func (v *ConcurrentRequestsValidator) Validate(ctx context.Context) (TestCase, error) {
	type outcome struct {
		err string
	}
	results := make(chan outcome, v.NumConnections)

	for i := 0; i < v.NumConnections; i++ {
		go func(i int) {
			resp, err := httpRequest(ctx, v.Port, "GET", v.Path, nil, nil)
			if err != nil {
				results <- outcome{err: err.Error()}
				return
			}
			if resp.StatusCode != v.ExpectedStatus {
				results <- outcome{err: fmt.Sprintf("connection %d got status %d instead of %d", i, resp.StatusCode, v.ExpectedStatus)}
				return
			}
			results <- outcome{}
		}(i)
	}

	successes := 0
	var errs []string
	for i := 0; i < v.NumConnections; i++ {
		r := <-results
		if r.err == "" {
			successes++
		} else {
			errs = append(errs, r.err)
		}
	}

	if successes == v.NumConnections {
		return Passing(v.Name(), fmt.Sprintf("all %d concurrent requests succeeded", v.NumConnections)), nil
	}
	return Failing(v.Name(), fmt.Sprintf("%d/%d requests succeeded. %s", successes, v.NumConnections, summarizeErrors(errs))), nil
}

// summarizeErrors joins at most the first three error strings and
// counts the remainder, keeping aggregate failure output bounded.
func summarizeErrors(errs []string) string {
	if len(errs) <= 3 {
		return strings.Join(errs, "; ")
	}
	return fmt.Sprintf("%s; ... and %d more errors", strings.Join(errs[:3], "; "), len(errs)-3)
}

// HTTPPostFileValidator POSTs a raw body and checks the status code.
type HTTPPostFileValidator struct {
	Port           int
	Path           string
	Body           string
	ExpectedStatus int
}

func (v *HTTPPostFileValidator) Name() string {
	return fmt.Sprintf("POST %s returns %d", v.Path, v.ExpectedStatus)
}

func (v *HTTPPostFileValidator) Validate(ctx context.Context) (TestCase, error) {
	resp, err := httpRequest(ctx, v.Port, "POST", v.Path, nil, []byte(v.Body))
	if err != nil {
		return TestCase{}, err
	}
	if resp.StatusCode != v.ExpectedStatus {
		return Failing(v.Name(), fmt.Sprintf("expected status %d, got %d", v.ExpectedStatus, resp.StatusCode)), nil
	}
	return Passing(v.Name(), fmt.Sprintf("POST %s returned %d as expected", v.Path, v.ExpectedStatus)), nil
}

// HTTPGetFileValidator checks a file-serving GET, reporting the
// content length on success when the server provides it.
type HTTPGetFileValidator struct {
	Port           int
	Path           string
	ExpectedStatus int
}

func (v *HTTPGetFileValidator) Name() string {
	return fmt.Sprintf("GET file %s returns %d", v.Path, v.ExpectedStatus)
}

func (v *HTTPGetFileValidator) Validate(ctx context.Context) (TestCase, error) {
	resp, err := httpRequest(ctx, v.Port, "GET", v.Path, nil, nil)
	if err != nil {
		return TestCase{}, err
	}
	if resp.StatusCode != v.ExpectedStatus {
		return Failing(v.Name(), fmt.Sprintf("expected status %d, got %d", v.ExpectedStatus, resp.StatusCode)), nil
	}
	contentInfo := ""
	if length, ok := resp.Header("content-length"); ok {
		contentInfo = fmt.Sprintf(" (%s bytes)", length)
	}
	return Passing(v.Name(), fmt.Sprintf("GET %s returned %d%s OK", v.Path, v.ExpectedStatus, contentInfo)), nil
}

// HTTPGetCompressedValidator negotiates a content encoding and checks
// the server honors it.
type HTTPGetCompressedValidator struct {
	Port     int
	Path     string
	Encoding string
}

func (v *HTTPGetCompressedValidator) Name() string {
	return fmt.Sprintf("GET %s with compression %s", v.Path, v.Encoding)
}

func (v *HTTPGetCompressedValidator) Validate(ctx context.Context) (TestCase, error) {
	headers := []Header{{Name: "Accept-Encoding", Value: v.Encoding}}
	resp, err := httpRequest(ctx, v.Port, "GET", v.Path, headers, nil)
	if err != nil {
		return TestCase{}, err
	}

	actual, ok := resp.Header("content-encoding")
	switch {
	case !ok:
		return Failing(v.Name(), fmt.Sprintf("Content-Encoding header not present, expected '%s'", v.Encoding)), nil
	case !strings.EqualFold(actual, v.Encoding):
		return Failing(v.Name(), fmt.Sprintf("expected Content-Encoding '%s', got '%s'", v.Encoding, actual)), nil
	default:
		return Passing(v.Name(), fmt.Sprintf("server returned Content-Encoding: %s", v.Encoding)), nil
	}
}

// HTTPJsonExistsValidator checks a JSON response contains the named
// top-level fields.
type HTTPJsonExistsValidator struct {
	Port   int
	Path   string
	Method string
	Fields []string
}

func (v *HTTPJsonExistsValidator) Name() string {
	return fmt.Sprintf("%s %s returns JSON with %s", v.Method, v.Path, quoteList(v.Fields))
}

func (v *HTTPJsonExistsValidator) Validate(ctx context.Context) (TestCase, error) {
	resp, err := httpRequest(ctx, v.Port, v.Method, v.Path, nil, nil)
	if err != nil {
		return TestCase{}, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(resp.Body), &obj); err != nil {
		return TestCase{}, fmt.Errorf("invalid JSON response: %v", err)
	}

	var missing []string
	for _, field := range v.Fields {
		if _, ok := obj[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return Failing(v.Name(), fmt.Sprintf("missing required fields: %s", quoteList(missing))), nil
	}
	return Passing(v.Name(), fmt.Sprintf("JSON response contains all required fields: %s", quoteList(v.Fields))), nil
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// HTTPJsonFieldValidator checks one JSON field against an expected
// value. The field may be a dot path for nested objects.
type HTTPJsonFieldValidator struct {
	Port          int
	Path          string
	Method        string
	Field         string
	ExpectedValue string
}

func (v *HTTPJsonFieldValidator) Name() string {
	return fmt.Sprintf("%s %s field '%s' = '%s'", v.Method, v.Path, v.Field, v.ExpectedValue)
}

func (v *HTTPJsonFieldValidator) Validate(ctx context.Context) (TestCase, error) {
	resp, err := httpRequest(ctx, v.Port, v.Method, v.Path, nil, nil)
	if err != nil {
		return TestCase{}, err
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(resp.Body), &obj); err != nil {
		return TestCase{}, fmt.Errorf("invalid JSON response: %v", err)
	}

	value, ok := lookupJSONPath(obj, v.Field)
	if !ok {
		return Failing(v.Name(), fmt.Sprintf("field '%s' not found in JSON response", v.Field)), nil
	}
	got := jsonValueString(value)
	if got != v.ExpectedValue {
		return Failing(v.Name(), fmt.Sprintf("field '%s' expected '%s', got '%s'", v.Field, v.ExpectedValue, got)), nil
	}
	return Passing(v.Name(), fmt.Sprintf("field '%s' has expected value '%s'", v.Field, v.ExpectedValue)), nil
}

// lookupJSONPath resolves a dot-separated path in a decoded JSON
// object.
func lookupJSONPath(obj map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = obj
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// jsonValueString renders a decoded JSON value the way it appears in
// source, without quotes around strings.
func jsonValueString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return "null"
	default:
		enc, _ := json.Marshal(val)
		return string(enc)
	}
}

// HTTPPostJsonValidator POSTs a JSON body and checks the status plus an
// optional response field value.
type HTTPPostJsonValidator struct {
	Port           int
	Path           string
	Body           string
	ExpectedStatus int
	ExpectedField  string
	ExpectedValue  string
	CheckField     bool
}

func (v *HTTPPostJsonValidator) Name() string {
	return fmt.Sprintf("POST %s returns %d", v.Path, v.ExpectedStatus)
}

func (v *HTTPPostJsonValidator) Validate(ctx context.Context) (TestCase, error) {
	headers := []Header{{Name: "Content-Type", Value: "application/json"}}
	resp, err := httpRequest(ctx, v.Port, "POST", v.Path, headers, []byte(v.Body))
	if err != nil {
		return TestCase{}, err
	}

	var errs []string
	if resp.StatusCode != v.ExpectedStatus {
		errs = append(errs, fmt.Sprintf("expected status %d, got %d", v.ExpectedStatus, resp.StatusCode))
	}
	if v.CheckField {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(resp.Body), &obj); err != nil {
			errs = append(errs, fmt.Sprintf("invalid JSON response: %v", err))
		} else if value, ok := obj[v.ExpectedField]; !ok {
			errs = append(errs, fmt.Sprintf("field '%s' not found in response", v.ExpectedField))
		} else if got := jsonValueString(value); got != v.ExpectedValue {
			errs = append(errs, fmt.Sprintf("field '%s' expected '%s', got '%s'", v.ExpectedField, v.ExpectedValue, got))
		}
	}
	if len(errs) > 0 {
		return Failing(v.Name(), strings.Join(errs, "; ")), nil
	}
	return Passing(v.Name(), fmt.Sprintf("POST %s returned %d as expected", v.Path, v.ExpectedStatus)), nil
}

// RateLimitValidator spreads a burst of requests across a declared
// window and requires a minimum number of 429 rejections.
type RateLimitValidator struct {
	Port             int
	Path             string
	Method           string
	Requests         int
	WindowMs         int64
	ExpectedRejected int
}

func (v *RateLimitValidator) Name() string {
	return fmt.Sprintf("rate limit %d requests in %dms", v.Requests, v.WindowMs)
}

func (v *RateLimitValidator) Validate(ctx context.Context) (TestCase, error) {
	type outcome struct {
		status int
		err    string
	}
	results := make(chan outcome, v.Requests)
	start := time.Now()

	for i := 0; i < v.Requests; i++ {
		go func() {
			resp, err := httpRequest(ctx, v.Port, v.Method, v.Path, nil, nil)
			if err != nil {
				results <- outcome{err: err.Error()}
				return
			}
			results <- outcome{status: resp.StatusCode}
		}()

		// spread requests evenly over the window
		if v.WindowMs > 0 {
			delay := time.Duration(v.WindowMs/int64(v.Requests)) * time.Millisecond
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
	}
	elapsed := time.Since(start)

	var rejected, succeeded int
	var errs []string
	for i := 0; i < v.Requests; i++ {
		r := <-results
		switch {
		case r.err != "":
			errs = append(errs, r.err)
		case r.status == 429:
			rejected++
		case r.status == 200 || r.status == 201:
			succeeded++
		}
	}

	if rejected >= v.ExpectedRejected {
		msg := fmt.Sprintf("rate limiting working: %d/%d requests rejected (expected >= %d), %d succeeded, completed in %v",
			rejected, v.Requests, v.ExpectedRejected, succeeded, elapsed)
		return Passing(v.Name(), msg), nil
	}
	msg := fmt.Sprintf("expected at least %d rejected requests, got %d. %d succeeded, %d errors",
		v.ExpectedRejected, rejected, succeeded, len(errs))
	return Failing(v.Name(), msg), nil
}
