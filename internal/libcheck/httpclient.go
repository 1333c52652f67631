package libcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	defaultHTTPPort    = 4221
)

// Header is one response header. Names are stored lower-cased.
type Header struct {
	Name  string
	Value string
}

// HTTPResponse is a permissively parsed HTTP response. The body is kept
// verbatim; no dechunking or content-length trimming is applied, since
// the server under test may not be conformant.
type HTTPResponse struct {
	StatusCode int
	StatusText string
	Headers    []Header
	Body       string
}

// ParseHTTPResponse parses raw response text. Only the status line is
// required; header lines without a colon are skipped.
func ParseHTTPResponse(raw string) (*HTTPResponse, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty response")
	}
	lines := strings.Split(raw, "\n")

	statusLine := strings.TrimSuffix(lines[0], "\r")
	parts := strings.SplitN(statusLine, " ", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid status line: %s", statusLine)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid status code: %s", parts[1])
	}
	statusText := ""
	if len(parts) == 3 {
		statusText = strings.TrimSuffix(parts[2], "\r")
	}

	resp := &HTTPResponse{StatusCode: code, StatusText: statusText}

	i := 1
	for ; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		if line == "" {
			i++
			break
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		resp.Headers = append(resp.Headers, Header{
			Name:  strings.ToLower(strings.TrimSpace(name)),
			Value: strings.TrimSpace(value),
		})
	}

	if i < len(lines) {
		bodyLines := make([]string, 0, len(lines)-i)
		for ; i < len(lines); i++ {
			bodyLines = append(bodyLines, strings.TrimSuffix(lines[i], "\r"))
		}
		resp.Body = strings.Join(bodyLines, "\n")
	}
	return resp, nil
}

// Header returns the value of the named header, case-insensitively.
func (r *HTTPResponse) Header(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, h := range r.Headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

func (r *HTTPResponse) HasHeader(name string) bool {
	_, ok := r.Header(name)
	return ok
}

// httpRequest writes a hand-built HTTP/1.1 request over a raw TCP
// connection and reads until the peer closes. Connection: close is
// always sent so read-to-EOF terminates. A nil body sends no
// Content-Length header.
func httpRequest(ctx context.Context, port int, method, path string, headers []Header, body []byte) (*HTTPResponse, error) {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	dialer := net.Dialer{Timeout: defaultHTTPTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("connection timeout")
		}
		return nil, fmt.Errorf("connection failed: %v", err)
	}
	defer conn.Close()

	var req strings.Builder
	fmt.Fprintf(&req, "%s %s HTTP/1.1\r\n", method, path)
	req.WriteString("Host: 127.0.0.1\r\n")
	req.WriteString("Connection: close\r\n")
	for _, h := range headers {
		fmt.Fprintf(&req, "%s: %s\r\n", h.Name, h.Value)
	}
	if body != nil {
		fmt.Fprintf(&req, "Content-Length: %d\r\n", len(body))
	}
	req.WriteString("\r\n")

	conn.SetWriteDeadline(time.Now().Add(defaultHTTPTimeout))
	if _, err := conn.Write([]byte(req.String())); err != nil {
		return nil, fmt.Errorf("failed to send request: %v", err)
	}
	if body != nil {
		if _, err := conn.Write(body); err != nil {
			return nil, fmt.Errorf("failed to send request: %v", err)
		}
	}

	conn.SetReadDeadline(time.Now().Add(defaultHTTPTimeout))
	raw, err := io.ReadAll(conn)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("read timeout")
		}
		return nil, fmt.Errorf("failed to read response: %v", err)
	}
	return ParseHTTPResponse(string(raw))
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
