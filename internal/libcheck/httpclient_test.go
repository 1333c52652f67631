package libcheck

import (
	"context"
	"net"
	"strings"
	"testing"
)

// serveRaw answers every connection with a canned raw response and
// closes, so read-to-EOF terminates. Returns the listening port.
func serveRaw(t *testing.T, response string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				c.Read(buf)
				c.Write([]byte(response))
			}(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestParseHTTPResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		status  int
		text    string
		body    string
		headers map[string]string
	}{
		{
			name:   "full response",
			raw:    "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nhello",
			status: 200,
			text:   "OK",
			body:   "hello",
			headers: map[string]string{
				"content-type":   "text/plain",
				"Content-Length": "5",
			},
		},
		{
			name:   "status line only",
			raw:    "HTTP/1.1 404 Not Found\r\n\r\n",
			status: 404,
			text:   "Not Found",
		},
		{
			name:   "no status text",
			raw:    "HTTP/1.1 200\r\n\r\n",
			status: 200,
		},
		{
			name:   "bare newlines instead of CRLF",
			raw:    "HTTP/1.1 201 Created\nLocation: /jobs/1\n\ncreated",
			status: 201,
			text:   "Created",
			body:   "created",
			headers: map[string]string{
				"location": "/jobs/1",
			},
		},
		{
			name:   "multi-line body preserved",
			raw:    "HTTP/1.1 200 OK\r\n\r\nline one\r\nline two",
			status: 200,
			text:   "OK",
			body:   "line one\nline two",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseHTTPResponse(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if resp.StatusText != tt.text {
				t.Errorf("status text = %q, want %q", resp.StatusText, tt.text)
			}
			if resp.Body != tt.body {
				t.Errorf("body = %q, want %q", resp.Body, tt.body)
			}
			for name, want := range tt.headers {
				got, ok := resp.Header(name)
				if !ok {
					t.Errorf("header %q missing", name)
				} else if got != want {
					t.Errorf("header %q = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestParseHTTPResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"garbage status line", "garbage"},
		{"non-numeric code", "HTTP/1.1 abc OK\r\n\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseHTTPResponse(tt.raw); err == nil {
				t.Error("want error")
			}
		})
	}
}

func TestParseHTTPResponseSkipsMalformedHeaders(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nthis line has no colon\r\nServer: custom\r\n\r\n"
	resp, err := ParseHTTPResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Headers) != 1 {
		t.Fatalf("headers = %d, want 1", len(resp.Headers))
	}
	if !resp.HasHeader("SERVER") {
		t.Error("header lookup should be case-insensitive")
	}
}

func TestHTTPRequestAgainstRawServer(t *testing.T) {
	port := serveRaw(t, "HTTP/1.1 418 I'm a teapot\r\nX-Flavor: earl-grey\r\n\r\nshort and stout")

	resp, err := httpRequest(context.Background(), port, "GET", "/", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 418 {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if flavor, _ := resp.Header("x-flavor"); flavor != "earl-grey" {
		t.Errorf("x-flavor = %q", flavor)
	}
	if resp.Body != "short and stout" {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestHTTPRequestConnectionRefused(t *testing.T) {
	// grab a port and close it again
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = httpRequest(context.Background(), port, "GET", "/", nil, nil)
	if err == nil {
		t.Fatal("want error for closed port")
	}
	if !strings.Contains(err.Error(), "connection failed") {
		t.Errorf("err = %v", err)
	}
}
