package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// TestNewTransport verifies the constructor creates a properly configured transport.
func TestNewTransport(t *testing.T) {
	tr := NewTransport("test-token")

	if tr.Token != "test-token" {
		t.Errorf("Token = %q, want %q", tr.Token, "test-token")
	}
	if tr.Endpoint != DefaultAPIEndpoint {
		t.Errorf("Endpoint = %q, want %q", tr.Endpoint, DefaultAPIEndpoint)
	}
	if tr.HTTPClient == nil {
		t.Error("HTTPClient is nil, want non-nil default client")
	}

	custom := &http.Client{Timeout: 60 * time.Second}
	tr2 := tr.WithHTTPClient(custom).WithEndpoint("https://ghe.example.com/api/graphql")
	if tr2.HTTPClient != custom {
		t.Error("HTTPClient not set to custom client")
	}
	if tr2.Endpoint != "https://ghe.example.com/api/graphql" {
		t.Errorf("Endpoint = %q, want custom endpoint", tr2.Endpoint)
	}
	if tr.Endpoint != DefaultAPIEndpoint {
		t.Error("WithEndpoint modified the original transport")
	}
}

func serve(t *testing.T, status int, body string, check func(*http.Request, request)) *HTTPTransport {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(r, req)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewTransport("secret").WithEndpoint(srv.URL)
}

func TestDoSendsRequest(t *testing.T) {
	tr := serve(t, http.StatusOK, `{"data":{"viewer":{"login":"octocat"}}}`, func(r *http.Request, req request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("GraphQL-Features"); got != "sub_issues,issue_types" {
			t.Errorf("GraphQL-Features = %q", got)
		}
		if req.Query != "query { viewer { login } }" {
			t.Errorf("query = %q", req.Query)
		}
		if req.Variables["n"] != float64(3) {
			t.Errorf("variables = %v", req.Variables)
		}
	})

	var out struct {
		Viewer struct {
			Login string `json:"login"`
		} `json:"viewer"`
	}
	if err := tr.Do(context.Background(), "query { viewer { login } }", map[string]any{"n": 3}, &out); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if out.Viewer.Login != "octocat" {
		t.Errorf("login = %q, want octocat", out.Viewer.Login)
	}
}

func TestDoErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantIs   error
		wantCode int
	}{
		{"http status", http.StatusBadGateway, "upstream down", ErrTransport, http.StatusBadGateway},
		{"bad json", http.StatusOK, "{", ErrTransport, http.StatusOK},
		{"graphql errors", http.StatusOK, `{"errors":[{"type":"NOT_FOUND","message":"no such node"}]}`, ErrProtocol, 0},
		{"null data", http.StatusOK, `{"data":null}`, ErrUnexpectedResponse, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := serve(t, tt.status, tt.body, nil)
			err := tr.Do(context.Background(), "query { x }", nil, nil)
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("Do() error = %v, want %v", err, tt.wantIs)
			}
			var te *TransportError
			if tt.wantCode != 0 {
				if !errors.As(err, &te) || te.StatusCode != tt.wantCode {
					t.Errorf("Do() error = %#v, want status %d", err, tt.wantCode)
				}
			} else if errors.As(err, &te) {
				t.Errorf("Do() returned transport error for a protocol failure: %v", err)
			}
		})
	}
}

func TestResponseErrorsMessage(t *testing.T) {
	err := ResponseErrors{{Type: "NOT_FOUND", Message: "gone"}, {Message: "also bad"}}
	want := "github: graphql errors: NOT_FOUND: gone; also bad"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if errors.Is(err, ErrTransport) {
		t.Error("ResponseErrors should not match ErrTransport")
	}
}

func TestDoCancelled(t *testing.T) {
	tr := serve(t, http.StatusOK, `{"data":{}}`, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.Do(ctx, "query { x }", nil, nil)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrTransport) {
		t.Errorf("Do() error = %v, want cancelled transport error", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "abc", 5, "abc"},
		{"ascii", "abcdef", 3, "abc..."},
		{"inside rune", "abécd", 3, "ab..."},
		{"rune boundary", "abécd", 4, "abé..."},
		{"wide rune", "世界", 4, "世..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) = %q is not valid UTF-8", tt.in, tt.n, got)
			}
		})
	}

	long := strings.Repeat("é", 400)
	if got := truncate(long, 512); !utf8.ValidString(got) {
		t.Errorf("truncated error body is not valid UTF-8")
	}
}
