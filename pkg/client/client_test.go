package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/panelnav/panelnav/pkg/panel"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", "ptlc_secret",
		WithTracerProvider(noop.NewTracerProvider()),
		WithTimeout(2*time.Second),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestLoadServer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/client/servers/1a2b3c4d" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ptlc_secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"server","attributes":{
			"identifier":"1a2b3c4d","uuid":"1a2b3c4d-0000","internal_id":12,
			"name":"Survival","node":"node-1","status":"installing","is_transferring":false}}`))
	})

	got, err := c.LoadServer(context.Background(), "1a2b3c4d")
	if err != nil {
		t.Fatalf("LoadServer() error: %v", err)
	}
	want := &panel.Server{
		ID: "1a2b3c4d", UUID: "1a2b3c4d-0000", InternalID: 12,
		Name: "Survival", Node: "node-1", Status: panel.StatusInstalling,
	}
	if *got != *want {
		t.Errorf("LoadServer() = %+v, want %+v", got, want)
	}
}

func TestLoadServerNullStatusAndLegacyFlags(t *testing.T) {
	tests := []struct {
		name string
		body string
		want panel.Status
	}{
		{"null status", `{"object":"server","attributes":{"identifier":"a","uuid":"b","status":null}}`, panel.StatusNone},
		{"legacy suspended", `{"object":"server","attributes":{"identifier":"a","uuid":"b","is_suspended":true}}`, panel.StatusSuspended},
		{"legacy installing", `{"object":"server","attributes":{"identifier":"a","uuid":"b","is_installing":true}}`, panel.StatusInstalling},
		{"status wins over flags", `{"object":"server","attributes":{"identifier":"a","uuid":"b","status":"restoring_backup","is_suspended":true}}`, panel.StatusRestoringBackup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			got, err := c.LoadServer(context.Background(), "a")
			if err != nil {
				t.Fatalf("LoadServer() error: %v", err)
			}
			if got.Status != tt.want {
				t.Errorf("Status = %q, want %q", got.Status, tt.want)
			}
		})
	}
}

func TestLoadServerAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"code":"NotFoundHttpException","status":"404","detail":"The requested resource could not be found on the server."}]}`))
	})

	_, err := c.LoadServer(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if got := HumanError(err); got != "The requested resource could not be found on the server." {
		t.Errorf("HumanError() = %q", got)
	}
}

func TestLoadServerUnexpectedObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"object":"user","attributes":{}}`))
	})
	if _, err := c.LoadServer(context.Background(), "a"); err == nil {
		t.Error("expected an error for a non-server object")
	}
}

func TestLoadServerBadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})
	if _, err := c.LoadServer(context.Background(), "a"); err == nil {
		t.Error("expected a decode error")
	}
}

func TestLoadServerRejectsBadIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent")
	})
	for _, id := range []string{"", "a/b", "a?x=1", ".", ".."} {
		if _, err := c.LoadServer(context.Background(), id); !errors.Is(err, ErrInvalidServerID) {
			t.Errorf("LoadServer(%q) error = %v, want ErrInvalidServerID", id, err)
		}
	}
}

func TestWebsocketCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/client/servers/abc/websocket" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"token":"jwt","socket":"wss://node.example.com/api/servers/abc/ws"}}`))
	})

	creds, err := c.WebsocketCredentials(context.Background(), "abc")
	if err != nil {
		t.Fatalf("WebsocketCredentials() error: %v", err)
	}
	if creds.Token != "jwt" || creds.Socket != "wss://node.example.com/api/servers/abc/ws" {
		t.Errorf("credentials = %+v", creds)
	}
}

func TestWebsocketCredentialsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	})
	if _, err := c.WebsocketCredentials(context.Background(), "abc"); err == nil {
		t.Error("expected an error for empty credentials")
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New("ftp://panel", ""); err == nil {
		t.Error("expected an error for a non-http scheme")
	}
	if _, err := New("://bad", ""); err == nil {
		t.Error("expected a parse error")
	}
}

func TestHumanError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
		{"detail", &APIError{StatusCode: 500, Errors: []ErrorDetail{{Detail: "An unexpected error was encountered."}}}, "An unexpected error was encountered."},
		{"error string", &APIError{StatusCode: 429, Message: "Too Many Attempts."}, "Too Many Attempts."},
		{"bare status", &APIError{StatusCode: 502}, "panel api 502: Bad Gateway"},
		{"wrapped", fmtWrap(&APIError{StatusCode: 403, Errors: []ErrorDetail{{Detail: "This action is unauthorized."}}}), "This action is unauthorized."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HumanError(tt.err); got != tt.want {
				t.Errorf("HumanError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func fmtWrap(err error) error {
	return errors.Join(errors.New("load server"), err)
}

func TestDecodeAPIErrorNonJSON(t *testing.T) {
	err := decodeAPIError(502, []byte("<html>Bad Gateway</html>\n"))
	if err.Message != "<html>Bad Gateway</html>" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestDecodeAPIErrorTruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", 199) + strings.Repeat("é", 10)
	err := decodeAPIError(502, []byte(body))
	if !utf8.ValidString(err.Message) {
		t.Fatalf("Message is not valid UTF-8: %q", err.Message)
	}
	if err.Message != strings.Repeat("a", 199) {
		t.Errorf("Message = %q, want the ASCII prefix only", err.Message)
	}
}
