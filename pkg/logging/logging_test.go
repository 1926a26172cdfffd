package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"": "INFO", "debug": "DEBUG", "WARN": "WARN", "error": "ERROR"}
	for in, want := range cases {
		lvl, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error: %v", in, err)
		}
		if lvl.String() != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, lvl, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestContextHandlerAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})
	ctx := WithRequestID(context.Background(), "req-42")
	l.With(FieldComponent, ComponentApp).InfoContext(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	if rec[FieldRequestID] != "req-42" {
		t.Fatalf("expected request id in record, got %v", rec)
	}
	if rec[FieldComponent] != ComponentApp {
		t.Fatalf("expected component in record, got %v", rec)
	}
}

func TestMiddlewareRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	r := gin.New()
	r.Use(Middleware(base), AccessLog())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = RequestID(c.Request.Context())
		c.Status(http.StatusTeapot)
	})

	// generated id
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	got := rec.Header().Get(HeaderRequestID)
	if got == "" || got != seen {
		t.Fatalf("expected generated request id echoed, header=%q handler=%q", got, seen)
	}
	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Fatalf("expected 4xx access log at WARN, got %s", buf.String())
	}

	// client supplied id is kept
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Header().Get(HeaderRequestID) != "abc" || seen != "abc" {
		t.Fatalf("expected client request id to be kept, header=%q handler=%q", rec.Header().Get(HeaderRequestID), seen)
	}
}
