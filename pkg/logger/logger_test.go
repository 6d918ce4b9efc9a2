package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddleware_RequestIDAndEnrich(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := NewWithWriter("test", &buf)

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/ping", func(c *gin.Context) {
		Enrich(c, "user_id", 7)
		if From(c.Request.Context()) == nil {
			t.Fatalf("expected logger in request context")
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(HeaderRequestID); got != "rid-1" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line["request_id"] != "rid-1" || line["path"] != "/ping" {
		t.Fatalf("unexpected log line: %v", line)
	}
	if line["user_id"] != float64(7) {
		t.Fatalf("expected enriched user_id, got %v", line["user_id"])
	}
	if line["service"] != "callcenter-api" {
		t.Fatalf("expected service attr, got %v", line["service"])
	}
}

func TestFrom_FallsBackToDefault(t *testing.T) {
	if From(context.Background()) == nil {
		t.Fatalf("expected default logger")
	}
}
