package reqctx

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/maruel/ksid"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"ipv4", "10.0.0.1:1234", nil, "10.0.0.1"},
		{"ipv6", "[::1]:8080", nil, "::1"},
		{"no port", "10.0.0.2", nil, "10.0.0.2"},
		{"forwarded", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "1.2.3.4"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "9.9.9.9"}, "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIPFromRequest(r); got != tt.want {
				t.Errorf("ClientIPFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if ClientIP(ctx) != "" || RequestID(ctx) != 0 {
		t.Error("expected zero values on empty context")
	}
	id := ksid.NewID()
	ctx = WithRequestID(WithClientIP(ctx, "1.1.1.1"), id)
	if ClientIP(ctx) != "1.1.1.1" {
		t.Errorf("expected 1.1.1.1, got %q", ClientIP(ctx))
	}
	if RequestID(ctx) != id {
		t.Errorf("expected %v, got %v", id, RequestID(ctx))
	}
}
