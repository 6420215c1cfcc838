package server

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	c := (&Config{PingInterval: time.Second}).withDefaults()
	if c.PingInterval != time.Second {
		t.Errorf("PingInterval = %v", c.PingInterval)
	}
	if c.ReadTimeout != 60*time.Second || c.MaxMessageSize != 64*1024 {
		t.Errorf("defaults not applied: %+v", c)
	}
	if c.CheckOrigin == nil {
		t.Error("CheckOrigin not defaulted")
	}

	var nilConfig *Config
	if nilConfig.withDefaults().ShutdownTimeout != 30*time.Second {
		t.Error("nil config should yield defaults")
	}
}

func TestHTTPServer(t *testing.T) {
	srv := (&Config{ReadHeaderTimeout: 3 * time.Second}).HTTPServer(":9000", nil)
	if srv.Addr != ":9000" || srv.ReadHeaderTimeout != 3*time.Second || srv.IdleTimeout != 120*time.Second {
		t.Errorf("server = %+v", srv)
	}
	if srv.WriteTimeout != 0 {
		t.Error("WriteTimeout must stay unset for long-lived connections")
	}
}

func TestOriginChecks(t *testing.T) {
	allow := AllowOrigins("https://app.example.com/")

	tests := []struct {
		name   string
		host   string
		origin string
		same   bool
		listed bool
	}{
		{"no origin", "api.example.com", "", true, true},
		{"same host", "api.example.com", "https://api.example.com", true, true},
		{"listed", "api.example.com", "https://app.example.com", false, true},
		{"listed case", "api.example.com", "HTTPS://APP.EXAMPLE.COM", false, true},
		{"foreign", "api.example.com", "https://evil.example", false, false},
		{"garbage", "api.example.com", "://", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := SameOriginCheck(r); got != tt.same {
				t.Errorf("SameOriginCheck() = %v, want %v", got, tt.same)
			}
			if got := allow(r); got != tt.listed {
				t.Errorf("AllowOrigins() = %v, want %v", got, tt.listed)
			}
		})
	}

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://anything.example")
	if !AllowOrigins("*")(r) {
		t.Error("wildcard should accept every origin")
	}
}
