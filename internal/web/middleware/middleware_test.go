package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/catchcert/internal/config"
	"github.com/JonMunkholm/catchcert/internal/core"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentity(t *testing.T) {
	t.Run("missing user id is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Identity(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/landings/upload", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("principal on context", func(t *testing.T) {
		var gotUser, gotContact string
		var ok bool
		h := Identity(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			p, found := core.PrincipalFromContext(r.Context())
			gotUser, gotContact, ok = p.UserID, p.ContactID, found
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderUserID, " u1 ")
		req.Header.Set(HeaderContactID, "c1")
		h.ServeHTTP(httptest.NewRecorder(), req)

		if !ok || gotUser != "u1" || gotContact != "c1" {
			t.Errorf("principal = (%q, %q, %v), want (u1, c1, true)", gotUser, gotContact, ok)
		}
	})
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}

	tests := []struct {
		name string
		cfg  config.SecurityConfig
		path string
		key  string
		want int
	}{
		{"disabled", config.SecurityConfig{}, "/api/x", "", http.StatusOK},
		{"missing key", cfg, "/api/x", "", http.StatusUnauthorized},
		{"wrong key", cfg, "/api/x", "nope", http.StatusForbidden},
		{"valid key", cfg, "/api/x", "k2", http.StatusOK},
		{"exempt path", cfg, "/healthz", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set(HeaderAPIKey, tt.key)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.cfg, "/healthz")(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		realIP  string
		xff     string
		want    string
	}{
		{"untrusted keeps remote", []string{"10.0.0.0/8"}, "203.0.113.5:1234", "198.51.100.1", "", "203.0.113.5:1234"},
		{"trusted uses X-Real-IP", []string{"10.0.0.0/8"}, "10.1.2.3:1234", "198.51.100.1", "", "198.51.100.1"},
		{"trusted uses first forwarded hop", []string{"10.0.0.0/8"}, "10.1.2.3:1234", "", "198.51.100.7, 10.1.2.3", "198.51.100.7"},
		{"bare address entry", []string{"127.0.0.1"}, "127.0.0.1:80", "198.51.100.2", "", "198.51.100.2"},
		{"invalid header ignored", []string{"10.0.0.0/8"}, "10.1.2.3:1234", "not-an-ip", "", "10.1.2.3:1234"},
		{"invalid entry skipped", []string{"bogus"}, "10.1.2.3:1234", "198.51.100.1", "", "10.1.2.3:1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogger_CapturesStatusAndBytes(t *testing.T) {
	var ww *responseWriter
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ww = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if ww.status != http.StatusTeapot || ww.bytes != len("short and stout") {
		t.Errorf("captured status=%d bytes=%d", ww.status, ww.bytes)
	}
}
