package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// protectedProbe wraps RequireAuth around a handler that records the claims
// it received from the request context.
func protectedProbe(codec *Codec) (http.Handler, *[]*Claims) {
	var seen []*Claims
	h := RequireAuth(codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		seen = append(seen, claims)
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seen
}

func TestRequireAuth_ValidCookie(t *testing.T) {
	codec := newTestCodec(t)
	h, seen := protectedProbe(codec)

	token, err := codec.Sign(userClaims("user-1"))
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(*seen) != 1 || (*seen)[0] == nil || (*seen)[0].Subject != "user-1" {
		t.Fatalf("handler saw claims %#v, want subject user-1", *seen)
	}
}

func TestRequireAuth_RejectionsShareTheJSONErrorShape(t *testing.T) {
	codec := newTestCodec(t)
	h, seen := protectedProbe(codec)

	tests := []struct {
		name    string
		request func() *http.Request
	}{
		{"no cookie", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/me", nil)
		}},
		{"empty cookie", func() *http.Request {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: ""})
			return req
		}},
		{"tampered token", func() *http.Request {
			token, err := codec.Sign(userClaims("user-1"))
			if err != nil {
				t.Fatalf("Sign() error = %v", err)
			}
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token + "x"})
			return req
		}},
	}

	var bodies []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, tt.request())

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}

			var body struct {
				Error   string `json:"error"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if body.Error != "unauthorized" || body.Message != "unauthorized" {
				t.Errorf("body = %+v, want the constant unauthorized shape", body)
			}
			bodies = append(bodies, rr.Body.String())
		})
	}

	// Every rejection reads identically — nothing leaks which check failed.
	for _, b := range bodies[1:] {
		if b != bodies[0] {
			t.Errorf("rejection bodies differ: %q vs %q", bodies[0], b)
		}
	}

	if len(*seen) != 0 {
		t.Errorf("handler ran %d times on rejected requests", len(*seen))
	}
}
