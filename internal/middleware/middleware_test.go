package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/microblog/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier map[string]int64

func (f fakeVerifier) AccountFromToken(token string) (int64, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return 0, common.ErrInvalidToken
}

type fakeToucher struct {
	touched []int64
	err     error
}

func (f *fakeToucher) TouchLastSeen(_ context.Context, id int64) error {
	f.touched = append(f.touched, id)
	return f.err
}

func echoAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := AccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "no account", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]int64{"account_id": id})
}

func TestJWTAuth(t *testing.T) {
	h := JWTAuth(fakeVerifier{"good": 42})(http.HandlerFunc(echoAccount))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feed", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestChain_OrderAndLocale(t *testing.T) {
	toucher := &fakeToucher{}
	h := Chain(http.HandlerFunc(echoAccount),
		Recovery, RequestLogger, Locale, JWTAuth(fakeVerifier{"good": 7}), LastSeen(toucher))

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Accept-Language", "es")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Por favor ingrese para acceder a esta página.", body["error"])
	assert.Equal(t, "es", rr.Header().Get("Content-Language"))
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))
	assert.Empty(t, toucher.touched)

	req = httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []int64{7}, toucher.touched)
}

func TestLastSeen_FailureDoesNotBlock(t *testing.T) {
	toucher := &fakeToucher{err: errors.New("db down")}
	h := LastSeen(toucher)(http.HandlerFunc(echoAccount))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithAccountID(req.Context(), 3))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRequestLogger_KeepsIncomingID(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc", rr.Header().Get(RequestIDHeader))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}
