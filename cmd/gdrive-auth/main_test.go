package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		status   int
		wantCode string
		wantErr  bool
	}{
		{"accepts code", "?state=s1&code=abc", http.StatusOK, "abc", false},
		{"wrong state", "?state=other&code=abc", http.StatusBadRequest, "", true},
		{"provider error", "?state=s1&error=access_denied", http.StatusBadRequest, "", true},
		{"missing code", "?state=s1", http.StatusBadRequest, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codeCh := make(chan string, 1)
			errCh := make(chan error, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", codeCh, errCh).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			select {
			case code := <-codeCh:
				if code != tt.wantCode {
					t.Fatalf("code = %q, want %q", code, tt.wantCode)
				}
			case err := <-errCh:
				if !tt.wantErr {
					t.Fatalf("unexpected error %v", err)
				}
			default:
				t.Fatal("handler reported nothing")
			}
		})
	}
}

func TestRandomState(t *testing.T) {
	a, b := randomState(), randomState()
	if a == b || len(a) != 24 {
		t.Fatalf("randomState() = %q, %q", a, b)
	}
}
