package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func authedHandler(tokenHash string) http.Handler {
	return BearerAuth(tokenHash)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestBearerAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-token"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	tests := []struct {
		name       string
		tokenHash  string
		authHeader string
		wantStatus int
	}{
		{"валидный токен", string(hash), "Bearer secret-token", http.StatusOK},
		{"неверный токен", string(hash), "Bearer wrong-token", http.StatusUnauthorized},
		{"без заголовка", string(hash), "", http.StatusUnauthorized},
		{"не Bearer схема", string(hash), "Basic secret-token", http.StatusUnauthorized},
		{"API выключен без хэша", "", "Bearer secret-token", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			authedHandler(tt.tokenHash).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, ожидается %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
