package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BearerAuth защищает /api bearer-токеном, сверяемым с bcrypt-хэшем
// из конфигурации
//
// Пустой хэш закрывает /api полностью: история попыток может содержать
// адреса подписанта и профиты, наружу по умолчанию не отдаётся.
// Хэш вместо сырого токена - чтобы env-файл не хранил секрет открытым
// текстом.
func BearerAuth(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				http.Error(w, "API disabled. Set API_TOKEN_HASH.", http.StatusForbidden)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
