package middleware

import (
	"net/http"
	"strconv"

	"resto-be/internal/auth"
	"resto-be/internal/logger"
	"resto-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

// Auth attaches the waiter identified by a valid HS256 token to the request
// context. Requests without a usable token continue anonymously.
func Auth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" || len(key) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				logger.FromCtx(r.Context()).Debug("ignoring invalid access token")
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if uid, ok := claims["user_id"].(float64); ok {
				id := int64(uid)
				ctx := utils.SetWaiterContext(r.Context(), id)
				ctx = logger.WithUserID(ctx, strconv.FormatInt(id, 10))
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}
