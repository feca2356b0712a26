package httpmw

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const ctxKeySubject ctxKey = "subject"

type TokenVerifier interface {
	Verify(token string) (string, error)
}

// BearerAuth requires a valid "Authorization: Bearer <jwt>" header and puts
// the token subject into the request context.
func BearerAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				http.Error(w, `{"error":{"message":"missing bearer token"}}`, http.StatusUnauthorized)
				return
			}

			sub, err := v.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				http.Error(w, `{"error":{"message":"invalid bearer token"}}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeySubject, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SubjectFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySubject).(string); ok {
		return v
	}
	return ""
}
