package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
)

// RequireCompany rejects tokens that carry no company_id; every query is
// scoped by it.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := jwt.ClaimsFromContext(r.Context()); err != nil {
			response.HandleError(w, jwt.ErrMissingClaims)
			return
		}

		next.ServeHTTP(w, r)
	})
}
