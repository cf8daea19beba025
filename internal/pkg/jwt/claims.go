package jwt

import (
	"context"
	"errors"

	"github.com/go-chi/jwtauth/v5"
)

var (
	ErrMissingClaims    = errors.New("company_id claim is missing or invalid")
	ErrInsufficientRole = errors.New("role is not allowed to perform this action")
	ErrTenantMismatch   = errors.New("resource does not belong to the caller's company")
)

type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleSystem   Role = "system"
)

// Claims are the tenant fields every request carries.
type Claims struct {
	UserID     string
	EmployeeID string
	CompanyID  string
	Role       Role
}

// CanManage reports whether the caller may act on other employees' data.
func (c Claims) CanManage() bool {
	switch c.Role {
	case RoleOwner, RoleAdmin, RoleManager, RoleSystem:
		return true
	}
	return false
}

// RequireManager returns ErrInsufficientRole unless the caller can manage.
func (c Claims) RequireManager() error {
	if !c.CanManage() {
		return ErrInsufficientRole
	}
	return nil
}

// CanAccessEmployee reports whether the caller may act on employeeID's data.
func (c Claims) CanAccessEmployee(employeeID string) bool {
	return c.CanManage() || (c.EmployeeID != "" && c.EmployeeID == employeeID)
}

func (c Claims) toMap() map[string]interface{} {
	m := map[string]interface{}{
		"user_id":    c.UserID,
		"company_id": c.CompanyID,
		"role":       string(c.Role),
	}
	if c.EmployeeID != "" {
		m["employee_id"] = c.EmployeeID
	}
	return m
}

func claimsFromMap(m map[string]interface{}) (Claims, error) {
	companyID, ok := m["company_id"].(string)
	if !ok || companyID == "" {
		return Claims{}, ErrMissingClaims
	}
	c := Claims{CompanyID: companyID}
	c.UserID, _ = m["user_id"].(string)
	c.EmployeeID, _ = m["employee_id"].(string)
	role, _ := m["role"].(string)
	c.Role = Role(role)
	return c, nil
}

type claimsKey struct{}

// WithClaims attaches already verified claims to ctx, e.g. from an SSE token.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// WithSystemClaims marks ctx as acting for a company without a user, for
// scheduled jobs.
func WithSystemClaims(ctx context.Context, companyID string) context.Context {
	return WithClaims(ctx, Claims{CompanyID: companyID, UserID: "system", Role: RoleSystem})
}

// ClaimsFromContext returns the caller's claims from ctx or the verified JWT.
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	if c, ok := ctx.Value(claimsKey{}).(Claims); ok {
		return c, nil
	}
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, err
	}
	return claimsFromMap(claims)
}
