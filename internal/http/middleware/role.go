package middleware

import (
	"github.com/gofiber/fiber/v2"

	"triageapi/internal/audit"
	"triageapi/internal/model"
)

const (
	// RoleHeader carries the caller's role, resolved upstream by the auth layer.
	RoleHeader = "X-User-Role"
	// RoleLocalKey is the key used to store the resolved role in Fiber's context locals.
	RoleLocalKey = "user_role"
)

// Role resolves the acting user role from the request headers and stores it
// in context locals. Missing or unrecognized values fall back to the
// least-privileged role instead of being rejected.
func Role() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(RoleLocalKey, audit.RoleFromHeader(c.Get(RoleHeader)))
		return c.Next()
	}
}

// RoleFromCtx returns the role stored by the Role middleware, defaulting to
// TRIAGE_NURSE when the middleware did not run.
func RoleFromCtx(c *fiber.Ctx) model.UserRole {
	if v, ok := c.Locals(RoleLocalKey).(model.UserRole); ok {
		return v
	}
	return model.RoleTriageNurse
}
