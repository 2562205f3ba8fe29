package audit

import (
	"strings"

	"triageapi/internal/model"
)

// RoleFromHeader resolves the acting role from an X-User-Role header value.
// Unrecognized or missing values fall back to the least-privileged role
// rather than being rejected.
func RoleFromHeader(v string) model.UserRole {
	switch model.UserRole(strings.ToUpper(strings.TrimSpace(v))) {
	case model.RoleAdmin:
		return model.RoleAdmin
	case model.RoleDoctor:
		return model.RoleDoctor
	case model.RoleCommandCenter:
		return model.RoleCommandCenter
	case model.RoleTriageNurse:
		return model.RoleTriageNurse
	default:
		return model.RoleTriageNurse
	}
}
