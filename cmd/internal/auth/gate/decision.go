package gate

import "methodius/cmd/internal/auth/session"

// Role names a role-scoped subtree. RoleAny means any authenticated session.
type Role string

const (
	RoleAny        Role = ""
	RoleAdmin      Role = "admin"
	RoleHR         Role = "hr"
	RoleManagement Role = "management"
)

// Decision is the gate outcome for one request.
type Decision int

const (
	// Loading: the session is still resolving. Nothing protected is shown and
	// nothing is redirected.
	Loading Decision = iota
	// Redirect: resolved without a session; send the caller to login.
	Redirect
	// Render: resolved with a session; serve the protected handler.
	Render
	// Forbidden: authenticated but the role policy rejected the role.
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// RolePolicy reports whether an authenticated snapshot may enter a subtree
// scoped to role.
type RolePolicy func(snap session.Snapshot, role Role) bool

// IgnoreRoles admits every authenticated session regardless of role.
// This is the console's current behavior and the default policy.
func IgnoreRoles(session.Snapshot, Role) bool { return true }

// PrivilegedRoles admits RoleAny for everyone and every other role only for
// privileged identities (accounts without a linked profile).
func PrivilegedRoles(snap session.Snapshot, role Role) bool {
	if role == RoleAny {
		return true
	}
	return snap.IsPrivileged()
}

// Decide maps a snapshot and a required role to a Decision.
func Decide(snap session.Snapshot, role Role, policy RolePolicy) Decision {
	if snap.Resolving() {
		return Loading
	}
	if !snap.Authenticated() {
		return Redirect
	}
	if policy != nil && !policy(snap, role) {
		return Forbidden
	}
	return Render
}
