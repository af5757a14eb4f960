package domain

// Account roles. Role is a closed set: channel-priority and post-verification
// routing decisions branch on it, so it is never looked up in an external
// permission store.
const (
	RoleSeeker   = "seeker"
	RoleHelper   = "helper"
	RoleBusiness = "business"
	RoleAdmin    = "admin"
)

// ValidSignupRole reports whether role may be chosen at registration.
// Admin accounts are provisioned out of band.
func ValidSignupRole(role string) bool {
	switch role {
	case RoleSeeker, RoleHelper, RoleBusiness:
		return true
	}
	return false
}
