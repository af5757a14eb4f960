package auth

import "github.com/homehive/homehive-api/internal/domain"

// Redirect tells the client where to land after a successful verification.
type Redirect struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

const (
	TargetHelperOnboarding   = "/onboarding/helper"
	TargetBusinessOnboarding = "/onboarding/business"
	TargetDashboard          = "/dashboard"
)

// RedirectFor maps a role to its post-verification destination. Helper is
// checked before business so the ordering is fixed even if role semantics
// ever widen.
func RedirectFor(role string) Redirect {
	if role == domain.RoleHelper {
		return Redirect{Target: TargetHelperOnboarding, Message: "Complete your helper profile to start receiving jobs."}
	}
	if role == domain.RoleBusiness {
		return Redirect{Target: TargetBusinessOnboarding, Message: "Set up your business profile to get listed."}
	}
	return Redirect{Target: TargetDashboard, Message: "You're all set."}
}
