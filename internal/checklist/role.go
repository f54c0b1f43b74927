package checklist

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidRoles are the roles with a dedicated onboarding checklist in the
// knowledge base. Other roles get the general checklist.
var ValidRoles = []string{
	"software-engineer",
	"product-manager",
	"designer",
	"marketing",
	"sales",
	"customer-success",
	"hr",
	"finance",
}

// forUserPattern matches "<role> for <@U123|alias>" and "<role> for @name".
var forUserPattern = regexp.MustCompile(`^(.*?)\s+for\s+(?:<@([A-Z0-9]+)(?:\|[^>]+)?>|@(\S+))$`)

// RoleSpec is the parsed argument of the create-checklist command.
type RoleSpec struct {
	Role string
	// Target is a user ID when the text carried a mention, otherwise the bare
	// handle without "@". Empty when no target was given.
	Target string
	// IsMention is true when Target is a resolved user ID.
	IsMention bool
}

// HasTarget reports whether the text named someone to onboard.
func (r RoleSpec) HasTarget() bool { return r.Target != "" }

// ParseRoleSpec splits command text into a role and target user. When neither
// target form matches, only Role is set.
func ParseRoleSpec(text string) RoleSpec {
	text = strings.TrimSpace(text)
	m := forUserPattern.FindStringSubmatch(text)
	if m == nil {
		return RoleSpec{Role: text}
	}
	spec := RoleSpec{Role: strings.TrimSpace(m[1])}
	if m[2] != "" {
		spec.Target = m[2]
		spec.IsMention = true
	} else {
		spec.Target = m[3]
	}
	return spec
}

// NormalizeRole lowercases a role and joins words with "-".
func NormalizeRole(role string) string {
	return strings.Join(strings.Fields(strings.ToLower(role)), "-")
}

// IsKnownRole reports whether the role has a dedicated checklist.
func IsKnownRole(role string) bool {
	n := NormalizeRole(role)
	for _, r := range ValidRoles {
		if r == n {
			return true
		}
	}
	return false
}

// GenerationQuery is the knowledge-base question used to fetch a checklist.
func GenerationQuery(role string) string {
	if IsKnownRole(role) {
		return fmt.Sprintf("Get me the onboarding checklist for a %s role", role)
	}
	return "Get me the general onboarding checklist"
}
