package extract

import (
	"regexp"
	"strings"
)

var (
	reNameRole = regexp.MustCompile(`(\b[A-Z][a-z]+\b)\s*\(([^)]+)\)`)
	reRoleName = regexp.MustCompile(`([A-Za-z ]+):\s*([A-Z][a-z]+)`)

	// labels that look like "Role: Name" but introduce a section
	sectionLabels = map[string]struct{}{
		"participants": {}, "attendees": {}, "present": {}, "agenda": {},
		"topics": {}, "discussion": {}, "discussed": {}, "points": {},
		"items": {}, "decisions": {}, "decision": {}, "decided": {},
		"conclusion": {}, "agreed": {}, "actions": {}, "action items": {},
		"next steps": {}, "todo": {}, "tasks": {}, "status": {}, "by": {},
		"with": {},
	}
)

// Roles maps a single name token to the role it was mentioned with.
type Roles map[string]string

// ExtractRoles collects "Name (Role)" and "Role: Name" mentions. Later
// mentions overwrite earlier ones.
func ExtractRoles(content string) Roles {
	roles := make(Roles)
	for _, m := range reNameRole.FindAllStringSubmatch(content, -1) {
		roles[m[1]] = strings.TrimSpace(m[2])
	}
	for _, m := range reRoleName.FindAllStringSubmatch(content, -1) {
		role := strings.TrimSpace(m[1])
		if role == "" {
			continue
		}
		if _, ok := sectionLabels[strings.ToLower(role)]; ok {
			continue
		}
		roles[m[2]] = role
	}
	return roles
}

// For returns the role of a person, looking up the full name first and the
// first name second.
func (r Roles) For(name string) string {
	if role, ok := r[name]; ok {
		return role
	}
	if first, _, found := strings.Cut(strings.TrimSpace(name), " "); found {
		return r[first]
	}
	return ""
}
