package resolve

import (
	"regexp"
	"slices"
	"strings"
)

var (
	rePunctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	reHonorific   = regexp.MustCompile(`\b(?:mr|mrs|ms|dr|prof|sir)\b\.?\s*`)
)

// NormalizeName lower-cases a name and strips punctuation and honorifics.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}
	n := rePunctuation.ReplaceAllString(strings.ToLower(name), "")
	n = reHonorific.ReplaceAllString(n, "")
	return strings.TrimSpace(n)
}

// SameEntity reports whether two person names likely denote the same person.
// Names match when their normalised forms are equal, when one contains the
// other and both are longer than 3 characters, or when they share a first
// name longer than 2 or a last name longer than 3 characters.
func SameEntity(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	n1, n2 := NormalizeName(a), NormalizeName(b)
	if n1 == n2 {
		return true
	}
	if len(n1) > 3 && len(n2) > 3 && (strings.Contains(n1, n2) || strings.Contains(n2, n1)) {
		return true
	}

	p1, p2 := strings.Fields(n1), strings.Fields(n2)
	if len(p1) == 0 || len(p2) == 0 {
		return false
	}
	if p1[0] == p2[0] && len(p1[0]) > 2 {
		return true
	}
	last1, last2 := p1[len(p1)-1], p2[len(p2)-1]
	return last1 == last2 && len(last1) > 3
}

// Entity is a canonical person. Mentions lists every surface form that
// resolved to it, starting with Name.
type Entity struct {
	Name     string
	Role     string
	Mentions []string
}

// Aliases returns the mentions that differ from the canonical name.
func (e *Entity) Aliases() []string {
	var aliases []string
	for _, m := range e.Mentions {
		if m != e.Name {
			aliases = append(aliases, m)
		}
	}
	return aliases
}

// Resolver collapses person mentions of one document into canonical
// entities. Candidates are compared in insertion order and the first match
// wins.
type Resolver struct {
	entities []*Entity
}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Seed registers a known person, usually the document author, without
// matching it against existing entities.
func (r *Resolver) Seed(name string) *Entity {
	e := &Entity{Name: name, Mentions: []string{name}}
	r.entities = append(r.entities, e)
	return e
}

// Resolve returns the canonical entity for mention. created is true when no
// existing entity matched and a new one was added. A role is only recorded
// if the entity has none yet.
func (r *Resolver) Resolve(mention, role string) (e *Entity, created bool) {
	for _, existing := range r.entities {
		if !SameEntity(mention, existing.Name) {
			continue
		}
		if !slices.Contains(existing.Mentions, mention) {
			existing.Mentions = append(existing.Mentions, mention)
		}
		if existing.Role == "" && role != "" {
			existing.Role = role
		}
		return existing, false
	}

	e = &Entity{Name: mention, Role: role, Mentions: []string{mention}}
	r.entities = append(r.entities, e)
	return e, true
}

// Entities returns the canonical entities in insertion order.
func (r *Resolver) Entities() []*Entity {
	return r.entities
}
