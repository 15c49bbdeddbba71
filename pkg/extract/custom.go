package extract

import (
	"regexp"
	"strings"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
)

// ModuleGroup lists the modules that are part of Parent.
type ModuleGroup struct {
	Parent   string
	Children []string
}

// Vocabulary is the organisation specific list of known names. Any of the
// lists may be empty.
type Vocabulary struct {
	Modules         []string
	Services        []string
	Processes       []string
	Teams           []string
	BusinessObjects []string
	Hierarchy       []ModuleGroup
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Modules: []string{
			"Heimdall App", "Import Service", "Portfolio Service", "Client Service",
			"Configuration Manager", "Data Validation Service", "Refactoring Service",
		},
		Services: []string{
			"Import Configuration Manager", "File Service", "Client Service",
		},
		Processes: []string{
			"Onboarding", "Order Processing", "Data Verification", "Invoicing", "Import",
		},
		Teams: []string{
			"Team Asgard", "Team Midgard", "Integrated Team", "App Support Team", "Development Team",
		},
		BusinessObjects: []string{
			"Client", "Portfolio", "Import", "Meeting", "Document", "User", "Role",
		},
		Hierarchy: []ModuleGroup{
			{Parent: "Heimdall App", Children: []string{"Import Service", "Portfolio Service", "Client Service"}},
			{Parent: "Import Service", Children: []string{"Configuration Manager", "File Service"}},
			{Parent: "Portfolio Service", Children: []string{"Data Validation Service"}},
			{Parent: "Client Service", Children: []string{"Onboarding"}},
		},
	}
}

// CustomEntity is an organisational entity found by vocabulary or phrase
// matching.
type CustomEntity struct {
	Kind common.NodeKind
	Name string
}

var (
	reDomainPhrase      = regexp.MustCompile(`([A-Z][a-z]+(?:\s[A-Z][a-z]+)+)`)
	domainPhraseMarkers = []string{"Service", "Manager", "Module", "Process", "Team", "Meeting"}
)

// ExtractCustomEntities matches the vocabulary case-insensitively against the
// title and content and adds capitalised content phrases that look like
// modules, services, processes or teams as DomainEntity. Each (kind, name)
// pair is returned once.
func (v Vocabulary) ExtractCustomEntities(title, content string) []CustomEntity {
	titleLower := strings.ToLower(title)
	contentLower := strings.ToLower(content)

	var entities []CustomEntity
	seen := make(map[CustomEntity]struct{})
	add := func(e CustomEntity) {
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		entities = append(entities, e)
	}

	lists := []struct {
		kind  common.NodeKind
		names []string
	}{
		{common.KindModule, v.Modules},
		{common.KindService, v.Services},
		{common.KindProcess, v.Processes},
		{common.KindTeam, v.Teams},
		{common.KindBusinessObject, v.BusinessObjects},
	}
	for _, l := range lists {
		for _, name := range l.names {
			n := strings.ToLower(name)
			if strings.Contains(titleLower, n) || strings.Contains(contentLower, n) {
				add(CustomEntity{Kind: l.kind, Name: name})
			}
		}
	}

	for _, phrase := range reDomainPhrase.FindAllString(content, -1) {
		for _, marker := range domainPhraseMarkers {
			if strings.Contains(phrase, marker) {
				add(CustomEntity{Kind: common.KindDomainEntity, Name: phrase})
				break
			}
		}
	}

	return entities
}
