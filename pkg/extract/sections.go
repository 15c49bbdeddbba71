package extract

import (
	"regexp"
	"strings"
)

// ActionItem is an action extracted from an actions section. Assignee is
// empty when no assignment pattern matched.
type ActionItem struct {
	Text     string
	Assignee string
}

var (
	reDecisionSection = regexp.MustCompile(`(?is)(?:Decisions|Decision|Decided|Conclusion|Agreed):?\s*(.*?)(?:\n\n|\z)`)
	reActionSection   = regexp.MustCompile(`(?is)(?:Actions|Action Items|Next Steps|ToDo|Tasks):?\s*(.*?)(?:\n\n|\z)`)

	reListMarker = regexp.MustCompile(`^(?:[•\-*+]|\d+[.)])\s*`)

	assigneePatterns = []*regexp.Regexp{
		regexp.MustCompile(`@([A-Za-z]+(?:[ \t]+[A-Z][a-z]+)*)`),
		regexp.MustCompile(`\(([A-Za-z\s]+)\)`),
		regexp.MustCompile(`(?i)assigned to (\w+)`),
		regexp.MustCompile(`(?i)responsible:\s*(\w+)`),
		regexp.MustCompile(`(?i)owner:\s*(\w+)`),
	}
)

// splitItems breaks a section body into list items. Lines are items; a
// leading bullet or "1." style marker is removed and inline "•" bullets split
// further.
func splitItems(section string) []string {
	var items []string
	for line := range strings.SplitSeq(section, "\n") {
		for part := range strings.SplitSeq(line, "•") {
			part = strings.TrimSpace(part)
			part = strings.TrimSpace(reListMarker.ReplaceAllString(part, ""))
			if part != "" {
				items = append(items, part)
			}
		}
	}
	return items
}

// ExtractDecisionsActions returns decision texts and action items found in
// "Decisions:" and "Action Items:" style sections. Items of 10 characters or
// less are dropped.
func ExtractDecisionsActions(content string) ([]string, []ActionItem) {
	var decisions []string
	for _, m := range reDecisionSection.FindAllStringSubmatch(content, -1) {
		for _, item := range splitItems(m[1]) {
			if len(item) > 10 {
				decisions = append(decisions, item)
			}
		}
	}

	var actions []ActionItem
	for _, m := range reActionSection.FindAllStringSubmatch(content, -1) {
		for _, item := range splitItems(m[1]) {
			if len(item) <= 10 {
				continue
			}
			actions = append(actions, ActionItem{Text: item, Assignee: ExtractAssignee(item)})
		}
	}

	return decisions, actions
}

// ExtractAssignee applies the assignment patterns in priority order and
// returns the first captured name.
func ExtractAssignee(item string) string {
	for _, re := range assigneePatterns {
		if m := re.FindStringSubmatch(item); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				return name
			}
		}
	}
	return ""
}

var (
	participantSections = []*regexp.Regexp{
		regexp.MustCompile(`(?is)\b(?:Participants|Attendees|Present)\b\s*[:\-]?\s*(.*?)(?:\n\n|\n[A-Z][a-z]+:|\nAgenda|\nDiscussion|\n\z|\z)`),
		regexp.MustCompile(`(?is)\b(?:By|With)\b\s*[:\-]?\s*(.*?)(?:\n\n|\n[A-Z][a-z]+:|\nAgenda|\nDiscussion|\n\z|\z)`),
	}
	reParticipantSplit = regexp.MustCompile(`[\n,;•\-]`)
	reBulletedName     = regexp.MustCompile(`^\s*[-•*]\s*([A-Z][a-z]+\s+[A-Z][a-z]+)`)

	sectionPrefixes = []string{"agenda", "discussion", "decision", "action"}
)

// ExtractParticipants collects attendee names from participant sections and
// from bulleted "First Last" lines near the top of the document. Names keep
// the order in which they were first seen.
func ExtractParticipants(content string) []string {
	seen := make(map[string]struct{})
	var participants []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		participants = append(participants, name)
	}

	for _, re := range participantSections {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			for _, name := range reParticipantSplit.Split(m[1], -1) {
				name = strings.TrimSpace(name)
				if len(name) > 2 && len(name) < 50 && !hasSectionPrefix(name) {
					add(name)
				}
			}
		}
	}

	lines := strings.Split(content, "\n")
	if len(lines) > 20 {
		lines = lines[:20]
	}
	for _, line := range lines {
		if m := reBulletedName.FindStringSubmatch(line); m != nil && !hasSectionPrefix(m[1]) {
			add(m[1])
		}
	}

	return participants
}

func hasSectionPrefix(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range sectionPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

var (
	reFollowUp  = regexp.MustCompile(`(?i)follow[- ]?up to ([^\n\r]+)`)
	reRecurring = regexp.MustCompile(`(?i)recurring`)
)

// ExtractFollowUps returns the referenced meeting titles of "follow-up to X"
// phrases.
func ExtractFollowUps(content string) []string {
	var refs []string
	for _, m := range reFollowUp.FindAllStringSubmatch(content, -1) {
		if ref := strings.TrimSpace(m[1]); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// IsRecurring reports whether the content marks a recurring meeting.
func IsRecurring(content string) bool {
	return reRecurring.MatchString(content)
}
