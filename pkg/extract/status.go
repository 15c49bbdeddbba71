package extract

import (
	"regexp"
	"strings"
)

// StatusUpdate states that Entity is in Status. Status is one of completed,
// in progress, blocked, pending, done, planned or started, in lower case.
type StatusUpdate struct {
	Entity string
	Status string
}

const statusWords = `(completed|in progress|blocked|pending|done|planned|started)`

var statusPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\w+(?:\s+\w+){0,3})\s+status:?\s*` + statusWords),
	regexp.MustCompile(`(?i)status of (\w+(?:\s+\w+){0,3}):?\s*` + statusWords),
	regexp.MustCompile(`(?i)(\w+(?:\s+\w+){0,3}) is ` + statusWords),
}

// ExtractStatusUpdates returns one update per entity. When an entity matches
// more than once, the last match wins but the entity keeps the position of
// its first appearance.
func ExtractStatusUpdates(content string) []StatusUpdate {
	var updates []StatusUpdate
	index := make(map[string]int)

	for _, re := range statusPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			entity := strings.TrimSpace(m[1])
			status := strings.ToLower(strings.TrimSpace(m[2]))
			if i, ok := index[entity]; ok {
				updates[i].Status = status
				continue
			}
			index[entity] = len(updates)
			updates = append(updates, StatusUpdate{Entity: entity, Status: status})
		}
	}

	return updates
}
