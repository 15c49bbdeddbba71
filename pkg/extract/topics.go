package extract

import (
	"regexp"
	"strings"
)

// TopicExtractor finds the topics a meeting note discusses.
type TopicExtractor interface {
	ExtractTopics(content string) []string
}

// HeuristicTopicExtractor reads agenda sections and capitalised phrases and
// falls back to noun phrases from Phrases when too few topics were found.
// Phrases may be nil.
type HeuristicTopicExtractor struct {
	Phrases Analyzer
}

const (
	maxTopics         = 8
	maxPhraseTopics   = 5
	minTopicsForNLP   = 3
	phraseSampleChars = 5000
)

var (
	reAgendaSection = regexp.MustCompile(`(?is)(?:Agenda|Topics|Discussion|Discussed|Points|Items):?\s*(.*?)(?:\n\n|\z)`)
	reCapPhrase     = regexp.MustCompile(`([A-Z][a-z]{2,}(?:\s+[a-z]{1,3}\s+)?(?:[A-Z][a-z]+)+)`)

	pronounPrefixes = []string{"i ", "we ", "you ", "they ", "he ", "she ", "it ", "this ", "that "}
)

func (e HeuristicTopicExtractor) ExtractTopics(content string) []string {
	var topics []string
	for _, m := range reAgendaSection.FindAllStringSubmatch(content, -1) {
		for _, item := range splitItems(m[1]) {
			if len(item) > 5 {
				topics = append(topics, item)
			}
		}
	}

	agenda := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		agenda[strings.ToLower(t)] = struct{}{}
	}
	for _, phrase := range reCapPhrase.FindAllString(content, -1) {
		if len(phrase) <= 10 {
			continue
		}
		if _, ok := agenda[strings.ToLower(phrase)]; !ok {
			topics = append(topics, phrase)
		}
	}

	if len(topics) < minTopicsForNLP && e.Phrases != nil {
		sample := content
		if len(sample) > phraseSampleChars {
			sample = sample[:phraseSampleChars]
		}
		added := 0
		for _, chunk := range e.Phrases.NounPhrases(sample) {
			if added == maxPhraseTopics {
				break
			}
			if len(chunk) <= 10 || hasPronounPrefix(chunk) {
				continue
			}
			topics = append(topics, chunk)
			added++
		}
	}

	topics = dedupe(topics)
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}

func hasPronounPrefix(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range pronounPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
