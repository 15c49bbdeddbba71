package relate

import (
	"math"
	"regexp"
	"strings"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
)

const (
	MinConfidence = 0.3
	MaxConfidence = 0.9
)

var reSentenceEnd = regexp.MustCompile(`[.!?]\s+`)

func directPhrases(rel common.RelType, s, t string) []string {
	switch rel {
	case common.RelImplements:
		return []string{s + " implements " + t, s + " implementing " + t}
	case common.RelDependsOn:
		return []string{s + " depends on " + t, s + " depending on " + t, s + " requires " + t}
	case common.RelPartOf:
		return []string{s + " part of " + t, s + " belongs to " + t, s + " within " + t}
	case common.RelOwns:
		return []string{s + " owns " + t, t + " owned by " + s, s + " responsible for " + t}
	case common.RelUses:
		return []string{s + " uses " + t, s + " utilizing " + t, s + " with " + t}
	case common.RelRelatesTo:
		return []string{s + " relates to " + t, s + " connected to " + t, s + " associated with " + t}
	}
	return nil
}

// EstimateConfidence scores the textual evidence for a relationship between
// source and target. A direct statement such as "A depends on B" scores 0.9.
// Otherwise shared paragraphs and shared sentences raise the 0.3 baseline.
// The result always lies in [0.3, 0.9].
func EstimateConfidence(source, target, content string, rel common.RelType) float64 {
	s, t := strings.ToLower(source), strings.ToLower(target)
	lower := strings.ToLower(content)

	for _, phrase := range directPhrases(rel, s, t) {
		if strings.Contains(lower, phrase) {
			return MaxConfidence
		}
	}

	confidence := MinConfidence
	if n := sharedParagraphs(s, t, content); n > 0 {
		confidence = max(confidence, 0.5+float64(min(n, 5))*0.05)
	}

	sentences := 0
	for _, sentence := range reSentenceEnd.Split(content, -1) {
		sentence = strings.ToLower(sentence)
		if strings.Contains(sentence, s) && strings.Contains(sentence, t) {
			sentences++
		}
	}
	if sentences > 0 {
		confidence = max(confidence, 0.6+float64(min(sentences, 3))*0.1)
	}

	return round2(min(MaxConfidence, confidence))
}

// CoOccurrenceConfidence is the confidence of a RELATES_TO edge backed by n
// shared paragraphs.
func CoOccurrenceConfidence(n int) float64 {
	return round2(min(MaxConfidence, MinConfidence+float64(n)*0.1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
