package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/kaptinlin/jsonrepair"

	"github.com/OFFIS-RIT/docgraph/internal/util"
	"github.com/OFFIS-RIT/docgraph/pkg/common"
)

var (
	reHTMLTag   = regexp.MustCompile(`(?i)<(p|div|h[1-6]|ul|ol|li|table|tr|td|br|span|strong|em|ac:[a-z-]+|ri:[a-z-]+)\b[^>]*/?>`)
	reAnyTag    = regexp.MustCompile(`<[^>]+>`)
	reBlockTag  = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|ul|ol|li|table|tr|br)\b[^>]*/?>`)
	reManyBlank = regexp.MustCompile(`\n{3,}`)
	reTrailWS   = regexp.MustCompile(`[ \t]+\n`)
)

// DecodeOptions controls how input documents are decoded.
type DecodeOptions struct {
	// Lenient repairs malformed JSON before giving up on a file.
	Lenient bool
}

// LoadDocument reads and decodes file. Any failure is returned as a
// *common.ParseError.
func LoadDocument(ctx context.Context, file GraphFile, opts DecodeOptions) (common.Document, error) {
	data, err := file.GetText(ctx)
	if err != nil {
		return common.Document{}, &common.ParseError{File: file.FilePath, Err: err}
	}
	return DecodeDocument(file.FilePath, data, opts)
}

// DecodeDocument parses one input document. HTML content is rendered to
// plain text and invalid UTF-8 is dropped.
func DecodeDocument(name string, data []byte, opts DecodeOptions) (common.Document, error) {
	var doc common.Document

	var err error
	if opts.Lenient {
		err = UnmarshalFlexible(string(data), &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return common.Document{}, &common.ParseError{File: name, Err: err}
	}

	doc.Title = strings.TrimSpace(util.SanitizeText(doc.Title))
	doc.Content = util.SanitizeText(doc.Content)
	if IsHTML(doc.Content) {
		doc.Content = RenderHTML(name, doc.Content)
	}
	return doc, nil
}

// IsHTML reports whether content looks like markup rather than plain text.
func IsHTML(content string) bool {
	return reHTMLTag.MatchString(content)
}

// RenderHTML converts wiki storage HTML to text. It falls back to stripping
// tags when readability finds no article.
func RenderHTML(name, content string) string {
	pageURL := &url.URL{Scheme: "file", Path: "/" + strings.TrimPrefix(name, "/")}

	article, err := readability.FromReader(strings.NewReader(content), pageURL)
	if err == nil {
		var b strings.Builder
		if err := article.RenderText(&b); err == nil {
			if text := strings.TrimSpace(b.String()); text != "" {
				return text
			}
		}
	}

	return StripTags(content)
}

// StripTags removes markup, keeping block boundaries as line breaks.
func StripTags(content string) string {
	text := reBlockTag.ReplaceAllString(content, "\n")
	text = reAnyTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = reTrailWS.ReplaceAllString(text, "\n")
	text = reManyBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func stripDuplicateLeadingBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

// UnmarshalFlexible attempts to unmarshal JSON into the target with multiple
// fallback strategies. It first tries standard JSON unmarshaling, then
// handles double-encoded JSON strings, and finally attempts to repair
// malformed JSON before parsing.
//
// Example:
//
//	var doc common.Document
//	UnmarshalFlexible(`{"title": "Kickoff"}`, &doc)       // standard JSON
//	UnmarshalFlexible(`"{\"title\": \"Kickoff\"}"`, &doc) // double-encoded
//	UnmarshalFlexible(`{title: 'Kickoff',}`, &doc)        // malformed (repaired)
func UnmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	input = stripDuplicateLeadingBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}

	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal failed after repair: %w", err)
	}
	return nil
}
