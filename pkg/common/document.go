package common

// Document is one input file as exported from the wiki. Only the fields the
// pipeline reads are declared.
type Document struct {
	Title   string          `json:"title" jsonschema:"required,description=Page title. Used as the Document key"`
	Content string          `json:"content" jsonschema:"description=Page body as plain text or storage HTML"`
	Labels  []string        `json:"labels,omitempty" jsonschema:"description=Free-form page labels"`
	History DocumentHistory `json:"history" jsonschema:"description=Authoring metadata"`
}

type DocumentHistory struct {
	CreatedDate string       `json:"createdDate,omitempty"`
	LastUpdated string       `json:"lastUpdated,omitempty"`
	CreatedBy   DocumentUser `json:"createdBy"`
}

type DocumentUser struct {
	DisplayName string `json:"displayName,omitempty"`
}

// Author returns the display name of the creator, if any.
func (d Document) Author() string {
	return d.History.CreatedBy.DisplayName
}
