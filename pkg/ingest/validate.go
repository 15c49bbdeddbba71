package ingest

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
)

// MinTextLength is the shortest trimmed value accepted by the "text" rule.
const MinTextLength = 2

var reISODate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validator checks nodes against the validate tags of their kinds. Besides
// the built-in rules it knows "isodate" (yyyy-mm-dd) and "text" (at least two
// non-blank characters).
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return reISODate.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("text", func(fl validator.FieldLevel) bool {
		return len(strings.TrimSpace(fl.Field().String())) >= MinTextLength
	})
	return &Validator{v: v}
}

// Validate returns nil or a *common.ValidationError for the first rule n
// violates. Stored nodes are already persisted and always pass.
func (v *Validator) Validate(n common.Node) error {
	if _, ok := n.(*common.StoredNode); ok {
		return nil
	}

	err := v.v.Struct(n)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &common.ValidationError{Kind: n.Kind(), Key: n.Key().Value, Rule: "invalid", Value: err.Error()}
	}
	fe := verrs[0]
	return &common.ValidationError{
		Kind:  n.Kind(),
		Key:   n.Key().Value,
		Field: fe.Field(),
		Rule:  fe.Tag(),
		Value: fe.Value(),
	}
}
