package validate

import (
	"strings"

	"github.com/m3rciful/raidbot/internal/domain"
)

// Editable project fields, named after their storage columns.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldXHandle     = "x_handle"
	FieldWebsite     = "website"
	FieldTags        = "tags"
)

// EditableFields lists the fields a single-field edit may change.
var EditableFields = []string{FieldName, FieldDescription, FieldXHandle, FieldWebsite, FieldTags}

var fieldAliases = map[string]string{
	"name":          FieldName,
	"description":   FieldDescription,
	"desc":          FieldDescription,
	"x_handle":      FieldXHandle,
	"handle":        FieldXHandle,
	"x":             FieldXHandle,
	"social_handle": FieldXHandle,
	"website":       FieldWebsite,
	"site":          FieldWebsite,
	"url":           FieldWebsite,
	"tags":          FieldTags,
}

// FieldValue is a normalized value for one project field.
type FieldValue struct {
	Field string
	Text  string
	Tags  domain.Tags
}

// EditableField resolves a user-supplied field name.
func EditableField(v string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(v))
	key = strings.TrimPrefix(key, "/")
	key = strings.ReplaceAll(key, " ", "_")
	if f, ok := fieldAliases[key]; ok {
		return f, nil
	}
	return "", domain.NewValidationError("field", "unknown", "unknown field; choose one of: "+strings.Join(EditableFields, ", "))
}

// Field validates raw as a new value for field.
func Field(field, raw string) (FieldValue, error) {
	var (
		text string
		err  error
	)
	switch field {
	case FieldName:
		text, err = Name(raw)
	case FieldDescription:
		text, err = Description(raw)
	case FieldXHandle:
		text, err = SocialHandle(raw)
	case FieldWebsite:
		text, err = Website(raw)
	case FieldTags:
		tags, terr := TagsText(raw, false)
		if terr != nil {
			return FieldValue{}, terr
		}
		return FieldValue{Field: field, Tags: tags}, nil
	default:
		err = domain.NewValidationError("field", "unknown", "unknown field "+field)
	}
	if err != nil {
		return FieldValue{}, err
	}
	return FieldValue{Field: field, Text: text}, nil
}
