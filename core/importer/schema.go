package importer

import "strings"

type FieldKind int

const (
	FieldString FieldKind = iota
	FieldInt
	FieldEnum
	FieldDate
)

type (
	// FieldSpec describes one column of an upload schema.
	FieldSpec struct {
		Name     string
		Kind     FieldKind
		Required bool

		// Identifier marks foreign-key-shaped fields (studentId, classroomId, ...)
		// that must be well-formed positive ids.
		Identifier bool

		// Allowed lists the accepted values of a FieldEnum; matching is
		// case-insensitive and rows are coerced to the canonical casing.
		Allowed []string

		// Default is applied when an optional field's column is absent or its
		// value is blank. DefaultToday does the same for the documented
		// defaultable FieldDate fields; required business fields are never
		// silently defaulted.
		Default      string
		DefaultToday bool
	}

	// Schema is the fixed upload contract of one entity type: its delimiter
	// and column set. The header row must contain every required column and
	// nothing outside the schema; optional columns may be omitted entirely.
	Schema struct {
		Entity    string
		Delimiter string
		Fields    []FieldSpec
	}
)

func (s Schema) Headers() []string {
	headers := make([]string, 0, len(s.Fields))
	for _, fld := range s.Fields {
		headers = append(headers, fld.Name)
	}
	return headers
}

// TemplateRow renders the header line of a downloadable upload template.
func (s Schema) TemplateRow() string {
	return strings.Join(s.Headers(), s.Delimiter)
}

func (s Schema) field(name string) (FieldSpec, bool) {
	for _, fld := range s.Fields {
		if fld.Name == name {
			return fld, true
		}
	}
	return FieldSpec{}, false
}
