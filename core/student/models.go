package student

import (
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core/entity"
	"github.com/trezcool/darasa/core/importer"
)

type Student struct {
	ID             int           `json:"id"`
	FirstName      string        `json:"firstName"`
	LastName       string        `json:"lastName"`
	DocumentType   string        `json:"documentType"`
	DocumentNumber string        `json:"documentNumber"`
	Email          string        `json:"email,omitempty"`
	BirthDate      string        `json:"birthDate"`
	GradeID        int           `json:"gradeId"`
	GradeName      string        `json:"gradeName,omitempty"`
	Status         entity.Status `json:"status"`
}

var _ entity.Managed[Student] = Student{}

func (s Student) EntityID() string            { return strconv.Itoa(s.ID) }
func (s Student) EntityStatus() entity.Status { return s.Status }

func (s Student) WithStatus(st entity.Status) Student {
	s.Status = st
	return s
}

func (s Student) FullName() string { return s.FirstName + " " + s.LastName }

func (s Student) SearchFields() []string {
	return []string{s.FirstName, s.LastName, s.DocumentNumber, s.Email, s.GradeName}
}

type NewStudent struct {
	FirstName      string `json:"firstName" validate:"required"`
	LastName       string `json:"lastName" validate:"required"`
	DocumentType   string `json:"documentType" validate:"required,oneof=CC TI CE PASSPORT"`
	DocumentNumber string `json:"documentNumber" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	BirthDate      string `json:"birthDate" validate:"required,datetime=2006-01-02"`
	GradeID        int    `json:"gradeId" validate:"required,gt=0"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

func BulkSchema() importer.Schema {
	return importer.Schema{
		Entity:    "students",
		Delimiter: ",",
		Fields: []importer.FieldSpec{
			{Name: "firstName", Kind: importer.FieldString, Required: true},
			{Name: "lastName", Kind: importer.FieldString, Required: true},
			{Name: "documentType", Kind: importer.FieldEnum, Required: true, Allowed: []string{"CC", "TI", "CE", "PASSPORT"}},
			{Name: "documentNumber", Kind: importer.FieldString, Required: true},
			{Name: "email", Kind: importer.FieldString},
			{Name: "birthDate", Kind: importer.FieldDate, Required: true},
			{Name: "gradeId", Kind: importer.FieldInt, Required: true, Identifier: true},
			{Name: "status", Kind: importer.FieldEnum, Allowed: []string{"A", "I"}, Default: "A"},
		},
	}
}
