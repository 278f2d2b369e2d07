package enrollment

import (
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core/entity"
	"github.com/trezcool/darasa/core/importer"
)

// enrollment lifecycle statuses as reported by the enrollment service
const (
	StatusActive    = "ACTIVE"
	StatusInactive  = "INACTIVE"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

type Enrollment struct {
	ID             int    `json:"id"`
	StudentID      int    `json:"studentId"`
	StudentName    string `json:"studentName,omitempty"`
	ClassroomID    int    `json:"classroomId"`
	ClassroomName  string `json:"classroomName,omitempty"`
	EnrollmentDate string `json:"enrollmentDate"`
	Status         string `json:"status"`
	Observations   string `json:"observations,omitempty"`
	AcademicYear   int    `json:"academicYear"`
	Period         int    `json:"period"`
}

var _ entity.Managed[Enrollment] = Enrollment{}

func (e Enrollment) EntityID() string { return strconv.Itoa(e.ID) }

func (e Enrollment) EntityStatus() entity.Status {
	if e.Status == StatusActive {
		return entity.StatusActive
	}
	return entity.StatusInactive
}

func (e Enrollment) WithStatus(s entity.Status) Enrollment {
	if s.Active() {
		e.Status = StatusActive
	} else {
		e.Status = StatusInactive
	}
	return e
}

func (e Enrollment) SearchFields() []string {
	return []string{e.StudentName, e.ClassroomName, e.EnrollmentDate, e.Status, strconv.Itoa(e.AcademicYear)}
}

// NewEnrollment is the single-create payload; the bulk path goes through the
// import schema instead.
type NewEnrollment struct {
	StudentID      int    `json:"studentId" validate:"required,gt=0"`
	ClassroomID    int    `json:"classroomId" validate:"required,gt=0"`
	EnrollmentDate string `json:"enrollmentDate" validate:"omitempty,datetime=2006-01-02"`
	Status         string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE COMPLETED CANCELLED"`
	Observations   string `json:"observations"`
	AcademicYear   int    `json:"academicYear" validate:"required"`
	Period         int    `json:"period" validate:"required,gt=0"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	return validate.Struct(ne)
}

// BulkSchema is the documented upload contract for enrollment bulk imports.
// enrollmentDate defaults to the day of the import; status defaults to ACTIVE.
func BulkSchema() importer.Schema {
	return importer.Schema{
		Entity:    "enrollments",
		Delimiter: ",",
		Fields: []importer.FieldSpec{
			{Name: "studentId", Kind: importer.FieldInt, Required: true, Identifier: true},
			{Name: "classroomId", Kind: importer.FieldInt, Required: true, Identifier: true},
			{Name: "enrollmentDate", Kind: importer.FieldDate, DefaultToday: true},
			{Name: "status", Kind: importer.FieldEnum, Allowed: []string{StatusActive, StatusInactive, StatusCompleted, StatusCancelled}, Default: StatusActive},
			{Name: "observations", Kind: importer.FieldString},
			{Name: "academicYear", Kind: importer.FieldInt, Required: true},
			{Name: "period", Kind: importer.FieldInt, Required: true},
		},
	}
}
