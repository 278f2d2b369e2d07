package institution

import (
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core/entity"
)

type (
	Institution struct {
		ID       int           `json:"id"`
		Name     string        `json:"name"`
		CodeName string        `json:"codeName"`
		Email    string        `json:"email,omitempty"`
		Address  string        `json:"address,omitempty"`
		Status   entity.Status `json:"status"`
	}

	// Headquarter is a physical campus of an institution.
	Headquarter struct {
		ID            int           `json:"id"`
		InstitutionID int           `json:"institutionId"`
		Name          string        `json:"name"`
		Address       string        `json:"address,omitempty"`
		Status        entity.Status `json:"status"`
	}
)

var (
	_ entity.Managed[Institution] = Institution{}
	_ entity.Managed[Headquarter] = Headquarter{}
)

func (i Institution) EntityID() string            { return strconv.Itoa(i.ID) }
func (i Institution) EntityStatus() entity.Status { return i.Status }

func (i Institution) WithStatus(s entity.Status) Institution {
	i.Status = s
	return i
}

func (i Institution) SearchFields() []string { return []string{i.Name, i.CodeName, i.Email} }

func (h Headquarter) EntityID() string            { return strconv.Itoa(h.ID) }
func (h Headquarter) EntityStatus() entity.Status { return h.Status }

func (h Headquarter) WithStatus(s entity.Status) Headquarter {
	h.Status = s
	return h
}

func (h Headquarter) SearchFields() []string { return []string{h.Name, h.Address} }

type NewInstitution struct {
	Name     string `json:"name" validate:"required"`
	CodeName string `json:"codeName" validate:"required,codename"`
	Email    string `json:"email" validate:"omitempty,email"`
	Address  string `json:"address"`
}

func (ni *NewInstitution) Validate(validate *validator.Validate) error {
	return validate.Struct(ni)
}
