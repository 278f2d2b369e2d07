package grade

import (
	"strconv"

	"github.com/trezcool/darasa/core/entity"
)

type Grade struct {
	ID     int           `json:"id"`
	Name   string        `json:"name"`
	Level  string        `json:"level,omitempty"`
	Status entity.Status `json:"status"`
}

var _ entity.Managed[Grade] = Grade{}

func (g Grade) EntityID() string            { return strconv.Itoa(g.ID) }
func (g Grade) EntityStatus() entity.Status { return g.Status }

func (g Grade) WithStatus(s entity.Status) Grade {
	g.Status = s
	return g
}

func (g Grade) SearchFields() []string { return []string{g.Name, g.Level} }
