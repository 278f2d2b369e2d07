package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core/entity"
)

// PageQuery binds the list query params. A request without a size asks for
// the whole collection.
type PageQuery struct {
	Page int
	Size int
	Sort string
}

func (q *PageQuery) Bind(ctx echo.Context) {
	q.Page, _ = strconv.Atoi(ctx.QueryParam("page"))
	q.Size, _ = strconv.Atoi(ctx.QueryParam("size"))
	q.Sort = ctx.QueryParam("sort")
}

func (q PageQuery) Request() *entity.PageRequest {
	if q.Size <= 0 {
		return nil
	}
	req := &entity.PageRequest{Page: q.Page, Size: q.Size, SortAscending: true}

	// sort=field,asc|desc ; a "-" prefix also means descending
	if field := strings.TrimSpace(q.Sort); field != "" {
		if i := strings.IndexByte(field, ','); i >= 0 {
			req.SortAscending = !strings.EqualFold(strings.TrimSpace(field[i+1:]), "desc")
			field = strings.TrimSpace(field[:i])
		}
		if strings.HasPrefix(field, "-") {
			req.SortAscending = false
			field = field[1:] // drop "-"
		}
		req.SortField = field
	}
	return req
}
