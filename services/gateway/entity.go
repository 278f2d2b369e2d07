package gatewaysvc

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/entity"
	"github.com/trezcool/darasa/core/importer"
)

// EntityGateway adapts one upstream REST collection (enrollments, students,
// institutions, ...) to the dashboard's list and import operations.
//
// The upstream convention is Spring-flavored: DELETE soft-deletes (flips to
// inactive), PATCH {id}/restore reactivates, and both may answer 204 with no
// body when the service has nothing new to report about the entity.
type EntityGateway[E entity.Managed[E]] struct {
	c    *Client
	path string // collection path, e.g. "/api/v1/enrollments"
}

func NewEntityGateway[E entity.Managed[E]](c *Client, path string) *EntityGateway[E] {
	return &EntityGateway[E]{c: c, path: path}
}

func (gw *EntityGateway[E]) FetchAll(ctx context.Context) ([]E, error) {
	var items []E
	if err := gw.c.do(ctx, http.MethodGet, gw.path, nil, nil, nil, &items); err != nil && err != errNoBody {
		return nil, err
	}
	return items, nil
}

func (gw *EntityGateway[E]) FetchPage(ctx context.Context, req entity.PageRequest) (entity.Page[E], error) {
	q := make(url.Values)
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("size", strconv.Itoa(req.Size))
	if req.SortField != "" {
		dir := "desc"
		if req.SortAscending {
			dir = "asc"
		}
		q.Set("sort", req.SortField+","+dir)
	}

	var page entity.Page[E]
	if err := gw.c.do(ctx, http.MethodGet, gw.path+"/paginated", q, nil, nil, &page); err != nil {
		if err == errNoBody {
			return entity.Page[E]{}, errors.New("paginated endpoint returned no body")
		}
		return entity.Page[E]{}, err
	}
	return page, nil
}

func (gw *EntityGateway[E]) FetchByID(ctx context.Context, id string) (E, error) {
	var item E
	if err := gw.c.do(ctx, http.MethodGet, gw.path+"/"+id, nil, nil, nil, &item); err != nil {
		return item, err
	}
	return item, nil
}

func (gw *EntityGateway[E]) Create(ctx context.Context, payload interface{}) (E, error) {
	var item E
	if err := gw.c.do(ctx, http.MethodPost, gw.path, nil, nil, payload, &item); err != nil && err != errNoBody {
		return item, err
	}
	return item, nil
}

// SetInactive soft-deletes the entity. A 204 reply yields a nil entity; the
// caller flips the status locally.
func (gw *EntityGateway[E]) SetInactive(ctx context.Context, id string) (*E, error) {
	return gw.statusCall(ctx, http.MethodDelete, gw.path+"/"+id)
}

func (gw *EntityGateway[E]) SetActive(ctx context.Context, id string) (*E, error) {
	return gw.statusCall(ctx, http.MethodPatch, gw.path+"/"+id+"/restore")
}

func (gw *EntityGateway[E]) statusCall(ctx context.Context, method, path string) (*E, error) {
	var item E
	err := gw.c.do(ctx, method, path, nil, nil, nil, &item)
	if err == errNoBody {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// BulkCreate submits one validated batch. The idempotency key travels in the
// Idempotency-Key header; each client attempt generates a fresh one.
func (gw *EntityGateway[E]) BulkCreate(ctx context.Context, idempotencyKey string, records []importer.Record) (importer.ImportResult, error) {
	headers := http.Header{"Idempotency-Key": []string{idempotencyKey}}
	var res importer.ImportResult
	if err := gw.c.do(ctx, http.MethodPost, gw.path+"/bulk", nil, headers, records, &res); err != nil {
		if err == errNoBody {
			// some services acknowledge without a summary; assume all created
			return importer.ImportResult{CreatedCount: len(records)}, nil
		}
		return importer.ImportResult{}, err
	}
	return res, nil
}
