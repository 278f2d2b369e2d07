package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/importlog"
)

type importLogAPI struct {
	svc *importlog.Service
}

// RegisterImportLogAPI mounts the import journal (newest first).
func RegisterImportLogAPI(svc *importlog.Service) RouteRegistrar {
	return func(v1 *echo.Group) {
		api := importLogAPI{svc: svc}
		v1.GET("/imports", api.query)
	}
}

func (api importLogAPI) query(ctx echo.Context) error {
	entries, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying import journal")
	}
	return ctx.JSON(http.StatusOK, entries)
}
