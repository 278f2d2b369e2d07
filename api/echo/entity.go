package echoapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/entity"
	"github.com/trezcool/darasa/core/importer"
	"github.com/trezcool/darasa/core/importlog"
)

// EntityAPI exposes one managed collection: its paginated/filterable list,
// the confirm-then-apply status toggle, and the bulk-import endpoints.
type EntityAPI[E entity.Managed[E]] struct {
	name     string
	list     *entity.List[E]
	pipeline *importer.Pipeline
	bulk     importer.Gateway
	journal  *importlog.Service
	logger   core.Logger

	// single-create support (optional)
	gw         entity.Gateway[E]
	validate   *validator.Validate
	newPayload func() CreatePayload
}

// CreatePayload is a bindable, self-validating create DTO.
type CreatePayload interface {
	Validate(validate *validator.Validate) error
}

func NewEntityAPI[E entity.Managed[E]](
	name string,
	list *entity.List[E],
	pipeline *importer.Pipeline,
	bulk importer.Gateway,
	journal *importlog.Service,
	logger core.Logger,
) *EntityAPI[E] {
	return &EntityAPI[E]{
		name:     name,
		list:     list,
		pipeline: pipeline,
		bulk:     bulk,
		journal:  journal,
		logger:   logger,
	}
}

// WithCreate mounts POST /<name>, binding the request into a fresh payload
// from newPayload and forwarding it to the gateway once validated.
func (api *EntityAPI[E]) WithCreate(gw entity.Gateway[E], validate *validator.Validate, newPayload func() CreatePayload) *EntityAPI[E] {
	api.gw = gw
	api.validate = validate
	api.newPayload = newPayload
	return api
}

func (api *EntityAPI[E]) Register(v1 *echo.Group) {
	g := v1.Group("/" + api.name)

	g.GET("", api.query)
	g.PUT("/:id/status", api.toggleStatus)
	if api.newPayload != nil {
		g.POST("", api.create)
	}

	if api.pipeline != nil {
		g.GET("/bulk/template", api.template)
		g.POST("/bulk/validate", api.bulkValidate)
		g.POST("/bulk", api.bulkImport)
	}
}

// Handlers

func (api *EntityAPI[E]) query(ctx echo.Context) error {
	var q PageQuery
	q.Bind(ctx)

	page, err := api.list.Load(ctx.Request().Context(), q.Request())
	if err != nil {
		return errors.Wrapf(err, "loading %s", api.name)
	}

	// client-side text filter over the loaded items
	if search := core.CleanString(ctx.QueryParam("search")); search != "" {
		matches := api.list.Filter(search)
		page = entity.Page[E]{Content: matches, TotalElements: len(matches), TotalPages: 1}
	}

	// the unfiltered collection total rides a header so clients can show
	// "x of y" counts next to a filtered view
	totalElements, _ := api.list.Totals()
	ctx.Response().Header().Set("X-Total-Count", strconv.Itoa(totalElements))
	return ctx.JSON(http.StatusOK, page)
}

func (api *EntityAPI[E]) create(ctx echo.Context) error {
	data := api.newPayload()
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding payload")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	item, err := api.gw.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrapf(err, "creating %s", api.name)
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *EntityAPI[E]) toggleStatus(ctx echo.Context) error {
	item, err := api.list.ToggleStatus(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling status")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *EntityAPI[E]) template(ctx echo.Context) error {
	filename := fmt.Sprintf("%s-template.csv", api.name)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, "text/csv", []byte(api.pipeline.Schema().TemplateRow()+"\n"))
}

// bulkValidate dry-runs an upload: full validation, no submission.
func (api *EntityAPI[E]) bulkValidate(ctx echo.Context) error {
	res, _, err := api.parseUpload(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *EntityAPI[E]) bulkImport(ctx echo.Context) error {
	res, filename, err := api.parseUpload(ctx)
	if err != nil {
		return err
	}
	// submission is blocked until the file is clean
	if len(res.Errors) > 0 {
		return ctx.JSON(http.StatusBadRequest, res)
	}

	start := time.Now()
	result, key, err := api.pipeline.Submit(ctx.Request().Context(), api.bulk, res.Records)
	if err != nil {
		if errors.Cause(err) == importer.ErrNoRecords {
			return echo.NewHTTPError(http.StatusBadRequest, importer.ErrNoRecords.Error())
		}
		return errors.Wrap(err, "submitting batch")
	}

	if api.journal != nil {
		entry, jerr := api.journal.Record(ctx.Request().Context(), api.name, filename, key, res, result, time.Since(start))
		if jerr != nil {
			// the batch went through; a journaling hiccup must not fail the request
			api.logger.Error(fmt.Sprintf("journaling %s import: %v", api.name, jerr), jerr)
		} else {
			ctx.Response().Header().Set("X-Import-Id", entry.ID)
		}
	}
	return ctx.JSON(http.StatusCreated, result)
}

// parseUpload pulls the multipart "file" part through the pipeline.
func (api *EntityAPI[E]) parseUpload(ctx echo.Context) (importer.ParseResult, string, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return importer.ParseResult{}, "", echo.NewHTTPError(http.StatusBadRequest, `missing "file" upload`)
	}
	f, err := fh.Open()
	if err != nil {
		return importer.ParseResult{}, "", errors.Wrap(err, "opening upload")
	}
	defer func() { _ = f.Close() }()

	var res importer.ParseResult
	if importer.IsWorkbook(fh.Filename) {
		res, err = api.pipeline.ParseWorkbook(f)
	} else {
		res, err = api.pipeline.Parse(f)
	}
	if err != nil {
		return importer.ParseResult{}, "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return res, fh.Filename, nil
}
