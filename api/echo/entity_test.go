package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/entity"
	"github.com/trezcool/darasa/core/importer"
	"github.com/trezcool/darasa/core/importlog"
	dummynotifier "github.com/trezcool/darasa/services/notifier/dummy"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

func testUploadSchema() importer.Schema {
	return importer.Schema{
		Entity:    "things",
		Delimiter: ",",
		Fields: []importer.FieldSpec{
			{Name: "name", Kind: importer.FieldString, Required: true},
			{Name: "count", Kind: importer.FieldInt, Required: true},
		},
	}
}

func setup(gw *fakeGateway) (Server, *importlog.Service) {
	notifier := dummynotifier.NewService()
	list := entity.NewList[testEntity]("things", gw, notifier)
	journal := importlog.NewService(dummydb.NewImportLogRepository(dummydb.Open()))
	api := NewEntityAPI[testEntity]("things", list, importer.NewPipeline(testUploadSchema()), gw, journal, testLogger{})
	app := newTestServer(api.Register, RegisterImportLogAPI(journal))
	return app, journal
}

func seedGateway() *fakeGateway {
	return &fakeGateway{items: []testEntity{
		{ID: 1, Name: "alpha", Status: entity.StatusActive},
		{ID: 2, Name: "beta", Status: entity.StatusActive},
		{ID: 3, Name: "gamma", Status: entity.StatusInactive},
	}}
}

type newThing struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"omitempty,codename"`
}

func (nt *newThing) Validate(validate *validator.Validate) error {
	return validate.Struct(nt)
}

func TestEntityAPI_create(t *testing.T) {
	gw := seedGateway()
	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	api := NewEntityAPI[testEntity](
		"things",
		entity.NewList[testEntity]("things", gw, dummynotifier.NewService()),
		nil, nil, nil, testLogger{},
	).WithCreate(gw, validate, func() CreatePayload { return new(newThing) })
	app := NewServer(&Options{
		TestMode:       true,
		DisableReqLogs: true,
		Logger:         testLogger{},
		Translator:     translator,
		Registrars:     []RouteRegistrar{api.Register},
	})

	t.Run("valid payload", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/things", marshallObj(t, newThing{Name: "delta"}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var got testEntity
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decoding reply: %v", err)
		}
		assert.Equal(t, "delta", got.Name)
	})

	t.Run("missing name yields a field error map", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/things", []byte(`{}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name"`)
		assert.Contains(t, rec.Body.String(), "this field is required")
	})

	t.Run("malformed code name is rejected with the custom message", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/things", []byte(`{"name":"delta","code":"not valid!"}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code"`)
		assert.Contains(t, rec.Body.String(), "only alphanumeric characters, dashes and underscores are allowed")
	})
}

func TestEntityAPI_query(t *testing.T) {
	gw := seedGateway()
	app, _ := setup(gw)

	tests := []httpTest{
		{
			name: "full collection", method: http.MethodGet, path: "/v1/things",
			wantCode: http.StatusOK,
			wantData: marshallObj(t, entity.Page[testEntity]{Content: gw.items, TotalElements: 3, TotalPages: 1}),
		},
		{
			name: "paginated", method: http.MethodGet, path: "/v1/things?page=1&size=2",
			wantCode: http.StatusOK,
			wantData: marshallObj(t, entity.Page[testEntity]{Content: gw.items[2:], TotalElements: 3, TotalPages: 2}),
		},
		{
			name: "search filters the loaded items", method: http.MethodGet, path: "/v1/things?search=GAM",
			wantCode: http.StatusOK,
			wantData: marshallObj(t, entity.Page[testEntity]{Content: gw.items[2:], TotalElements: 1, TotalPages: 1}),
		},
		{
			name: "search with no match", method: http.MethodGet, path: "/v1/things?search=zzz",
			wantCode: http.StatusOK,
			wantData: marshallObj(t, entity.Page[testEntity]{Content: []testEntity{}, TotalElements: 0, TotalPages: 1}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the unfiltered collection total rides a header even when the body is filtered
	req, rec := newRequest(http.MethodGet, "/v1/things?search=GAM")
	app.ServeHTTP(rec, req)
	assert.Equal(t, "3", rec.Header().Get("X-Total-Count"))
}

func TestEntityAPI_toggleStatus(t *testing.T) {
	t.Run("deactivates an active entity", func(t *testing.T) {
		gw := seedGateway()
		app, _ := setup(gw)

		// populate the list first
		req, rec := newRequest(http.MethodGet, "/v1/things")
		app.ServeHTTP(rec, req)

		req, rec = newRequest(http.MethodPut, "/v1/things/1/status")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got testEntity
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decoding reply: %v", err)
		}
		assert.Equal(t, entity.StatusInactive, got.Status)
	})

	t.Run("unknown id is a 404", func(t *testing.T) {
		gw := seedGateway()
		app, _ := setup(gw)

		req, rec := newRequest(http.MethodGet, "/v1/things")
		app.ServeHTTP(rec, req)

		req, rec = newRequest(http.MethodPut, "/v1/things/99/status")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("upstream refusal relays the message as 502", func(t *testing.T) {
		gw := seedGateway()
		app, _ := setup(gw)

		req, rec := newRequest(http.MethodGet, "/v1/things")
		app.ServeHTTP(rec, req)

		gw.toggleErr = core.NewGatewayError(http.StatusConflict, "entity has active children")
		req, rec = newRequest(http.MethodPut, "/v1/things/1/status")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "entity has active children")
	})
}

func TestEntityAPI_template(t *testing.T) {
	app, _ := setup(seedGateway())

	req, rec := newRequest(http.MethodGet, "/v1/things/bulk/template")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "name,count\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "things-template.csv")
}

func TestEntityAPI_bulkValidate(t *testing.T) {
	app, _ := setup(seedGateway())

	file := "name,count\nalpha,1\nbeta,oops\n"
	req, rec := newUploadRequest(t, "/v1/things/bulk/validate", "things.csv", []byte(file))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var res importer.ParseResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	assert.Len(t, res.Records, 1)
	if assert.Len(t, res.Errors, 1) {
		assert.Equal(t, 3, res.Errors[0].Line)
	}
}

func TestEntityAPI_bulkImport(t *testing.T) {
	t.Run("clean file is submitted once and journaled", func(t *testing.T) {
		gw := seedGateway()
		app, _ := setup(gw)

		file := "name,count\nalpha,1\nbeta,2\n"
		req, rec := newUploadRequest(t, "/v1/things/bulk", "things.csv", []byte(file))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, 1, gw.bulkCalls)
		assert.NotEmpty(t, gw.bulkKey)
		assert.NotEmpty(t, rec.Header().Get("X-Import-Id"))

		var res importer.ImportResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("decoding reply: %v", err)
		}
		assert.Equal(t, 2, res.CreatedCount)

		// the journal is queryable
		req, rec = newRequest(http.MethodGet, "/v1/imports")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var entries []importlog.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
			t.Fatalf("decoding journal: %v", err)
		}
		if assert.Len(t, entries, 1) {
			assert.Equal(t, "things", entries[0].Entity)
			assert.Equal(t, "things.csv", entries[0].FileName)
			assert.Equal(t, gw.bulkKey, entries[0].IdempotencyKey)
			assert.Equal(t, 2, entries[0].CreatedCount)
		}
	})

	t.Run("row errors block submission", func(t *testing.T) {
		gw := seedGateway()
		app, _ := setup(gw)

		file := "name,count\nalpha,oops\n"
		req, rec := newUploadRequest(t, "/v1/things/bulk", "things.csv", []byte(file))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, gw.bulkCalls)
	})

	t.Run("missing upload part", func(t *testing.T) {
		app, _ := setup(seedGateway())
		req, rec := newRequest(http.MethodPost, "/v1/things/bulk")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("partial success reports the rejected records", func(t *testing.T) {
		gw := seedGateway()
		gw.bulkRes = importer.ImportResult{
			CreatedCount:  1,
			FailedRecords: []importer.FailedRecord{{Record: importer.Record{"name": "beta", "count": 2}, Reason: "duplicate"}},
		}
		app, _ := setup(gw)

		file := "name,count\nalpha,1\nbeta,2\n"
		req, rec := newUploadRequest(t, "/v1/things/bulk", "things.csv", []byte(file))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var res importer.ImportResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("decoding reply: %v", err)
		}
		assert.Equal(t, 1, res.CreatedCount)
		assert.Len(t, res.FailedRecords, 1)
	})
}
