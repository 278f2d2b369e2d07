package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/entity"
	"github.com/trezcool/darasa/core/importer"
)

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newTestServer(registrars ...RouteRegistrar) Server {
	return NewServer(&Options{
		TestMode:       true,
		DisableReqLogs: true,
		Logger:         testLogger{},
		Translator:     newTestTranslator(),
		Registrars:     registrars,
	})
}

type testEntity struct {
	ID     int           `json:"id"`
	Name   string        `json:"name"`
	Status entity.Status `json:"status"`
}

func (e testEntity) EntityID() string            { return strconv.Itoa(e.ID) }
func (e testEntity) EntityStatus() entity.Status { return e.Status }
func (e testEntity) WithStatus(s entity.Status) testEntity {
	e.Status = s
	return e
}
func (e testEntity) SearchFields() []string { return []string{e.Name} }

// fakeGateway serves canned data in place of an upstream microservice.
type fakeGateway struct {
	items     []testEntity
	pageErr   error
	toggleErr error

	bulkCalls int
	bulkKey   string
	bulkRes   importer.ImportResult
	bulkErr   error
}

var (
	_ entity.Gateway[testEntity] = (*fakeGateway)(nil)
	_ importer.Gateway           = (*fakeGateway)(nil)
)

func (gw *fakeGateway) FetchAll(context.Context) ([]testEntity, error) {
	return append([]testEntity(nil), gw.items...), nil
}

func (gw *fakeGateway) FetchPage(_ context.Context, req entity.PageRequest) (entity.Page[testEntity], error) {
	if gw.pageErr != nil {
		return entity.Page[testEntity]{}, gw.pageErr
	}
	total := len(gw.items)
	start := req.Page * req.Size
	if start > total {
		start = total
	}
	end := start + req.Size
	if end > total {
		end = total
	}
	pages := (total + req.Size - 1) / req.Size
	return entity.Page[testEntity]{
		Content:       append([]testEntity(nil), gw.items[start:end]...),
		TotalElements: total,
		TotalPages:    pages,
	}, nil
}

func (gw *fakeGateway) FetchByID(_ context.Context, id string) (testEntity, error) {
	for _, item := range gw.items {
		if item.EntityID() == id {
			return item, nil
		}
	}
	return testEntity{}, entity.ErrNotFound
}

func (gw *fakeGateway) Create(_ context.Context, payload interface{}) (testEntity, error) {
	raw, _ := json.Marshal(payload)
	item := testEntity{ID: len(gw.items) + 1, Status: entity.StatusActive}
	_ = json.Unmarshal(raw, &item)
	gw.items = append(gw.items, item)
	return item, nil
}

func (gw *fakeGateway) SetActive(_ context.Context, id string) (*testEntity, error) {
	return gw.setStatus(id, entity.StatusActive)
}

func (gw *fakeGateway) SetInactive(_ context.Context, id string) (*testEntity, error) {
	return gw.setStatus(id, entity.StatusInactive)
}

func (gw *fakeGateway) setStatus(id string, s entity.Status) (*testEntity, error) {
	if gw.toggleErr != nil {
		return nil, gw.toggleErr
	}
	for i, item := range gw.items {
		if item.EntityID() == id {
			gw.items[i] = item.WithStatus(s)
			return &gw.items[i], nil
		}
	}
	return nil, nil
}

func (gw *fakeGateway) BulkCreate(_ context.Context, key string, records []importer.Record) (importer.ImportResult, error) {
	gw.bulkCalls++
	gw.bulkKey = key
	if gw.bulkErr != nil {
		return importer.ImportResult{}, gw.bulkErr
	}
	if gw.bulkRes.CreatedCount == 0 && gw.bulkRes.FailedRecords == nil {
		return importer.ImportResult{CreatedCount: len(records)}, nil
	}
	return gw.bulkRes, nil
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return req, rec
}

func newUploadRequest(t *testing.T, path, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	if _, err = fw.Write(content); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return req, rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

var _ core.Logger = testLogger{}
