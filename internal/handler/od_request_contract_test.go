package handler_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/handler"
	"github.com/noah-isme/od-tracker-api/internal/repository"
	"github.com/noah-isme/od-tracker-api/internal/service"
	"github.com/noah-isme/od-tracker-api/internal/validation"
)

func compileContract(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("..", "..", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func newODFlowApp(t *testing.T) *fiber.App {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, repository.MigrateODRequests(db))

	logger := zerolog.New(io.Discard)
	svc := service.NewODRequestService(repository.NewGormODRequestRepository(db), validation.New(), nil, time.Minute, nil, logger)

	app := fiber.New()
	handler.NewODRequestHandler(svc, logger).Register(app.Group("/od"))
	return app
}

func readJSON(t *testing.T, resp *http.Response) interface{} {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestODRequestFlowContract(t *testing.T) {
	app := newODFlowApp(t)

	submit := dto.ODRequestCreateRequest{
		StudentEmail: "asha.cse2021@citchennai.net",
		Name:         "Asha",
		DeptName:     "CSE",
		RollNo:       "21CS01",
		Section:      "A",
		Reason:       "Seminar",
		Venue:        "Lab1",
	}
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/od/apply", submit))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var created dto.ODRequestCreateResponse
	decodeResponse(t, resp, &created)
	require.NotEmpty(t, created.ID)

	viewSchema := compileContract(t, "od_request_view_list.schema.json")
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/od/student/21CS01", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	views := readJSON(t, resp)
	require.NoError(t, viewSchema.Validate(views))
	require.Len(t, views, 1)
	require.Equal(t, "pending", views.([]interface{})[0].(map[string]interface{})["status"])

	resp, err = app.Test(jsonRequest(t, http.MethodPatch, "/od/status/"+created.ID, dto.ODStatusUpdateRequest{Status: "approved"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/od/student/21CS01", nil))
	require.NoError(t, err)
	views = readJSON(t, resp)
	require.NoError(t, viewSchema.Validate(views))
	require.Equal(t, "approved", views.([]interface{})[0].(map[string]interface{})["status"])

	resp, err = app.Test(jsonRequest(t, http.MethodPatch, "/od/status/"+created.ID, dto.ODStatusUpdateRequest{Status: "rejected"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.NoError(t, compileContract(t, "error.schema.json").Validate(readJSON(t, resp)))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/od/all", nil))
	require.NoError(t, err)
	require.NoError(t, compileContract(t, "od_request_document_list.schema.json").Validate(readJSON(t, resp)))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/od/stats", nil))
	require.NoError(t, err)
	stats := readJSON(t, resp)
	require.NoError(t, compileContract(t, "od_stats.schema.json").Validate(stats))
	require.Equal(t, float64(1), stats.(map[string]interface{})["approved"])
}

func TestODRequestFlowStatusErrors(t *testing.T) {
	app := newODFlowApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/od/status/not-an-id", dto.ODStatusUpdateRequest{Status: "approved"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPatch, "/od/status/"+uuid.NewString(), dto.ODStatusUpdateRequest{Status: "approved"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPatch, "/od/status/"+uuid.NewString(), dto.ODStatusUpdateRequest{Status: "archived"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
