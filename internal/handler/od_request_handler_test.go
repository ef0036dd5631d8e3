package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/handler"
	"github.com/noah-isme/od-tracker-api/internal/models"
	"github.com/noah-isme/od-tracker-api/internal/service"
	"github.com/noah-isme/od-tracker-api/internal/utils"
	"github.com/noah-isme/od-tracker-api/internal/validation"
)

type mockODRequestService struct {
	submitted  dto.ODRequestCreateRequest
	submitResp dto.ODRequestCreateResponse
	submitErr  error
	documents  []dto.ODRequestDocument
	views      []dto.ODRequestView
	listErr    error
	lastRollNo string
	lastEmail  string
	lastID     string
	lastStatus string
	updateResp dto.ODStatusUpdateResponse
	updateErr  error
	stats      dto.ODStatsResponse
	statsErr   error
}

func (m *mockODRequestService) Submit(_ context.Context, req dto.ODRequestCreateRequest) (dto.ODRequestCreateResponse, error) {
	m.submitted = req
	return m.submitResp, m.submitErr
}

func (m *mockODRequestService) ListAll(context.Context) ([]dto.ODRequestDocument, error) {
	return m.documents, m.listErr
}

func (m *mockODRequestService) ListByRollNo(_ context.Context, rollNo string) ([]dto.ODRequestView, error) {
	m.lastRollNo = rollNo
	return m.views, m.listErr
}

func (m *mockODRequestService) ListByEmail(_ context.Context, email string) ([]dto.ODRequestView, error) {
	m.lastEmail = email
	return m.views, m.listErr
}

func (m *mockODRequestService) UpdateStatus(_ context.Context, id string, req dto.ODStatusUpdateRequest) (dto.ODStatusUpdateResponse, error) {
	m.lastID = id
	m.lastStatus = req.Status
	return m.updateResp, m.updateErr
}

func (m *mockODRequestService) Stats(context.Context) (dto.ODStatsResponse, error) {
	return m.stats, m.statsErr
}

func newODTestApp(svc service.ODRequestService) *fiber.App {
	app := fiber.New()
	handler.NewODRequestHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/od"))
	return app
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestODRequestHandler_SubmitSuccess(t *testing.T) {
	svc := &mockODRequestService{submitResp: dto.ODRequestCreateResponse{Message: "OD Request submitted!", ID: "65f1c0ffee65f1c0ffee65f1"}}
	app := newODTestApp(svc)

	payload := map[string]string{
		"student_email": "asha.cse2021@citchennai.net",
		"name":          "Asha",
		"dept_name":     "CSE",
		"roll_no":       "21CS01",
		"section":       "A",
		"reason":        "Seminar",
		"venue":         "Lab1",
		"status":        "approved",
		"applied_at":    "1999-01-01T00:00:00Z",
	}
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/od/apply", payload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body dto.ODRequestCreateResponse
	decodeResponse(t, resp, &body)
	require.Equal(t, svc.submitResp, body)
	require.Equal(t, "21CS01", svc.submitted.RollNo)
	require.Equal(t, "Lab1", svc.submitted.Venue)
}

func TestODRequestHandler_SubmitErrors(t *testing.T) {
	validationErr := validation.New().Struct(dto.ODRequestCreateRequest{})
	require.Error(t, validationErr)

	cases := []struct {
		name       string
		err        error
		statusCode int
		detail     string
	}{
		{name: "validation", err: validationErr, statusCode: fiber.StatusBadRequest, detail: "student_email is required"},
		{name: "persistence", err: errors.New("connection refused"), statusCode: fiber.StatusInternalServerError, detail: "Failed to submit request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newODTestApp(&mockODRequestService{submitErr: tc.err})

			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/od/apply", map[string]string{"name": "Asha"}))
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var body utils.ErrorResponse
			decodeResponse(t, resp, &body)
			require.Contains(t, body.Detail, tc.detail)
		})
	}
}

func TestODRequestHandler_SubmitRejectsMalformedBody(t *testing.T) {
	app := newODTestApp(&mockODRequestService{})

	req := httptest.NewRequest(http.MethodPost, "/od/apply", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestODRequestHandler_ListByStudent(t *testing.T) {
	appliedAt := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	svc := &mockODRequestService{views: []dto.ODRequestView{{
		ID:        "65f1c0ffee65f1c0ffee65f1",
		Date:      "2024-03-05",
		Venue:     "Lab1",
		Reason:    "Seminar",
		Status:    "pending",
		AppliedAt: appliedAt,
	}}}
	app := newODTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/od/student/21CS01", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var views []dto.ODRequestView
	decodeResponse(t, resp, &views)
	require.Len(t, views, 1)
	require.Equal(t, "2024-03-05", views[0].Date)
	require.Equal(t, "21CS01", svc.lastRollNo)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/od/student/email/asha.cse2021%40citchennai.net", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "asha.cse2021@citchennai.net", svc.lastEmail)
}

func TestODRequestHandler_ListEmptyIsArray(t *testing.T) {
	app := newODTestApp(&mockODRequestService{views: []dto.ODRequestView{}})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/od/student/00XX00", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(raw))
}

func TestODRequestHandler_ListAll(t *testing.T) {
	svc := &mockODRequestService{documents: []dto.ODRequestDocument{{ID: "a", RollNo: "21CS01", Status: "pending"}}}
	app := newODTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/od/all", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var docs []map[string]interface{}
	decodeResponse(t, resp, &docs)
	require.Len(t, docs, 1)
	require.Equal(t, "a", docs[0]["_id"])

	app = newODTestApp(&mockODRequestService{listErr: errors.New("down")})
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/od/all", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestODRequestHandler_UpdateStatus(t *testing.T) {
	svc := &mockODRequestService{updateResp: dto.ODStatusUpdateResponse{Message: "OD status updated to approved"}}
	app := newODTestApp(svc)

	resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/od/status/65f1c0ffee65f1c0ffee65f1", map[string]string{"status": "approved"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body dto.ODStatusUpdateResponse
	decodeResponse(t, resp, &body)
	require.Equal(t, "OD status updated to approved", body.Message)
	require.Equal(t, "65f1c0ffee65f1c0ffee65f1", svc.lastID)
	require.Equal(t, "approved", svc.lastStatus)
}

func TestODRequestHandler_UpdateStatusErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
		detail     string
	}{
		{name: "invalid id", err: service.ErrInvalidRequestID, statusCode: fiber.StatusBadRequest, detail: "Invalid ID format"},
		{name: "invalid status", err: fmt.Errorf("%w: status is invalid", service.ErrInvalidStatus), statusCode: fiber.StatusBadRequest, detail: "Invalid status. Must be one of: pending, approved, rejected"},
		{name: "not found", err: service.ErrODRequestNotFound, statusCode: fiber.StatusNotFound, detail: "Request not found"},
		{name: "terminal", err: &service.TransitionError{From: models.ODStatusApproved, To: models.ODStatusRejected}, statusCode: fiber.StatusConflict, detail: "Cannot change status from approved to rejected"},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError, detail: "Failed to update status"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newODTestApp(&mockODRequestService{updateErr: tc.err})

			resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/od/status/abc", map[string]string{"status": "rejected"}))
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var body utils.ErrorResponse
			decodeResponse(t, resp, &body)
			require.Equal(t, tc.detail, body.Detail)
		})
	}
}

func TestODRequestHandler_Stats(t *testing.T) {
	svc := &mockODRequestService{stats: dto.ODStatsResponse{Total: 3, Pending: 1, Approved: 1, Rejected: 1}}
	app := newODTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/od/stats", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats dto.ODStatsResponse
	decodeResponse(t, resp, &stats)
	require.Equal(t, svc.stats, stats)
}
