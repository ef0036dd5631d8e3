package dto

import (
	"time"

	"github.com/noah-isme/od-tracker-api/internal/models"
)

const viewDateLayout = "2006-01-02"

// ODRequestCreateRequest carries a student's OD application.
// Status and applied_at are never read from the client.
type ODRequestCreateRequest struct {
	StudentEmail string `json:"student_email" validate:"required,email,max=255"`
	Name         string `json:"name" validate:"required,max=255"`
	DeptName     string `json:"dept_name" validate:"required,max=128"`
	RollNo       string `json:"roll_no" validate:"required,max=64"`
	Section      string `json:"section" validate:"required,max=32"`
	Reason       string `json:"reason" validate:"required,max=2000"`
	Venue        string `json:"venue" validate:"required,max=255"`
	Description  string `json:"description" validate:"omitempty,max=4000"`
}

// ODRequestCreateResponse is returned after a successful submission.
type ODRequestCreateResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ODStatusUpdateRequest is the partial update applied by faculty.
type ODStatusUpdateRequest struct {
	Status string `json:"status" validate:"required,od_status"`
}

// ODStatusUpdateResponse reports the outcome of a status update.
type ODStatusUpdateResponse struct {
	Message string `json:"message"`
}

// ODRequestDocument is the full stored record as exposed to faculty.
type ODRequestDocument struct {
	ID           string    `json:"_id"`
	StudentEmail string    `json:"student_email"`
	Name         string    `json:"name"`
	DeptName     string    `json:"dept_name"`
	RollNo       string    `json:"roll_no"`
	Section      string    `json:"section"`
	Reason       string    `json:"reason"`
	Venue        string    `json:"venue"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	AppliedAt    time.Time `json:"applied_at"`
}

// ODRequestView is the per-student listing shape.
type ODRequestView struct {
	ID          string    `json:"_id"`
	Date        string    `json:"date"`
	Venue       string    `json:"venue"`
	Reason      string    `json:"reason"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	AppliedAt   time.Time `json:"applied_at"`
}

// ODStatsResponse summarises requests per status.
type ODStatsResponse struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// NewODRequestDocument converts a model into the faculty document view.
func NewODRequestDocument(request models.ODRequest) ODRequestDocument {
	return ODRequestDocument{
		ID:           request.ID,
		StudentEmail: request.StudentEmail,
		Name:         request.Name,
		DeptName:     request.DeptName,
		RollNo:       request.RollNo,
		Section:      request.Section,
		Reason:       request.Reason,
		Venue:        request.Venue,
		Description:  request.Description,
		Status:       request.Status.String(),
		AppliedAt:    request.AppliedAt.UTC(),
	}
}

// NewODRequestDocumentSlice converts models into document views.
func NewODRequestDocumentSlice(requests []models.ODRequest) []ODRequestDocument {
	out := make([]ODRequestDocument, 0, len(requests))
	for _, request := range requests {
		out = append(out, NewODRequestDocument(request))
	}
	return out
}

// NewODRequestView converts a model into the student listing view.
func NewODRequestView(request models.ODRequest) ODRequestView {
	appliedAt := request.AppliedAt.UTC()
	return ODRequestView{
		ID:          request.ID,
		Date:        appliedAt.Format(viewDateLayout),
		Venue:       request.Venue,
		Reason:      request.Reason,
		Description: request.Description,
		Status:      request.Status.String(),
		AppliedAt:   appliedAt,
	}
}

// NewODRequestViewSlice converts models into student listing views.
func NewODRequestViewSlice(requests []models.ODRequest) []ODRequestView {
	out := make([]ODRequestView, 0, len(requests))
	for _, request := range requests {
		out = append(out, NewODRequestView(request))
	}
	return out
}

// NewODStatsResponse folds per-status counts into the response shape.
func NewODStatsResponse(counts map[models.ODStatus]int64) ODStatsResponse {
	stats := ODStatsResponse{
		Pending:  counts[models.ODStatusPending],
		Approved: counts[models.ODStatusApproved],
		Rejected: counts[models.ODStatusRejected],
	}
	for _, count := range counts {
		stats.Total += count
	}
	return stats
}
