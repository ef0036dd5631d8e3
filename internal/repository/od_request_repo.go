package repository

import (
	"context"
	"errors"

	"github.com/noah-isme/od-tracker-api/internal/models"
)

var (
	// ErrInvalidID indicates the identifier cannot be parsed by the active store.
	ErrInvalidID = errors.New("invalid od request id")
	// ErrNotFound indicates no OD request matched the identifier.
	ErrNotFound = errors.New("od request not found")
)

// ODRequestFilter narrows a listing to exact matches. Empty fields are ignored.
type ODRequestFilter struct {
	RollNo       string
	StudentEmail string
}

// ODRequestRepository persists OD requests.
type ODRequestRepository interface {
	Create(ctx context.Context, request *models.ODRequest) error
	List(ctx context.Context, filter ODRequestFilter) ([]models.ODRequest, error)
	FindByID(ctx context.Context, id string) (models.ODRequest, error)
	// UpdateStatus moves a request to next only while it still holds current.
	// It reports whether a document matched.
	UpdateStatus(ctx context.Context, id string, current, next models.ODStatus) (bool, error)
	CountByStatus(ctx context.Context) (map[models.ODStatus]int64, error)
	Ping(ctx context.Context) error
}
