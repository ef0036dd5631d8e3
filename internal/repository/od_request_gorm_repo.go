package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/od-tracker-api/internal/models"
)

type odRequestRecord struct {
	ID           string    `gorm:"primaryKey;size:36"`
	StudentEmail string    `gorm:"size:255;not null"`
	Name         string    `gorm:"size:255;not null"`
	DeptName     string    `gorm:"size:128;not null"`
	RollNo       string    `gorm:"size:64;not null"`
	Section      string    `gorm:"size:32;not null"`
	Reason       string    `gorm:"type:text;not null"`
	Venue        string    `gorm:"size:255;not null"`
	Description  string    `gorm:"type:text"`
	Status       string    `gorm:"size:16;not null;default:pending"`
	AppliedAt    time.Time `gorm:"not null"`
}

func (odRequestRecord) TableName() string {
	return "od_requests"
}

// MigrateODRequests creates or updates the od_requests table.
func MigrateODRequests(db *gorm.DB) error {
	return db.AutoMigrate(&odRequestRecord{})
}

type gormODRequestRepository struct {
	db *gorm.DB
}

// NewGormODRequestRepository constructs a repository backed by GORM.
func NewGormODRequestRepository(db *gorm.DB) ODRequestRepository {
	return &gormODRequestRepository{db: db}
}

func (r *gormODRequestRepository) Create(ctx context.Context, request *models.ODRequest) error {
	record := newODRequestRecord(*request)
	record.ID = uuid.NewString()

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("insert od request: %w", err)
	}

	request.ID = record.ID
	return nil
}

func (r *gormODRequestRepository) List(ctx context.Context, filter ODRequestFilter) ([]models.ODRequest, error) {
	query := r.db.WithContext(ctx).Model(&odRequestRecord{})
	if filter.RollNo != "" {
		query = query.Where("roll_no = ?", filter.RollNo)
	}
	if filter.StudentEmail != "" {
		query = query.Where("student_email = ?", filter.StudentEmail)
	}

	var records []odRequestRecord
	if err := query.Order("applied_at ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("find od requests: %w", err)
	}

	out := make([]models.ODRequest, 0, len(records))
	for _, record := range records {
		out = append(out, record.toModel())
	}
	return out, nil
}

func (r *gormODRequestRepository) FindByID(ctx context.Context, id string) (models.ODRequest, error) {
	key, err := recordKey(id)
	if err != nil {
		return models.ODRequest{}, err
	}

	var record odRequestRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ODRequest{}, ErrNotFound
		}
		return models.ODRequest{}, fmt.Errorf("find od request: %w", err)
	}

	return record.toModel(), nil
}

func (r *gormODRequestRepository) UpdateStatus(ctx context.Context, id string, current, next models.ODStatus) (bool, error) {
	key, err := recordKey(id)
	if err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Model(&odRequestRecord{}).
		Where("id = ? AND status = ?", key, string(current)).
		Update("status", string(next))
	if result.Error != nil {
		return false, fmt.Errorf("update od request status: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *gormODRequestRepository) CountByStatus(ctx context.Context) (map[models.ODStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&odRequestRecord{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count od requests by status: %w", err)
	}

	counts := make(map[models.ODStatus]int64, len(rows))
	for _, row := range rows {
		counts[models.ODStatus(row.Status)] += row.Count
	}
	return counts, nil
}

func (r *gormODRequestRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// recordKey parses any accepted uuid spelling into the canonical lowercase form stored in the table.
func recordKey(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

func newODRequestRecord(request models.ODRequest) odRequestRecord {
	return odRequestRecord{
		StudentEmail: request.StudentEmail,
		Name:         request.Name,
		DeptName:     request.DeptName,
		RollNo:       request.RollNo,
		Section:      request.Section,
		Reason:       request.Reason,
		Venue:        request.Venue,
		Description:  request.Description,
		Status:       string(request.Status),
		AppliedAt:    request.AppliedAt,
	}
}

func (r odRequestRecord) toModel() models.ODRequest {
	return models.ODRequest{
		ID:           r.ID,
		StudentEmail: r.StudentEmail,
		Name:         r.Name,
		DeptName:     r.DeptName,
		RollNo:       r.RollNo,
		Section:      r.Section,
		Reason:       r.Reason,
		Venue:        r.Venue,
		Description:  r.Description,
		Status:       models.ODStatus(r.Status),
		AppliedAt:    r.AppliedAt.UTC(),
	}
}
