package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	"github.com/noah-isme/od-tracker-api/internal/observability"
	"github.com/noah-isme/od-tracker-api/internal/repository"
	"github.com/noah-isme/od-tracker-api/internal/validation"
)

const (
	statsCacheKey      = "od:stats"
	statsGenerationKey = "od:stats:generation"
)

var (
	// ErrInvalidRequestID indicates the identifier is malformed for the active store.
	ErrInvalidRequestID = errors.New("invalid od request id")
	// ErrInvalidStatus indicates a status outside pending/approved/rejected.
	ErrInvalidStatus = errors.New("invalid od status")
	// ErrODRequestNotFound indicates no request matched the identifier.
	ErrODRequestNotFound = errors.New("od request not found")
	// ErrInvalidTransition indicates the request already holds a terminal status.
	ErrInvalidTransition = errors.New("od status transition not allowed")

	errStatsChanged = errors.New("od stats changed while counting")
)

// TransitionError describes a refused status change.
type TransitionError struct {
	From models.ODStatus
	To   models.ODStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

// Is lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ODRequestService implements submission, listing and review of OD requests.
type ODRequestService interface {
	Submit(ctx context.Context, req dto.ODRequestCreateRequest) (dto.ODRequestCreateResponse, error)
	ListAll(ctx context.Context) ([]dto.ODRequestDocument, error)
	ListByRollNo(ctx context.Context, rollNo string) ([]dto.ODRequestView, error)
	ListByEmail(ctx context.Context, email string) ([]dto.ODRequestView, error)
	UpdateStatus(ctx context.Context, id string, req dto.ODStatusUpdateRequest) (dto.ODStatusUpdateResponse, error)
	Stats(ctx context.Context) (dto.ODStatsResponse, error)
}

type odRequestService struct {
	repo      repository.ODRequestRepository
	validator *validator.Validate
	cache     *redis.Client
	cacheTTL  time.Duration
	events    ODEventPublisher
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewODRequestService wires the OD request workflow. cache may be nil.
func NewODRequestService(repo repository.ODRequestRepository, validate *validator.Validate, cache *redis.Client, cacheTTL time.Duration, events ODEventPublisher, logger zerolog.Logger) ODRequestService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	if events == nil {
		events = NewLogEventPublisher(logger)
	}

	return &odRequestService{
		repo:      repo,
		validator: validate,
		cache:     cache,
		cacheTTL:  cacheTTL,
		events:    events,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "od_request_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/od-tracker-api/internal/service/od_request"),
		now:       time.Now,
	}
}

func (s *odRequestService) Submit(ctx context.Context, req dto.ODRequestCreateRequest) (dto.ODRequestCreateResponse, error) {
	ctx, span := s.tracer.Start(ctx, "od_request.submit")
	defer span.End()

	req = s.clean(req)
	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		observability.ODSubmissions().WithLabelValues("invalid").Inc()
		return dto.ODRequestCreateResponse{}, err
	}

	request := models.ODRequest{
		StudentEmail: req.StudentEmail,
		Name:         req.Name,
		DeptName:     req.DeptName,
		RollNo:       req.RollNo,
		Section:      req.Section,
		Reason:       req.Reason,
		Venue:        req.Venue,
		Description:  req.Description,
		Status:       models.ODStatusPending,
		AppliedAt:    s.now().UTC().Truncate(time.Millisecond),
	}

	if err := s.repo.Create(ctx, &request); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		observability.ODSubmissions().WithLabelValues("error").Inc()
		return dto.ODRequestCreateResponse{}, err
	}

	span.SetAttributes(attribute.String("od_request.id", request.ID))
	observability.ODSubmissions().WithLabelValues("accepted").Inc()
	s.invalidateStats(ctx)
	s.publish(ctx, ODEvent{
		Type:       ODEventSubmitted,
		RequestID:  request.ID,
		RollNo:     request.RollNo,
		Status:     request.Status,
		OccurredAt: request.AppliedAt,
	})

	s.logger.Info().
		Str("od_request_id", request.ID).
		Str("roll_no", request.RollNo).
		Str("email", maskEmail(request.StudentEmail)).
		Msg("od request submitted")

	return dto.ODRequestCreateResponse{Message: "OD Request submitted!", ID: request.ID}, nil
}

func (s *odRequestService) ListAll(ctx context.Context) ([]dto.ODRequestDocument, error) {
	ctx, span := s.tracer.Start(ctx, "od_request.list_all")
	defer span.End()

	requests, err := s.repo.List(ctx, repository.ODRequestFilter{})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return dto.NewODRequestDocumentSlice(requests), nil
}

func (s *odRequestService) ListByRollNo(ctx context.Context, rollNo string) ([]dto.ODRequestView, error) {
	rollNo = strings.TrimSpace(rollNo)
	if rollNo == "" {
		return []dto.ODRequestView{}, nil
	}
	return s.listViews(ctx, repository.ODRequestFilter{RollNo: rollNo})
}

func (s *odRequestService) ListByEmail(ctx context.Context, email string) ([]dto.ODRequestView, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return []dto.ODRequestView{}, nil
	}
	return s.listViews(ctx, repository.ODRequestFilter{StudentEmail: email})
}

func (s *odRequestService) listViews(ctx context.Context, filter repository.ODRequestFilter) ([]dto.ODRequestView, error) {
	ctx, span := s.tracer.Start(ctx, "od_request.list_student")
	defer span.End()

	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return dto.NewODRequestViewSlice(requests), nil
}

func (s *odRequestService) UpdateStatus(ctx context.Context, id string, req dto.ODStatusUpdateRequest) (dto.ODStatusUpdateResponse, error) {
	ctx, span := s.tracer.Start(ctx, "od_request.update_status")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		observability.ODStatusUpdates().WithLabelValues("invalid", "rejected").Inc()
		return dto.ODStatusUpdateResponse{}, fmt.Errorf("%w: %s", ErrInvalidStatus, validation.Describe(err))
	}
	next, _ := models.ParseODStatus(req.Status)
	id = strings.TrimSpace(id)
	span.SetAttributes(attribute.String("od_request.id", id), attribute.String("od_request.status", next.String()))

	// A lost race on the conditional update is re-read once. The winner
	// leaves the request terminal and terminal requests never match the
	// conditional update, so the second pass returns before the loop ends.
	for attempt := 0; attempt < 2; attempt++ {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return dto.ODStatusUpdateResponse{}, s.statusUpdateFailed(span, next, mapRepositoryError(err))
		}

		if current.Status == next {
			observability.ODStatusUpdates().WithLabelValues(next.String(), "unchanged").Inc()
			return dto.ODStatusUpdateResponse{Message: fmt.Sprintf("OD status already %s", next)}, nil
		}

		if !current.Status.CanTransitionTo(next) {
			return dto.ODStatusUpdateResponse{}, s.statusUpdateFailed(span, next, &TransitionError{From: current.Status, To: next})
		}

		matched, err := s.repo.UpdateStatus(ctx, id, current.Status, next)
		if err != nil {
			return dto.ODStatusUpdateResponse{}, s.statusUpdateFailed(span, next, mapRepositoryError(err))
		}
		if !matched {
			s.logger.Debug().Str("od_request_id", id).Msg("status changed concurrently, re-evaluating")
			continue
		}

		observability.ODStatusUpdates().WithLabelValues(next.String(), "updated").Inc()
		s.invalidateStats(ctx)
		s.publish(ctx, ODEvent{
			Type:           ODEventStatusChanged,
			RequestID:      id,
			RollNo:         current.RollNo,
			Status:         next,
			PreviousStatus: current.Status,
			OccurredAt:     s.now().UTC(),
		})
		s.logger.Info().
			Str("od_request_id", id).
			Str("from", current.Status.String()).
			Str("to", next.String()).
			Msg("od request status updated")

		return dto.ODStatusUpdateResponse{Message: fmt.Sprintf("OD status updated to %s", next)}, nil
	}

	return dto.ODStatusUpdateResponse{}, s.statusUpdateFailed(span, next, fmt.Errorf("od request %s did not settle after concurrent update", id))
}

func (s *odRequestService) statusUpdateFailed(span trace.Span, next models.ODStatus, err error) error {
	result := "error"
	switch {
	case errors.Is(err, ErrODRequestNotFound):
		result = "not_found"
	case errors.Is(err, ErrInvalidRequestID):
		result = "invalid_id"
	case errors.Is(err, ErrInvalidTransition):
		result = "conflict"
	default:
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, result)
	observability.ODStatusUpdates().WithLabelValues(next.String(), result).Inc()
	return err
}

func (s *odRequestService) Stats(ctx context.Context) (dto.ODStatsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "od_request.stats")
	defer span.End()

	generation := ""
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, statsCacheKey).Result(); err == nil {
			var response dto.ODStatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.ODStatsCache().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read stats cache")
		}
		observability.ODStatsCache().WithLabelValues("miss").Inc()
		generation = s.statsGeneration(ctx, s.cache)
	}

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		span.RecordError(err)
		return dto.ODStatsResponse{}, err
	}
	response := dto.NewODStatsResponse(counts)

	if s.cache != nil {
		s.storeStats(ctx, generation, response)
	}

	return response, nil
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// statsGeneration reads the counter bumped by every invalidation; a missing key reads as "".
func (s *odRequestService) statsGeneration(ctx context.Context, cmd redisGetter) string {
	generation, err := cmd.Get(ctx, statsGenerationKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("failed to read stats generation")
	}
	return generation
}

// storeStats caches response only if no invalidation ran since generation was read.
func (s *odRequestService) storeStats(ctx context.Context, generation string, response dto.ODStatsResponse) {
	payload, err := json.Marshal(response)
	if err != nil {
		return
	}

	err = s.cache.Watch(ctx, func(tx *redis.Tx) error {
		if s.statsGeneration(ctx, tx) != generation {
			return errStatsChanged
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statsCacheKey, payload, s.cacheTTL)
			return nil
		})
		return err
	}, statsGenerationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStatsChanged), errors.Is(err, redis.TxFailedErr):
		s.logger.Debug().Msg("od stats changed while counting, not cached")
	default:
		s.logger.Warn().Err(err).Msg("failed to store stats cache")
	}
}

func (s *odRequestService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_, err := s.cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, statsGenerationKey)
		pipe.Del(ctx, statsCacheKey)
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate stats cache")
	}
}

func (s *odRequestService) publish(ctx context.Context, event ODEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event", event.Type).Str("od_request_id", event.RequestID).Msg("failed to publish od event")
	}
}

// clean trims every field and strips markup from free text.
func (s *odRequestService) clean(req dto.ODRequestCreateRequest) dto.ODRequestCreateRequest {
	return dto.ODRequestCreateRequest{
		StudentEmail: strings.ToLower(strings.TrimSpace(req.StudentEmail)),
		Name:         s.plainText(req.Name),
		DeptName:     s.plainText(req.DeptName),
		RollNo:       strings.TrimSpace(req.RollNo),
		Section:      s.plainText(req.Section),
		Reason:       s.plainText(req.Reason),
		Venue:        s.plainText(req.Venue),
		Description:  s.plainText(req.Description),
	}
}

// plainText decodes entities before sanitising so encoded tags are stripped too.
func (s *odRequestService) plainText(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(html.UnescapeString(value)))
}

func mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		return ErrInvalidRequestID
	case errors.Is(err, repository.ErrNotFound):
		return ErrODRequestNotFound
	default:
		return err
	}
}
