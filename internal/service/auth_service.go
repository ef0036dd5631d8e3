package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/od-tracker-api/internal/dto"
)

const (
	placeholderStudentID = "STU123"
	loginSuccessStatus   = "login successful"
	facultyRole          = "faculty"
)

var (
	// ErrInvalidCollegeEmail indicates the email does not follow name.deptYYYY@domain.
	ErrInvalidCollegeEmail = errors.New("invalid college email format")
	// ErrInvalidFacultyCredentials indicates a faculty username/password mismatch.
	ErrInvalidFacultyCredentials = errors.New("invalid faculty credentials")
)

// FacultyCredentials is the single configured faculty account.
// PasswordHash (bcrypt) takes precedence over Password when both are set.
type FacultyCredentials struct {
	Username     string
	Password     string
	PasswordHash string
}

// AuthService performs the mock student and faculty logins.
type AuthService interface {
	StudentLogin(ctx context.Context, req dto.StudentLoginRequest) (dto.StudentLoginResponse, error)
	FacultyLogin(ctx context.Context, req dto.FacultyLoginRequest) (dto.FacultyLoginResponse, error)
	EmailDomain() string
}

type authService struct {
	emailDomain  string
	emailPattern *regexp.Regexp
	faculty      FacultyCredentials
	logger       zerolog.Logger
}

// NewAuthService constructs the login service for the given college email domain.
func NewAuthService(emailDomain string, faculty FacultyCredentials, logger zerolog.Logger) (AuthService, error) {
	emailDomain = strings.ToLower(strings.TrimSpace(emailDomain))
	if emailDomain == "" {
		return nil, fmt.Errorf("email domain must not be empty")
	}
	if strings.TrimSpace(faculty.Username) == "" {
		return nil, fmt.Errorf("faculty username must not be empty")
	}
	if faculty.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(faculty.PasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid faculty password hash: %w", err)
		}
	} else if faculty.Password == "" {
		return nil, fmt.Errorf("faculty password must not be empty")
	}

	pattern, err := regexp.Compile(`^[a-z]+\.[a-z]+[0-9]{4}@` + regexp.QuoteMeta(emailDomain) + `$`)
	if err != nil {
		return nil, fmt.Errorf("compile college email pattern: %w", err)
	}

	return &authService{
		emailDomain:  emailDomain,
		emailPattern: pattern,
		faculty:      faculty,
		logger:       logger.With().Str("component", "auth_service").Logger(),
	}, nil
}

func (s *authService) EmailDomain() string {
	return s.emailDomain
}

func (s *authService) StudentLogin(_ context.Context, req dto.StudentLoginRequest) (dto.StudentLoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !s.emailPattern.MatchString(email) {
		return dto.StudentLoginResponse{}, ErrInvalidCollegeEmail
	}

	username, _, _ := strings.Cut(email, "@")
	s.logger.Info().Str("email", maskEmail(email)).Msg("student login")

	return dto.StudentLoginResponse{
		StudentID: placeholderStudentID,
		Email:     email,
		Username:  username,
		Status:    loginSuccessStatus,
	}, nil
}

func (s *authService) FacultyLogin(_ context.Context, req dto.FacultyLoginRequest) (dto.FacultyLoginResponse, error) {
	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.faculty.Username)) == 1
	passwordOK := s.passwordMatches(req.Password)
	if !usernameOK || !passwordOK {
		s.logger.Warn().Msg("faculty login rejected")
		return dto.FacultyLoginResponse{}, ErrInvalidFacultyCredentials
	}

	return dto.FacultyLoginResponse{
		Username: req.Username,
		Role:     facultyRole,
		Status:   loginSuccessStatus,
	}, nil
}

func (s *authService) passwordMatches(password string) bool {
	if s.faculty.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.faculty.PasswordHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.faculty.Password)) == 1
}

func maskEmail(email string) string {
	if email == "" {
		return ""
	}
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "***"
	}
	if len(local) <= 2 {
		local = local[:1] + "***"
	} else {
		local = local[:1] + "***" + local[len(local)-1:]
	}
	return local + "@" + domain
}
