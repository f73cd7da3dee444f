// Package service holds Warbler's business rules on top of the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenIssuer   = "warbler-api"
	TokenAudience = "warbler-client"
	TokenTTL      = 7 * 24 * time.Hour
)

// AuthOutcome describes how a credential check ended.
type AuthOutcome int

const (
	AuthOK AuthOutcome = iota
	AuthUnknownUser
	AuthBadPassword
)

func (o AuthOutcome) String() string {
	switch o {
	case AuthOK:
		return "ok"
	case AuthUnknownUser:
		return "unknown_user"
	case AuthBadPassword:
		return "bad_password"
	default:
		return "unknown"
	}
}

// AuthResult is returned by Authenticate. User is set only when Outcome is AuthOK.
type AuthResult struct {
	User    *models.User
	Outcome AuthOutcome
}

// OK reports whether the credentials matched.
func (r AuthResult) OK() bool {
	return r.Outcome == AuthOK && r.User != nil
}

// AuthService handles signup, credential checks and API tokens.
type AuthService struct {
	userRepo   repository.UserRepository
	jwtSecret  []byte
	bcryptCost int
	now        func() time.Time
}

type SignupInput struct {
	Username string
	Email    string
	Password string
	ImageURL string
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithBcryptCost overrides the bcrypt work factor. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.bcryptCost = cost }
}

// WithClock overrides the time source used for token claims.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, opts ...AuthOption) *AuthService {
	s := &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup validates the input, hashes the password and creates the user.
// Duplicate usernames or emails come back as a CONFLICT AppError.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Signup")
	defer func() { observability.EndSpan(span, err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImageURL(in.ImageURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user = &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
		ImageURL: in.ImageURL,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.SignupsTotal.Inc()
	return user, nil
}

// Authenticate checks a username/password pair. Wrong credentials are
// reported through AuthResult.Outcome; err is only set when the lookup fails.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (res AuthResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Authenticate")
	defer func() {
		span.SetAttributes(attribute.String("auth.outcome", res.Outcome.String()))
		observability.EndSpan(span, err)
	}()

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return AuthResult{}, err
	}
	if user == nil {
		observability.LoginAttempts.WithLabelValues(AuthUnknownUser.String()).Inc()
		return AuthResult{Outcome: AuthUnknownUser}, nil
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		observability.LoginAttempts.WithLabelValues(AuthBadPassword.String()).Inc()
		return AuthResult{Outcome: AuthBadPassword}, nil
	}

	observability.LoginAttempts.WithLabelValues(AuthOK.String()).Inc()
	return AuthResult{User: user, Outcome: AuthOK}, nil
}

// IssueToken creates a signed JWT for the JSON API.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      now.Add(TokenTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ParseToken validates a token issued by IssueToken and returns the user id.
func (s *AuthService) ParseToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("subject claim: %w", err)
	}
	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid user ID in token")
	}
	return uint(id), nil
}
