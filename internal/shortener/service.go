package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sundayezeilo/tinylink/codegen"
	"github.com/sundayezeilo/tinylink/internal/errx"
)

const (
	DefaultCodeLength     = codegen.DefaultLength
	DefaultCodeMaxRetries = 3
)

// Messages returned to clients for rejected input.
var (
	ErrInvalidTargetURL = errors.New("Valid target URL is required.")
	ErrInvalidCode      = errors.New("Invalid short code format. Must be 6-8 alphanumeric characters.")
	ErrReservedCode     = errors.New("Custom code is reserved.")
)

// CreateLinkRequest represents the parameters for creating a new link.
type CreateLinkRequest struct {
	TargetURL  string
	CustomCode string // Optional: if empty, a code will be generated
}

// Service defines the business logic operations for URL shortening.
type Service interface {
	Create(ctx context.Context, req CreateLinkRequest) (Link, error)
	List(ctx context.Context) ([]Link, error)
	Get(ctx context.Context, code string) (Link, error)
	// RecordClick counts one click on code and returns the updated link.
	// It backs both redirects and explicit click updates.
	RecordClick(ctx context.Context, code string) (Link, error)
	Delete(ctx context.Context, code string) error
	Ping(ctx context.Context) error
}

// service implements the Service interface.
type service struct {
	repo       Repository
	codes      codegen.Generator
	codeLength int
	maxRetries int
	reserved   map[string]struct{}
	now        func() time.Time
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	CodeGenerator  codegen.Generator
	CodeLength     int
	CodeMaxRetries int // attempts when generating a unique code (default: 3)
	// ReservedCodes are path segments served by other routes; links under them
	// could never be resolved.
	ReservedCodes []string
	Now           func() time.Time
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	codes := config.CodeGenerator
	if codes == nil {
		codes = codegen.NewAlphanumeric()
	}

	length := config.CodeLength
	if length < MinCodeLength || length > MaxCodeLength {
		length = DefaultCodeLength
	}

	retries := config.CodeMaxRetries
	if retries <= 0 {
		retries = DefaultCodeMaxRetries
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	reserved := make(map[string]struct{}, len(config.ReservedCodes))
	for _, code := range config.ReservedCodes {
		reserved[code] = struct{}{}
	}

	return &service{
		repo:       repo,
		codes:      codes,
		codeLength: length,
		maxRetries: retries,
		reserved:   reserved,
		now:        now,
	}
}

// Create stores a new link under the custom code, or under a generated one
// when no custom code is given.
func (s *service) Create(ctx context.Context, req CreateLinkRequest) (Link, error) {
	const op = "shortener.service.Create"

	if !targetURLPattern.MatchString(req.TargetURL) {
		return Link{}, errx.E(op, errx.Invalid, ErrInvalidTargetURL)
	}

	// Custom code path: validate and create once
	if req.CustomCode != "" {
		code := truncateCode(req.CustomCode)
		if !ValidCode(code) {
			return Link{}, errx.E(op, errx.Invalid, ErrInvalidCode)
		}
		if s.isReserved(code) {
			return Link{}, errx.E(op, errx.Invalid, ErrReservedCode)
		}

		created, err := s.repo.Create(ctx, s.newLink(code, req.TargetURL))
		if err != nil {
			return Link{}, errx.Wrap(op, err)
		}
		return created, nil
	}

	// Generated code path: retry on conflicts
	for range s.maxRetries {
		code, err := s.codes.Generate(s.codeLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Internal, err)
		}
		if code = truncateCode(code); !ValidCode(code) {
			return Link{}, errx.E(op, errx.Internal, fmt.Errorf("generator produced invalid code %q", code))
		}
		if s.isReserved(code) {
			continue
		}

		created, err := s.repo.Create(ctx, s.newLink(code, req.TargetURL))
		if err == nil {
			return created, nil
		}

		// Retry on conflict, fail on other errors
		if !errx.Is(err, errx.Conflict) {
			return Link{}, errx.Wrap(op, err)
		}
	}

	return Link{}, errx.E(op, errx.Internal,
		fmt.Errorf("could not generate unique code after %d attempts", s.maxRetries))
}

func (s *service) List(ctx context.Context) ([]Link, error) {
	const op = "shortener.service.List"

	links, err := s.repo.List(ctx)
	if err != nil {
		return nil, errx.Wrap(op, err)
	}
	return links, nil
}

func (s *service) Get(ctx context.Context, code string) (Link, error) {
	const op = "shortener.service.Get"

	if !ValidCode(code) {
		return Link{}, errx.E(op, errx.NotFound, fmt.Errorf("code %q has invalid format", code))
	}

	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return Link{}, errx.Wrap(op, err)
	}
	return link, nil
}

func (s *service) RecordClick(ctx context.Context, code string) (Link, error) {
	const op = "shortener.service.RecordClick"

	if !ValidCode(code) {
		return Link{}, errx.E(op, errx.NotFound, fmt.Errorf("code %q has invalid format", code))
	}

	link, err := s.repo.IncrementClicks(ctx, code, s.now().UTC())
	if err != nil {
		return Link{}, errx.Wrap(op, err)
	}
	return link, nil
}

// Delete is idempotent: a code that has no link, or could never have one, is not an error.
func (s *service) Delete(ctx context.Context, code string) error {
	const op = "shortener.service.Delete"

	if !ValidCode(code) {
		return nil
	}

	if err := s.repo.Delete(ctx, code); err != nil {
		return errx.Wrap(op, err)
	}
	return nil
}

func (s *service) Ping(ctx context.Context) error {
	const op = "shortener.service.Ping"

	if err := s.repo.Ping(ctx); err != nil {
		return errx.Wrap(op, err)
	}
	return nil
}

func (s *service) newLink(code, targetURL string) Link {
	return Link{
		Code:      code,
		TargetURL: targetURL,
		CreatedAt: s.now().UTC(),
	}
}

func (s *service) isReserved(code string) bool {
	_, ok := s.reserved[code]
	return ok
}

func truncateCode(code string) string {
	if len(code) > MaxCodeLength {
		return code[:MaxCodeLength]
	}
	return code
}
