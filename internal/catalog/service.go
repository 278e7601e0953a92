package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/errs"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateDefinition(ctx context.Context, def *TestDefinition) error {
	if err := validateDefinition(def); err != nil {
		return err
	}
	def.Code = strings.ToUpper(def.Code)
	if existing, err := s.repo.GetByCode(ctx, def.Code); err == nil && existing != nil {
		return errs.Conflict("test code already exists")
	}
	def.Active = true
	return s.repo.Create(ctx, def)
}

func (s *Service) UpdateDefinition(ctx context.Context, def *TestDefinition) error {
	if def.ID == uuid.Nil {
		return errs.Validation("id is required")
	}
	if err := validateDefinition(def); err != nil {
		return err
	}
	current, err := s.repo.Get(ctx, def.ID)
	if err != nil {
		return err
	}
	// The code is the stable key the lab orders against; it never changes.
	def.Code = current.Code
	return s.repo.Update(ctx, def)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*TestDefinition, error) {
	if code == "" {
		return nil, errs.Validation("code is required")
	}
	return s.repo.GetByCode(ctx, strings.ToUpper(code))
}

func (s *Service) ListActive(ctx context.Context) ([]*TestDefinition, error) {
	return s.repo.ListActive(ctx)
}

func validateDefinition(def *TestDefinition) error {
	if strings.TrimSpace(def.Code) == "" {
		return errs.Validation("code is required")
	}
	if strings.TrimSpace(def.Name) == "" {
		return errs.Validation("name is required")
	}
	if def.Price < 0 {
		return errs.Validation("price must not be negative")
	}
	if def.TurnaroundMinutes <= 0 {
		return errs.Validation("turnaround_minutes must be positive")
	}
	return nil
}
