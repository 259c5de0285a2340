package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/model"
	"github.com/sakif/company-reviews/internal/repository"
)

// CompanyService manages the companies reviews point at. Companies are
// administered from the CLI; the HTTP API only references them by id.
type CompanyService struct {
	repo   repository.CompanyRepository
	logger *slog.Logger
}

func NewCompanyService(repo repository.CompanyRepository, logger *slog.Logger) *CompanyService {
	return &CompanyService{repo: repo, logger: logger}
}

func (s *CompanyService) Create(ctx context.Context, name string) (*model.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "This field may not be blank.")
	}
	if utf8.RuneCountInString(name) > model.MaxCompanyNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("Ensure this field has no more than %d characters.", model.MaxCompanyNameLength))
	}

	company := &model.Company{Name: name}
	if err := s.repo.CreateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("service/company: %w", err)
	}

	s.logger.Info("company created",
		slog.Int64("id", company.ID),
		slog.String("name", company.Name),
	)
	return company, nil
}

func (s *CompanyService) List(ctx context.Context) ([]model.Company, error) {
	return s.repo.ListCompanies(ctx)
}

// Delete removes a company and every review of it.
func (s *CompanyService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCompany(ctx, id); err != nil {
		return err
	}
	s.logger.Info("company deleted", slog.Int64("id", id))
	return nil
}
