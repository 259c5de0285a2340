package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/model"
	"github.com/sakif/company-reviews/internal/repository"
)

var _ repository.CompanyRepository = (*DB)(nil)

// CreateCompany inserts company and writes the generated id back into it.
func (db *DB) CreateCompany(ctx context.Context, company *model.Company) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO companies (name) VALUES (?)`,
		company.Name,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating company: %w", err)
	}

	if company.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading company id: %w", err)
	}
	return nil
}

// GetCompanyByID retrieves a company by id.
// Returns apperror.ErrNotFound if no company exists with that id.
func (db *DB) GetCompanyByID(ctx context.Context, id int64) (*model.Company, error) {
	var c model.Company

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM companies WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("company", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting company %d: %w", id, err)
	}

	return &c, nil
}

// ListCompanies returns every company ordered by id.
func (db *DB) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM companies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing companies: %w", err)
	}
	defer rows.Close()

	companies := []model.Company{}
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning company row: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating companies: %w", err)
	}

	return companies, nil
}

// DeleteCompany removes a company and, by cascade, every review of it.
func (db *DB) DeleteCompany(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting company %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("company", strconv.FormatInt(id, 10))
	}

	return nil
}
