package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/workforce-services/internal/core/company"
	pg "github.com/ogurasousui/workforce-services/internal/platform/db/postgres"
)

// CompanyRepository は PostgreSQL を利用した会社永続化の実装です。
// employee_ids は順序を保つ bigint[] として 1 カラムに保持します。
type CompanyRepository struct {
	db pg.Queryer
}

// NewCompanyRepository は CompanyRepository を生成します。
func NewCompanyRepository(db pg.Queryer) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) queryer(ctx context.Context) pg.Queryer {
	return pg.QueryerFromContext(ctx, r.db)
}

// Create は会社を新規作成します。
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) (*company.Company, error) {
	row := r.queryer(ctx).QueryRow(ctx, `
        INSERT INTO companies (company_name, budget, employee_ids, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, company_name, budget::text, employee_ids, created_at, updated_at
    `, c.CompanyName, c.Budget.String(), c.EmployeeIDs, c.CreatedAt, c.UpdatedAt)

	return scanCompany(row)
}

// Update は会社情報と社員参照リストを更新します。
func (r *CompanyRepository) Update(ctx context.Context, c *company.Company) (*company.Company, error) {
	row := r.queryer(ctx).QueryRow(ctx, `
        UPDATE companies
           SET company_name = $1,
               budget = $2,
               employee_ids = $3,
               updated_at = $4
         WHERE id = $5
        RETURNING id, company_name, budget::text, employee_ids, created_at, updated_at
    `, c.CompanyName, c.Budget.String(), c.EmployeeIDs, c.UpdatedAt, c.ID)

	return scanCompany(row)
}

// Delete は会社を削除します。
func (r *CompanyRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.queryer(ctx).Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return company.ErrCompanyNotFound
	}
	return nil
}

// FindByID は ID で会社を取得します。
func (r *CompanyRepository) FindByID(ctx context.Context, id int64) (*company.Company, error) {
	row := r.queryer(ctx).QueryRow(ctx, `
        SELECT id, company_name, budget::text, employee_ids, created_at, updated_at
          FROM companies
         WHERE id = $1
         LIMIT 1
    `, id)

	return scanCompany(row)
}

// FindByIDs は ID リストで存在する会社のみを取得します。1 回のクエリで解決します。
func (r *CompanyRepository) FindByIDs(ctx context.Context, ids []int64) ([]*company.Company, error) {
	rows, err := r.queryer(ctx).Query(ctx, `
        SELECT id, company_name, budget::text, employee_ids, created_at, updated_at
          FROM companies
         WHERE id = ANY($1)
         ORDER BY id
    `, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCompanies(rows)
}

// List は会社の一覧と総件数を取得します。
func (r *CompanyRepository) List(ctx context.Context, filter company.ListCompaniesFilter) ([]*company.Company, int64, error) {
	q := r.queryer(ctx)

	query := fmt.Sprintf(`
        SELECT id, company_name, budget::text, employee_ids, created_at, updated_at
          FROM companies
         ORDER BY %s
         LIMIT $1
        OFFSET $2
    `, companyOrderByClause(filter.Sort))

	rows, err := q.Query(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	companies, err := collectCompanies(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&total); err != nil {
		return nil, 0, err
	}

	return companies, total, nil
}

func companyOrderByClause(sort company.SortOrder) string {
	column := "id"
	switch sort.Column {
	case "id", "company_name", "budget", "created_at":
		column = sort.Column
	}

	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}

	return fmt.Sprintf("%s %s, id ASC", column, direction)
}

func collectCompanies(rows pgx.Rows) ([]*company.Company, error) {
	var companies []*company.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}

func scanCompany(row pgx.Row) (*company.Company, error) {
	var (
		id                   int64
		companyName          string
		budgetRaw            string
		employeeIDs          []int64
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&id, &companyName, &budgetRaw, &employeeIDs, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, company.ErrCompanyNotFound
		}
		return nil, err
	}

	budget, err := decimal.NewFromString(budgetRaw)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse budget %q: %w", budgetRaw, err)
	}

	if employeeIDs == nil {
		employeeIDs = []int64{}
	}

	return &company.Company{
		ID:          id,
		CompanyName: companyName,
		Budget:      budget,
		EmployeeIDs: employeeIDs,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
