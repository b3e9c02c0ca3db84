package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/workforce-services/internal/core/user"
	pg "github.com/ogurasousui/workforce-services/internal/platform/db/postgres"
)

const uniqueViolationCode = "23505"

// UserRepository は PostgreSQL を利用したユーザー永続化の実装です。
type UserRepository struct {
	db pg.Queryer
}

// NewUserRepository は UserRepository を生成します。
func NewUserRepository(db pg.Queryer) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) queryer(ctx context.Context) pg.Queryer {
	return pg.QueryerFromContext(ctx, r.db)
}

// Create はユーザーを新規作成します。
func (r *UserRepository) Create(ctx context.Context, u *user.User) (*user.User, error) {
	row := r.queryer(ctx).QueryRow(ctx, `
        INSERT INTO users (first_name, last_name, phone_number, company_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, first_name, last_name, phone_number, company_id, created_at, updated_at
    `, u.FirstName, u.LastName, u.PhoneNumber, u.CompanyID, u.CreatedAt, u.UpdatedAt)

	created, err := scanUser(row)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	return created, nil
}

// Update はユーザー情報を更新します。
func (r *UserRepository) Update(ctx context.Context, u *user.User) (*user.User, error) {
	row := r.queryer(ctx).QueryRow(ctx, `
        UPDATE users
           SET first_name = $1,
               last_name = $2,
               phone_number = $3,
               company_id = $4,
               updated_at = $5
         WHERE id = $6
        RETURNING id, first_name, last_name, phone_number, company_id, created_at, updated_at
    `, u.FirstName, u.LastName, u.PhoneNumber, u.CompanyID, u.UpdatedAt, u.ID)

	updated, err := scanUser(row)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	return updated, nil
}

// Delete はユーザーを削除します。
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.queryer(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translateUserPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// FindByID は ID でユーザーを取得します。
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*user.User, error) {
	row := r.queryer(ctx).QueryRow(ctx, `
        SELECT id, first_name, last_name, phone_number, company_id, created_at, updated_at
          FROM users
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanUser(row)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	return found, nil
}

// FindByIDs は ID リストで存在するユーザーのみを取得します。1 回のクエリで解決します。
func (r *UserRepository) FindByIDs(ctx context.Context, ids []int64) ([]*user.User, error) {
	rows, err := r.queryer(ctx).Query(ctx, `
        SELECT id, first_name, last_name, phone_number, company_id, created_at, updated_at
          FROM users
         WHERE id = ANY($1)
         ORDER BY id
    `, ids)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// FindByPhoneNumber は電話番号でユーザーを取得します。
func (r *UserRepository) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*user.User, error) {
	row := r.queryer(ctx).QueryRow(ctx, `
        SELECT id, first_name, last_name, phone_number, company_id, created_at, updated_at
          FROM users
         WHERE phone_number = $1
         LIMIT 1
    `, phoneNumber)

	found, err := scanUser(row)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	return found, nil
}

// ExistsByID はユーザーの存在を確認します。
func (r *UserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	row := r.queryer(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// List はユーザーの一覧と総件数を取得します。
func (r *UserRepository) List(ctx context.Context, filter user.ListUsersFilter) ([]*user.User, int64, error) {
	q := r.queryer(ctx)

	query := fmt.Sprintf(`
        SELECT id, first_name, last_name, phone_number, company_id, created_at, updated_at
          FROM users
         ORDER BY %s
         LIMIT $1
        OFFSET $2
    `, userOrderByClause(filter.Sort))

	rows, err := q.Query(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, translateUserPgError(err)
	}
	defer rows.Close()

	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// userOrderByClause は正規化済みのソート条件を ORDER BY 句へ変換します。
// 未知のカラムは id にフォールバックします。
func userOrderByClause(sort user.SortOrder) string {
	column := "id"
	switch sort.Column {
	case "id", "first_name", "last_name", "phone_number", "created_at":
		column = sort.Column
	}

	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}

	return fmt.Sprintf("%s %s, id ASC", column, direction)
}

func collectUsers(rows pgx.Rows) ([]*user.User, error) {
	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		id                   int64
		firstName            string
		lastName             string
		phoneNumber          string
		companyID            sql.NullInt64
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&id, &firstName, &lastName, &phoneNumber, &companyID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}

	u := &user.User{
		ID:          id,
		FirstName:   firstName,
		LastName:    lastName,
		PhoneNumber: phoneNumber,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	if companyID.Valid {
		value := companyID.Int64
		u.CompanyID = &value
	}

	return u, nil
}

func translateUserPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolationCode {
			return user.ErrPhoneNumberAlreadyExists
		}
	}
	return err
}
