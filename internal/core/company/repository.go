package company

import "context"

// Repository は会社エンティティの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, company *Company) (*Company, error)
	Update(ctx context.Context, company *Company) (*Company, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Company, error)
	// FindByIDs は見つかった会社のみを返します。欠損 ID はエラーになりません。
	FindByIDs(ctx context.Context, ids []int64) ([]*Company, error)
	List(ctx context.Context, filter ListCompaniesFilter) ([]*Company, int64, error)
}

// SortOrder はリポジトリに渡す正規化済みのソート条件です。
type SortOrder struct {
	Column string
	Desc   bool
}

// ListCompaniesFilter は一覧取得時の検索条件を表します。
type ListCompaniesFilter struct {
	Limit  int
	Offset int
	Sort   SortOrder
}
