package user

import "context"

// Repository はユーザーエンティティの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*User, error)
	// FindByIDs は見つかったユーザーのみを返します。欠損 ID はエラーになりません。
	FindByIDs(ctx context.Context, ids []int64) ([]*User, error)
	FindByPhoneNumber(ctx context.Context, phoneNumber string) (*User, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, filter ListUsersFilter) ([]*User, int64, error)
}

// SortOrder はリポジトリに渡す正規化済みのソート条件です。
type SortOrder struct {
	Column string
	Desc   bool
}

// ListUsersFilter は一覧取得時の検索条件を表します。
type ListUsersFilter struct {
	Limit  int
	Offset int
	Sort   SortOrder
}
