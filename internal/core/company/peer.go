package company

import "context"

// UserClient はユーザーサービスの HTTP API への同期呼び出しの抽象です。
// FetchUsersByIDs は見つかったユーザーのみを返し、欠損 ID はエラーになりません。
// SetUserCompany はユーザーの companyId を設定（companyID が nil の場合は解除）します。
type UserClient interface {
	FetchUser(ctx context.Context, id int64) (*UserSummary, error)
	FetchUsersByIDs(ctx context.Context, ids []int64) ([]*UserSummary, error)
	SetUserCompany(ctx context.Context, userID int64, companyID *int64) error
}
