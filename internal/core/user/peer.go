package user

import "context"

// CompanyClient は会社サービスの HTTP API への同期呼び出しの抽象です。
// FetchCompany は対象が存在しない場合 ErrCompanyNotFound を返します。
// FetchCompaniesByIDs は見つかった会社のみを返し、欠損 ID はエラーになりません。
type CompanyClient interface {
	FetchCompany(ctx context.Context, id int64) (*CompanySummary, error)
	FetchCompaniesByIDs(ctx context.Context, ids []int64) ([]*CompanySummary, error)
}
