package peerhttp

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/workforce-services/internal/core/user"
)

// CompanyClient は会社サービスの HTTP API を呼び出す user.CompanyClient の実装です。
type CompanyClient struct {
	caller
}

// NewCompanyClient は CompanyClient を生成します。
func NewCompanyClient(baseURL string, opts ...Option) *CompanyClient {
	return &CompanyClient{caller: newCaller(baseURL, opts...)}
}

type companySummaryDto struct {
	ID          int64           `json:"id"`
	CompanyName string          `json:"companyName"`
	Budget      decimal.Decimal `json:"budget"`
}

func (d companySummaryDto) toSummary() *user.CompanySummary {
	return &user.CompanySummary{
		ID:          d.ID,
		CompanyName: d.CompanyName,
		Budget:      d.Budget,
	}
}

// FetchCompany は会社を 1 件取得します。404 は user.ErrCompanyNotFound になります。
func (c *CompanyClient) FetchCompany(ctx context.Context, id int64) (*user.CompanySummary, error) {
	var dto companySummaryDto
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v1/companies/%d", id), &dto); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("company %d: %w", id, user.ErrCompanyNotFound)
		}
		return nil, err
	}
	return dto.toSummary(), nil
}

// FetchCompaniesByIDs は会社の要約を 1 リクエストで一括取得します。
// 見つからない ID は結果から抜けるだけでエラーになりません。
func (c *CompanyClient) FetchCompaniesByIDs(ctx context.Context, ids []int64) ([]*user.CompanySummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := url.Values{"ids": []string{joinIDs(ids)}}

	var dtos []companySummaryDto
	if err := c.getJSON(ctx, "/api/v1/companies/by-ids?"+query.Encode(), &dtos); err != nil {
		return nil, err
	}

	summaries := make([]*user.CompanySummary, 0, len(dtos))
	for _, dto := range dtos {
		summaries = append(summaries, dto.toSummary())
	}
	return summaries, nil
}

var _ user.CompanyClient = (*CompanyClient)(nil)
