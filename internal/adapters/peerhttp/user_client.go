package peerhttp

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ogurasousui/workforce-services/internal/core/company"
)

// UserClient はユーザーサービスの HTTP API を呼び出す company.UserClient の実装です。
type UserClient struct {
	caller
}

// NewUserClient は UserClient を生成します。
func NewUserClient(baseURL string, opts ...Option) *UserClient {
	return &UserClient{caller: newCaller(baseURL, opts...)}
}

type userSummaryDto struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	CompanyID   *int64 `json:"companyId"`
}

func (d userSummaryDto) toSummary() *company.UserSummary {
	summary := &company.UserSummary{
		ID:          d.ID,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		PhoneNumber: d.PhoneNumber,
	}
	if d.CompanyID != nil {
		id := *d.CompanyID
		summary.CompanyID = &id
	}
	return summary
}

// FetchUser はユーザーを 1 件取得します。
func (c *UserClient) FetchUser(ctx context.Context, id int64) (*company.UserSummary, error) {
	var dto userSummaryDto
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v1/users/%d", id), &dto); err != nil {
		return nil, err
	}
	return dto.toSummary(), nil
}

// FetchUsersByIDs はユーザーの要約を 1 リクエストで一括取得します。
// 見つからない ID は結果から抜けるだけでエラーになりません。
func (c *UserClient) FetchUsersByIDs(ctx context.Context, ids []int64) ([]*company.UserSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := url.Values{"ids": []string{joinIDs(ids)}}

	var dtos []userSummaryDto
	if err := c.getJSON(ctx, "/api/v1/users/by-ids?"+query.Encode(), &dtos); err != nil {
		return nil, err
	}

	summaries := make([]*company.UserSummary, 0, len(dtos))
	for _, dto := range dtos {
		summaries = append(summaries, dto.toSummary())
	}
	return summaries, nil
}

// SetUserCompany はユーザーの companyId を設定（nil の場合は解除）します。
// ボディは会社 ID そのもの、解除時は null を送ります。
func (c *UserClient) SetUserCompany(ctx context.Context, userID int64, companyID *int64) error {
	return c.putJSON(ctx, fmt.Sprintf("/api/v1/users/%d/company", userID), companyID)
}

var _ company.UserClient = (*UserClient)(nil)
