package user

import (
	"time"

	"github.com/shopspring/decimal"
)

// User はユーザーエンティティです。CompanyID は会社サービスが所有する会社への弱参照で、
// 参照先の存在は書き込み時にのみ検証されます。
type User struct {
	ID          int64
	FirstName   string
	LastName    string
	PhoneNumber string
	CompanyID   *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Company は読み取り時に会社サービスから解決されるスナップショットです。永続化されません。
	Company *CompanySummary
}

// CompanySummary は会社サービスが返す会社情報の要約です。
type CompanySummary struct {
	ID          int64
	CompanyName string
	Budget      decimal.Decimal
}
