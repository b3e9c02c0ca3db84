package company

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company は会社エンティティです。EmployeeIDs はユーザーサービスが所有するユーザーへの
// 弱参照のリストで、順序を保ち重複を持ちません。
type Company struct {
	ID          int64
	CompanyName string
	Budget      decimal.Decimal
	EmployeeIDs []int64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Employees は読み取り時にユーザーサービスから解決されるスナップショットです。永続化されません。
	// 解決できなかった ID は黙って除外されます。
	Employees []*UserSummary
}

// UserSummary はユーザーサービスが返すユーザー情報の要約です。
type UserSummary struct {
	ID          int64
	FirstName   string
	LastName    string
	PhoneNumber string
	CompanyID   *int64
}

// HasEmployee は employeeID が参照リストに含まれるかを返します。
func (c *Company) HasEmployee(employeeID int64) bool {
	for _, id := range c.EmployeeIDs {
		if id == employeeID {
			return true
		}
	}
	return false
}
