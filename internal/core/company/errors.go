package company

import "errors"

var (
	// ErrCompanyNotFound は会社が存在しない場合に返却されます。
	ErrCompanyNotFound = errors.New("company not found")
	// ErrInvalidName は会社名が不正な場合に返却されます。
	ErrInvalidName = errors.New("invalid company name")
	// ErrInvalidBudget は予算が不正な場合に返却されます。
	ErrInvalidBudget = errors.New("invalid budget")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidEmployeeID は社員 ID が不正な場合に返却されます。
	ErrInvalidEmployeeID = errors.New("invalid employee id")
	// ErrInvalidPage はページ番号が不正な場合に返却されます。
	ErrInvalidPage = errors.New("invalid page")
	// ErrInvalidPageSize はページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidSort はソート指定が不正な場合に返却されます。
	ErrInvalidSort = errors.New("invalid sort")
	// ErrInvalidIDList は一括取得の ID リストが不正な場合に返却されます。
	ErrInvalidIDList = errors.New("invalid id list")
)
