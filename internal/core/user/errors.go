package user

import "errors"

var (
	// ErrUserNotFound はユーザーが存在しない場合に返却されます。
	ErrUserNotFound = errors.New("user not found")
	// ErrCompanyNotFound は参照先の会社の存在を確認できなかった場合に返却されます。
	ErrCompanyNotFound = errors.New("referenced company not found")
	// ErrPhoneNumberAlreadyExists は電話番号重複時に返却されます。
	ErrPhoneNumberAlreadyExists = errors.New("phone number already exists")
	// ErrInvalidFirstName は名が不正な場合に返却されます。
	ErrInvalidFirstName = errors.New("invalid first name")
	// ErrInvalidLastName は姓が不正な場合に返却されます。
	ErrInvalidLastName = errors.New("invalid last name")
	// ErrInvalidPhoneNumber は電話番号が不正な場合に返却されます。
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidCompanyID は会社 ID が不正な場合に返却されます。
	ErrInvalidCompanyID = errors.New("invalid company id")
	// ErrInvalidPage はページ番号が不正な場合に返却されます。
	ErrInvalidPage = errors.New("invalid page")
	// ErrInvalidPageSize はページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidSort はソート指定が不正な場合に返却されます。
	ErrInvalidSort = errors.New("invalid sort")
	// ErrInvalidIDList は一括取得の ID リストが不正な場合に返却されます。
	ErrInvalidIDList = errors.New("invalid id list")
)
