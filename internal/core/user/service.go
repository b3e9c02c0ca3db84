package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const (
	defaultListPageSize = 20
	maxListPageSize     = 100
	maxBulkFetchIDs     = 100

	minNameLength  = 3
	maxNameLength  = 50
	maxPhoneLength = 11
)

// Service はユーザーに関するユースケースをまとめます。
// 会社サービスへの呼び出しは書き込み時の存在検証のみハード、読み取り時の補完はソフトです。
type Service struct {
	repo      Repository
	companies CompanyClient
	clock     Clock
	tx        TransactionManager
	log       zerolog.Logger
}

// UseCase はユーザーユースケースの公開インターフェースです。
type UseCase interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*User, error)
	UpdateUser(ctx context.Context, in UpdateUserInput) (*User, error)
	DeleteUser(ctx context.Context, in DeleteUserInput) error
	GetUser(ctx context.Context, in GetUserInput) (*User, error)
	GetUsersByIDs(ctx context.Context, in GetUsersByIDsInput) ([]*User, error)
	ListUsers(ctx context.Context, in ListUsersInput) (*ListUsersResult, error)
	SetUserCompany(ctx context.Context, in SetUserCompanyInput) error
}

// NewService は Service を生成します。
func NewService(repo Repository, companies CompanyClient, clock Clock, tx TransactionManager, log zerolog.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, companies: companies, clock: clock, tx: tx, log: log}
}

// CreateUserInput はユーザー作成時の入力です。
type CreateUserInput struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	CompanyID   *int64
}

// UpdateUserInput はユーザー更新時の入力です。nil のフィールドは変更されません。
type UpdateUserInput struct {
	ID          int64
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	CompanyID   *int64
}

// DeleteUserInput はユーザー削除時の入力です。
type DeleteUserInput struct {
	ID int64
}

// GetUserInput はユーザー取得時の入力です。
type GetUserInput struct {
	ID int64
}

// GetUsersByIDsInput は一括取得時の入力です。
type GetUsersByIDsInput struct {
	IDs []int64
}

// ListUsersInput は一覧取得時の入力です。Page は 0 始まりです。
type ListUsersInput struct {
	Page int
	Size int
	Sort string
}

// ListUsersResult は一覧取得結果を表します。
type ListUsersResult struct {
	Users      []*User
	Page       int
	Size       int
	TotalCount int64
}

// SetUserCompanyInput は会社参照の設定・解除の入力です。CompanyID が nil の場合は解除します。
type SetUserCompanyInput struct {
	UserID    int64
	CompanyID *int64
}

// CreateUser は新しいユーザーを作成します。
// CompanyID が指定されている場合、会社の存在確認に失敗すると作成は行われません。
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	firstName, err := normalizePersonName(in.FirstName, ErrInvalidFirstName)
	if err != nil {
		return nil, err
	}

	lastName, err := normalizePersonName(in.LastName, ErrInvalidLastName)
	if err != nil {
		return nil, err
	}

	phone, err := normalizePhoneNumber(in.PhoneNumber, true)
	if err != nil {
		return nil, err
	}

	companyID, err := normalizeCompanyID(in.CompanyID)
	if err != nil {
		return nil, err
	}

	if companyID != nil {
		if err := s.ensureCompanyExists(ctx, *companyID); err != nil {
			return nil, err
		}
	}

	var created *User
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensurePhoneNumberNotExists(txCtx, phone, 0); err != nil {
			return err
		}

		now := s.clock.Now()
		u := &User{
			FirstName:   firstName,
			LastName:    lastName,
			PhoneNumber: phone,
			CompanyID:   companyID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		result, err := s.repo.Create(txCtx, u)
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", created.ID).Msg("user created")

	s.enrichUser(ctx, created)
	return created, nil
}

// UpdateUser はユーザー情報を更新します。
// CompanyID を別の会社へ変更する場合は会社の存在確認に失敗すると更新は行われません。
func (s *Service) UpdateUser(ctx context.Context, in UpdateUserInput) (*User, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id %d: %w", in.ID, ErrInvalidID)
	}

	companyID, err := normalizeCompanyID(in.CompanyID)
	if err != nil {
		return nil, err
	}

	var updated *User
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		if in.FirstName != nil {
			firstName, err := normalizePersonName(*in.FirstName, ErrInvalidFirstName)
			if err != nil {
				return err
			}
			existing.FirstName = firstName
		}

		if in.LastName != nil {
			lastName, err := normalizePersonName(*in.LastName, ErrInvalidLastName)
			if err != nil {
				return err
			}
			existing.LastName = lastName
		}

		if in.PhoneNumber != nil {
			phone, err := normalizePhoneNumber(*in.PhoneNumber, false)
			if err != nil {
				return err
			}
			if phone != existing.PhoneNumber {
				if err := s.ensurePhoneNumberNotExists(txCtx, phone, existing.ID); err != nil {
					return err
				}
				existing.PhoneNumber = phone
			}
		}

		if companyID != nil && !sameCompany(existing.CompanyID, companyID) {
			if err := s.ensureCompanyExists(ctx, *companyID); err != nil {
				return err
			}
			existing.CompanyID = companyID
		}

		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.enrichUser(ctx, updated)
	return updated, nil
}

// DeleteUser はユーザーを削除します。
// 会社サービスへは通知しません。残った employeeIds 側の参照は読み取り時に無視されます。
func (s *Service) DeleteUser(ctx context.Context, in DeleteUserInput) error {
	if in.ID <= 0 {
		return fmt.Errorf("id %d: %w", in.ID, ErrInvalidID)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		exists, err := s.repo.ExistsByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("id %d: %w", in.ID, ErrUserNotFound)
		}

		if err := s.repo.Delete(txCtx, in.ID); err != nil {
			return err
		}

		s.log.Info().Int64("user_id", in.ID).Msg("user deleted")
		return nil
	})
}

// GetUser は ID でユーザーを取得し、会社情報を補完して返します。
func (s *Service) GetUser(ctx context.Context, in GetUserInput) (*User, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id %d: %w", in.ID, ErrInvalidID)
	}

	var found *User
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.enrichUser(ctx, found)
	return found, nil
}

// GetUsersByIDs は ID リストで存在するユーザーのみを取得します。
// 見つからない ID は結果から抜けるだけでエラーにはなりません。
func (s *Service) GetUsersByIDs(ctx context.Context, in GetUsersByIDsInput) ([]*User, error) {
	if err := validateIDList(in.IDs); err != nil {
		return nil, err
	}

	var users []*User
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByIDs(txCtx, in.IDs)
		if err != nil {
			return err
		}
		users = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.enrichUsers(ctx, users)
	return users, nil
}

// ListUsers はユーザーの一覧をページ取得します。
func (s *Service) ListUsers(ctx context.Context, in ListUsersInput) (*ListUsersResult, error) {
	page, size, err := normalizePaging(in.Page, in.Size)
	if err != nil {
		return nil, err
	}

	sort, err := parseUserSort(in.Sort)
	if err != nil {
		return nil, err
	}

	var (
		users []*User
		total int64
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, count, err := s.repo.List(txCtx, ListUsersFilter{
			Limit:  size,
			Offset: page * size,
			Sort:   sort,
		})
		if err != nil {
			return err
		}
		users = result
		total = count
		return nil
	}); err != nil {
		return nil, err
	}

	s.enrichUsers(ctx, users)

	return &ListUsersResult{
		Users:      users,
		Page:       page,
		Size:       size,
		TotalCount: total,
	}, nil
}

// SetUserCompany はユーザーの会社参照を設定または解除します。
// 会社サービスの addEmployee / removeEmployee からの通知で呼ばれる想定です。
func (s *Service) SetUserCompany(ctx context.Context, in SetUserCompanyInput) error {
	if in.UserID <= 0 {
		return fmt.Errorf("user id %d: %w", in.UserID, ErrInvalidID)
	}

	companyID, err := normalizeCompanyID(in.CompanyID)
	if err != nil {
		return err
	}

	if companyID != nil {
		if err := s.ensureCompanyExists(ctx, *companyID); err != nil {
			return err
		}
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.UserID)
		if err != nil {
			return err
		}

		existing.CompanyID = companyID
		existing.UpdatedAt = s.clock.Now()

		_, err = s.repo.Update(txCtx, existing)
		return err
	}); err != nil {
		return err
	}

	if companyID != nil {
		s.log.Info().Int64("user_id", in.UserID).Int64("company_id", *companyID).Msg("user company set")
	} else {
		s.log.Info().Int64("user_id", in.UserID).Msg("user company cleared")
	}
	return nil
}

// enrichUser は 1 ユーザーの会社情報を補完します。失敗はログのみで読み取りは成功扱いです。
func (s *Service) enrichUser(ctx context.Context, u *User) {
	if u == nil || u.CompanyID == nil {
		return
	}

	summary, err := s.companies.FetchCompany(ctx, *u.CompanyID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", u.ID).Int64("company_id", *u.CompanyID).
			Msg("failed to fetch company for enrichment")
		return
	}

	u.Company = summary
}

// enrichUsers はユーザー群の会社情報を 1 回の一括取得で補完します。
// 会社 ID は重複排除して問い合わせ、取得失敗時は全件を未補完のまま返します。
func (s *Service) enrichUsers(ctx context.Context, users []*User) {
	ids := distinctCompanyIDs(users)
	if len(ids) == 0 {
		return
	}

	summaries, err := s.companies.FetchCompaniesByIDs(ctx, ids)
	if err != nil {
		s.log.Error().Err(err).Ints64("company_ids", ids).
			Msg("failed to fetch companies for enrichment")
		return
	}

	byID := make(map[int64]*CompanySummary, len(summaries))
	for _, summary := range summaries {
		byID[summary.ID] = summary
	}

	if len(byID) != len(ids) {
		var missing []int64
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				missing = append(missing, id)
			}
		}
		s.log.Warn().Ints64("company_ids", missing).Msg("companies missing from bulk fetch")
	}

	for _, u := range users {
		if u.CompanyID == nil {
			continue
		}
		if summary, ok := byID[*u.CompanyID]; ok {
			u.Company = summary
		}
	}
}

// ensureCompanyExists は会社の存在をピアに問い合わせます。いかなる失敗もハード扱いです。
func (s *Service) ensureCompanyExists(ctx context.Context, companyID int64) error {
	if _, err := s.companies.FetchCompany(ctx, companyID); err != nil {
		if !errors.Is(err, ErrCompanyNotFound) {
			s.log.Error().Err(err).Int64("company_id", companyID).Msg("company existence check failed")
		}
		return fmt.Errorf("company %d: %w", companyID, ErrCompanyNotFound)
	}
	return nil
}

func (s *Service) ensurePhoneNumberNotExists(ctx context.Context, phone string, selfID int64) error {
	if phone == "" {
		return nil
	}

	existing, err := s.repo.FindByPhoneNumber(ctx, phone)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return ErrPhoneNumberAlreadyExists
	}
	return nil
}

func distinctCompanyIDs(users []*User) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, u := range users {
		if u == nil || u.CompanyID == nil {
			continue
		}
		if _, ok := seen[*u.CompanyID]; ok {
			continue
		}
		seen[*u.CompanyID] = struct{}{}
		ids = append(ids, *u.CompanyID)
	}
	return ids
}

func sameCompany(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func normalizePersonName(raw string, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(trimmed)
	if length < minNameLength || length > maxNameLength {
		return "", invalid
	}
	return trimmed, nil
}

func normalizePhoneNumber(raw string, required bool) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		if required {
			return "", ErrInvalidPhoneNumber
		}
		return "", nil
	}
	if utf8.RuneCountInString(trimmed) > maxPhoneLength {
		return "", ErrInvalidPhoneNumber
	}
	return trimmed, nil
}

func normalizeCompanyID(id *int64) (*int64, error) {
	if id == nil {
		return nil, nil
	}
	if *id <= 0 {
		return nil, fmt.Errorf("company id %d: %w", *id, ErrInvalidCompanyID)
	}
	value := *id
	return &value, nil
}

func normalizePaging(page, size int) (int, int, error) {
	if page < 0 {
		return 0, 0, ErrInvalidPage
	}
	if size <= 0 {
		size = defaultListPageSize
	}
	if size > maxListPageSize {
		return 0, 0, ErrInvalidPageSize
	}
	return page, size, nil
}

func validateIDList(ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("empty: %w", ErrInvalidIDList)
	}
	if len(ids) > maxBulkFetchIDs {
		return fmt.Errorf("more than %d ids: %w", maxBulkFetchIDs, ErrInvalidIDList)
	}
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("id %d: %w", id, ErrInvalidIDList)
		}
	}
	return nil
}

func parseUserSort(raw string) (SortOrder, error) {
	return parseSort(raw, map[string]string{
		"id":          "id",
		"firstName":   "first_name",
		"lastName":    "last_name",
		"phoneNumber": "phone_number",
		"createdAt":   "created_at",
	})
}

func parseSort(raw string, allowed map[string]string) (SortOrder, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return SortOrder{Column: "id"}, nil
	}

	parts := strings.Split(trimmed, ",")
	if len(parts) > 2 {
		return SortOrder{}, ErrInvalidSort
	}

	column, ok := allowed[strings.TrimSpace(parts[0])]
	if !ok {
		return SortOrder{}, ErrInvalidSort
	}

	order := SortOrder{Column: column}
	if len(parts) == 2 {
		switch strings.ToLower(strings.TrimSpace(parts[1])) {
		case "asc":
		case "desc":
			order.Desc = true
		default:
			return SortOrder{}, ErrInvalidSort
		}
	}

	return order, nil
}
