package company

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
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

	minCompanyNameLength = 2
	maxCompanyNameLength = 100
)

// Service は会社に関するユースケースをまとめます。
// EmployeeIDs が関連の正であり、ユーザー側の companyId は通知によるベストエフォートの
// キャッシュです。通知の失敗はログに残すだけでローカルの変更は取り消しません。
type Service struct {
	repo  Repository
	users UserClient
	clock Clock
	tx    TransactionManager
	log   zerolog.Logger
}

// UseCase は会社ユースケースの公開インターフェースです。
type UseCase interface {
	CreateCompany(ctx context.Context, in CreateCompanyInput) (*Company, error)
	GetCompany(ctx context.Context, in GetCompanyInput) (*Company, error)
	GetCompaniesByIDs(ctx context.Context, in GetCompaniesByIDsInput) ([]*Company, error)
	ListCompanies(ctx context.Context, in ListCompaniesInput) (*ListCompaniesResult, error)
	UpdateCompany(ctx context.Context, in UpdateCompanyInput) (*Company, error)
	DeleteCompany(ctx context.Context, in DeleteCompanyInput) error
	AddEmployee(ctx context.Context, in AddEmployeeInput) (*Company, error)
	RemoveEmployee(ctx context.Context, in RemoveEmployeeInput) (*Company, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, users UserClient, clock Clock, tx TransactionManager, log zerolog.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, users: users, clock: clock, tx: tx, log: log}
}

// CreateCompanyInput は会社作成時の入力です。
type CreateCompanyInput struct {
	CompanyName string
	Budget      decimal.Decimal
}

// UpdateCompanyInput は会社更新時の入力です。nil のフィールドは変更されません。
type UpdateCompanyInput struct {
	ID          int64
	CompanyName *string
	Budget      *decimal.Decimal
}

// DeleteCompanyInput は会社削除時の入力です。
type DeleteCompanyInput struct {
	ID int64
}

// GetCompanyInput は会社取得時の入力です。
type GetCompanyInput struct {
	ID int64
}

// GetCompaniesByIDsInput は一括取得時の入力です。
type GetCompaniesByIDsInput struct {
	IDs []int64
}

// ListCompaniesInput は一覧取得時の入力です。Page は 0 始まりです。
type ListCompaniesInput struct {
	Page int
	Size int
	Sort string
}

// ListCompaniesResult は一覧取得結果を表します。
type ListCompaniesResult struct {
	Companies  []*Company
	Page       int
	Size       int
	TotalCount int64
}

// AddEmployeeInput は社員参照の追加の入力です。
type AddEmployeeInput struct {
	CompanyID  int64
	EmployeeID int64
}

// RemoveEmployeeInput は社員参照の削除の入力です。
type RemoveEmployeeInput struct {
	CompanyID  int64
	EmployeeID int64
}

// CreateCompany は新しい会社を作成します。社員参照は空で始まります。
func (s *Service) CreateCompany(ctx context.Context, in CreateCompanyInput) (*Company, error) {
	name, err := normalizeCompanyName(in.CompanyName)
	if err != nil {
		return nil, err
	}

	if in.Budget.IsNegative() {
		return nil, ErrInvalidBudget
	}

	var created *Company
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		c := &Company{
			CompanyName: name,
			Budget:      in.Budget,
			EmployeeIDs: []int64{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		result, err := s.repo.Create(txCtx, c)
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.log.Info().Int64("company_id", created.ID).Str("company_name", created.CompanyName).Msg("company created")
	return created, nil
}

// GetCompany は ID で会社を取得し、社員情報を補完して返します。
func (s *Service) GetCompany(ctx context.Context, in GetCompanyInput) (*Company, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id %d: %w", in.ID, ErrInvalidID)
	}

	var found *Company
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

	s.enrichCompanies(ctx, []*Company{found})
	return found, nil
}

// GetCompaniesByIDs は ID リストで存在する会社のみを取得します。
// 応答サイズを抑えるため社員情報は補完しません。見つからない ID はエラーになりません。
func (s *Service) GetCompaniesByIDs(ctx context.Context, in GetCompaniesByIDsInput) ([]*Company, error) {
	if err := validateIDList(in.IDs); err != nil {
		return nil, err
	}

	var companies []*Company
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByIDs(txCtx, in.IDs)
		if err != nil {
			return err
		}
		companies = result
		return nil
	}); err != nil {
		return nil, err
	}

	return companies, nil
}

// ListCompanies は会社の一覧をページ取得し、社員情報を一括で補完します。
func (s *Service) ListCompanies(ctx context.Context, in ListCompaniesInput) (*ListCompaniesResult, error) {
	page, size, err := normalizePaging(in.Page, in.Size)
	if err != nil {
		return nil, err
	}

	sort, err := parseCompanySort(in.Sort)
	if err != nil {
		return nil, err
	}

	var (
		companies []*Company
		total     int64
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, count, err := s.repo.List(txCtx, ListCompaniesFilter{
			Limit:  size,
			Offset: page * size,
			Sort:   sort,
		})
		if err != nil {
			return err
		}
		companies = result
		total = count
		return nil
	}); err != nil {
		return nil, err
	}

	s.enrichCompanies(ctx, companies)

	return &ListCompaniesResult{
		Companies:  companies,
		Page:       page,
		Size:       size,
		TotalCount: total,
	}, nil
}

// UpdateCompany は会社情報を更新します。社員参照はここでは操作できません。
func (s *Service) UpdateCompany(ctx context.Context, in UpdateCompanyInput) (*Company, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id %d: %w", in.ID, ErrInvalidID)
	}

	var updated *Company
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		if in.CompanyName != nil {
			name, err := normalizeCompanyName(*in.CompanyName)
			if err != nil {
				return err
			}
			existing.CompanyName = name
		}

		if in.Budget != nil {
			if in.Budget.IsNegative() {
				return ErrInvalidBudget
			}
			existing.Budget = *in.Budget
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

	s.enrichCompanies(ctx, []*Company{updated})
	return updated, nil
}

// DeleteCompany は会社を削除します。削除前に所属社員全員の companyId 解除を
// ベストエフォートで通知します。通知の失敗は削除を妨げません。
func (s *Service) DeleteCompany(ctx context.Context, in DeleteCompanyInput) error {
	if in.ID <= 0 {
		return fmt.Errorf("id %d: %w", in.ID, ErrInvalidID)
	}

	existing, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		return err
	}

	for _, employeeID := range existing.EmployeeIDs {
		if err := s.users.SetUserCompany(ctx, employeeID, nil); err != nil {
			s.log.Error().Err(err).Int64("company_id", in.ID).Int64("employee_id", employeeID).
				Msg("failed to notify user service to clear company before delete")
		}
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, in.ID)
	}); err != nil {
		return err
	}

	s.log.Info().Int64("company_id", in.ID).Msg("company deleted")
	return nil
}

// AddEmployee は社員参照を追加します。既に含まれている場合は何もしません（冪等）。
// 実際に追加したときだけユーザーサービスへ companyId の設定を通知します。
func (s *Service) AddEmployee(ctx context.Context, in AddEmployeeInput) (*Company, error) {
	if err := validateAssociationIDs(in.CompanyID, in.EmployeeID); err != nil {
		return nil, err
	}

	var (
		result *Company
		added  bool
	)

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.CompanyID)
		if err != nil {
			return err
		}

		// 社員の存在確認はソフト。失敗しても参照の追加は続行します。
		if _, err := s.users.FetchUser(ctx, in.EmployeeID); err != nil {
			s.log.Error().Err(err).Int64("employee_id", in.EmployeeID).
				Msg("employee existence check failed, proceeding")
		}

		if existing.HasEmployee(in.EmployeeID) {
			s.log.Warn().Int64("company_id", in.CompanyID).Int64("employee_id", in.EmployeeID).
				Msg("employee already referenced by company")
			result = existing
			return nil
		}

		existing.EmployeeIDs = append(existing.EmployeeIDs, in.EmployeeID)
		existing.UpdatedAt = s.clock.Now()

		updated, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		result = updated
		added = true
		return nil
	}); err != nil {
		return nil, err
	}

	if added {
		s.log.Info().Int64("company_id", in.CompanyID).Int64("employee_id", in.EmployeeID).
			Msg("employee reference added")
		if err := s.users.SetUserCompany(ctx, in.EmployeeID, &in.CompanyID); err != nil {
			s.log.Error().Err(err).Int64("company_id", in.CompanyID).Int64("employee_id", in.EmployeeID).
				Msg("failed to notify user service to set company")
		}
	}

	s.enrichCompanies(ctx, []*Company{result})
	return result, nil
}

// RemoveEmployee は社員参照を削除します。含まれていない場合は警告ログのみの no-op です。
// 実際に削除したときだけユーザーサービスへ companyId の解除を通知します。
func (s *Service) RemoveEmployee(ctx context.Context, in RemoveEmployeeInput) (*Company, error) {
	if err := validateAssociationIDs(in.CompanyID, in.EmployeeID); err != nil {
		return nil, err
	}

	var (
		result  *Company
		removed bool
	)

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.CompanyID)
		if err != nil {
			return err
		}

		if !existing.HasEmployee(in.EmployeeID) {
			s.log.Warn().Int64("company_id", in.CompanyID).Int64("employee_id", in.EmployeeID).
				Msg("employee not referenced by company")
			result = existing
			return nil
		}

		kept := make([]int64, 0, len(existing.EmployeeIDs)-1)
		for _, id := range existing.EmployeeIDs {
			if id != in.EmployeeID {
				kept = append(kept, id)
			}
		}
		existing.EmployeeIDs = kept
		existing.UpdatedAt = s.clock.Now()

		updated, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		result = updated
		removed = true
		return nil
	}); err != nil {
		return nil, err
	}

	if removed {
		s.log.Info().Int64("company_id", in.CompanyID).Int64("employee_id", in.EmployeeID).
			Msg("employee reference removed")
		if err := s.users.SetUserCompany(ctx, in.EmployeeID, nil); err != nil {
			s.log.Error().Err(err).Int64("company_id", in.CompanyID).Int64("employee_id", in.EmployeeID).
				Msg("failed to notify user service to clear company")
		}
	}

	s.enrichCompanies(ctx, []*Company{result})
	return result, nil
}

// enrichCompanies は会社群の社員情報を 1 回の一括取得で補完します。
// ID は全社をまたいで重複排除し、取得失敗時は全件を未補完のまま返します。
// 解決できなかった ID は順序を保ったまま黙って除外されます。
func (s *Service) enrichCompanies(ctx context.Context, companies []*Company) {
	ids := distinctEmployeeIDs(companies)
	if len(ids) == 0 {
		return
	}

	summaries, err := s.users.FetchUsersByIDs(ctx, ids)
	if err != nil {
		s.log.Error().Err(err).Ints64("employee_ids", ids).
			Msg("failed to fetch employees for enrichment")
		return
	}

	byID := make(map[int64]*UserSummary, len(summaries))
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
		s.log.Warn().Ints64("employee_ids", missing).Msg("employees missing from bulk fetch")
	}

	for _, c := range companies {
		if c == nil || len(c.EmployeeIDs) == 0 {
			continue
		}
		employees := make([]*UserSummary, 0, len(c.EmployeeIDs))
		for _, id := range c.EmployeeIDs {
			if summary, ok := byID[id]; ok {
				employees = append(employees, summary)
			}
		}
		c.Employees = employees
	}
}

func distinctEmployeeIDs(companies []*Company) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, c := range companies {
		if c == nil {
			continue
		}
		for _, id := range c.EmployeeIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func validateAssociationIDs(companyID, employeeID int64) error {
	if companyID <= 0 {
		return fmt.Errorf("company id %d: %w", companyID, ErrInvalidID)
	}
	if employeeID <= 0 {
		return fmt.Errorf("employee id %d: %w", employeeID, ErrInvalidEmployeeID)
	}
	return nil
}

func normalizeCompanyName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(trimmed)
	if length < minCompanyNameLength || length > maxCompanyNameLength {
		return "", ErrInvalidName
	}
	return trimmed, nil
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

func parseCompanySort(raw string) (SortOrder, error) {
	allowed := map[string]string{
		"id":          "id",
		"companyName": "company_name",
		"budget":      "budget",
		"createdAt":   "created_at",
	}

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
