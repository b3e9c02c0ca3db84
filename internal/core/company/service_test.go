package company

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeRepo struct {
	companies map[int64]*Company
	order     []int64
	seq       int64
	updates   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{companies: make(map[int64]*Company)}
}

func (r *fakeRepo) Create(_ context.Context, c *Company) (*Company, error) {
	clone := cloneCompany(c)
	r.seq++
	clone.ID = r.seq
	r.companies[clone.ID] = clone
	r.order = append(r.order, clone.ID)
	return cloneCompany(clone), nil
}

func (r *fakeRepo) Update(_ context.Context, c *Company) (*Company, error) {
	if _, ok := r.companies[c.ID]; !ok {
		return nil, ErrCompanyNotFound
	}
	r.updates++
	r.companies[c.ID] = cloneCompany(c)
	return cloneCompany(c), nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.companies[id]; !ok {
		return ErrCompanyNotFound
	}
	delete(r.companies, id)
	for i, existingID := range r.order {
		if existingID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id int64) (*Company, error) {
	c, ok := r.companies[id]
	if !ok {
		return nil, ErrCompanyNotFound
	}
	return cloneCompany(c), nil
}

func (r *fakeRepo) FindByIDs(_ context.Context, ids []int64) ([]*Company, error) {
	var found []*Company
	for _, id := range ids {
		if c, ok := r.companies[id]; ok {
			found = append(found, cloneCompany(c))
		}
	}
	return found, nil
}

func (r *fakeRepo) List(_ context.Context, filter ListCompaniesFilter) ([]*Company, int64, error) {
	var all []*Company
	for _, id := range r.order {
		all = append(all, cloneCompany(r.companies[id]))
	}

	total := int64(len(all))
	if filter.Offset > len(all) {
		return []*Company{}, total, nil
	}

	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}

	return all[filter.Offset:end], total, nil
}

func cloneCompany(c *Company) *Company {
	if c == nil {
		return nil
	}
	clone := *c
	clone.EmployeeIDs = append([]int64(nil), c.EmployeeIDs...)
	clone.Employees = nil
	return &clone
}

type setCompanyCall struct {
	userID    int64
	companyID *int64
}

type fakeUserClient struct {
	users      map[int64]*UserSummary
	failFetch  bool
	failBulk   bool
	failNotify bool
	fetchCalls []int64
	bulkCalls  [][]int64
	setCalls   []setCompanyCall
}

func newFakeUserClient(ids ...int64) *fakeUserClient {
	c := &fakeUserClient{users: make(map[int64]*UserSummary)}
	for _, id := range ids {
		c.users[id] = &UserSummary{
			ID:        id,
			FirstName: fmt.Sprintf("User%d", id),
			LastName:  "Test",
		}
	}
	return c
}

func (c *fakeUserClient) FetchUser(_ context.Context, id int64) (*UserSummary, error) {
	c.fetchCalls = append(c.fetchCalls, id)
	if c.failFetch {
		return nil, errors.New("user service unavailable")
	}
	summary, ok := c.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	clone := *summary
	return &clone, nil
}

func (c *fakeUserClient) FetchUsersByIDs(_ context.Context, ids []int64) ([]*UserSummary, error) {
	c.bulkCalls = append(c.bulkCalls, append([]int64(nil), ids...))
	if c.failBulk {
		return nil, errors.New("user service unavailable")
	}
	var found []*UserSummary
	for _, id := range ids {
		if summary, ok := c.users[id]; ok {
			clone := *summary
			found = append(found, &clone)
		}
	}
	return found, nil
}

func (c *fakeUserClient) SetUserCompany(_ context.Context, userID int64, companyID *int64) error {
	call := setCompanyCall{userID: userID}
	if companyID != nil {
		id := *companyID
		call.companyID = &id
	}
	c.setCalls = append(c.setCalls, call)
	if c.failNotify {
		return errors.New("user service unavailable")
	}
	return nil
}

func newTestService(repo *fakeRepo, users *fakeUserClient) *Service {
	clk := &stubClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	return NewService(repo, users, clk, nil, zerolog.Nop())
}

func mustCreateCompany(t *testing.T, svc *Service, name string) *Company {
	t.Helper()

	created, err := svc.CreateCompany(context.Background(), CreateCompanyInput{
		CompanyName: name,
		Budget:      decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("CreateCompany returned error: %v", err)
	}
	return created
}

func TestService_CreateCompany_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeRepo(), newFakeUserClient())

	if _, err := svc.CreateCompany(context.Background(), CreateCompanyInput{
		CompanyName: " A ",
		Budget:      decimal.NewFromInt(10),
	}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}

	if _, err := svc.CreateCompany(context.Background(), CreateCompanyInput{
		CompanyName: "Acme",
		Budget:      decimal.NewFromInt(-1),
	}); !errors.Is(err, ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
}

func TestService_AddEmployee_AppendsAndNotifies(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient(42)
	svc := newTestService(repo, users)

	created := mustCreateCompany(t, svc, "Acme")

	result, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: created.ID, EmployeeID: 42})
	if err != nil {
		t.Fatalf("AddEmployee returned error: %v", err)
	}

	if len(result.EmployeeIDs) != 1 || result.EmployeeIDs[0] != 42 {
		t.Fatalf("expected employee ids [42], got %v", result.EmployeeIDs)
	}

	if len(users.setCalls) != 1 {
		t.Fatalf("expected one notification, got %d", len(users.setCalls))
	}

	call := users.setCalls[0]
	if call.userID != 42 || call.companyID == nil || *call.companyID != created.ID {
		t.Fatalf("unexpected notification %+v", call)
	}

	if len(result.Employees) != 1 || result.Employees[0].ID != 42 {
		t.Fatalf("expected enriched employee list, got %+v", result.Employees)
	}
}

func TestService_AddEmployee_Idempotent(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient(42)
	svc := newTestService(repo, users)

	created := mustCreateCompany(t, svc, "Acme")

	if _, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: created.ID, EmployeeID: 42}); err != nil {
		t.Fatalf("first AddEmployee returned error: %v", err)
	}

	updatesAfterFirst := repo.updates
	notifiesAfterFirst := len(users.setCalls)

	second, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: created.ID, EmployeeID: 42})
	if err != nil {
		t.Fatalf("second AddEmployee returned error: %v", err)
	}

	if len(second.EmployeeIDs) != 1 || second.EmployeeIDs[0] != 42 {
		t.Fatalf("expected employee ids still [42], got %v", second.EmployeeIDs)
	}

	if repo.updates != updatesAfterFirst {
		t.Fatalf("expected no second persist, got %d updates", repo.updates)
	}

	if len(users.setCalls) != notifiesAfterFirst {
		t.Fatalf("expected no second notification, got %d", len(users.setCalls))
	}
}

func TestService_AddEmployee_ExistenceCheckFailureProceeds(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient()
	users.failFetch = true
	svc := newTestService(repo, users)

	created := mustCreateCompany(t, svc, "Acme")

	result, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: created.ID, EmployeeID: 42})
	if err != nil {
		t.Fatalf("AddEmployee returned error despite soft check: %v", err)
	}

	if len(result.EmployeeIDs) != 1 || result.EmployeeIDs[0] != 42 {
		t.Fatalf("expected employee added anyway, got %v", result.EmployeeIDs)
	}
}

func TestService_AddEmployee_NotifyFailureDoesNotRollBack(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient(42)
	users.failNotify = true
	svc := newTestService(repo, users)

	created := mustCreateCompany(t, svc, "Acme")

	result, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: created.ID, EmployeeID: 42})
	if err != nil {
		t.Fatalf("AddEmployee returned error despite best-effort notify: %v", err)
	}

	if len(result.EmployeeIDs) != 1 {
		t.Fatalf("expected local append kept, got %v", result.EmployeeIDs)
	}

	stored, _ := repo.FindByID(context.Background(), created.ID)
	if !stored.HasEmployee(42) {
		t.Fatalf("expected employee persisted, got %v", stored.EmployeeIDs)
	}
}

func TestService_AddEmployee_CompanyNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeRepo(), newFakeUserClient())

	if _, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: 5, EmployeeID: 42}); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestService_RemoveEmployee_RemovesAndNotifiesClear(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient(42, 43)
	svc := newTestService(repo, users)

	created := mustCreateCompany(t, svc, "Acme")
	if _, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: created.ID, EmployeeID: 42}); err != nil {
		t.Fatalf("AddEmployee returned error: %v", err)
	}
	if _, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: created.ID, EmployeeID: 43}); err != nil {
		t.Fatalf("AddEmployee returned error: %v", err)
	}

	users.setCalls = nil

	result, err := svc.RemoveEmployee(context.Background(), RemoveEmployeeInput{CompanyID: created.ID, EmployeeID: 42})
	if err != nil {
		t.Fatalf("RemoveEmployee returned error: %v", err)
	}

	if len(result.EmployeeIDs) != 1 || result.EmployeeIDs[0] != 43 {
		t.Fatalf("expected remaining employee [43], got %v", result.EmployeeIDs)
	}

	if len(users.setCalls) != 1 {
		t.Fatalf("expected one clear notification, got %d", len(users.setCalls))
	}

	call := users.setCalls[0]
	if call.userID != 42 || call.companyID != nil {
		t.Fatalf("expected clear notification for user 42, got %+v", call)
	}
}

func TestService_RemoveEmployee_NonMemberIsNoop(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient()
	svc := newTestService(repo, users)

	created := mustCreateCompany(t, svc, "Acme")
	updatesBefore := repo.updates

	result, err := svc.RemoveEmployee(context.Background(), RemoveEmployeeInput{CompanyID: created.ID, EmployeeID: 42})
	if err != nil {
		t.Fatalf("RemoveEmployee returned error: %v", err)
	}

	if len(result.EmployeeIDs) != 0 {
		t.Fatalf("expected employee ids unchanged, got %v", result.EmployeeIDs)
	}

	if repo.updates != updatesBefore {
		t.Fatalf("expected no persist for no-op removal")
	}

	if len(users.setCalls) != 0 {
		t.Fatalf("expected no notification for no-op removal, got %d", len(users.setCalls))
	}
}

func TestService_DeleteCompany_CascadesClearNotifications(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient(42, 43)
	svc := newTestService(repo, users)

	created := mustCreateCompany(t, svc, "Acme")
	for _, id := range []int64{42, 43} {
		if _, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: created.ID, EmployeeID: id}); err != nil {
			t.Fatalf("AddEmployee returned error: %v", err)
		}
	}

	users.setCalls = nil
	users.failNotify = true

	if err := svc.DeleteCompany(context.Background(), DeleteCompanyInput{ID: created.ID}); err != nil {
		t.Fatalf("DeleteCompany returned error despite notify failures: %v", err)
	}

	if len(users.setCalls) != 2 {
		t.Fatalf("expected clear notification per employee, got %d", len(users.setCalls))
	}

	for _, call := range users.setCalls {
		if call.companyID != nil {
			t.Fatalf("expected clear notifications, got %+v", call)
		}
	}

	if _, err := repo.FindByID(context.Background(), created.ID); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected company deleted, got %v", err)
	}
}

func TestService_DeleteCompany_NotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeRepo(), newFakeUserClient())

	if err := svc.DeleteCompany(context.Background(), DeleteCompanyInput{ID: 9}); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestService_GetCompany_EnrichmentDropsUnresolvedIDs(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient(42, 44)
	svc := newTestService(repo, users)

	created := mustCreateCompany(t, svc, "Acme")
	for _, id := range []int64{42, 43, 44} {
		if _, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: created.ID, EmployeeID: id}); err != nil {
			t.Fatalf("AddEmployee returned error: %v", err)
		}
	}

	found, err := svc.GetCompany(context.Background(), GetCompanyInput{ID: created.ID})
	if err != nil {
		t.Fatalf("GetCompany returned error: %v", err)
	}

	if len(found.EmployeeIDs) != 3 {
		t.Fatalf("expected raw employee ids kept, got %v", found.EmployeeIDs)
	}

	if len(found.Employees) != 2 {
		t.Fatalf("expected dangling id dropped from enrichment, got %+v", found.Employees)
	}

	if found.Employees[0].ID != 42 || found.Employees[1].ID != 44 {
		t.Fatalf("expected employee order preserved, got %+v", found.Employees)
	}
}

func TestService_GetCompany_PeerFailureDegrades(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient(42)
	svc := newTestService(repo, users)

	created := mustCreateCompany(t, svc, "Acme")
	if _, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: created.ID, EmployeeID: 42}); err != nil {
		t.Fatalf("AddEmployee returned error: %v", err)
	}

	users.failBulk = true

	found, err := svc.GetCompany(context.Background(), GetCompanyInput{ID: created.ID})
	if err != nil {
		t.Fatalf("GetCompany returned error despite peer outage: %v", err)
	}

	if len(found.Employees) != 0 {
		t.Fatalf("expected empty enrichment on peer outage, got %+v", found.Employees)
	}

	if len(found.EmployeeIDs) != 1 {
		t.Fatalf("expected raw employee ids kept, got %v", found.EmployeeIDs)
	}
}

func TestService_ListCompanies_SingleDeduplicatedBulkCall(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient(42, 43)
	svc := newTestService(repo, users)

	first := mustCreateCompany(t, svc, "Acme")
	second := mustCreateCompany(t, svc, "Globex")

	for _, pair := range []struct{ companyID, employeeID int64 }{
		{first.ID, 42},
		{first.ID, 43},
		{second.ID, 42},
	} {
		if _, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: pair.companyID, EmployeeID: pair.employeeID}); err != nil {
			t.Fatalf("AddEmployee returned error: %v", err)
		}
	}

	users.bulkCalls = nil

	result, err := svc.ListCompanies(context.Background(), ListCompaniesInput{Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("ListCompanies returned error: %v", err)
	}

	if len(result.Companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(result.Companies))
	}

	if len(users.bulkCalls) != 1 {
		t.Fatalf("expected exactly one bulk peer call, got %d", len(users.bulkCalls))
	}

	if got := users.bulkCalls[0]; len(got) != 2 {
		t.Fatalf("expected deduplicated id set of size 2, got %v", got)
	}

	if len(result.Companies[0].Employees) != 2 || len(result.Companies[1].Employees) != 1 {
		t.Fatalf("unexpected enrichment: %+v / %+v", result.Companies[0].Employees, result.Companies[1].Employees)
	}
}

func TestService_GetCompaniesByIDs_SummariesWithoutEmployees(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient(42)
	svc := newTestService(repo, users)

	first := mustCreateCompany(t, svc, "Acme")
	if _, err := svc.AddEmployee(context.Background(), AddEmployeeInput{CompanyID: first.ID, EmployeeID: 42}); err != nil {
		t.Fatalf("AddEmployee returned error: %v", err)
	}
	third := mustCreateCompany(t, svc, "Initech")

	users.bulkCalls = nil

	companies, err := svc.GetCompaniesByIDs(context.Background(), GetCompaniesByIDsInput{IDs: []int64{first.ID, 999, third.ID}})
	if err != nil {
		t.Fatalf("GetCompaniesByIDs returned error: %v", err)
	}

	if len(companies) != 2 {
		t.Fatalf("expected missing id omitted, got %d companies", len(companies))
	}

	for _, c := range companies {
		if c.Employees != nil {
			t.Fatalf("expected no employee enrichment in summaries, got %+v", c.Employees)
		}
	}

	if len(users.bulkCalls) != 0 {
		t.Fatalf("expected no peer call for summaries, got %d", len(users.bulkCalls))
	}
}

func TestService_UpdateCompany_Fields(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	users := newFakeUserClient()
	svc := newTestService(repo, users)

	created := mustCreateCompany(t, svc, "Acme")

	name := "Acme Corp"
	budget := decimal.RequireFromString("2500.50")
	updated, err := svc.UpdateCompany(context.Background(), UpdateCompanyInput{
		ID:          created.ID,
		CompanyName: &name,
		Budget:      &budget,
	})
	if err != nil {
		t.Fatalf("UpdateCompany returned error: %v", err)
	}

	if updated.CompanyName != "Acme Corp" {
		t.Errorf("expected updated name, got %q", updated.CompanyName)
	}

	if !updated.Budget.Equal(budget) {
		t.Errorf("expected budget %s, got %s", budget, updated.Budget)
	}

	negative := decimal.NewFromInt(-5)
	if _, err := svc.UpdateCompany(context.Background(), UpdateCompanyInput{ID: created.ID, Budget: &negative}); !errors.Is(err, ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
}
