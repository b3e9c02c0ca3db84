package httpapi

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/workforce-services/internal/core/company"
)

// CompanyHandler は会社サービスの HTTP エンドポイントを提供します。
type CompanyHandler struct {
	uc  company.UseCase
	log zerolog.Logger
}

// NewCompanyHandler は CompanyHandler を生成します。
func NewCompanyHandler(uc company.UseCase, log zerolog.Logger) *CompanyHandler {
	return &CompanyHandler{uc: uc, log: log}
}

type companyResponse struct {
	ID          int64                 `json:"id"`
	CompanyName string                `json:"companyName"`
	Budget      decimal.Decimal       `json:"budget"`
	EmployeeIDs []int64               `json:"employeeIds"`
	Employees   []userSummaryResponse `json:"employees,omitempty"`
}

type userSummaryResponse struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	CompanyID   *int64 `json:"companyId"`
}

func toCompanyResponse(c *company.Company) companyResponse {
	resp := companyResponse{
		ID:          c.ID,
		CompanyName: c.CompanyName,
		Budget:      c.Budget,
		EmployeeIDs: c.EmployeeIDs,
	}
	if resp.EmployeeIDs == nil {
		resp.EmployeeIDs = []int64{}
	}
	for _, e := range c.Employees {
		resp.Employees = append(resp.Employees, userSummaryResponse{
			ID:          e.ID,
			FirstName:   e.FirstName,
			LastName:    e.LastName,
			PhoneNumber: e.PhoneNumber,
			CompanyID:   e.CompanyID,
		})
	}
	return resp
}

func toCompanyResponses(companies []*company.Company) []companyResponse {
	resps := make([]companyResponse, 0, len(companies))
	for _, c := range companies {
		resps = append(resps, toCompanyResponse(c))
	}
	return resps
}

type createCompanyRequest struct {
	CompanyName string          `json:"companyName"`
	Budget      decimal.Decimal `json:"budget"`
}

type updateCompanyRequest struct {
	CompanyName *string          `json:"companyName"`
	Budget      *decimal.Decimal `json:"budget"`
}

// Create は POST /api/v1/companies を処理します。
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createCompanyRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.uc.CreateCompany(r.Context(), company.CreateCompanyInput{
		CompanyName: body.CompanyName,
		Budget:      body.Budget,
	})
	if err != nil {
		h.writeCompanyError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCompanyResponse(created))
}

// Get は GET /api/v1/companies/{id} を処理します。
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	found, err := h.uc.GetCompany(r.Context(), company.GetCompanyInput{ID: id})
	if err != nil {
		h.writeCompanyError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompanyResponse(found))
}

// GetByIDs は GET /api/v1/companies/by-ids?ids=1,2,3 を処理します。
// 社員情報は付与せず、見つからない ID は結果から抜けるだけです。
func (h *CompanyHandler) GetByIDs(w http.ResponseWriter, r *http.Request) {
	ids, ok := idsQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ids parameter")
		return
	}

	companies, err := h.uc.GetCompaniesByIDs(r.Context(), company.GetCompaniesByIDsInput{IDs: ids})
	if err != nil {
		h.writeCompanyError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompanyResponses(companies))
}

// List は GET /api/v1/companies を処理します。
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	page, size, sort, ok := listQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid paging parameters")
		return
	}

	result, err := h.uc.ListCompanies(r.Context(), company.ListCompaniesInput{Page: page, Size: size, Sort: sort})
	if err != nil {
		h.writeCompanyError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Content:       toCompanyResponses(result.Companies),
		Page:          result.Page,
		Size:          result.Size,
		TotalElements: result.TotalCount,
	})
}

// Update は PUT /api/v1/companies/{id} を処理します。
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	var body updateCompanyRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.uc.UpdateCompany(r.Context(), company.UpdateCompanyInput{
		ID:          id,
		CompanyName: body.CompanyName,
		Budget:      body.Budget,
	})
	if err != nil {
		h.writeCompanyError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompanyResponse(updated))
}

// Delete は DELETE /api/v1/companies/{id} を処理します。
// 所属している各ユーザーへの参照解除の通知はベストエフォートです。
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	if err := h.uc.DeleteCompany(r.Context(), company.DeleteCompanyInput{ID: id}); err != nil {
		h.writeCompanyError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddEmployee は POST /api/v1/companies/{companyId}/employees/{employeeId} を処理します。
func (h *CompanyHandler) AddEmployee(w http.ResponseWriter, r *http.Request) {
	companyID, ok := idParam(r, "companyId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	employeeID, ok := idParam(r, "employeeId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	updated, err := h.uc.AddEmployee(r.Context(), company.AddEmployeeInput{CompanyID: companyID, EmployeeID: employeeID})
	if err != nil {
		h.writeCompanyError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompanyResponse(updated))
}

// RemoveEmployee は DELETE /api/v1/companies/{companyId}/employees/{employeeId} を処理します。
func (h *CompanyHandler) RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	companyID, ok := idParam(r, "companyId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	employeeID, ok := idParam(r, "employeeId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	updated, err := h.uc.RemoveEmployee(r.Context(), company.RemoveEmployeeInput{CompanyID: companyID, EmployeeID: employeeID})
	if err != nil {
		h.writeCompanyError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompanyResponse(updated))
}

func (h *CompanyHandler) writeCompanyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, company.ErrCompanyNotFound):
		writeError(w, http.StatusNotFound, company.ErrCompanyNotFound.Error())
	case isCompanyValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isCompanyValidationError(err error) bool {
	for _, sentinel := range []error{
		company.ErrInvalidName,
		company.ErrInvalidBudget,
		company.ErrInvalidID,
		company.ErrInvalidEmployeeID,
		company.ErrInvalidPage,
		company.ErrInvalidPageSize,
		company.ErrInvalidSort,
		company.ErrInvalidIDList,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
