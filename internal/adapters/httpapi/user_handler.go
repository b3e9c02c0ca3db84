package httpapi

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/workforce-services/internal/core/user"
)

// UserHandler はユーザーサービスの HTTP エンドポイントを提供します。
type UserHandler struct {
	uc  user.UseCase
	log zerolog.Logger
}

// NewUserHandler は UserHandler を生成します。
func NewUserHandler(uc user.UseCase, log zerolog.Logger) *UserHandler {
	return &UserHandler{uc: uc, log: log}
}

type userResponse struct {
	ID          int64                   `json:"id"`
	FirstName   string                  `json:"firstName"`
	LastName    string                  `json:"lastName"`
	PhoneNumber string                  `json:"phoneNumber"`
	CompanyID   *int64                  `json:"companyId"`
	Company     *companySummaryResponse `json:"company,omitempty"`
}

type companySummaryResponse struct {
	ID          int64           `json:"id"`
	CompanyName string          `json:"companyName"`
	Budget      decimal.Decimal `json:"budget"`
}

func toUserResponse(u *user.User) userResponse {
	resp := userResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		CompanyID:   u.CompanyID,
	}
	if u.Company != nil {
		resp.Company = &companySummaryResponse{
			ID:          u.Company.ID,
			CompanyName: u.Company.CompanyName,
			Budget:      u.Company.Budget,
		}
	}
	return resp
}

func toUserResponses(users []*user.User) []userResponse {
	resps := make([]userResponse, 0, len(users))
	for _, u := range users {
		resps = append(resps, toUserResponse(u))
	}
	return resps
}

type createUserRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	CompanyID   *int64 `json:"companyId"`
}

type updateUserRequest struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber"`
	CompanyID   *int64  `json:"companyId"`
}

// Create は POST /api/v1/users を処理します。
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createUserRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.uc.CreateUser(r.Context(), user.CreateUserInput{
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		PhoneNumber: body.PhoneNumber,
		CompanyID:   body.CompanyID,
	})
	if err != nil {
		h.writeUserError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(created))
}

// Get は GET /api/v1/users/{id} を処理します。
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	found, err := h.uc.GetUser(r.Context(), user.GetUserInput{ID: id})
	if err != nil {
		h.writeUserError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(found))
}

// GetByIDs は GET /api/v1/users/by-ids?ids=1,2,3 を処理します。
// 見つからない ID は結果から抜けるだけでエラーになりません。
func (h *UserHandler) GetByIDs(w http.ResponseWriter, r *http.Request) {
	ids, ok := idsQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ids parameter")
		return
	}

	users, err := h.uc.GetUsersByIDs(r.Context(), user.GetUsersByIDsInput{IDs: ids})
	if err != nil {
		h.writeUserError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponses(users))
}

// List は GET /api/v1/users を処理します。
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, size, sort, ok := listQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid paging parameters")
		return
	}

	result, err := h.uc.ListUsers(r.Context(), user.ListUsersInput{Page: page, Size: size, Sort: sort})
	if err != nil {
		h.writeUserError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Content:       toUserResponses(result.Users),
		Page:          result.Page,
		Size:          result.Size,
		TotalElements: result.TotalCount,
	})
}

// Update は PUT /api/v1/users/{id} を処理します。
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var body updateUserRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.uc.UpdateUser(r.Context(), user.UpdateUserInput{
		ID:          id,
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		PhoneNumber: body.PhoneNumber,
		CompanyID:   body.CompanyID,
	})
	if err != nil {
		h.writeUserError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// Delete は DELETE /api/v1/users/{id} を処理します。
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.uc.DeleteUser(r.Context(), user.DeleteUserInput{ID: id}); err != nil {
		h.writeUserError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetCompany は PUT /api/v1/users/{id}/company を処理します。
// ボディは会社 ID そのもの、null の場合は参照を解除します。
func (h *UserHandler) SetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var companyID *int64
	if err := decodeJSON(r, &companyID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.uc.SetUserCompany(r.Context(), user.SetUserCompanyInput{UserID: id, CompanyID: companyID}); err != nil {
		h.writeUserError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		writeError(w, http.StatusNotFound, user.ErrUserNotFound.Error())
	case errors.Is(err, user.ErrCompanyNotFound):
		writeError(w, http.StatusNotFound, user.ErrCompanyNotFound.Error())
	case errors.Is(err, user.ErrPhoneNumberAlreadyExists):
		writeError(w, http.StatusConflict, user.ErrPhoneNumberAlreadyExists.Error())
	case isUserValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isUserValidationError(err error) bool {
	for _, sentinel := range []error{
		user.ErrInvalidFirstName,
		user.ErrInvalidLastName,
		user.ErrInvalidPhoneNumber,
		user.ErrInvalidID,
		user.ErrInvalidCompanyID,
		user.ErrInvalidPage,
		user.ErrInvalidPageSize,
		user.ErrInvalidSort,
		user.ErrInvalidIDList,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
