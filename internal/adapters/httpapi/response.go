// Package httpapi はユーザー・会社サービスの HTTP API ハンドラを提供します。
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// listResponse は一覧系エンドポイント共通のレスポンス形式です。
type listResponse struct {
	Content       any   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// idsQuery は ?ids=1,2,3 形式のクエリを解釈します。
func idsQuery(r *http.Request) ([]int64, bool) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		return nil, true
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// listQuery はページング用の page / size / sort クエリを解釈します。
// 省略された項目はゼロ値のままユースケース側の既定値に委ねます。
func listQuery(r *http.Request) (page, size int, sort string, ok bool) {
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, "", false
		}
		page = v
	}

	if raw := q.Get("size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, "", false
		}
		size = v
	}

	return page, size, q.Get("sort"), true
}
