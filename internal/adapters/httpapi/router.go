package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewUserRouter はユーザーサービスのルーティングを構築します。
func NewUserRouter(h *UserHandler, log zerolog.Logger) http.Handler {
	r := newBaseRouter(log)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/by-ids", h.GetByIDs)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Put("/{id}/company", h.SetCompany)
	})

	return r
}

// NewCompanyRouter は会社サービスのルーティングを構築します。
func NewCompanyRouter(h *CompanyHandler, log zerolog.Logger) http.Handler {
	r := newBaseRouter(log)

	r.Route("/api/v1/companies", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/by-ids", h.GetByIDs)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{companyId}/employees/{employeeId}", h.AddEmployee)
		r.Delete("/{companyId}/employees/{employeeId}", h.RemoveEmployee)
	})

	return r
}

func newBaseRouter(log zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(loggerMiddleware(log))
	r.Use(chimid.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}

func loggerMiddleware(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimid.GetReqID(r.Context())
			log.Info().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request")
			next.ServeHTTP(w, r)
		})
	}
}
