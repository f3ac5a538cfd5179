package files

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"smartsender/internal/api"
	"smartsender/internal/apperr"
	myMiddleware "smartsender/internal/middleware"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/files", h.List)
	r.Post("/api/files", h.Upload)
	r.Get("/api/files/received", h.Received)
	r.Get("/api/files/sent", h.Sent)
	r.Get("/api/files/{id}", h.Get)
	r.Post("/api/files/{id}/download", h.Download)
	r.Post("/api/files/{id}/share", h.Share)
	r.Get("/api/dashboard", h.Dashboard)
	r.Get("/api/activities", h.Activities)
}

// AdminRoutes mounts the back-office file endpoints. Callers guard them with
// myMiddleware.RequireAdmin.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Delete("/api/admin/files/{id}", h.Delete)
}

func staffFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := myMiddleware.StaffID(r.Context())
	if !ok {
		api.Fail(w, apperr.Unauthorized("Not authenticated"))
	}
	return id, ok
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	api.OK(w, h.Service.All(r.Context()))
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	staffID, ok := staffFrom(w, r)
	if !ok {
		return
	}
	var req UploadRequest
	if err := api.Decode(r, &req); err != nil {
		api.Fail(w, err)
		return
	}
	f, err := h.Service.Upload(r.Context(), staffID, &req)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Created(w, f)
}

func (h *Handler) Received(w http.ResponseWriter, r *http.Request) {
	staffID, ok := staffFrom(w, r)
	if !ok {
		return
	}
	api.OK(w, h.Service.Received(r.Context(), staffID))
}

func (h *Handler) Sent(w http.ResponseWriter, r *http.Request) {
	staffID, ok := staffFrom(w, r)
	if !ok {
		return
	}
	api.OK(w, h.Service.Sent(r.Context(), staffID))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	staffID, ok := staffFrom(w, r)
	if !ok {
		return
	}
	f, err := h.Service.View(r.Context(), chi.URLParam(r, "id"), staffID)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, f)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	staffID, ok := staffFrom(w, r)
	if !ok {
		return
	}
	f, err := h.Service.Download(r.Context(), chi.URLParam(r, "id"), staffID)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, f)
}

func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	staffID, ok := staffFrom(w, r)
	if !ok {
		return
	}
	var req ShareRequest
	if err := api.Decode(r, &req); err != nil {
		api.Fail(w, err)
		return
	}
	f, err := h.Service.Share(r.Context(), chi.URLParam(r, "id"), staffID, req.RecipientIDs)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, f)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	staffID, ok := staffFrom(w, r)
	if !ok {
		return
	}
	api.OK(w, h.Service.Stats(r.Context(), staffID))
}

func (h *Handler) Activities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			api.Fail(w, apperr.Validation("limit must be an integer"))
			return
		}
		limit = n
	}
	api.OK(w, h.Service.RecentActivities(r.Context(), limit))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	staffID, ok := staffFrom(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id"), staffID); err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, nil)
}
