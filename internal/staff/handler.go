package staff

import (
	"net/http"

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

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := api.Decode(r, &req); err != nil {
		api.Fail(w, err)
		return
	}

	res, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, res)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context(), myMiddleware.Token(r.Context())); err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	staffID, ok := myMiddleware.StaffID(r.Context())
	if !ok {
		api.Fail(w, apperr.Unauthorized("Not authenticated"))
		return
	}
	s, err := h.Service.Get(r.Context(), staffID)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, s)
}

// List returns every staff member, or one department's with ?department=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if dept := r.URL.Query().Get("department"); dept != "" {
		api.OK(w, h.Service.ByDepartment(r.Context(), dept))
		return
	}
	api.OK(w, h.Service.All(r.Context()))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	api.OK(w, h.Service.Search(r.Context(), r.URL.Query().Get("q")))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, s)
}

func (h *Handler) Departments(w http.ResponseWriter, r *http.Request) {
	api.OK(w, h.Service.Departments(r.Context()))
}

func (h *Handler) Institutions(w http.ResponseWriter, r *http.Request) {
	api.OK(w, h.Service.Institutions())
}

// Routes mounts the authenticated staff endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/logout", h.Logout)
	r.Get("/api/me", h.Me)
	r.Get("/api/staff", h.List)
	r.Get("/api/staff/search", h.Search)
	r.Get("/api/staff/{id}", h.Get)
	r.Get("/api/departments", h.Departments)
	r.Get("/api/institutions", h.Institutions)
}

func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req CreateStaffRequest
	if err := api.Decode(r, &req); err != nil {
		api.Fail(w, err)
		return
	}
	by, _ := myMiddleware.StaffID(r.Context())
	s, err := h.Service.CreateStaff(r.Context(), &req, by)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Created(w, s)
}

func (h *Handler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	by, _ := myMiddleware.StaffID(r.Context())
	if err := h.Service.DeleteStaff(r.Context(), chi.URLParam(r, "id"), by); err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, nil)
}

func (h *Handler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	by, _ := myMiddleware.StaffID(r.Context())
	s, err := h.Service.ToggleStatus(r.Context(), chi.URLParam(r, "id"), by)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, s)
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req DepartmentRequest
	if err := api.Decode(r, &req); err != nil {
		api.Fail(w, err)
		return
	}
	d, err := h.Service.CreateDepartment(r.Context(), &req)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Created(w, d)
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var req DepartmentRequest
	if err := api.Decode(r, &req); err != nil {
		api.Fail(w, err)
		return
	}
	d, err := h.Service.UpdateDepartment(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, d)
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDepartment(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, nil)
}

// AdminRoutes mounts the back-office endpoints. Callers guard them with
// myMiddleware.RequireAdmin.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/api/admin/staff", h.CreateStaff)
	r.Delete("/api/admin/staff/{id}", h.DeleteStaff)
	r.Post("/api/admin/staff/{id}/toggle-status", h.ToggleStatus)
	r.Post("/api/admin/departments", h.CreateDepartment)
	r.Put("/api/admin/departments/{id}", h.UpdateDepartment)
	r.Delete("/api/admin/departments/{id}", h.DeleteDepartment)
}
