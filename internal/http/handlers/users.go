package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/http/middleware"
	"github.com/diagnosis/bloodcare/internal/http/response"
	"github.com/diagnosis/bloodcare/internal/query"
)

func (h *Handlers) CheckStatus(w http.ResponseWriter, r *http.Request) {
	v, err := h.users.GetStatus(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) BloodType(w http.ResponseWriter, r *http.Request) {
	v, err := h.users.GetBloodType(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) ListDonors(w http.ResponseWriter, r *http.Request) {
	donors, err := h.users.ListDonors(r.Context(), query.DonorParamsFrom(r.URL.Query()))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donors)
}

func (h *Handlers) SyncLogin(w http.ResponseWriter, r *http.Request) {
	var cmd domain.SyncLoginCommand
	if err := decode(w, r, &cmd); err != nil {
		response.FromError(w, r, err)
		return
	}
	u, err := h.users.SyncLogin(r.Context(), middleware.Auth(r), cmd)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var cmd domain.UpdateProfileCommand
	if err := decode(w, r, &cmd); err != nil {
		response.FromError(w, r, err)
		return
	}
	res, err := h.users.UpdateProfile(r.Context(), middleware.Auth(r), chi.URLParam(r, "email"), cmd)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetProfile(r.Context(), middleware.Auth(r), chi.URLParam(r, "email"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// GetRole answers for the caller; an unregistered principal gets a null role.
func (h *Handlers) GetRole(w http.ResponseWriter, r *http.Request) {
	v, err := h.users.GetRole(r.Context(), middleware.Auth(r).Email)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if v == nil {
		v = &domain.RoleView{}
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context(), middleware.Auth(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// SetUserStatus returns the handler for one of the block/unblock routes.
func (h *Handlers) SetUserStatus(status domain.UserStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.users.SetStatus(r.Context(), middleware.Auth(r), chi.URLParam(r, "id"), status)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// SetUserRole returns the handler for one of the promotion routes.
func (h *Handlers) SetUserRole(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.users.SetRole(r.Context(), middleware.Auth(r), chi.URLParam(r, "id"), role)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context(), middleware.Auth(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
