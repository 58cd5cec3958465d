package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/http/middleware"
	"github.com/diagnosis/bloodcare/internal/http/response"
	"github.com/diagnosis/bloodcare/internal/query"
)

func (h *Handlers) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var cmd domain.CreateRequestCommand
	if err := decode(w, r, &cmd); err != nil {
		response.FromError(w, r, err)
		return
	}
	res, err := h.donations.Create(r.Context(), middleware.Auth(r), cmd)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) ListPublicPending(w http.ResponseWriter, r *http.Request) {
	out, err := h.donations.ListPublicPending(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetRequest(w http.ResponseWriter, r *http.Request) {
	d, err := h.donations.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) CommitDonor(w http.ResponseWriter, r *http.Request) {
	var cmd domain.CommitDonorCommand
	if err := decode(w, r, &cmd); err != nil {
		response.FromError(w, r, err)
		return
	}
	res, err := h.donations.CommitDonor(r.Context(), chi.URLParam(r, "id"), cmd)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	out, err := h.donations.ListRequests(r.Context(), middleware.Auth(r), query.RequestParamsFrom(r.URL.Query()))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) ListDonations(w http.ResponseWriter, r *http.Request) {
	out, err := h.donations.ListDonations(r.Context(), middleware.Auth(r), query.RequestParamsFrom(r.URL.Query()))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var cmd domain.UpdateStatusCommand
	if err := decode(w, r, &cmd); err != nil {
		response.FromError(w, r, err)
		return
	}
	res, err := h.donations.UpdateStatus(r.Context(), middleware.Auth(r), chi.URLParam(r, "id"), cmd)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) EditRequest(w http.ResponseWriter, r *http.Request) {
	var cmd domain.EditRequestCommand
	if err := decode(w, r, &cmd); err != nil {
		response.FromError(w, r, err)
		return
	}
	res, err := h.donations.Edit(r.Context(), middleware.Auth(r), chi.URLParam(r, "id"), cmd)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	caller := strings.TrimSpace(r.URL.Query().Get("email"))
	res, err := h.donations.Delete(r.Context(), middleware.Auth(r), chi.URLParam(r, "id"), caller)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
