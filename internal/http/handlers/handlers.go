package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/service"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	users     service.UserService
	donations service.DonationService
	stats     service.StatsService
}

func New(users service.UserService, donations service.DonationService, stats service.StatsService) *Handlers {
	return &Handlers{
		users:     users,
		donations: donations,
		stats:     stats,
	}
}

func (h *Handlers) Welcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Welcome to BloodCare server!"))
}

// decode reads a JSON body into dst. Unknown fields are ignored; a body
// that is not JSON is invalid input.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// Helper functions for common response patterns
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
