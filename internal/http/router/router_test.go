package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	qs "github.com/google/go-querystring/query"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/http/router"
	"github.com/diagnosis/bloodcare/internal/platform/identity"
	"github.com/diagnosis/bloodcare/internal/repo/memory"
	"github.com/diagnosis/bloodcare/internal/service"
	"github.com/diagnosis/bloodcare/pkg/events"
)

// ---------- Fakes ----------

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

type memoryCounter struct {
	mu   sync.Mutex
	hits map[string]int64
}

func (c *memoryCounter) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits[key]++
	return c.hits[key], nil
}

// ---------- Harness ----------

type harness struct {
	srv    *httptest.Server
	store  *memory.Store
	tokens *identity.HMACVerifier
}

func newHarness(t *testing.T, rateRequests int) *harness {
	t.Helper()
	store := memory.NewStore()
	tokens := identity.NewHMACVerifier("test-secret")

	handler := router.New(router.Deps{
		Users:          service.NewUserService(store.Users(), events.Noop{}),
		Donations:      service.NewDonationService(store.DonationRequests(), events.Noop{}),
		Stats:          service.NewStatsService(store.Users(), store.DonationRequests()),
		Resolver:       identity.NewResolver(tokens),
		Guard:          service.NewAccessGuard(store.Users()),
		RateCounter:    &memoryCounter{hits: map[string]int64{}},
		RateRequests:   rateRequests,
		RateWindow:     time.Minute,
		Idempotency:    &memoryCache{data: map[string]string{}},
		IdempotencyTTL: time.Hour,
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &harness{srv: srv, store: store, tokens: tokens}
}

func (h *harness) token(t *testing.T, email string) string {
	t.Helper()
	tok, err := h.tokens.Issue(email, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends body as JSON and decodes the response into out when out is set.
func (h *harness) do(t *testing.T, method, path, token string, body, out any, headers ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (h *harness) login(t *testing.T, email string) string {
	t.Helper()
	tok := h.token(t, email)
	resp := h.do(t, http.MethodPost, "/users", tok, domain.SyncLoginCommand{}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return tok
}

func (h *harness) promote(t *testing.T, email string, role domain.Role) {
	t.Helper()
	u, err := h.store.Users().FindByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, u)
	_, err = h.store.Users().SetRole(context.Background(), u.ID, role)
	require.NoError(t, err)
}

func sampleRequest() domain.CreateRequestCommand {
	return domain.CreateRequestCommand{
		RequesterName: "Alice",
		Logistics: domain.Logistics{
			RecipientName:     "Rahim",
			RecipientDistrict: "Dhaka",
			RecipientUpazila:  "Mirpur",
			HospitalName:      "Dhaka Medical",
			FullAddress:       "Ward 4",
			BloodGroup:        "O+",
			DonationDate:      "2024-03-10",
			DonationTime:      "10:00",
		},
	}
}

type deleteQuery struct {
	Email string `url:"email"`
}

type listQuery struct {
	Email        string `url:"email,omitempty"`
	StatusFilter string `url:"statusFilter,omitempty"`
}

// ---------- Tests ----------

func TestDonationRequestLifecycle(t *testing.T) {
	h := newHarness(t, 100)
	alice := h.login(t, "a@x.com")
	carol := h.login(t, "c@x.com")

	var created domain.WriteResult
	resp := h.do(t, http.MethodPost, "/donation-requests", alice, sampleRequest(), &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, created.InsertedID)
	path := "/donation-requests/" + created.InsertedID

	var got domain.DonationRequest
	h.do(t, http.MethodGet, path, "", nil, &got)
	require.Equal(t, domain.StatusPending, got.DonationStatus)
	require.Equal(t, "a@x.com", got.RequesterEmail)
	require.Nil(t, got.DonorEmail)

	var committed domain.WriteResult
	resp = h.do(t, http.MethodPatch, "/donate/"+created.InsertedID, "",
		domain.CommitDonorCommand{Name: "Bob", Email: "b@x.com"}, &committed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, committed.ModifiedCount)

	h.do(t, http.MethodGet, path, "", nil, &got)
	require.Equal(t, domain.StatusInProgress, got.DonationStatus)
	require.NotNil(t, got.DonorEmail)
	require.Equal(t, "b@x.com", *got.DonorEmail)

	v, err := qs.Values(deleteQuery{Email: "c@x.com"})
	require.NoError(t, err)
	resp = h.do(t, http.MethodDelete, "/donation-requests/delete/"+created.InsertedID+"?"+v.Encode(), carol, nil, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	h.do(t, http.MethodGet, path, "", nil, &got)
	require.Equal(t, created.InsertedID, got.ID)

	v, err = qs.Values(deleteQuery{Email: "a@x.com"})
	require.NoError(t, err)
	var deleted domain.WriteResult
	resp = h.do(t, http.MethodDelete, "/donation-requests/delete/"+created.InsertedID+"?"+v.Encode(), alice, nil, &deleted)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, deleted.DeletedCount)

	var gone *domain.DonationRequest
	resp = h.do(t, http.MethodGet, path, "", nil, &gone)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, gone)
}

func TestStatusUpdateRules(t *testing.T) {
	h := newHarness(t, 100)
	alice := h.login(t, "a@x.com")

	var created domain.WriteResult
	h.do(t, http.MethodPost, "/donation-requests", alice, sampleRequest(), &created)
	path := "/update-donation-status/" + created.InsertedID

	resp := h.do(t, http.MethodPatch, path, alice, domain.UpdateStatusCommand{DonationStatus: domain.StatusInProgress}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.do(t, http.MethodPatch, path, alice, domain.UpdateStatusCommand{DonationStatus: "archived"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodPatch, path, alice, domain.UpdateStatusCommand{DonationStatus: domain.StatusCanceled}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodPatch, "/update-donation-status/missing", alice, domain.UpdateStatusCommand{DonationStatus: domain.StatusDone}, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListingsByEmailAndStatus(t *testing.T) {
	h := newHarness(t, 100)
	alice := h.login(t, "a@x.com")

	for i := 0; i < 2; i++ {
		h.do(t, http.MethodPost, "/donation-requests", alice, sampleRequest(), nil)
	}
	var first domain.WriteResult
	h.do(t, http.MethodPost, "/donation-requests", alice, sampleRequest(), &first)
	h.do(t, http.MethodPatch, "/donate/"+first.InsertedID, "", domain.CommitDonorCommand{Name: "Bob", Email: "b@x.com"}, nil)

	v, err := qs.Values(listQuery{Email: "a@x.com", StatusFilter: "pending"})
	require.NoError(t, err)
	var pending []domain.DonationRequest
	resp := h.do(t, http.MethodGet, "/donation-requests?"+v.Encode(), alice, nil, &pending)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, pending, 2)

	v, err = qs.Values(listQuery{Email: "b@x.com"})
	require.NoError(t, err)
	var donations []domain.DonationRequest
	h.do(t, http.MethodGet, "/donations?"+v.Encode(), alice, nil, &donations)
	require.Len(t, donations, 1)

	var public []domain.DonationRequest
	h.do(t, http.MethodGet, "/donation-requests/public", "", nil, &public)
	require.Len(t, public, 2)
}

func TestAuthenticationAndAdminGate(t *testing.T) {
	h := newHarness(t, 100)

	resp := h.do(t, http.MethodGet, "/user/role", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/user/role", "not-a-token", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var role domain.RoleView
	resp = h.do(t, http.MethodGet, "/user/role", h.token(t, "ghost@x.com"), nil, &role)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, role.Role)

	donor := h.login(t, "d@x.com")
	var denied map[string]any
	resp = h.do(t, http.MethodGet, "/users", donor, nil, &denied)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "donor", denied["role"])

	admin := h.login(t, "admin@x.com")
	h.promote(t, "admin@x.com", domain.RoleAdmin)

	var users []domain.User
	resp = h.do(t, http.MethodGet, "/users", admin, nil, &users)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, users, 1)
	require.Equal(t, "d@x.com", users[0].Email)

	target, err := h.store.Users().FindByEmail(context.Background(), "d@x.com")
	require.NoError(t, err)
	resp = h.do(t, http.MethodPatch, "/users/block/"+target.ID, admin, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status domain.StatusView
	h.do(t, http.MethodGet, "/users/check-status/d@x.com", "", nil, &status)
	require.Equal(t, domain.UserBlocked, status.Status)

	resp = h.do(t, http.MethodPatch, "/users/make-volunteer/"+target.ID, admin, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	h.do(t, http.MethodGet, "/user/role", donor, nil, &role)
	require.NotNil(t, role.Role)
	require.Equal(t, domain.RoleVolunteer, *role.Role)
}

func TestProfileIsSelfOnly(t *testing.T) {
	h := newHarness(t, 100)
	alice := h.login(t, "a@x.com")
	h.login(t, "b@x.com")

	update := domain.UpdateProfileCommand{Profile: domain.Profile{Name: "Alice", BloodGroup: "A+", District: "Dhaka"}}
	resp := h.do(t, http.MethodPatch, "/users/update/b@x.com", alice, update, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodPatch, "/users/update/a@x.com", alice, update, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile domain.User
	resp = h.do(t, http.MethodGet, "/users/a@x.com", alice, nil, &profile)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Alice", profile.Name)

	var bt domain.BloodTypeView
	h.do(t, http.MethodGet, "/bloodType/a@x.com", "", nil, &bt)
	require.Equal(t, "A+", bt.BloodGroup)

	var donors []domain.User
	h.do(t, http.MethodGet, "/users/donors?blood=A%2B&district=Dhaka", "", nil, &donors)
	require.Len(t, donors, 1)
	require.Equal(t, "a@x.com", donors[0].Email)
}

func TestCreateIsIdempotent(t *testing.T) {
	h := newHarness(t, 100)
	alice := h.login(t, "a@x.com")

	var first, second domain.WriteResult
	resp := h.do(t, http.MethodPost, "/donation-requests", alice, sampleRequest(), &first, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = h.do(t, http.MethodPost, "/donation-requests", alice, sampleRequest(), &second, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "true", resp.Header.Get("Idempotent-Replay"))
	require.Equal(t, first.InsertedID, second.InsertedID)

	var stats domain.AppStats
	h.do(t, http.MethodGet, "/application-stats", alice, nil, &stats)
	require.EqualValues(t, 1, stats.TotalDonationRequest)
	require.EqualValues(t, 1, stats.TotalUsers)
}

func TestCommitIsRateLimited(t *testing.T) {
	h := newHarness(t, 2)

	for i := 0; i < 2; i++ {
		resp := h.do(t, http.MethodPatch, "/donate/missing", "", domain.CommitDonorCommand{Name: "Bob", Email: "b@x.com"}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := h.do(t, http.MethodPatch, "/donate/missing", "", domain.CommitDonorCommand{Name: "Bob", Email: "b@x.com"}, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestWelcomeAndHealth(t *testing.T) {
	h := newHarness(t, 100)

	resp, err := http.Get(h.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Welcome to BloodCare server!", buf.String())

	resp = h.do(t, http.MethodGet, "/healthz", "", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
