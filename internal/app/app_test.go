package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fintrack/fintrack/internal/config"
	"github.com/fintrack/fintrack/internal/rest"
	"github.com/fintrack/fintrack/pkg/draft_store"
	"github.com/fintrack/fintrack/pkg/finance_api"
	"github.com/fintrack/fintrack/pkg/onboarding"
	"github.com/fintrack/fintrack/pkg/user"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func setupRouter(t *testing.T, jwtSecret string) (http.Handler, *finance_api.ClientStub) {
	t.Helper()
	cfg := config.Application{Auth: config.Auth{JwtSecret: jwtSecret}}
	client := finance_api.NewClientStub()
	deps := buildDependencies(draft_store.NewMemoryStore(), client, cfg)
	r := mux.NewRouter()
	SetupMiddleware(r, deps, cfg)
	RegisterRoutes(r, deps, cfg)
	return r, client
}

func send(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	t.Run("should reject requests without a user", func(t *testing.T) {
		h, _ := setupRouter(t, "")

		w := send(t, h, http.MethodGet, "/api/onboarding", "", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("should take the user from the X-User-Id header", func(t *testing.T) {
		h, _ := setupRouter(t, "")

		w := send(t, h, http.MethodGet, "/api/onboarding", "", map[string]string{UserIdHeader: "u-1"})

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("should take the user from a valid bearer token", func(t *testing.T) {
		// given
		h, _ := setupRouter(t, testSecret)
		token, err := user.NewTokenValidator(testSecret).Issue(user.User{Id: "u-jwt"}, time.Now(), time.Hour)
		require.NoError(t, err)
		headers := map[string]string{"Authorization": "Bearer " + token}

		// when
		send(t, h, http.MethodPut, "/api/onboarding/personalInfo", `{"fullName":"Token User"}`, headers)
		w := send(t, h, http.MethodGet, "/api/onboarding", "", headers)

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var state onboarding.State
		require.NoError(t, json.NewDecoder(w.Body).Decode(&state))
		assert.Equal(t, "Token User", state.Draft.PersonalInfo.FullName)
	})

	t.Run("should require a token and ignore X-User-Id when a secret is configured", func(t *testing.T) {
		// given
		h, _ := setupRouter(t, testSecret)
		token, err := user.NewTokenValidator(testSecret).Issue(user.User{Id: "victim"}, time.Now(), time.Hour)
		require.NoError(t, err)
		send(t, h, http.MethodPut, "/api/onboarding/personalInfo", `{"fullName":"Victim"}`,
			map[string]string{"Authorization": "Bearer " + token})

		// when
		w := send(t, h, http.MethodGet, "/api/onboarding", "", map[string]string{UserIdHeader: "victim"})

		// then
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, w.Body.String(), "Victim")
		var body rest.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Authentication required", body.Error)
	})

	t.Run("should resolve the token user even when X-User-Id names another user", func(t *testing.T) {
		// given
		h, _ := setupRouter(t, testSecret)
		token, err := user.NewTokenValidator(testSecret).Issue(user.User{Id: "attacker"}, time.Now(), time.Hour)
		require.NoError(t, err)
		victim, err := user.NewTokenValidator(testSecret).Issue(user.User{Id: "victim"}, time.Now(), time.Hour)
		require.NoError(t, err)
		send(t, h, http.MethodPut, "/api/onboarding/personalInfo", `{"fullName":"Victim"}`,
			map[string]string{"Authorization": "Bearer " + victim})

		// when
		w := send(t, h, http.MethodGet, "/api/onboarding", "", map[string]string{
			"Authorization": "Bearer " + token,
			UserIdHeader:    "victim",
		})

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var state onboarding.State
		require.NoError(t, json.NewDecoder(w.Body).Decode(&state))
		assert.Empty(t, state.Draft.PersonalInfo.FullName)
	})

	t.Run("should answer 401 for an invalid token", func(t *testing.T) {
		h, _ := setupRouter(t, testSecret)
		token, err := user.NewTokenValidator("other-secret").Issue(user.User{Id: "u-1"}, time.Now(), time.Hour)
		require.NoError(t, err)

		w := send(t, h, http.MethodGet, "/api/onboarding", "", map[string]string{
			"Authorization": "Bearer " + token,
			UserIdHeader:    "u-1",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body rest.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Invalid or expired token", body.Error)
	})

	t.Run("should ignore bearer tokens when no secret is configured", func(t *testing.T) {
		h, _ := setupRouter(t, "")

		w := send(t, h, http.MethodGet, "/api/onboarding", "", map[string]string{
			"Authorization": "Bearer whatever",
			UserIdHeader:    "u-1",
		})

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRoutes_FullOnboarding(t *testing.T) {
	// given
	h, client := setupRouter(t, "")
	headers := map[string]string{UserIdHeader: "u-42"}
	steps := []struct {
		path string
		body string
	}{
		{"/api/onboarding/personalInfo", `{"fullName":"Asha Rao","phoneNumber":"9876543210","email":"asha@example.com"}`},
		{"/api/onboarding/employmentInfo", `{"status":"Unemployed","monthlySalary":"1000"}`},
		{"/api/onboarding/bankAccounts", `[{"bankName":"HDFC","accountNumber":"123456789012","ifscCode":"HDFC0001234"}]`},
		{"/api/onboarding/cardDetails", `[]`},
		{"/api/onboarding/budget", `{"totalBudget":"20000","categories":[{"name":"Groceries","amount":"5000","color":"#10B981"}]}`},
	}

	// when
	for _, step := range steps {
		w := send(t, h, http.MethodPut, step.path, step.body, headers)
		require.Equal(t, http.StatusOK, w.Code, step.path)
		w = send(t, h, http.MethodPost, "/api/onboarding/next", "", headers)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w := send(t, h, http.MethodPost, "/api/onboarding/complete", `{"consent":true}`, headers)

	// then
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"redirect":"/dashboard"}`, w.Body.String())
	assert.Equal(t, []string{"UpdateUser", "CreateBankAccount", "CreateBudget"}, client.Operations())

	w = send(t, h, http.MethodGet, "/api/onboarding", "", headers)
	var state onboarding.State
	require.NoError(t, json.NewDecoder(w.Body).Decode(&state))
	assert.Equal(t, onboarding.StepPersonalInfo, state.CurrentStep)
	assert.Empty(t, state.CompletedSteps)
}

func TestOpenDraftStore(t *testing.T) {
	ctx := context.Background()

	t.Run("should open a sealed memory store", func(t *testing.T) {
		cfg := config.Application{Draft: config.Draft{Backend: "memory", Secret: "s3cret"}}

		store, closeFn, err := OpenDraftStore(ctx, cfg)

		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &draft_store.SealedStore{}, store)
	})

	t.Run("should open a plain memory store without secret", func(t *testing.T) {
		cfg := config.Application{Draft: config.Draft{Backend: "memory"}}

		store, closeFn, err := OpenDraftStore(ctx, cfg)

		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &draft_store.MemoryStore{}, store)
	})

	t.Run("should reject unknown backend", func(t *testing.T) {
		cfg := config.Application{Draft: config.Draft{Backend: "etcd"}}

		_, _, err := OpenDraftStore(ctx, cfg)

		assert.ErrorIs(t, err, ErrUnknownBackend)
	})
}
