package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dannmaldonado/midiacore/config"
	"github.com/dannmaldonado/midiacore/middleware"
	"github.com/dannmaldonado/midiacore/model"
	"github.com/dannmaldonado/midiacore/service"
	"github.com/dannmaldonado/midiacore/workflow"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router *gin.Engine
	repo   *service.MemoryRepository
	cfg    *config.Config
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        "test-secret",
			TokenExpireHours: 1,
		},
		Users: []config.User{
			{Username: "ana", Tenant: "tenant1", Role: "user"},
			{Username: "root", Tenant: "tenant1", Role: "admin"},
			{Username: "eve", Tenant: "tenant2", Role: "user"},
		},
	}

	repo := service.NewMemoryRepository()
	directory := service.NewConfigDirectory(cfg)
	notifier := service.NewNotificationDispatcher(repo)
	store := service.NewWorkflowStore(repo, directory, notifier)
	renewals := service.NewRenewalInitiator(repo, notifier)

	contractHandler := NewContractHandler(repo, nil)
	workflowHandler := NewWorkflowHandler(store, renewals, repo)
	notificationHandler := NewNotificationHandler(repo)

	router := gin.New()
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		api.POST("/contracts", contractHandler.Create)
		api.GET("/contracts/:id", contractHandler.Get)
		api.GET("/contracts/:id/steps", workflowHandler.ListSteps)
		api.POST("/contracts/:id/workflow", workflowHandler.Initiate)
		api.POST("/contracts/:id/renew", workflowHandler.Renew)
		api.POST("/steps/:id/assign", workflowHandler.Assign)
		api.POST("/steps/:id/transition", workflowHandler.Transition)
		api.GET("/workflow/templates", workflowHandler.ListTemplates)
		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
	}

	return &testEnv{router: router, repo: repo, cfg: cfg}
}

func (env *testEnv) token(t *testing.T, username string) string {
	t.Helper()

	user := env.cfg.FindUser(username)
	require.NotNil(t, user)

	token, _, err := middleware.GenerateToken(user.Username, user.Tenant, user.Role, &env.cfg.Auth)
	require.NoError(t, err)
	return token
}

func (env *testEnv) do(t *testing.T, method, path, username string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+env.token(t, username))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) seedContract(t *testing.T, id, tenant string) {
	t.Helper()

	contract := &model.Contract{
		ID:           id,
		Tenant:       tenant,
		ShoppingName: "Shopping Sul",
		ClientName:   "Loja X",
		MediaType:    "totem",
		Status:       model.StatusPending,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, env.repo.CreateContract(context.Background(), contract))
}

func TestWorkflowEndToEnd(t *testing.T) {
	env := setupEnv(t)
	env.seedContract(t, "c1", "tenant1")

	// initiate the internal template
	w := env.do(t, "POST", "/api/contracts/c1/workflow", "root", gin.H{"template": "internal"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var initResp struct {
		Steps []model.WorkflowStep `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &initResp))
	require.Len(t, initResp.Steps, 4)

	// listing returns them in order
	w = env.do(t, "GET", "/api/contracts/c1/steps", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// assign step 1 to ana
	first := initResp.Steps[0]
	w = env.do(t, "POST", "/api/steps/"+first.ID+"/assign", "root", gin.H{"username": "ana"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// ana received the assignment notification
	w = env.do(t, "GET", "/api/notifications", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notifResp struct {
		Notifications []model.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notifResp))
	require.Len(t, notifResp.Notifications, 1)
	assert.Equal(t, model.NotificationAssigned, notifResp.Notifications[0].Type)

	// ana approves her step
	w = env.do(t, "POST", "/api/steps/"+first.ID+"/transition", "ana", gin.H{"action": "approve"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var approved model.WorkflowStep
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &approved))
	assert.Equal(t, model.StepStatusApproved, approved.Status)
	assert.NotNil(t, approved.CompletedAt)

	// a second transition conflicts
	w = env.do(t, "POST", "/api/steps/"+first.ID+"/transition", "ana", gin.H{"action": "reject", "notes": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// mark the notification read
	w = env.do(t, "POST", "/api/notifications/"+notifResp.Notifications[0].ID+"/read", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestWorkflowErrorStatusCodes(t *testing.T) {
	env := setupEnv(t)
	env.seedContract(t, "c1", "tenant1")

	tests := []struct {
		name   string
		setup  func(t *testing.T) (method, path string, body interface{})
		caller string
		status int
	}{
		{
			name: "unknown template",
			setup: func(t *testing.T) (string, string, interface{}) {
				return "POST", "/api/contracts/c1/workflow", gin.H{"template": "bogus"}
			},
			caller: "root",
			status: http.StatusBadRequest,
		},
		{
			name: "unknown contract",
			setup: func(t *testing.T) (string, string, interface{}) {
				return "POST", "/api/contracts/ghost/workflow", gin.H{"template": "internal"}
			},
			caller: "root",
			status: http.StatusNotFound,
		},
		{
			name: "unknown renewal kind",
			setup: func(t *testing.T) (string, string, interface{}) {
				return "POST", "/api/contracts/c1/renew", gin.H{"kind": "partial"}
			},
			caller: "root",
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, path, body := tt.setup(t)
			w := env.do(t, method, path, tt.caller, body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestWorkflowDoubleInitiationConflicts(t *testing.T) {
	env := setupEnv(t)
	env.seedContract(t, "c1", "tenant1")

	w := env.do(t, "POST", "/api/contracts/c1/workflow", "root", gin.H{"template": "internal"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, "POST", "/api/contracts/c1/workflow", "root", gin.H{"template": "internal"})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestWorkflowCrossTenantAssignForbidden(t *testing.T) {
	env := setupEnv(t)
	env.seedContract(t, "c1", "tenant1")

	w := env.do(t, "POST", "/api/contracts/c1/workflow", "root", gin.H{"template": "internal"})
	require.Equal(t, http.StatusCreated, w.Code)

	var initResp struct {
		Steps []model.WorkflowStep `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &initResp))

	w = env.do(t, "POST", "/api/steps/"+initResp.Steps[0].ID+"/assign", "root", gin.H{"username": "eve"})
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}

func TestWorkflowTenantIsolation(t *testing.T) {
	env := setupEnv(t)
	env.seedContract(t, "c1", "tenant1")

	// another tenant's user cannot see the contract or its workflow
	w := env.do(t, "GET", "/api/contracts/c1/steps", "eve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "POST", "/api/contracts/c1/workflow", "eve", gin.H{"template": "internal"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkflowUnauthorizedTransition(t *testing.T) {
	env := setupEnv(t)
	env.seedContract(t, "c1", "tenant1")

	w := env.do(t, "POST", "/api/contracts/c1/workflow", "root", gin.H{"template": "internal"})
	require.Equal(t, http.StatusCreated, w.Code)

	var initResp struct {
		Steps []model.WorkflowStep `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &initResp))

	// assigned to ana, but another same-tenant non-admin tries to act
	stepID := initResp.Steps[0].ID
	w = env.do(t, "POST", "/api/steps/"+stepID+"/assign", "root", gin.H{"username": "ana"})
	require.Equal(t, http.StatusOK, w.Code)

	env.cfg.Users = append(env.cfg.Users, config.User{Username: "bob", Tenant: "tenant1", Role: "user"})
	w = env.do(t, "POST", "/api/steps/"+stepID+"/transition", "bob", gin.H{"action": "approve"})
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}

func TestRenewEndpoint(t *testing.T) {
	env := setupEnv(t)
	env.seedContract(t, "c1", "tenant1")

	w := env.do(t, "POST", "/api/contracts/c1/renew", "root", gin.H{"kind": "with_swap"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Step     model.WorkflowStep `json:"step"`
		Contract model.Contract     `json:"contract"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, workflow.StepRenovacaoComTroca, resp.Step.StepID)
	require.NotNil(t, resp.Contract.CurrentStep)
	assert.Equal(t, workflow.StepRenovacaoComTroca, *resp.Contract.CurrentStep)
}

func TestListTemplates(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, "GET", "/api/workflow/templates", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Templates map[string][]struct {
			StepID         string   `json:"step_id"`
			SLADays        *int     `json:"sla_days"`
			EditableFields []string `json:"editable_fields"`
		} `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Templates["internal"], 4)
	assert.Len(t, resp.Templates["prazos"], 12)
}

func TestContractCreateAndGet(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, "POST", "/api/contracts", "ana", gin.H{
		"shopping_name": "Shopping Leste",
		"client_name":   "Marca Y",
		"media_type":    "empena",
		"value":         45000.0,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.Contract
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "tenant1", created.Tenant)
	assert.Equal(t, model.StatusPending, created.Status)

	w = env.do(t, "GET", fmt.Sprintf("/api/contracts/%s", created.ID), "ana", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// invisible to the other tenant
	w = env.do(t, "GET", fmt.Sprintf("/api/contracts/%s", created.ID), "eve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
