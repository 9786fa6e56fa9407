package handler

import (
	"net/http"

	"github.com/dannmaldonado/midiacore/middleware"
	"github.com/dannmaldonado/midiacore/service"
	"github.com/dannmaldonado/midiacore/workflow"
	"github.com/gin-gonic/gin"
)

type WorkflowHandler struct {
	store    *service.WorkflowStore
	renewals *service.RenewalInitiator
	repo     service.Repository
}

func NewWorkflowHandler(store *service.WorkflowStore, renewals *service.RenewalInitiator, repo service.Repository) *WorkflowHandler {
	return &WorkflowHandler{
		store:    store,
		renewals: renewals,
		repo:     repo,
	}
}

// ListSteps returns a contract's approval history in creation order
func (h *WorkflowHandler) ListSteps(c *gin.Context) {
	contractID, ok := h.tenantContractID(c)
	if !ok {
		return
	}

	steps, err := h.store.ListSteps(c.Request.Context(), contractID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"steps": steps})
}

type initiateRequest struct {
	Template string `json:"template" binding:"required"`
}

// Initiate creates the canonical step sequence for a contract
func (h *WorkflowHandler) Initiate(c *gin.Context) {
	contractID, ok := h.tenantContractID(c)
	if !ok {
		return
	}

	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	steps, err := h.store.InitiateWorkflow(c.Request.Context(), contractID, req.Template)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"steps": steps})
}

type assignRequest struct {
	Username string `json:"username" binding:"required"`
}

// Assign sets a step's assignee
func (h *WorkflowHandler) Assign(c *gin.Context) {
	stepID, ok := h.tenantStepID(c)
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step, err := h.store.Assign(c.Request.Context(), stepID, req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, step)
}

type transitionRequest struct {
	Action string `json:"action" binding:"required"`
	Notes  string `json:"notes"`
}

// Transition applies approve, reject or skip to a pending step
func (h *WorkflowHandler) Transition(c *gin.Context) {
	stepID, ok := h.tenantStepID(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	action, valid := workflow.ParseAction(req.Action)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Action must be approve, reject or skip"})
		return
	}

	actor := middleware.GetActor(c)
	step, err := h.store.ApplyTransition(c.Request.Context(), stepID, action, actor, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, step)
}

type renewRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// Renew appends a renewal step and moves the contract's current_step pointer
func (h *WorkflowHandler) Renew(c *gin.Context) {
	contractID, ok := h.tenantContractID(c)
	if !ok {
		return
	}

	var req renewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.GetActor(c)
	step, contract, err := h.renewals.StartRenewal(c.Request.Context(), contractID, req.Kind, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"step":     step,
		"contract": contract,
	})
}

// ListTemplates exposes the step template registry with SLAs and the
// per-stage editable contract fields for the UI
func (h *WorkflowHandler) ListTemplates(c *gin.Context) {
	result := gin.H{}
	for _, id := range workflow.TemplateIDs() {
		entries, err := workflow.Template(id)
		if err != nil {
			respondError(c, err)
			return
		}

		stages := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			stages = append(stages, gin.H{
				"step_id":         e.StepID,
				"sla_days":        e.SLADays,
				"editable_fields": workflow.EditableFields(e.StepID),
			})
		}
		result[id] = stages
	}

	c.JSON(http.StatusOK, gin.H{"templates": result})
}

func (h *WorkflowHandler) tenantContractID(c *gin.Context) (string, bool) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	contract, err := h.repo.GetContract(c.Request.Context(), id)
	if err != nil || contract.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return "", false
	}
	return contract.ID, true
}

// tenantStepID resolves a step id and enforces that its contract belongs to
// the caller's tenant
func (h *WorkflowHandler) tenantStepID(c *gin.Context) (string, bool) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	step, err := h.repo.GetStep(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Step not found"})
		return "", false
	}

	contract, err := h.repo.GetContract(c.Request.Context(), step.ContractID)
	if err != nil || contract.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Step not found"})
		return "", false
	}
	return step.ID, true
}
