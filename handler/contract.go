package handler

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dannmaldonado/midiacore/middleware"
	"github.com/dannmaldonado/midiacore/model"
	"github.com/dannmaldonado/midiacore/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ContractHandler struct {
	repo      service.Repository
	documents *service.DocumentService
}

// NewContractHandler wires the contract CRUD surface. documents may be nil
// when object storage is not configured; uploads then return 503.
func NewContractHandler(repo service.Repository, documents *service.DocumentService) *ContractHandler {
	return &ContractHandler{
		repo:      repo,
		documents: documents,
	}
}

type contractRequest struct {
	ShoppingName string     `json:"shopping_name" binding:"required"`
	ClientName   string     `json:"client_name" binding:"required"`
	MediaType    string     `json:"media_type" binding:"required"`
	Value        float64    `json:"value"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
}

// Create registers a new contract for the caller's tenant
func (h *ContractHandler) Create(c *gin.Context) {
	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract := &model.Contract{
		ID:           uuid.New().String(),
		Tenant:       middleware.GetTenant(c),
		ShoppingName: req.ShoppingName,
		ClientName:   req.ClientName,
		MediaType:    req.MediaType,
		Value:        req.Value,
		Status:       model.StatusPending,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := h.repo.CreateContract(c.Request.Context(), contract); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contract)
}

// List returns all contracts for the current tenant
func (h *ContractHandler) List(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	contracts, err := h.repo.ListContracts(c.Request.Context(), tenant)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

// Get returns a single contract
func (h *ContractHandler) Get(c *gin.Context) {
	contract, ok := h.tenantContract(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, contract)
}

// Update edits a contract's direct fields. Status and current_step are
// workflow-owned and cannot be changed here.
func (h *ContractHandler) Update(c *gin.Context) {
	contract, ok := h.tenantContract(c)
	if !ok {
		return
	}

	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract.ShoppingName = req.ShoppingName
	contract.ClientName = req.ClientName
	contract.MediaType = req.MediaType
	contract.Value = req.Value
	contract.StartDate = req.StartDate
	contract.EndDate = req.EndDate
	contract.UpdatedAt = time.Now()

	if err := h.repo.UpdateContract(c.Request.Context(), contract); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// UploadDocument stores a contract document (signed agreement or artwork)
func (h *ContractHandler) UploadDocument(c *gin.Context) {
	if h.documents == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document storage not configured"})
		return
	}

	contract, ok := h.tenantContract(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentTypes := map[string]string{
		".pdf": "application/pdf",
		".png": "image/png",
		".jpg": "image/jpeg",
	}
	contentType, allowed := contentTypes[ext]
	if !allowed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF, PNG and JPG files are allowed"})
		return
	}

	objectName := h.documents.ObjectName(contract.Tenant, contract.ID, header.Filename)
	if err := h.documents.Upload(c.Request.Context(), objectName, file, header.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload document: " + err.Error()})
		return
	}

	url, err := h.documents.PresignedURL(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	contract.DocumentURL = url
	contract.UpdatedAt = time.Now()
	if err := h.repo.UpdateContract(c.Request.Context(), contract); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           contract.ID,
		"filename":     header.Filename,
		"document_url": url,
	})
}

// tenantContract loads the contract from the path and enforces tenant
// scoping; cross-tenant ids look like missing ones.
func (h *ContractHandler) tenantContract(c *gin.Context) (*model.Contract, bool) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	contract, err := h.repo.GetContract(c.Request.Context(), id)
	if err != nil || contract.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return nil, false
	}
	return contract, true
}
