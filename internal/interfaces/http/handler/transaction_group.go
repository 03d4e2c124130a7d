package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	appledger "github.com/openpharm/ledger/internal/application/ledger"
	"github.com/openpharm/ledger/internal/domain/ledger"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/openpharm/ledger/internal/interfaces/http/dto"
	"github.com/openpharm/ledger/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// TransactionService is the lifecycle surface the handler depends on
type TransactionService interface {
	CreateTransactionGroup(ctx context.Context, req appledger.CreateTransactionGroupRequest) (*ledger.TransactionGroup, error)
	ReplaceEntries(ctx context.Context, id valueobject.ObjectID, inputs []appledger.EntryInput) (*ledger.TransactionGroup, error)
	Confirm(ctx context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error)
	Unlock(ctx context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error)
	Cancel(ctx context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error)
	Delete(ctx context.Context, id valueobject.ObjectID) error
	GetTransactionGroup(ctx context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error)
	ListTransactionGroups(ctx context.Context, filter ledger.TransactionGroupFilter) ([]ledger.TransactionGroup, int64, error)
}

// FundingFlowService is the query surface the handler depends on
type FundingFlowService interface {
	GetFundingFlow(ctx context.Context, id valueobject.ObjectID) (*appledger.FundingFlowView, error)
	GetTransactionBalance(ctx context.Context, id valueobject.ObjectID) (*ledger.BalanceSnapshot, error)
}

// TransactionGroupHandler handles transaction group HTTP endpoints
type TransactionGroupHandler struct {
	BaseHandler
	transactions TransactionService
	flows        FundingFlowService
}

// NewTransactionGroupHandler creates a new TransactionGroupHandler
func NewTransactionGroupHandler(transactions TransactionService, flows FundingFlowService) *TransactionGroupHandler {
	return &TransactionGroupHandler{
		transactions: transactions,
		flows:        flows,
	}
}

// RegisterRoutes registers transaction group routes
func (h *TransactionGroupHandler) RegisterRoutes(rg *gin.RouterGroup) {
	groups := rg.Group("/transaction-groups")
	{
		groups.POST("", h.Create)
		groups.GET("", h.List)
		groups.GET("/:id", h.Get)
		groups.PUT("/:id/entries", h.ReplaceEntries)
		groups.POST("/:id/confirm", h.Confirm)
		groups.POST("/:id/unlock", h.Unlock)
		groups.POST("/:id/cancel", h.Cancel)
		groups.DELETE("/:id", h.Delete)
		groups.GET("/:id/funding-flow", h.FundingFlow)
		groups.GET("/:id/balance", h.Balance)
	}
}

type entryRequest struct {
	AccountID   string          `json:"account_id" binding:"required,objectid"`
	AccountName string          `json:"account_name" binding:"max=200"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type createTransactionGroupRequest struct {
	GroupNumber     string         `json:"group_number" binding:"required,max=50"`
	TransactionDate time.Time      `json:"transaction_date" binding:"required"`
	Description     string         `json:"description" binding:"max=500"`
	OrganizationID  string         `json:"organization_id" binding:"omitempty,objectid"`
	InvoiceNumber   string         `json:"invoice_number" binding:"max=100"`
	Sources         []interface{}  `json:"sources"`
	Entries         []entryRequest `json:"entries" binding:"required,min=1,dive"`
}

type replaceEntriesRequest struct {
	Entries []entryRequest `json:"entries" binding:"required,min=1,dive"`
}

// Create handles POST /transaction-groups
func (h *TransactionGroupHandler) Create(c *gin.Context) {
	var req createTransactionGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	sourceIDs, err := resolveSourceReferences(req.Sources)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidReference, err.Error())
		return
	}

	var organizationID *valueobject.ObjectID
	if req.OrganizationID != "" {
		id, parseErr := valueobject.ParseObjectID(req.OrganizationID)
		if parseErr != nil {
			h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "organization_id is not a valid identifier")
			return
		}
		organizationID = &id
	}

	group, err := h.transactions.CreateTransactionGroup(c.Request.Context(), appledger.CreateTransactionGroupRequest{
		GroupNumber:     req.GroupNumber,
		TransactionDate: req.TransactionDate,
		Description:     req.Description,
		OrganizationID:  organizationID,
		InvoiceNumber:   req.InvoiceNumber,
		SourceIDs:       sourceIDs,
		Entries:         toEntryInputs(req.Entries),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toGroupResponse(group))
}

// List handles GET /transaction-groups
func (h *TransactionGroupHandler) List(c *gin.Context) {
	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if listReq.Page == 0 {
		listReq.Page = 1
	}
	if listReq.PageSize == 0 {
		listReq.PageSize = 20
	}

	filter := ledger.TransactionGroupFilter{
		Search:   listReq.Search,
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
	}
	if status := c.Query("status"); status != "" {
		s := ledger.GroupStatus(status)
		if !s.IsValid() {
			h.BadRequest(c, fmt.Sprintf("Unknown status %q", status))
			return
		}
		filter.Status = &s
	}
	if org := c.Query("organization_id"); org != "" {
		id, err := valueobject.ParseObjectID(org)
		if err != nil {
			h.BadRequest(c, "Invalid organization_id")
			return
		}
		filter.OrganizationID = &id
	}
	if from := c.Query("from_date"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			h.BadRequest(c, "from_date must be RFC3339")
			return
		}
		filter.FromDate = &t
	}
	if to := c.Query("to_date"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			h.BadRequest(c, "to_date must be RFC3339")
			return
		}
		filter.ToDate = &t
	}

	groups, total, err := h.transactions.ListTransactionGroups(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]gin.H, 0, len(groups))
	for i := range groups {
		items = append(items, toGroupResponse(&groups[i]))
	}
	h.SuccessWithMeta(c, items, total, listReq.Page, listReq.PageSize)
}

// Get handles GET /transaction-groups/:id
func (h *TransactionGroupHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	group, err := h.transactions.GetTransactionGroup(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toGroupResponse(group))
}

// ReplaceEntries handles PUT /transaction-groups/:id/entries
func (h *TransactionGroupHandler) ReplaceEntries(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req replaceEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	group, err := h.transactions.ReplaceEntries(c.Request.Context(), id, toEntryInputs(req.Entries))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toGroupResponse(group))
}

// Confirm handles POST /transaction-groups/:id/confirm
func (h *TransactionGroupHandler) Confirm(c *gin.Context) {
	h.transition(c, h.transactions.Confirm)
}

// Unlock handles POST /transaction-groups/:id/unlock
func (h *TransactionGroupHandler) Unlock(c *gin.Context) {
	h.transition(c, h.transactions.Unlock)
}

// Cancel handles POST /transaction-groups/:id/cancel
func (h *TransactionGroupHandler) Cancel(c *gin.Context) {
	h.transition(c, h.transactions.Cancel)
}

// Delete handles DELETE /transaction-groups/:id
func (h *TransactionGroupHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.transactions.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// FundingFlow handles GET /transaction-groups/:id/funding-flow
func (h *TransactionGroupHandler) FundingFlow(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	view, err := h.flows.GetFundingFlow(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Balance handles GET /transaction-groups/:id/balance
func (h *TransactionGroupHandler) Balance(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	snapshot, err := h.flows.GetTransactionBalance(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if snapshot == nil {
		h.NotFound(c, "No balance is available for this transaction")
		return
	}
	h.Success(c, snapshot)
}

func (h *TransactionGroupHandler) transition(c *gin.Context, op func(context.Context, valueobject.ObjectID) (*ledger.TransactionGroup, error)) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	group, err := op(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toGroupResponse(group))
}

// pathID validates and parses the :id path parameter.
// Malformed IDs are rejected before any service call.
func (h *TransactionGroupHandler) pathID(c *gin.Context) (valueobject.ObjectID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "id must be a 24-character hex identifier")
		return "", false
	}
	id, err := valueobject.ParseObjectID(req.ID)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidationFormat, "id must be a 24-character hex identifier")
		return "", false
	}
	return id, true
}

// resolveSourceReferences normalizes the heterogeneous reference shapes
// clients send for funding sources
func resolveSourceReferences(raw []interface{}) ([]valueobject.ObjectID, error) {
	ids := make([]valueobject.ObjectID, 0, len(raw))
	for i, r := range raw {
		resolved := ledger.ResolveReference(r)
		if !resolved.Valid {
			return nil, fmt.Errorf("source reference %d cannot be resolved to a transaction", i)
		}
		ids = append(ids, resolved.ID)
	}
	return ids, nil
}

func toEntryInputs(entries []entryRequest) []appledger.EntryInput {
	inputs := make([]appledger.EntryInput, 0, len(entries))
	for _, e := range entries {
		inputs = append(inputs, appledger.EntryInput{
			AccountID:   e.AccountID,
			AccountName: e.AccountName,
			Debit:       e.Debit,
			Credit:      e.Credit,
		})
	}
	return inputs
}

func toGroupResponse(group *ledger.TransactionGroup) gin.H {
	totals := group.Totals()

	entries := make([]gin.H, 0, len(group.Entries))
	for i := range group.Entries {
		e := &group.Entries[i]
		entries = append(entries, gin.H{
			"id":           e.ID,
			"account_id":   e.AccountID,
			"account_name": e.AccountName,
			"debit":        e.DebitAmount,
			"credit":       e.CreditAmount,
			"position":     e.Position,
		})
	}

	resp := gin.H{
		"id":               group.ID,
		"group_number":     group.GroupNumber,
		"transaction_date": group.TransactionDate,
		"description":      group.Description,
		"status":           group.Status,
		"funding_type":     group.FundingType,
		"invoice_number":   group.InvoiceNumber,
		"total_amount":     totals.TotalAmount,
		"debit_total":      totals.DebitTotal,
		"credit_total":     totals.CreditTotal,
		"balanced":         totals.Balanced,
		"entries":          entries,
		"source_ids":       group.SourceIDs(),
		"version":          group.Version,
		"created_at":       group.CreatedAt,
		"updated_at":       group.UpdatedAt,
	}
	if group.OrganizationID != nil {
		resp["organization_id"] = group.OrganizationID
	}
	if group.ConfirmedAt != nil {
		resp["confirmed_at"] = group.ConfirmedAt
	}
	if group.CancelledAt != nil {
		resp["cancelled_at"] = group.CancelledAt
	}
	if len(group.ReferencedBy) > 0 {
		resp["referenced_by"] = group.ReferencedBy
	}
	return resp
}
