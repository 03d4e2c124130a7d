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

	"github.com/gin-gonic/gin"
	appledger "github.com/openpharm/ledger/internal/application/ledger"
	"github.com/openpharm/ledger/internal/domain/ledger"
	"github.com/openpharm/ledger/internal/domain/shared"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/openpharm/ledger/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransactionService struct {
	groups     map[valueobject.ObjectID]*ledger.TransactionGroup
	createErr  error
	confirmErr error
}

func newFakeTransactionService(groups ...*ledger.TransactionGroup) *fakeTransactionService {
	s := &fakeTransactionService{groups: make(map[valueobject.ObjectID]*ledger.TransactionGroup)}
	for _, g := range groups {
		s.groups[g.ID] = g
	}
	return s
}

func (s *fakeTransactionService) CreateTransactionGroup(_ context.Context, req appledger.CreateTransactionGroupRequest) (*ledger.TransactionGroup, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	group, err := ledger.NewTransactionGroup(req.GroupNumber, req.TransactionDate, req.Description)
	if err != nil {
		return nil, err
	}
	if len(req.SourceIDs) > 0 {
		if err := group.LinkSources(req.SourceIDs...); err != nil {
			return nil, err
		}
	}
	s.groups[group.ID] = group
	return group, nil
}

func (s *fakeTransactionService) ReplaceEntries(_ context.Context, id valueobject.ObjectID, _ []appledger.EntryInput) (*ledger.TransactionGroup, error) {
	return s.lookup(id)
}

func (s *fakeTransactionService) Confirm(_ context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return s.lookup(id)
}

func (s *fakeTransactionService) Unlock(_ context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	return s.lookup(id)
}

func (s *fakeTransactionService) Cancel(_ context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	return s.lookup(id)
}

func (s *fakeTransactionService) Delete(_ context.Context, id valueobject.ObjectID) error {
	if _, ok := s.groups[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.groups, id)
	return nil
}

func (s *fakeTransactionService) GetTransactionGroup(_ context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	return s.lookup(id)
}

func (s *fakeTransactionService) ListTransactionGroups(_ context.Context, _ ledger.TransactionGroupFilter) ([]ledger.TransactionGroup, int64, error) {
	out := make([]ledger.TransactionGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, *g)
	}
	return out, int64(len(out)), nil
}

func (s *fakeTransactionService) lookup(id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	g, ok := s.groups[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return g, nil
}

type fakeFlowService struct {
	view     *appledger.FundingFlowView
	snapshot *ledger.BalanceSnapshot
	err      error
}

func (s *fakeFlowService) GetFundingFlow(_ context.Context, _ valueobject.ObjectID) (*appledger.FundingFlowView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.view, nil
}

func (s *fakeFlowService) GetTransactionBalance(_ context.Context, _ valueobject.ObjectID) (*ledger.BalanceSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

func setupRouter(transactions TransactionService, flows FundingFlowService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())

	api := engine.Group("/api/v1")
	NewTransactionGroupHandler(transactions, flows).RegisterRoutes(api)
	return engine
}

func draftGroup(t *testing.T, number string) *ledger.TransactionGroup {
	t.Helper()
	group, err := ledger.NewTransactionGroup(number, time.Now(), "handler test")
	require.NoError(t, err)
	group.ClearDomainEvents()
	return group
}

func performJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateTransactionGroupEndpoint(t *testing.T) {
	t.Run("creates group with $oid source reference", func(t *testing.T) {
		source := draftGroup(t, "TG-SRC")
		svc := newFakeTransactionService(source)
		engine := setupRouter(svc, &fakeFlowService{})

		w := performJSON(t, engine, http.MethodPost, "/api/v1/transaction-groups", gin.H{
			"group_number":     "TG-NEW",
			"transaction_date": time.Now().Format(time.RFC3339),
			"description":      "extended purchase",
			"sources":          []gin.H{{"$oid": source.ID.String()}},
			"entries": []gin.H{
				{"account_id": valueobject.NewObjectID().String(), "account_name": "Inventory", "debit": 400},
				{"account_id": valueobject.NewObjectID().String(), "account_name": "Cash", "credit": 400},
			},
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		data := body["data"].(map[string]any)
		assert.Equal(t, "TG-NEW", data["group_number"])
		assert.Equal(t, "extended", data["funding_type"])
	})

	t.Run("unresolvable source reference is rejected", func(t *testing.T) {
		engine := setupRouter(newFakeTransactionService(), &fakeFlowService{})

		w := performJSON(t, engine, http.MethodPost, "/api/v1/transaction-groups", gin.H{
			"group_number":     "TG-BAD",
			"transaction_date": time.Now().Format(time.RFC3339),
			"sources":          []gin.H{{"unexpected": "shape"}},
			"entries": []gin.H{
				{"account_id": valueobject.NewObjectID().String(), "debit": 100},
			},
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		errInfo := body["error"].(map[string]any)
		assert.Equal(t, "ERR_INVALID_REFERENCE", errInfo["code"])
	})

	t.Run("malformed entry account id fails validation", func(t *testing.T) {
		engine := setupRouter(newFakeTransactionService(), &fakeFlowService{})

		w := performJSON(t, engine, http.MethodPost, "/api/v1/transaction-groups", gin.H{
			"group_number":     "TG-BADACC",
			"transaction_date": time.Now().Format(time.RFC3339),
			"entries": []gin.H{
				{"account_id": "nope", "debit": 100},
			},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetTransactionGroupEndpoint(t *testing.T) {
	t.Run("malformed id is rejected before the service", func(t *testing.T) {
		engine := setupRouter(newFakeTransactionService(), &fakeFlowService{})

		w := performJSON(t, engine, http.MethodGet, "/api/v1/transaction-groups/not-hex", nil)

		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		errInfo := body["error"].(map[string]any)
		assert.Equal(t, "ERR_VALIDATION_FORMAT", errInfo["code"])
	})

	t.Run("missing group yields 404", func(t *testing.T) {
		engine := setupRouter(newFakeTransactionService(), &fakeFlowService{})

		w := performJSON(t, engine, http.MethodGet,
			fmt.Sprintf("/api/v1/transaction-groups/%s", valueobject.NewObjectID()), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("existing group is returned", func(t *testing.T) {
		group := draftGroup(t, "TG-GET")
		engine := setupRouter(newFakeTransactionService(group), &fakeFlowService{})

		w := performJSON(t, engine, http.MethodGet,
			fmt.Sprintf("/api/v1/transaction-groups/%s", group.ID), nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		data := body["data"].(map[string]any)
		assert.Equal(t, "TG-GET", data["group_number"])
	})
}

func TestLifecycleEndpoints(t *testing.T) {
	t.Run("unbalanced confirm maps to 422", func(t *testing.T) {
		group := draftGroup(t, "TG-UNBAL")
		svc := newFakeTransactionService(group)
		svc.confirmErr = shared.NewDomainError("UNBALANCED_ENTRIES", "Only balanced groups can be confirmed")
		engine := setupRouter(svc, &fakeFlowService{})

		w := performJSON(t, engine, http.MethodPost,
			fmt.Sprintf("/api/v1/transaction-groups/%s/confirm", group.ID), nil)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decodeBody(t, w)
		errInfo := body["error"].(map[string]any)
		assert.Equal(t, "ERR_UNBALANCED_ENTRIES", errInfo["code"])
	})

	t.Run("delete returns 204", func(t *testing.T) {
		group := draftGroup(t, "TG-DEL")
		engine := setupRouter(newFakeTransactionService(group), &fakeFlowService{})

		w := performJSON(t, engine, http.MethodDelete,
			fmt.Sprintf("/api/v1/transaction-groups/%s", group.ID), nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestListTransactionGroupsEndpoint(t *testing.T) {
	t.Run("returns items with pagination meta", func(t *testing.T) {
		group := draftGroup(t, "TG-LIST")
		engine := setupRouter(newFakeTransactionService(group), &fakeFlowService{})

		w := performJSON(t, engine, http.MethodGet, "/api/v1/transaction-groups?page=1&page_size=10", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		meta := body["meta"].(map[string]any)
		assert.Equal(t, float64(1), meta["total"])
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		engine := setupRouter(newFakeTransactionService(), &fakeFlowService{})

		w := performJSON(t, engine, http.MethodGet, "/api/v1/transaction-groups?status=archived", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed from_date is rejected", func(t *testing.T) {
		engine := setupRouter(newFakeTransactionService(), &fakeFlowService{})

		w := performJSON(t, engine, http.MethodGet, "/api/v1/transaction-groups?from_date=yesterday", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFundingFlowEndpoints(t *testing.T) {
	t.Run("funding flow view is returned", func(t *testing.T) {
		group := draftGroup(t, "TG-FLOW")
		flows := &fakeFlowService{view: &appledger.FundingFlowView{
			TransactionID: group.ID,
			GroupNumber:   group.GroupNumber,
			Status:        ledger.GroupStatusDraft,
			TotalAmount:   decimal.NewFromInt(1000),
			Sources:       []appledger.FundingSourceView{},
			ReferencedBy:  []appledger.ReferencedByView{},
		}}
		engine := setupRouter(newFakeTransactionService(group), flows)

		w := performJSON(t, engine, http.MethodGet,
			fmt.Sprintf("/api/v1/transaction-groups/%s/funding-flow", group.ID), nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		data := body["data"].(map[string]any)
		assert.Equal(t, "TG-FLOW", data["group_number"])
	})

	t.Run("missing balance yields 404", func(t *testing.T) {
		engine := setupRouter(newFakeTransactionService(), &fakeFlowService{snapshot: nil})

		w := performJSON(t, engine, http.MethodGet,
			fmt.Sprintf("/api/v1/transaction-groups/%s/balance", valueobject.NewObjectID()), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
