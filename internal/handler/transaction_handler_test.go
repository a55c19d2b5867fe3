package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harold2001/financer-manager-api/shared/cqrs"
	"github.com/harold2001/financer-manager-api/shared/errs"
	"github.com/harold2001/financer-manager-api/shared/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ---- mock implementations ----

type mockTransactionCommander struct {
	createFn func(cqrs.CreateTransactionCommand) (*models.TransactionRecord, error)
	updateFn func(cqrs.UpdateTransactionCommand) (*models.TransactionRecord, error)
	deleteFn func(cqrs.DeleteTransactionCommand) error
}

func (m *mockTransactionCommander) CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (*models.TransactionRecord, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockTransactionCommander) UpdateTransaction(ctx context.Context, cmd cqrs.UpdateTransactionCommand) (*models.TransactionRecord, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockTransactionCommander) DeleteTransaction(ctx context.Context, cmd cqrs.DeleteTransactionCommand) error {
	if m.deleteFn != nil {
		return m.deleteFn(cmd)
	}
	return fmt.Errorf("not configured")
}

type mockTransactionQuerier struct {
	getFn       func(cqrs.GetTransactionQuery) (*models.TransactionRecord, error)
	listFn      func(cqrs.ListTransactionsQuery) ([]models.TransactionRecord, error)
	summarizeFn func(cqrs.ListTransactionsQuery) (*models.TransactionSummary, error)
}

func (m *mockTransactionQuerier) GetTransaction(ctx context.Context, q cqrs.GetTransactionQuery) (*models.TransactionRecord, error) {
	if m.getFn != nil {
		return m.getFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockTransactionQuerier) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.TransactionRecord, error) {
	if m.listFn != nil {
		return m.listFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockTransactionQuerier) SummarizeTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) (*models.TransactionSummary, error) {
	if m.summarizeFn != nil {
		return m.summarizeFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func fakeAuth(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", userID)
		c.Next()
	}
}

func newTxTestRouter(cmds TransactionCommander, qrys TransactionQuerier, authUserID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(fakeAuth(authUserID))
	h := NewTransactionHandler(cmds, qrys, zerolog.Nop())
	g := r.Group("/transactions")
	g.POST("/", h.CreateTransaction)
	g.GET("/", h.ListTransactions)
	g.GET("/summary", h.SummarizeTransactions)
	g.GET("/:transactionId", h.GetTransaction)
	g.PUT("/:transactionId", h.UpdateTransaction)
	g.DELETE("/:transactionId", h.DeleteTransaction)
	return r
}

func doRequest(router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		var raw string
		if s, ok := body.(string); ok {
			raw = s
		} else {
			b, _ := json.Marshal(body)
			raw = string(b)
		}
		req, _ = http.NewRequest(method, url, strings.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ---- test data ----

var txTestRecord = &models.TransactionRecord{
	ID: "tx-001", UserID: "usr-001",
	Type: models.TransactionTypeExpense, Amount: 50, Category: "food",
	Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
}

func txExpenseBody() map[string]interface{} {
	return map[string]interface{}{"type": "expense", "amount": 50.0, "category": "food", "date": "2024-01-02", "description": "Lunch"}
}

// ---- tests ----

func TestCreateTransaction(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		createFn       func(cqrs.CreateTransactionCommand) (*models.TransactionRecord, error)
		expectedStatus int
	}{
		{
			name:           "success - create an expense",
			body:           txExpenseBody(),
			createFn:       func(cmd cqrs.CreateTransactionCommand) (*models.TransactionRecord, error) { return txTestRecord, nil },
			expectedStatus: http.StatusCreated,
		},
		{
			name: "success - user_id in body is ignored",
			body: map[string]interface{}{"type": "income", "amount": 10, "category": "gift", "date": "2024-01-02T10:00:00Z", "user_id": "usr-999"},
			createFn: func(cmd cqrs.CreateTransactionCommand) (*models.TransactionRecord, error) {
				if cmd.UserID != "usr-001" {
					return nil, fmt.Errorf("owner taken from body: %s", cmd.UserID)
				}
				return txTestRecord, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - missing required fields",
			body:           map[string]interface{}{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - amount is zero",
			body:           map[string]interface{}{"type": "expense", "amount": 0, "category": "food", "date": "2024-01-02"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - negative amount",
			body:           map[string]interface{}{"type": "expense", "amount": -5, "category": "food", "date": "2024-01-02"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - unknown type",
			body:           map[string]interface{}{"type": "transfer", "amount": 5, "category": "food", "date": "2024-01-02"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - unparseable date",
			body:           map[string]interface{}{"type": "expense", "amount": 5, "category": "food", "date": "yesterday"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - malformed json",
			body:           `{"type": "expense",`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - service validation error",
			body: txExpenseBody(),
			createFn: func(cmd cqrs.CreateTransactionCommand) (*models.TransactionRecord, error) {
				return nil, errs.Invalid("amount", "gt", "Value must be greater than 0")
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "internal error - store failure",
			body:           txExpenseBody(),
			createFn:       func(cmd cqrs.CreateTransactionCommand) (*models.TransactionRecord, error) { return nil, fmt.Errorf("connection reset") },
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockTransactionCommander{createFn: tt.createFn}
			router := newTxTestRouter(cmds, &mockTransactionQuerier{}, "usr-001")
			w := doRequest(router, http.MethodPost, "/transactions/", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestCreateTransactionInternalErrorIsGeneric(t *testing.T) {
	cmds := &mockTransactionCommander{createFn: func(cmd cqrs.CreateTransactionCommand) (*models.TransactionRecord, error) {
		return nil, fmt.Errorf("pq: password authentication failed for user admin")
	}}
	router := newTxTestRouter(cmds, &mockTransactionQuerier{}, "usr-001")
	w := doRequest(router, http.MethodPost, "/transactions/", txExpenseBody())
	if strings.Contains(w.Body.String(), "pq:") {
		t.Errorf("internal detail leaked: %s", w.Body.String())
	}
}

func TestListTransactions(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		listFn         func(cqrs.ListTransactionsQuery) ([]models.TransactionRecord, error)
		expectedStatus int
		expectedCount  int
	}{
		{
			name: "success - list own transactions",
			url:  "/transactions/",
			listFn: func(q cqrs.ListTransactionsQuery) ([]models.TransactionRecord, error) {
				return []models.TransactionRecord{*txTestRecord}, nil
			},
			expectedStatus: http.StatusOK,
			expectedCount:  1,
		},
		{
			name: "success - filters are passed through",
			url:  "/transactions/?type=expense&category=food&start_date=2024-01-01&end_date=2024-01-31T23:59:59Z",
			listFn: func(q cqrs.ListTransactionsQuery) ([]models.TransactionRecord, error) {
				f := q.Filter
				if q.UserID != "usr-001" || f.Type != models.TransactionTypeExpense || f.Category != "food" ||
					f.StartDate == nil || f.EndDate == nil || f.EndDate.Day() != 31 {
					return nil, fmt.Errorf("unexpected query %+v", q)
				}
				return []models.TransactionRecord{*txTestRecord}, nil
			},
			expectedStatus: http.StatusOK,
			expectedCount:  1,
		},
		{
			name: "success - absent filters stay unset",
			url:  "/transactions/",
			listFn: func(q cqrs.ListTransactionsQuery) ([]models.TransactionRecord, error) {
				if q.Filter != (models.TransactionFilter{}) {
					return nil, fmt.Errorf("unexpected filter %+v", q.Filter)
				}
				return nil, nil
			},
			expectedStatus: http.StatusOK,
			expectedCount:  0,
		},
		{
			name:           "bad request - invalid start_date",
			url:            "/transactions/?start_date=01-01-2024",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - invalid type",
			url:  "/transactions/?type=refund",
			listFn: func(q cqrs.ListTransactionsQuery) ([]models.TransactionRecord, error) {
				return nil, q.Filter.Validate()
			},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTxTestRouter(&mockTransactionCommander{}, &mockTransactionQuerier{listFn: tt.listFn}, "usr-001")
			w := doRequest(router, http.MethodGet, tt.url, nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Code == http.StatusOK {
				var records []models.TransactionRecord
				if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
					t.Fatalf("response is not a JSON array: %s", w.Body.String())
				}
				if len(records) != tt.expectedCount {
					t.Errorf("expected %d records, got %d", tt.expectedCount, len(records))
				}
			}
		})
	}
}

func TestSummarizeTransactions(t *testing.T) {
	qrys := &mockTransactionQuerier{summarizeFn: func(q cqrs.ListTransactionsQuery) (*models.TransactionSummary, error) {
		s := models.Summarize([]models.TransactionRecord{*txTestRecord})
		return &s, nil
	}}
	router := newTxTestRouter(&mockTransactionCommander{}, qrys, "usr-001")
	w := doRequest(router, http.MethodGet, "/transactions/summary?type=expense", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d; body: %s", w.Code, w.Body.String())
	}
	var body models.TransactionSummary
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || !body.Expense.Equal(decimal.NewFromInt(50)) {
		t.Errorf("unexpected summary %+v", body)
	}
}

func TestGetTransaction(t *testing.T) {
	tests := []struct {
		name           string
		transactionID  string
		getFn          func(cqrs.GetTransactionQuery) (*models.TransactionRecord, error)
		expectedStatus int
	}{
		{
			name:           "success - fetch own transaction",
			transactionID:  "tx-001",
			getFn:          func(q cqrs.GetTransactionQuery) (*models.TransactionRecord, error) { return txTestRecord, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "forbidden - fetch another user's transaction",
			transactionID:  "tx-001",
			getFn:          func(q cqrs.GetTransactionQuery) (*models.TransactionRecord, error) { return nil, errs.ErrForbidden },
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "not found - transaction does not exist",
			transactionID:  "tx-999",
			getFn:          func(q cqrs.GetTransactionQuery) (*models.TransactionRecord, error) { return nil, errs.ErrNotFound },
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "not found - wrapped error",
			transactionID:  "tx-999",
			getFn:          func(q cqrs.GetTransactionQuery) (*models.TransactionRecord, error) { return nil, fmt.Errorf("lookup: %w", errs.ErrNotFound) },
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTxTestRouter(&mockTransactionCommander{}, &mockTransactionQuerier{getFn: tt.getFn}, "usr-001")
			w := doRequest(router, http.MethodGet, "/transactions/"+tt.transactionID, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestUpdateTransaction(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		updateFn       func(cqrs.UpdateTransactionCommand) (*models.TransactionRecord, error)
		expectedStatus int
	}{
		{
			name: "success - only sent fields are set",
			body: map[string]interface{}{"amount": 75.5},
			updateFn: func(cmd cqrs.UpdateTransactionCommand) (*models.TransactionRecord, error) {
				p := cmd.Patch
				if !p.Amount.Set || p.Amount.Value != 75.5 || p.Type.Set || p.Category.Set || p.Date.Set || p.Description.Set {
					return nil, fmt.Errorf("unexpected patch %+v", p)
				}
				return txTestRecord, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "success - null description clears it",
			body: `{"description": null, "date": "2024-02-01"}`,
			updateFn: func(cmd cqrs.UpdateTransactionCommand) (*models.TransactionRecord, error) {
				p := cmd.Patch
				if !p.Description.Set || p.Description.Value != "" || !p.Date.Set || p.Date.Value.Month() != time.February {
					return nil, fmt.Errorf("unexpected patch %+v", p)
				}
				return txTestRecord, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "success - null date is passed on for validation",
			body: `{"date": null}`,
			updateFn: func(cmd cqrs.UpdateTransactionCommand) (*models.TransactionRecord, error) {
				return nil, cmd.Patch.Validate()
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - unparseable date",
			body:           map[string]interface{}{"date": "not-a-date"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - wrong type for amount",
			body:           map[string]interface{}{"amount": "lots"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "forbidden - update another user's transaction",
			body:           map[string]interface{}{"amount": 1},
			updateFn:       func(cmd cqrs.UpdateTransactionCommand) (*models.TransactionRecord, error) { return nil, errs.ErrForbidden },
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "not found - transaction does not exist",
			body:           map[string]interface{}{"amount": 1},
			updateFn:       func(cmd cqrs.UpdateTransactionCommand) (*models.TransactionRecord, error) { return nil, errs.ErrNotFound },
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTxTestRouter(&mockTransactionCommander{updateFn: tt.updateFn}, &mockTransactionQuerier{}, "usr-001")
			w := doRequest(router, http.MethodPut, "/transactions/tx-001", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	tests := []struct {
		name           string
		deleteFn       func(cqrs.DeleteTransactionCommand) error
		expectedStatus int
	}{
		{
			name: "success - delete own transaction",
			deleteFn: func(cmd cqrs.DeleteTransactionCommand) error {
				if cmd.TransactionID != "tx-001" || cmd.UserID != "usr-001" {
					return fmt.Errorf("unexpected command %+v", cmd)
				}
				return nil
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "forbidden - delete another user's transaction",
			deleteFn:       func(cmd cqrs.DeleteTransactionCommand) error { return errs.ErrForbidden },
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "not found - transaction does not exist",
			deleteFn:       func(cmd cqrs.DeleteTransactionCommand) error { return errs.ErrNotFound },
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTxTestRouter(&mockTransactionCommander{deleteFn: tt.deleteFn}, &mockTransactionQuerier{}, "usr-001")
			w := doRequest(router, http.MethodDelete, "/transactions/tx-001", nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}
