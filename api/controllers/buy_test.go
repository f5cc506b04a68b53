package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pactum-labs/pactum-gateway/api/middleware"
	"github.com/pactum-labs/pactum-gateway/internal/market"
	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/enums"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
)

type stubPurchaseService struct {
	quote       *market.PaymentRequired
	order       *market.OrderView
	err         error
	lastInit    *market.PurchaseInput
	lastConfirm *market.ConfirmPaymentInput
}

func (s *stubPurchaseService) InitiatePurchase(_ context.Context, input market.PurchaseInput) (*market.PaymentRequired, error) {
	s.lastInit = &input
	return s.quote, s.err
}

func (s *stubPurchaseService) ConfirmPayment(_ context.Context, input market.ConfirmPaymentInput) (*market.OrderView, error) {
	s.lastConfirm = &input
	return s.order, s.err
}

func buyRequest(itemID, wallet string, headers map[string]string, body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/market/buy/"+itemID, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("itemId", itemID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	ctx = middleware.WithWallet(ctx, wallet)
	return req.WithContext(ctx)
}

func TestBuyWithoutProofReturnsQuote(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()
	svc := &stubPurchaseService{quote: &market.PaymentRequired{
		OrderID:     orderID,
		OrderKey:    chain.OrderKey(orderID.String()),
		AmountUnits: 5_000_000,
		Amount:      "5",
		Currency:    "USDC",
		ExpiresAt:   time.Now().Add(5 * time.Minute),
	}}
	handler := Buy(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, buyRequest(itemID.String(), "0xabc", nil, []byte(`{"query":"latest figures"}`)))

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d", rec.Code)
	}
	if svc.lastInit == nil || svc.lastInit.ItemID != itemID || svc.lastInit.BuyerWallet != "0xabc" {
		t.Fatalf("unexpected initiate input: %+v", svc.lastInit)
	}
	if svc.lastInit.Query != "latest figures" {
		t.Fatalf("expected query forwarded, got %q", svc.lastInit.Query)
	}

	var envelope struct {
		Data struct {
			OrderID     uuid.UUID `json:"order_id"`
			AmountUnits uint64    `json:"amount_units"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != orderID || envelope.Data.AmountUnits != 5_000_000 {
		t.Fatalf("unexpected quote payload: %+v", envelope.Data)
	}
}

func TestBuyWithProofConfirmsPayment(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()
	txHash := chain.Keccak256Hash([]byte("deposit")).String()
	svc := &stubPurchaseService{order: &market.OrderView{ID: orderID, Status: enums.OrderStatusCompleted}}
	handler := Buy(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, buyRequest(itemID.String(), "0xabc", map[string]string{
		"X-Payment-Proof": txHash,
		"X-Order-Id":      orderID.String(),
	}, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.lastInit != nil {
		t.Fatal("proof submission must not open a second quote")
	}
	if svc.lastConfirm == nil || svc.lastConfirm.OrderID != orderID || svc.lastConfirm.TxHash != txHash {
		t.Fatalf("unexpected confirm input: %+v", svc.lastConfirm)
	}
}

func TestBuyProofWithoutOrderHeaderFails(t *testing.T) {
	svc := &stubPurchaseService{}
	handler := Buy(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, buyRequest(uuid.New().String(), "0xabc", map[string]string{
		"X-Payment-Proof": chain.Keccak256Hash([]byte("deposit")).String(),
	}, nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.lastConfirm != nil {
		t.Fatal("confirm must not be called without an order id")
	}
}

func TestBuyRejectsBadItemID(t *testing.T) {
	handler := Buy(&stubPurchaseService{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, buyRequest("not-a-uuid", "0xabc", nil, []byte(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestBuyPropagatesServiceErrors(t *testing.T) {
	svc := &stubPurchaseService{err: pkgerrors.New(pkgerrors.CodeNotFound, "item not found")}
	handler := Buy(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, buyRequest(uuid.New().String(), "0xabc", nil, []byte(`{}`)))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
