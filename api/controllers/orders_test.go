package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pactum-labs/pactum-gateway/api/middleware"
	"github.com/pactum-labs/pactum-gateway/internal/market"
	"github.com/pactum-labs/pactum-gateway/pkg/enums"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
)

type stubOrderService struct {
	orders      []market.OrderView
	order       *market.OrderView
	messages    []market.MessageView
	message     *market.MessageView
	err         error
	lastDeliver *market.DeliverInput
	lastReview  *market.ReviewInput
}

func (s *stubOrderService) ListOrders(_ context.Context, _ string, _ int) ([]market.OrderView, error) {
	return s.orders, s.err
}

func (s *stubOrderService) GetOrder(_ context.Context, _ string, _ uuid.UUID) (*market.OrderView, error) {
	return s.order, s.err
}

func (s *stubOrderService) ListMessages(_ context.Context, _ string, _ uuid.UUID) ([]market.MessageView, error) {
	return s.messages, s.err
}

func (s *stubOrderService) SendMessage(_ context.Context, _ market.MessageInput) (*market.MessageView, error) {
	return s.message, s.err
}

func (s *stubOrderService) Deliver(_ context.Context, input market.DeliverInput) (*market.OrderView, error) {
	s.lastDeliver = &input
	return s.order, s.err
}

func (s *stubOrderService) SubmitReview(_ context.Context, input market.ReviewInput) error {
	s.lastReview = &input
	return s.err
}

func orderRequest(method, suffix string, orderID, wallet string, body []byte) *http.Request {
	req := httptest.NewRequest(method, "/market/orders/"+orderID+suffix, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	ctx = middleware.WithWallet(ctx, wallet)
	return req.WithContext(ctx)
}

func TestOrderDetailMapsForbidden(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to wallet")}
	handler := OrderDetail(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(http.MethodGet, "", uuid.New().String(), "0xabc", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestOrderDetailRejectsBadID(t *testing.T) {
	handler := OrderDetail(&stubOrderService{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(http.MethodGet, "", "not-a-uuid", "0xabc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDeliverOrderForwardsPayload(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{order: &market.OrderView{ID: orderID, Status: enums.OrderStatusDelivered}}
	handler := DeliverOrder(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(http.MethodPost, "/deliver", orderID.String(), "0xseller",
		[]byte(`{"content":"your results"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.lastDeliver == nil || svc.lastDeliver.Content != "your results" {
		t.Fatalf("unexpected deliver input: %+v", svc.lastDeliver)
	}
	if svc.lastDeliver.SellerWallet != "0xseller" {
		t.Fatalf("expected wallet from context, got %q", svc.lastDeliver.SellerWallet)
	}
}

func TestDeliverOrderAcceptsFileReference(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{order: &market.OrderView{ID: orderID, Status: enums.OrderStatusDelivered}}
	handler := DeliverOrder(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(http.MethodPost, "/deliver", orderID.String(), "0xseller",
		[]byte(`{"file_url":"https://files.example.com/report.pdf","message":"enjoy"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.lastDeliver == nil || svc.lastDeliver.FileURL == nil {
		t.Fatalf("expected file reference forwarded: %+v", svc.lastDeliver)
	}
}

func TestDeliverOrderRequiresContentOrFile(t *testing.T) {
	svc := &stubOrderService{}
	handler := DeliverOrder(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(http.MethodPost, "/deliver", uuid.New().String(), "0xseller", []byte(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.lastDeliver != nil {
		t.Fatal("empty delivery must not reach the service")
	}
}

func TestReviewOrderBoundsRating(t *testing.T) {
	for _, body := range []string{`{"rating":0}`, `{"rating":6}`, `{}`} {
		svc := &stubOrderService{}
		handler := ReviewOrder(svc, nil)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, orderRequest(http.MethodPost, "/review", uuid.New().String(), "0xbuyer", []byte(body)))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400 got %d", body, rec.Code)
		}
		if svc.lastReview != nil {
			t.Fatalf("body %s: invalid rating must not reach the service", body)
		}
	}
}

func TestReviewOrderSubmits(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{}
	handler := ReviewOrder(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(http.MethodPost, "/review", orderID.String(), "0xbuyer", []byte(`{"rating":4}`)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.lastReview == nil || svc.lastReview.Rating != 4 || svc.lastReview.OrderID != orderID {
		t.Fatalf("unexpected review input: %+v", svc.lastReview)
	}
}
