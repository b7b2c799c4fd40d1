package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aryasetiadi/lokapasar-backend/api/middleware"
	"github.com/aryasetiadi/lokapasar-backend/api/responses"
	internalorders "github.com/aryasetiadi/lokapasar-backend/internal/orders"
	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/pagination"
)

type stubOrdersService struct {
	transition   func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error)
	verifyPickup func(ctx context.Context, input internalorders.VerifyPickupInput) (*models.Order, error)
	get          func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	listCustomer func(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	listMarket   func(ctx context.Context, marketID uuid.UUID, status enums.OrderStatus, params pagination.Params) ([]models.Order, error)
}

func (s *stubOrdersService) Transition(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
	if s.transition != nil {
		return s.transition(ctx, input)
	}
	panic("not implemented")
}

func (s *stubOrdersService) VerifyPickup(ctx context.Context, input internalorders.VerifyPickupInput) (*models.Order, error) {
	if s.verifyPickup != nil {
		return s.verifyPickup(ctx, input)
	}
	panic("not implemented")
}

func (s *stubOrdersService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	panic("not implemented")
}

func (s *stubOrdersService) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	if s.listCustomer != nil {
		return s.listCustomer(ctx, customerID, params)
	}
	panic("not implemented")
}

func (s *stubOrdersService) ListMarketOrders(ctx context.Context, marketID uuid.UUID, status enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	if s.listMarket != nil {
		return s.listMarket(ctx, marketID, status, params)
	}
	panic("not implemented")
}

func seedActor(req *http.Request, userID uuid.UUID, role enums.ActorRole) *http.Request {
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	return req.WithContext(middleware.WithRole(req.Context(), string(role)))
}

func seedMarket(req *http.Request, marketID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithMarketID(req.Context(), marketID.String()))
}

func seedOrderParam(req *http.Request, orderID uuid.UUID) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("orderId", orderID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func decodeErrorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope responses.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

func TestListOrdersCustomerScope(t *testing.T) {
	customerID := uuid.New()
	svc := &stubOrdersService{
		listCustomer: func(ctx context.Context, gotCustomer uuid.UUID, params pagination.Params) ([]models.Order, error) {
			if gotCustomer != customerID {
				t.Fatalf("unexpected customer id %s", gotCustomer)
			}
			if params.Limit != 5 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return []models.Order{{ID: uuid.New(), CustomerID: customerID, Status: enums.OrderStatusProcessing}}, nil
		},
	}

	handler := ListOrders(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5", nil)
	req = seedActor(req, customerID, enums.ActorRoleCustomer)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data []orderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected 1 order got %d", len(envelope.Data))
	}
}

func TestListOrdersMerchantNeedsMarketContext(t *testing.T) {
	handler := ListOrders(&stubOrdersService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req = seedActor(req, uuid.New(), enums.ActorRoleMerchant)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != string(pkgerrors.CodeForbidden) {
		t.Fatalf("unexpected error code %s", code)
	}
}

func TestListOrdersMerchantStatusFilter(t *testing.T) {
	marketID := uuid.New()
	svc := &stubOrdersService{
		listMarket: func(ctx context.Context, gotMarket uuid.UUID, status enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
			if gotMarket != marketID {
				t.Fatalf("unexpected market id %s", gotMarket)
			}
			if status != enums.OrderStatusPacking {
				t.Fatalf("unexpected status filter %s", status)
			}
			return nil, nil
		},
	}

	handler := ListOrders(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=packing", nil)
	req = seedActor(req, uuid.New(), enums.ActorRoleMerchant)
	req = seedMarket(req, marketID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestOrderDetailForeignOrderReadsAsNotFound(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		get: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, CustomerID: uuid.New(), MarketID: uuid.New()}, nil
		},
	}

	handler := OrderDetail(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = seedActor(req, uuid.New(), enums.ActorRoleCustomer)
	req = seedOrderParam(req, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != string(pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected error code %s", code)
	}
}

func TestOrderDetailHidesPickupCodeFromMerchant(t *testing.T) {
	orderID := uuid.New()
	marketID := uuid.New()
	code := "482913"
	svc := &stubOrdersService{
		get: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{
				ID:             id,
				CustomerID:     uuid.New(),
				MarketID:       marketID,
				ShippingMethod: enums.ShippingMethodPickup,
				PickupCode:     &code,
			}, nil
		},
	}

	handler := OrderDetail(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = seedActor(req, uuid.New(), enums.ActorRoleMerchant)
	req = seedMarket(req, marketID)
	req = seedOrderParam(req, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.PickupCode != nil {
		t.Fatal("pickup code leaked to merchant")
	}
}

func TestOrderDetailShowsPickupCodeToCustomer(t *testing.T) {
	orderID := uuid.New()
	customerID := uuid.New()
	code := "482913"
	svc := &stubOrdersService{
		get: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{
				ID:             id,
				CustomerID:     customerID,
				MarketID:       uuid.New(),
				ShippingMethod: enums.ShippingMethodPickup,
				PickupCode:     &code,
			}, nil
		},
	}

	handler := OrderDetail(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = seedActor(req, customerID, enums.ActorRoleCustomer)
	req = seedOrderParam(req, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.PickupCode == nil || *envelope.Data.PickupCode != code {
		t.Fatal("customer should see the pickup code")
	}
}

func TestPackOrderTargetsPacking(t *testing.T) {
	orderID := uuid.New()
	merchantID := uuid.New()
	svc := &stubOrdersService{
		transition: func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
			if input.OrderID != orderID {
				t.Fatalf("unexpected order id %s", input.OrderID)
			}
			if input.ActorID != merchantID {
				t.Fatalf("unexpected actor id %s", input.ActorID)
			}
			if input.ActorRole != enums.ActorRoleMerchant {
				t.Fatalf("unexpected actor role %s", input.ActorRole)
			}
			if input.Target != enums.OrderStatusPacking {
				t.Fatalf("unexpected target %s", input.Target)
			}
			return &models.Order{ID: orderID, Status: input.Target}, nil
		},
	}

	handler := PackOrder(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/pack", nil)
	req = seedActor(req, merchantID, enums.ActorRoleMerchant)
	req = seedOrderParam(req, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCancelOrderForwardsReason(t *testing.T) {
	orderID := uuid.New()
	customerID := uuid.New()
	svc := &stubOrdersService{
		transition: func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
			if input.Target != enums.OrderStatusCancelled {
				t.Fatalf("unexpected target %s", input.Target)
			}
			if input.Reason != "changed my mind" {
				t.Fatalf("unexpected reason %q", input.Reason)
			}
			return &models.Order{ID: orderID, Status: input.Target}, nil
		},
	}

	body := bytes.NewBufferString(`{"reason":"changed my mind"}`)
	handler := CancelOrder(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", body)
	req = seedActor(req, customerID, enums.ActorRoleCustomer)
	req = seedOrderParam(req, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestConfirmPaymentRunsAsSystem(t *testing.T) {
	orderID := uuid.New()
	adminID := uuid.New()
	svc := &stubOrdersService{
		transition: func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
			if input.ActorRole != enums.ActorRoleSystem {
				t.Fatalf("expected system role got %s", input.ActorRole)
			}
			if input.Target != enums.OrderStatusProcessing {
				t.Fatalf("unexpected target %s", input.Target)
			}
			return &models.Order{ID: orderID, Status: input.Target}, nil
		},
	}

	handler := ConfirmPayment(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+orderID.String()+"/confirm-payment", nil)
	req = seedActor(req, adminID, enums.ActorRoleAdmin)
	req = seedOrderParam(req, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestVerifyPickupRequiresMerchantRole(t *testing.T) {
	handler := VerifyPickup(&stubOrdersService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/pickup/verify", bytes.NewBufferString(`{"code":"111111"}`))
	req = seedActor(req, uuid.New(), enums.ActorRoleCustomer)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestVerifyPickupForwardsCode(t *testing.T) {
	orderID := uuid.New()
	merchantID := uuid.New()
	svc := &stubOrdersService{
		verifyPickup: func(ctx context.Context, input internalorders.VerifyPickupInput) (*models.Order, error) {
			if input.OrderID != orderID {
				t.Fatalf("unexpected order id %s", input.OrderID)
			}
			if input.MerchantID != merchantID {
				t.Fatalf("unexpected merchant id %s", input.MerchantID)
			}
			if input.Code != "482913" {
				t.Fatalf("unexpected code %q", input.Code)
			}
			return &models.Order{ID: orderID, Status: enums.OrderStatusCompleted}, nil
		},
	}

	handler := VerifyPickup(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/pickup/verify", bytes.NewBufferString(`{"code":" 482913 "}`))
	req = seedActor(req, merchantID, enums.ActorRoleMerchant)
	req = seedOrderParam(req, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != string(enums.OrderStatusCompleted) {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}
