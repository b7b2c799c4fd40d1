package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aryasetiadi/lokapasar-backend/api/middleware"
	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
)

type actor struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	MarketID *uuid.UUID
}

func actorFromRequest(r *http.Request) (actor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	out := actor{UserID: userID, Role: enums.ActorRole(middleware.RoleFromContext(r.Context()))}
	if rawMarket := middleware.MarketIDFromContext(r.Context()); rawMarket != "" {
		marketID, err := uuid.Parse(rawMarket)
		if err != nil {
			return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid market id")
		}
		out.MarketID = &marketID
	}
	return out, nil
}

func parseUUIDField(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

type orderItemResponse struct {
	ItemID          uuid.UUID `json:"item_id"`
	MerchantID      uuid.UUID `json:"merchant_id"`
	ProductID       uuid.UUID `json:"product_id"`
	ProductName     string    `json:"product_name"`
	Quantity        int       `json:"quantity"`
	PriceAtPurchase int64     `json:"price_at_purchase"`
	Subtotal        int64     `json:"subtotal"`
}

type orderResponse struct {
	OrderID             uuid.UUID           `json:"order_id"`
	Status              string              `json:"status"`
	ShippingStatus      string              `json:"shipping_status"`
	MarketID            uuid.UUID           `json:"market_id"`
	CustomerID          uuid.UUID           `json:"customer_id"`
	CourierID           *uuid.UUID          `json:"courier_id,omitempty"`
	ShippingMethod      string              `json:"shipping_method"`
	PaymentMethod       string              `json:"payment_method"`
	DistrictName        string              `json:"district_name"`
	Address             *string             `json:"address,omitempty"`
	PickupCode          *string             `json:"pickup_code,omitempty"`
	PickupExpiredAt     *time.Time          `json:"pickup_expired_at,omitempty"`
	TotalPrice          int64               `json:"total_price"`
	ShippingCost        int64               `json:"shipping_cost"`
	ServiceFee          int64               `json:"service_fee"`
	SystemFee           int64               `json:"system_fee"`
	CourierEarningTotal int64               `json:"courier_earning_total"`
	CashbackAmount      int64               `json:"cashback_amount"`
	UsedBalance         int64               `json:"used_balance"`
	Items               []orderItemResponse `json:"items"`
	CompletedAt         *time.Time          `json:"completed_at,omitempty"`
	CancelledAt         *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

// newOrderResponse hides the pickup code from everyone except the customer;
// the merchant verifies the code the customer presents, it never reads it.
func newOrderResponse(order *models.Order, viewer actor) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ItemID:          item.ID,
			MerchantID:      item.MerchantID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
			Subtotal:        item.Subtotal(),
		})
	}
	resp := orderResponse{
		OrderID:             order.ID,
		Status:              string(order.Status),
		ShippingStatus:      string(order.ShippingStatus),
		MarketID:            order.MarketID,
		CustomerID:          order.CustomerID,
		CourierID:           order.CourierID,
		ShippingMethod:      string(order.ShippingMethod),
		PaymentMethod:       string(order.PaymentMethod),
		DistrictName:        order.DistrictName,
		Address:             order.Address,
		PickupExpiredAt:     order.PickupExpiredAt,
		TotalPrice:          order.TotalPrice,
		ShippingCost:        order.ShippingCost,
		ServiceFee:          order.ServiceFee,
		SystemFee:           order.SystemFee,
		CourierEarningTotal: order.CourierEarningTotal,
		CashbackAmount:      order.CashbackAmount,
		UsedBalance:         order.UsedBalance,
		Items:               items,
		CompletedAt:         order.CompletedAt,
		CancelledAt:         order.CancelledAt,
		CreatedAt:           order.CreatedAt,
	}
	if viewer.UserID == order.CustomerID || viewer.Role == enums.ActorRoleAdmin {
		resp.PickupCode = order.PickupCode
	}
	return resp
}

func newOrderListResponse(orders []models.Order, viewer actor) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i], viewer))
	}
	return out
}

// canViewOrder enforces read access: the customer who placed it, merchants of
// the same market, the assigned courier, and admins.
func canViewOrder(order *models.Order, viewer actor) bool {
	if order == nil {
		return false
	}
	switch viewer.Role {
	case enums.ActorRoleAdmin:
		return true
	case enums.ActorRoleCustomer:
		return order.CustomerID == viewer.UserID
	case enums.ActorRoleMerchant:
		return viewer.MarketID != nil && *viewer.MarketID == order.MarketID
	case enums.ActorRoleCourier:
		return order.CourierID != nil && *order.CourierID == viewer.UserID
	}
	return false
}
