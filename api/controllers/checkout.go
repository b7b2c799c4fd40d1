package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/aryasetiadi/lokapasar-backend/api/responses"
	"github.com/aryasetiadi/lokapasar-backend/api/validators"
	checkoutsvc "github.com/aryasetiadi/lokapasar-backend/internal/checkout"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
)

type checkoutItemRequest struct {
	MerchantID      uuid.UUID `json:"merchant_id" validate:"required"`
	ProductID       uuid.UUID `json:"product_id" validate:"required"`
	ProductName     string    `json:"product_name" validate:"required"`
	Quantity        int       `json:"quantity" validate:"gt=0"`
	PriceAtPurchase int64     `json:"price_at_purchase" validate:"gt=0"`
}

type checkoutRequest struct {
	MarketID       uuid.UUID             `json:"market_id" validate:"required"`
	ShippingMethod string                `json:"shipping_method" validate:"required"`
	PaymentMethod  string                `json:"payment_method" validate:"required"`
	DistrictName   string                `json:"district_name"`
	Address        string                `json:"address"`
	DistanceKm     float64               `json:"distance_km" validate:"gte=0"`
	IsSurge        bool                  `json:"is_surge"`
	UseBalance     int64                 `json:"use_balance" validate:"gte=0"`
	Items          []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
}

// Checkout freezes a cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if viewer.Role != enums.ActorRoleCustomer {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "customer role required for checkout"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]checkoutsvc.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, checkoutsvc.ItemInput{
				MerchantID:      item.MerchantID,
				ProductID:       item.ProductID,
				ProductName:     item.ProductName,
				Quantity:        item.Quantity,
				PriceAtPurchase: item.PriceAtPurchase,
			})
		}

		order, err := svc.Checkout(r.Context(), checkoutsvc.Input{
			CustomerID:     viewer.UserID,
			MarketID:       payload.MarketID,
			ShippingMethod: enums.ShippingMethod(payload.ShippingMethod),
			PaymentMethod:  enums.PaymentMethod(payload.PaymentMethod),
			DistrictName:   payload.DistrictName,
			Address:        payload.Address,
			DistanceKm:     payload.DistanceKm,
			IsSurge:        payload.IsSurge,
			UseBalance:     payload.UseBalance,
			Items:          items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order, viewer))
	}
}
