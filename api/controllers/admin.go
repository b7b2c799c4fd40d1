package controllers

import (
	"net/http"

	"github.com/aryasetiadi/lokapasar-backend/api/responses"
	"github.com/aryasetiadi/lokapasar-backend/api/validators"
	"github.com/aryasetiadi/lokapasar-backend/internal/couriers"
	"github.com/aryasetiadi/lokapasar-backend/internal/tariffs"
	"github.com/aryasetiadi/lokapasar-backend/internal/wallet"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
	"github.com/aryasetiadi/lokapasar-backend/pkg/pagination"
)

// AdminUpsertTariff creates or replaces a district's shipping rate.
func AdminUpsertTariff(svc tariffs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tariff service unavailable"))
			return
		}
		var payload tariffs.UpsertInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rate, err := svc.Upsert(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rate)
	}
}

// AdminListTariffs returns every configured district rate.
func AdminListTariffs(svc tariffs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tariff service unavailable"))
			return
		}
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type resolveWithdrawalRequest struct {
	Approve bool `json:"approve"`
}

// AdminResolveWithdrawal approves or rejects a pending payout. A rejection
// returns the held funds to the wallet.
func AdminResolveWithdrawal(svc wallet.WithdrawalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		withdrawalID, err := pathUUID(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload resolveWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		withdrawal, err := svc.Resolve(r.Context(), wallet.WithdrawalResolveInput{
			WithdrawalID: withdrawalID,
			AdminID:      viewer.UserID,
			Approve:      payload.Approve,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawal)
	}
}

// AdminPendingWithdrawals lists payout requests waiting for a decision.
func AdminPendingWithdrawals(svc wallet.WithdrawalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListPending(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type verifyCourierRequest struct {
	Verified bool `json:"verified"`
}

// AdminVerifyCourier flips a courier's verification flag. Unverifying also
// pulls the courier out of the active rotation.
func AdminVerifyCourier(svc couriers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "courier service unavailable"))
			return
		}
		courierUserID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload verifyCourierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.Verify(r.Context(), courierUserID, payload.Verified)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// AdminRepairWallet replays one user's ledger and rewrites a drifted cache.
func AdminRepairWallet(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}
		userID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Repair(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
