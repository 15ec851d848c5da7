package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/showlinehq/showline-backend/api/middleware"
	"github.com/showlinehq/showline-backend/api/responses"
	"github.com/showlinehq/showline-backend/internal/sellers"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
)

func sellerIdentity(r *http.Request) (callerUserID, sellerID uuid.UUID, err error) {
	callerUserID = middleware.UserIDFromContext(r.Context())
	if callerUserID == uuid.Nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	sellerID = middleware.SellerIDFromContext(r.Context())
	if sellerID == uuid.Nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller context missing")
	}
	return callerUserID, sellerID, nil
}

// SellerPaymentStatus reports whether the seller can take charges.
func SellerPaymentStatus(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seller service unavailable"))
			return
		}

		callerUserID, sellerID, err := sellerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.PaymentStatus(r.Context(), callerUserID, sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}

// SellerStripeCallback re-syncs the connection flag after the seller returns
// from Stripe onboarding.
func SellerStripeCallback(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seller service unavailable"))
			return
		}

		callerUserID, sellerID, err := sellerIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.SyncFromCallback(r.Context(), callerUserID, sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}
