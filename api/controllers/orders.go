package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/showlinehq/showline-backend/api/middleware"
	"github.com/showlinehq/showline-backend/api/responses"
	"github.com/showlinehq/showline-backend/internal/orders"
	"github.com/showlinehq/showline-backend/pkg/db/models"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
)

type orderResponse struct {
	OrderID             uuid.UUID  `json:"order_id"`
	SellerID            uuid.UUID  `json:"seller_id"`
	ProductID           uuid.UUID  `json:"product_id"`
	ShowID              *uuid.UUID `json:"show_id,omitempty"`
	BatchID             *uuid.UUID `json:"batch_id,omitempty"`
	Qty                 int        `json:"qty"`
	UnitPriceCents      int64      `json:"unit_price_cents"`
	TotalCents          int64      `json:"total_cents"`
	ApplicationFeeCents int64      `json:"application_fee_cents"`
	Currency            string     `json:"currency"`
	Status              string     `json:"status"`
	StripeRefundID      *string    `json:"stripe_refund_id,omitempty"`
	PaidAt              *time.Time `json:"paid_at,omitempty"`
	FulfilledAt         *time.Time `json:"fulfilled_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt          *time.Time `json:"refunded_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	return orderResponse{
		OrderID:             order.ID,
		SellerID:            order.SellerID,
		ProductID:           order.ProductID,
		ShowID:              order.ShowID,
		BatchID:             order.BatchID,
		Qty:                 order.Qty,
		UnitPriceCents:      order.UnitPriceCents,
		TotalCents:          order.TotalCents,
		ApplicationFeeCents: order.ApplicationFeeCents,
		Currency:            order.Currency,
		Status:              string(order.Status),
		StripeRefundID:      order.StripeRefundID,
		PaidAt:              order.PaidAt,
		FulfilledAt:         order.FulfilledAt,
		CompletedAt:         order.CompletedAt,
		CancelledAt:         order.CancelledAt,
		RefundedAt:          order.RefundedAt,
		CreatedAt:           order.CreatedAt,
	}
}

func newOrderListResponse(rows []models.Order, nextCursor string) orderListResponse {
	out := make([]orderResponse, 0, len(rows))
	for i := range rows {
		out = append(out, newOrderResponse(&rows[i]))
	}
	return orderListResponse{Orders: out, NextCursor: nextCursor}
}

// ListOrders returns the authenticated buyer's purchase history.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID := middleware.UserIDFromContext(r.Context())
		if buyerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, nextCursor, err := svc.ListForBuyer(r.Context(), buyerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderListResponse(rows, nextCursor))
	}
}

// OrderDetail returns one of the buyer's own orders.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID := middleware.UserIDFromContext(r.Context())
		if buyerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.Get(r.Context(), buyerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
