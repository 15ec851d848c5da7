package controllers

import (
	"net/http"
	"time"

	"github.com/showlinehq/showline-backend/api/responses"
	"github.com/showlinehq/showline-backend/internal/orders"
	pkgerrors "github.com/showlinehq/showline-backend/pkg/errors"
	"github.com/showlinehq/showline-backend/pkg/logger"
)

// AdminSweepOrders triggers the staleness sweep outside its schedule.
func AdminSweepOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		swept, err := svc.SweepStale(r.Context(), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"swept": swept})
	}
}
