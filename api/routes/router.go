package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/showlinehq/showline-backend/api/controllers"
	webhookcontrollers "github.com/showlinehq/showline-backend/api/controllers/webhooks"
	"github.com/showlinehq/showline-backend/api/middleware"
	"github.com/showlinehq/showline-backend/internal/batches"
	checkoutsvc "github.com/showlinehq/showline-backend/internal/checkout"
	"github.com/showlinehq/showline-backend/internal/notifications"
	"github.com/showlinehq/showline-backend/internal/orders"
	"github.com/showlinehq/showline-backend/internal/refunds"
	"github.com/showlinehq/showline-backend/internal/sellers"
	stripewebhook "github.com/showlinehq/showline-backend/internal/webhooks/stripe"
	"github.com/showlinehq/showline-backend/pkg/config"
	"github.com/showlinehq/showline-backend/pkg/db"
	"github.com/showlinehq/showline-backend/pkg/logger"
	"github.com/showlinehq/showline-backend/pkg/redis"
	"github.com/showlinehq/showline-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger db.Pinger,
	redisPinger redis.Pinger,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	refundsService refunds.Service,
	batchesService batches.Service,
	sellersService sellers.Service,
	notificationsService notifications.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisPinger))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/checkout/intents", func(r chi.Router) {
			r.Post("/", controllers.CheckoutCreateIntent(checkoutService, logg))
			r.Post("/{intentId}/pay", controllers.CheckoutPay(checkoutService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireSeller(logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.SellerListOrders(ordersService, logg))
				r.Post("/{orderId}/pickup", controllers.SellerOrderPickup(ordersService, logg))
				r.Post("/{orderId}/complete", controllers.SellerOrderComplete(ordersService, logg))
				r.Post("/{orderId}/refund", controllers.SellerOrderRefund(refundsService, logg))
			})

			r.Route("/batches", func(r chi.Router) {
				r.Get("/", controllers.SellerListBatches(batchesService, logg))
				r.Post("/{batchId}/pickup", controllers.SellerBatchPickup(batchesService, logg))
			})
		})

		r.Route("/sellers/me", func(r chi.Router) {
			r.Use(middleware.RequireSeller(logg))
			r.Get("/payments", controllers.SellerPaymentStatus(sellersService, logg))
			r.Post("/stripe/callback", controllers.SellerStripeCallback(sellersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(cfg.Admin, logg))
		r.Post("/orders/sweep", controllers.AdminSweepOrders(ordersService, logg))
	})

	return r
}
