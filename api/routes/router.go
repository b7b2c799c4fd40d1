package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryasetiadi/lokapasar-backend/api/controllers"
	"github.com/aryasetiadi/lokapasar-backend/api/middleware"
	checkoutsvc "github.com/aryasetiadi/lokapasar-backend/internal/checkout"
	"github.com/aryasetiadi/lokapasar-backend/internal/couriers"
	"github.com/aryasetiadi/lokapasar-backend/internal/dispatch"
	"github.com/aryasetiadi/lokapasar-backend/internal/notifications"
	"github.com/aryasetiadi/lokapasar-backend/internal/orders"
	"github.com/aryasetiadi/lokapasar-backend/internal/tariffs"
	"github.com/aryasetiadi/lokapasar-backend/internal/wallet"
	"github.com/aryasetiadi/lokapasar-backend/pkg/config"
	"github.com/aryasetiadi/lokapasar-backend/pkg/db"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
	"github.com/aryasetiadi/lokapasar-backend/pkg/redis"
)

// Services bundles everything the router wires into controllers.
type Services struct {
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Dispatch      dispatch.Service
	Couriers      couriers.Service
	Wallet        wallet.Service
	Withdrawals   wallet.WithdrawalService
	Tariffs       tariffs.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(redisClient, 0, 0, logg))

		r.Route("/v1/checkout", func(r chi.Router) {
			r.Post("/", controllers.Checkout(svcs.Checkout, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
			r.With(middleware.RequireRole(enums.ActorRoleMerchant, logg)).Group(func(r chi.Router) {
				r.Post("/{orderId}/pack", controllers.PackOrder(svcs.Orders, logg))
				r.Post("/{orderId}/ready", controllers.ReadyOrder(svcs.Orders, logg))
				r.Post("/{orderId}/pickup/verify", controllers.VerifyPickup(svcs.Orders, logg))
			})
		})

		r.Route("/v1/courier", func(r chi.Router) {
			r.Post("/register", controllers.CourierRegister(svcs.Couriers, logg))
			r.With(middleware.RequireRole(enums.ActorRoleCourier, logg)).Group(func(r chi.Router) {
				r.Get("/profile", controllers.CourierProfile(svcs.Couriers, logg))
				r.Post("/heartbeat", controllers.CourierHeartbeat(svcs.Couriers, logg))
				r.Post("/active", controllers.CourierSetActive(svcs.Couriers, logg))
				r.Get("/radar", controllers.CourierRadar(svcs.Dispatch, logg))
				r.Route("/orders", func(r chi.Router) {
					r.Post("/{orderId}/claim", controllers.CourierClaim(svcs.Dispatch, logg))
					r.Post("/{orderId}/start-delivery", controllers.CourierStartDelivery(svcs.Orders, logg))
					r.Post("/{orderId}/deliver", controllers.CourierDeliver(svcs.Orders, logg))
				})
			})
		})

		r.Route("/v1/wallet", func(r chi.Router) {
			r.Get("/balance", controllers.WalletBalance(svcs.Wallet, logg))
			r.Get("/logs", controllers.WalletLogs(svcs.Wallet, logg))
			r.Post("/withdrawals", controllers.RequestWithdrawal(svcs.Withdrawals, logg))
			r.Get("/withdrawals", controllers.ListWithdrawals(svcs.Withdrawals, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(redisClient, 0, 0, logg))

		r.Route("/v1/tariffs", func(r chi.Router) {
			r.Get("/", controllers.AdminListTariffs(svcs.Tariffs, logg))
			r.Put("/", controllers.AdminUpsertTariff(svcs.Tariffs, logg))
		})
		r.Route("/v1/withdrawals", func(r chi.Router) {
			r.Get("/pending", controllers.AdminPendingWithdrawals(svcs.Withdrawals, logg))
			r.Post("/{withdrawalId}/resolve", controllers.AdminResolveWithdrawal(svcs.Withdrawals, logg))
		})
		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
			r.Post("/{orderId}/confirm-payment", controllers.ConfirmPayment(svcs.Orders, logg))
		})
		r.Route("/v1/couriers", func(r chi.Router) {
			r.Post("/{userId}/verify", controllers.AdminVerifyCourier(svcs.Couriers, logg))
		})
		r.Route("/v1/wallets", func(r chi.Router) {
			r.Post("/{userId}/repair", controllers.AdminRepairWallet(svcs.Wallet, logg))
		})
	})

	return r
}
