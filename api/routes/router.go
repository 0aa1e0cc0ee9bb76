package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AmielDylan/sendbox-sub002/api/controllers"
	"github.com/AmielDylan/sendbox-sub002/api/middleware"
	"github.com/AmielDylan/sendbox-sub002/pkg/config"
	"github.com/AmielDylan/sendbox-sub002/pkg/db"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
	"github.com/AmielDylan/sendbox-sub002/pkg/redis"
)

// NewRouter wires every HTTP surface: health, the public quote preview, the
// authenticated booking money endpoints, and the admin override endpoints.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	captureService controllers.CaptureService,
	deliveryService controllers.DeliveryService,
	summaryService controllers.SummaryService,
	adminService controllers.AdminService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.CORS(),
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Post("/pricing/quote", controllers.PricingQuote(logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/financials/summary", controllers.UserFinancials(summaryService, logg))

		r.Route("/bookings/{bookingId}", func(r chi.Router) {
			r.Post("/capture", controllers.CapturePayment(captureService, logg))
			r.Post("/capture/reconcile", controllers.ReconcilePayment(captureService, logg))
			r.Post("/confirm-delivery", controllers.ConfirmDelivery(deliveryService, logg))
			r.Get("/financials", controllers.BookingFinancials(summaryService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Route("/bookings/{bookingId}", func(r chi.Router) {
			r.Post("/dispute", controllers.AdminMarkDisputed(adminService, logg))
			r.Post("/dispute/resolve", controllers.AdminResolveDispute(adminService, logg))
			r.Post("/refund", controllers.AdminForceRefund(adminService, logg))
			r.Post("/release", controllers.AdminManualRelease(adminService, logg))
			r.Get("/audit", controllers.AdminAuditTrail(adminService, logg))
		})
	})

	return r
}
