package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MallLedger/internal/interfaces/http/handlers"
	"github.com/turtacn/MallLedger/internal/interfaces/http/middleware"
)

// defaultMetricsPath is used when RouterConfig.MetricsPath is empty.
const defaultMetricsPath = "/metrics"

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.  Nil handlers leave their routes
// unmounted.
type RouterConfig struct {
	// Handlers
	InvoiceHandler      *handlers.InvoiceHandler
	NotificationHandler *handlers.NotificationHandler
	MessagingHandler    *handlers.MessagingHandler
	HealthHandler       *handlers.HealthHandler

	// Middleware
	Logging        middleware.LoggingConfig
	HTTPMetrics    middleware.HTTPMetrics
	TriggerLimiter middleware.RateLimiter

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter constructs the complete HTTP route tree from the given configuration.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := chi.NewRouter()

	// --- Global middleware (applied to every request) ---
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.HTTPMetrics != nil {
		r.Use(middleware.Metrics(cfg.HTTPMetrics))
	}
	r.Use(middleware.RequestLogging(logger, cfg.Logging))

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = defaultMetricsPath
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	// --- API v1 ---
	r.Route("/api/v1", func(api chi.Router) {
		// Batch triggers walk whole tables; they share one per-client limiter.
		api.Group(func(trig chi.Router) {
			trig.Use(middleware.RateLimit(cfg.TriggerLimiter))
			registerTriggerRoutes(trig, cfg.InvoiceHandler, cfg.NotificationHandler)
		})
		registerInvoiceRoutes(api, cfg.InvoiceHandler)
		registerNotificationRoutes(api, cfg.NotificationHandler)
		registerMessagingRoutes(api, cfg.MessagingHandler)
	})

	return r
}

func registerTriggerRoutes(r chi.Router, inv *handlers.InvoiceHandler, ntf *handlers.NotificationHandler) {
	if inv != nil {
		r.Post("/invoices/generate-monthly", inv.GenerateMonthly)
		r.Post("/invoices/generate/{storeId}", inv.GenerateForStore)
	}
	if ntf != nil {
		r.Post("/notifications/check-contracts", ntf.CheckContracts)
		r.Post("/notifications/check-payments", ntf.CheckPayments)
		r.Post("/notifications/check-attendance", ntf.CheckAttendance)
		r.Post("/notifications/check-all", ntf.CheckAll)
		r.Post("/notifications/purge", ntf.Purge)
	}
}

// registerInvoiceRoutes mounts invoice queries and payments.
func registerInvoiceRoutes(r chi.Router, h *handlers.InvoiceHandler) {
	if h == nil {
		return
	}
	r.Get("/invoices/overdue", h.ListOverdue)
	r.Get("/invoices/pending", h.ListPending)
	r.Get("/invoices/{id}", h.Get)
	r.Post("/invoices/{id}/payments", h.RecordPayment)
	r.Get("/stores/{storeId}/invoices", h.ListByStore)
	r.Get("/renters/{renterId}/invoices", h.ListByRenter)
}

// registerNotificationRoutes mounts the inbox under /notifications.
func registerNotificationRoutes(r chi.Router, h *handlers.NotificationHandler) {
	if h == nil {
		return
	}
	r.Get("/notifications", h.List)
	r.Get("/notifications/unread", h.ListUnread)
	r.Get("/notifications/unread/count", h.UnreadCount)
	r.Put("/notifications/read-all", h.MarkAllRead)
	r.Get("/notifications/{id}", h.Get)
	r.Put("/notifications/{id}/read", h.MarkRead)
	r.Delete("/notifications/{id}", h.Delete)
}

// registerMessagingRoutes mounts ad hoc sends under /messaging.
func registerMessagingRoutes(r chi.Router, h *handlers.MessagingHandler) {
	if h == nil {
		return
	}
	r.Route("/messaging", func(mr chi.Router) {
		mr.Post("/whatsapp", h.SendWhatsApp)
		mr.Post("/whatsapp/bulk", h.BulkWhatsApp)
		mr.Post("/sms", h.SendSMS)
		mr.Post("/sms/bulk", h.BulkSMS)
	})
}

//Personal.AI order the ending
