package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/giftdesk-backend/api/controllers"
	authcontrollers "github.com/angelmondragon/giftdesk-backend/api/controllers/auth"
	campaigncontrollers "github.com/angelmondragon/giftdesk-backend/api/controllers/campaigns"
	ordercontrollers "github.com/angelmondragon/giftdesk-backend/api/controllers/orders"
	"github.com/angelmondragon/giftdesk-backend/api/middleware"
	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/internal/auth"
	"github.com/angelmondragon/giftdesk-backend/internal/campaigns"
	"github.com/angelmondragon/giftdesk-backend/internal/companies"
	"github.com/angelmondragon/giftdesk-backend/internal/invoices"
	"github.com/angelmondragon/giftdesk-backend/internal/orders"
	"github.com/angelmondragon/giftdesk-backend/internal/products"
	"github.com/angelmondragon/giftdesk-backend/internal/redemption"
	"github.com/angelmondragon/giftdesk-backend/internal/reports"
	"github.com/angelmondragon/giftdesk-backend/internal/users"
	"github.com/angelmondragon/giftdesk-backend/internal/vendors"
	"github.com/angelmondragon/giftdesk-backend/internal/wallets"
	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/metrics"
	"github.com/angelmondragon/giftdesk-backend/pkg/redis"
)

// ActorResolver turns the bearer credential into an actor.
type ActorResolver interface {
	ResolveActor(ctx context.Context, credential string) (*access.Actor, error)
}

// Services bundles the domain services the API exposes. Nil services answer
// with a 500 instead of panicking.
type Services struct {
	Auth       auth.Service
	Users      users.Service
	Companies  companies.Service
	Products   products.Service
	Orders     orders.Service
	Campaigns  campaigns.Service
	Redemption redemption.Service
	Vendors    vendors.Service
	Invoices   invoices.Service
	Wallets    wallets.Service
	Audit      audit.Service
	Reports    reports.Service
}

// Observability carries the prometheus registry and the collectors the
// handlers record into.
type Observability struct {
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics
	Gifting  *metrics.GiftingMetrics
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	resolver ActorResolver,
	svc Services,
	obs Observability,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Metrics(obs.HTTP),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if cfg.FeatureFlags.ExposeMetrics && obs.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(obs.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(resolver, logg))
		idem := middleware.Idempotency(redisClient, logg, middleware.ReplayStandard)
		money := middleware.Idempotency(redisClient, logg, middleware.ReplayMoney)

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", authcontrollers.Register(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", authcontrollers.Login(svc.Auth, logg))
			r.Post("/refresh", authcontrollers.Refresh(svc.Auth, logg))
			r.Post("/logout", authcontrollers.Logout(svc.Auth, logg))
		})

		r.Route("/gifts/{token}", func(r chi.Router) {
			r.Use(middleware.GiftRateLimit(cfg.GiftRateLimit, redisClient, logg))
			r.Get("/", controllers.LookupGift(svc.Redemption, logg))
			r.With(money).Post("/redeem", controllers.RedeemGift(svc.Redemption, obs.Gifting, logg))
		})

		r.Get("/store/{identifier}", controllers.PublicStore(svc.Companies, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", controllers.GetMe(svc.Users, logg))
				r.Patch("/me", controllers.UpdateMe(svc.Users, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAppRole(enums.AppRoleCompanyHR, logg))
					r.Get("/", controllers.ListUsers(svc.Users, logg))
					r.With(idem).Post("/invite", controllers.InviteUser(svc.Users, logg))
					r.Get("/{id}", controllers.GetUser(svc.Users, logg))
					r.Get("/{id}/wallet", controllers.GetUserWallet(svc.Wallets, logg))
				})
				r.With(middleware.RequireAppRole(enums.AppRoleSuperAdmin, logg)).Patch("/{id}/role", controllers.ChangeRole(svc.Users, logg))
			})

			r.Route("/companies", func(r chi.Router) {
				r.Get("/selectable", controllers.SelectableCompanies(svc.Companies, logg))
				r.Get("/{id}", controllers.GetCompany(svc.Companies, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAppRole(enums.AppRoleCompanyHR, logg))
					r.Patch("/{id}", controllers.UpdateCompany(svc.Companies, logg))
					r.Patch("/{id}/settings", controllers.UpdateCompanySettings(svc.Companies, logg))
					r.Post("/{id}/logo", controllers.UploadCompanyLogo(svc.Companies, logg))
				})
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAppRole(enums.AppRoleSuperAdmin, logg))
					r.Get("/", controllers.ListCompanies(svc.Companies, logg))
					r.Post("/", controllers.CreateCompany(svc.Companies, logg))
				})
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ListProducts(svc.Products, logg))
				r.Get("/{id}", controllers.GetProduct(svc.Products, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAppRole(enums.AppRoleCompanyHR, logg))
					r.Post("/", controllers.CreateProduct(svc.Products, logg))
					r.Patch("/{id}", controllers.UpdateProduct(svc.Products, logg))
					r.Delete("/{id}", controllers.DeleteProduct(svc.Products, logg))
				})
			})

			r.Route("/wallets", func(r chi.Router) {
				r.Get("/me", controllers.GetMyWallet(svc.Wallets, logg))
				r.Get("/transactions", controllers.ListWalletTransactions(svc.Wallets, logg))
				r.With(money).Post("/credit", controllers.CreditWallet(svc.Wallets, obs.Gifting, logg))
				r.With(middleware.RequireAppRole(enums.AppRoleSuperAdmin, logg), money).Post("/transactions/{id}/confirm", controllers.ConfirmWalletTransaction(svc.Wallets, obs.Gifting, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAppRole(enums.AppRoleCompanyHR, logg))

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", ordercontrollers.List(svc.Orders, logg))
					r.With(idem).Post("/", ordercontrollers.Create(svc.Orders, logg))
					r.Get("/{id}", ordercontrollers.Get(svc.Orders, logg))
					r.Patch("/{id}/status", ordercontrollers.UpdateStatus(svc.Orders, logg))
					r.With(money).Post("/{id}/invoice", controllers.GenerateOrderInvoice(svc.Invoices, obs.Gifting, logg))
					r.Get("/{id}/assignments", controllers.ListOrderAssignments(svc.Vendors, logg))
				})

				r.Route("/campaigns", func(r chi.Router) {
					r.Get("/", campaigncontrollers.List(svc.Campaigns, logg))
					r.Post("/", campaigncontrollers.Create(svc.Campaigns, logg))
					r.Get("/{id}", campaigncontrollers.Get(svc.Campaigns, logg))
					r.Put("/{id}/products", campaigncontrollers.SetProducts(svc.Campaigns, logg))
					r.Get("/{id}/products", campaigncontrollers.ListProducts(svc.Campaigns, logg))
					r.Post("/{id}/recipients/import", campaigncontrollers.ImportRecipients(svc.Campaigns, logg))
					r.Get("/{id}/recipients", campaigncontrollers.ListRecipients(svc.Campaigns, logg))
					r.With(idem).Post("/{id}/launch", campaigncontrollers.Launch(svc.Campaigns, logg))
					r.Patch("/{id}/status", campaigncontrollers.UpdateStatus(svc.Campaigns, logg))
					r.With(money).Post("/{id}/invoice", controllers.GenerateCampaignInvoice(svc.Invoices, obs.Gifting, logg))
				})

				r.Route("/invoices", func(r chi.Router) {
					r.Get("/", controllers.ListInvoices(svc.Invoices, logg))
					r.Get("/{id}", controllers.GetInvoice(svc.Invoices, logg))
					r.With(middleware.RequireAppRole(enums.AppRoleSuperAdmin, logg), money).Post("/{id}/pay", controllers.MarkInvoicePaid(svc.Invoices, logg))
				})

				r.Get("/vendors", controllers.ListVendors(svc.Vendors, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAppRole(enums.AppRoleSuperAdmin, logg))
				r.Post("/vendors", controllers.CreateVendor(svc.Vendors, logg))
				r.Patch("/vendors/{id}", controllers.UpdateVendor(svc.Vendors, logg))
				r.With(idem).Post("/vendor-assignments", controllers.AssignVendor(svc.Vendors, logg))
				r.Patch("/vendor-assignments/{id}", controllers.UpdateAssignment(svc.Vendors, logg))
				r.Get("/audit-logs", controllers.ListAuditLogs(svc.Audit, logg))
				r.Get("/reports/companies", controllers.CompanyOverview(svc.Reports, logg))
				r.Get("/reports/summary", controllers.PlatformSummary(svc.Reports, logg))
			})
		})
	})

	return r
}
