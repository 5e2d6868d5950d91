package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"memberd/internal/config"
	"memberd/internal/customer"
	customerdomain "memberd/internal/customer/domain"
	"memberd/internal/discount"
	discountdomain "memberd/internal/discount/domain"
	"memberd/internal/email"
	"memberd/internal/events"
	"memberd/internal/gateway"
	"memberd/internal/gateway/webhook"
	"memberd/internal/level"
	leveldomain "memberd/internal/level/domain"
	"memberd/internal/membership"
	membershipdomain "memberd/internal/membership/domain"
	"memberd/internal/observability"
	obsmetrics "memberd/internal/observability/metrics"
	"memberd/internal/payment"
	paymentdomain "memberd/internal/payment/domain"
	"memberd/internal/registration"
	registrationdomain "memberd/internal/registration/domain"
	"memberd/internal/restriction"
	restrictiondomain "memberd/internal/restriction/domain"
)

var Module = fx.Module("http.server",
	observability.Module,
	events.Module,
	customer.Module,
	level.Module,
	membership.Module,
	discount.Module,
	payment.Module,
	registration.Module,
	restriction.Module,
	gateway.Module,
	email.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Named("http")))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	customerSvc     customerdomain.Service
	levelSvc        leveldomain.Service
	membershipSvc   membershipdomain.Service
	discountSvc     discountdomain.Service
	paymentSvc      paymentdomain.Service
	registrationSvc registrationdomain.Service
	restrictionSvc  restrictiondomain.Service
	webhookSvc      *webhook.Service
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	CustomerSvc     customerdomain.Service
	LevelSvc        leveldomain.Service
	MembershipSvc   membershipdomain.Service
	DiscountSvc     discountdomain.Service
	PaymentSvc      paymentdomain.Service
	RegistrationSvc registrationdomain.Service
	RestrictionSvc  restrictiondomain.Service
	WebhookSvc      *webhook.Service
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		customerSvc:     p.CustomerSvc,
		levelSvc:        p.LevelSvc,
		membershipSvc:   p.MembershipSvc,
		discountSvc:     p.DiscountSvc,
		paymentSvc:      p.PaymentSvc,
		registrationSvc: p.RegistrationSvc,
		restrictionSvc:  p.RestrictionSvc,
		webhookSvc:      p.WebhookSvc,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	customers := v1.Group("/customers")
	customers.POST("", s.CreateCustomer)
	customers.GET("", s.ListCustomers)
	customers.GET("/:id", s.GetCustomer)
	customers.POST("/:id/verify-email", s.VerifyCustomerEmail)
	customers.POST("/:id/logins", s.RecordCustomerLogin)
	customers.POST("/:id/notes", s.AddCustomerNote)

	levels := v1.Group("/levels")
	levels.POST("", s.CreateLevel)
	levels.GET("", s.ListLevels)
	levels.GET("/:id", s.GetLevel)
	levels.PATCH("/:id", s.UpdateLevel)

	memberships := v1.Group("/memberships")
	memberships.POST("", s.CreateMembership)
	memberships.GET("", s.ListMemberships)
	memberships.GET("/:id", s.GetMembership)
	// Registered outside the group: gin's tree cannot mix a static segment
	// with the :id wildcard.
	v1.GET("/membership-keys/:key", s.GetMembershipByKey)
	memberships.POST("/:id/activate", s.ActivateMembership)
	memberships.POST("/:id/renew", s.RenewMembership)
	memberships.POST("/:id/cancel", s.CancelMembership)
	memberships.POST("/:id/cancel-at-gateway", s.CancelMembershipAtGateway)
	memberships.POST("/:id/expire", s.ExpireMembership)
	memberships.POST("/:id/disable", s.DisableMembership)
	memberships.POST("/:id/enable", s.EnableMembership)
	memberships.POST("/:id/notes", s.AddMembershipNote)

	discounts := v1.Group("/discounts")
	discounts.POST("", s.CreateDiscount)
	discounts.GET("", s.ListDiscounts)
	discounts.GET("/:code", s.GetDiscount)
	discounts.PATCH("/:code", s.UpdateDiscount)
	discounts.POST("/:code/validate", s.ValidateDiscount)

	payments := v1.Group("/payments")
	payments.GET("", s.ListPayments)
	payments.GET("/:id", s.GetPayment)

	v1.POST("/registrations/preview", s.PreviewRegistration)

	restrictions := v1.Group("/restrictions")
	restrictions.PUT("/content/:content_id", s.SetContentRestriction)
	restrictions.GET("/content/:content_id", s.GetContentRestriction)
	restrictions.DELETE("/content/:content_id", s.RemoveContentRestriction)
	restrictions.PUT("/terms/:term_id", s.SetTermRestriction)
	restrictions.DELETE("/terms/:term_id", s.RemoveTermRestriction)
	restrictions.POST("/content/:content_id/terms/:term_id", s.AssignTerm)
	restrictions.DELETE("/content/:content_id/terms/:term_id", s.UnassignTerm)

	v1.GET("/access", s.CheckAccess)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/v1/webhooks/:provider", s.IngestWebhook)
}
