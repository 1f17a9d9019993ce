package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/GymAurCode/rems-ledger/internal/account"
	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	"github.com/GymAurCode/rems-ledger/internal/config"
	"github.com/GymAurCode/rems-ledger/internal/fraud"
	frauddomain "github.com/GymAurCode/rems-ledger/internal/fraud/domain"
	"github.com/GymAurCode/rems-ledger/internal/ledger"
	ledgerdomain "github.com/GymAurCode/rems-ledger/internal/ledger/domain"
	"github.com/GymAurCode/rems-ledger/internal/observability"
	obsmiddleware "github.com/GymAurCode/rems-ledger/internal/observability/logger"
	obsmetrics "github.com/GymAurCode/rems-ledger/internal/observability/metrics"
	obstracing "github.com/GymAurCode/rems-ledger/internal/observability/tracing"
	"github.com/GymAurCode/rems-ledger/internal/posting"
	postingdomain "github.com/GymAurCode/rems-ledger/internal/posting/domain"
	"github.com/GymAurCode/rems-ledger/internal/report"
	reportdomain "github.com/GymAurCode/rems-ledger/internal/report/domain"
	"github.com/GymAurCode/rems-ledger/internal/voucher"
	voucherdomain "github.com/GymAurCode/rems-ledger/internal/voucher/domain"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	account.Module,
	voucher.Module,
	posting.Module,
	ledger.Module,
	report.Module,
	fraud.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
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
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node

	accounts accountdomain.Registry
	vouchers voucherdomain.Workflow
	engineSv postingdomain.Engine
	ledger   ledgerdomain.Reader
	reports  reportdomain.Generator
	fraud    frauddomain.Scanner

	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node

	Accounts accountdomain.Registry
	Vouchers voucherdomain.Workflow
	Posting  postingdomain.Engine
	Ledger   ledgerdomain.Reader
	Reports  reportdomain.Generator
	Fraud    frauddomain.Scanner

	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		genID:      p.GenID,
		accounts:   p.Accounts,
		vouchers:   p.Vouchers,
		engineSv:   p.Posting,
		ledger:     p.Ledger,
		reports:    p.Reports,
		fraud:      p.Fraud,
		obsMetrics: p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Chart of accounts --------
	api.GET("/accounts", s.ListAccounts)
	api.POST("/accounts", s.CreateAccount)
	api.GET("/accounts/:id", s.GetAccountByID)
	api.PATCH("/accounts/:id", s.ReclassifyAccount)
	api.DELETE("/accounts/:id", s.DeleteAccount)
	api.POST("/accounts/:id/disable", s.DisableAccount)
	api.GET("/accounts/:id/children", s.ListAccountChildren)
	api.GET("/accounts/:id/path", s.GetAccountPath)

	// -------- Vouchers --------
	api.GET("/vouchers", s.ListVouchers)
	api.POST("/vouchers", s.CreateVoucher)
	api.GET("/vouchers/:id", s.GetVoucherByID)
	api.PATCH("/vouchers/:id", s.UpdateVoucher)
	api.POST("/vouchers/:id/submit", s.SubmitVoucher)
	api.POST("/vouchers/:id/approve", s.ApproveVoucher)
	api.POST("/vouchers/:id/reject", s.RejectVoucher)
	api.POST("/vouchers/:id/validate", s.ValidateVoucher)
	api.POST("/vouchers/:id/post", s.PostVoucher)
	api.POST("/vouchers/:id/reverse", s.ReverseVoucher)

	// -------- Ledger --------
	api.GET("/ledger/accounts/:id", s.GetAccountLedger)
	api.GET("/ledger/accounts/:id/balance", s.GetAccountBalance)
	api.GET("/ledger/company", s.GetCompanyLedger)

	// -------- Reports --------
	api.GET("/reports/trial-balance", s.GetTrialBalance)
	api.GET("/reports/balance-sheet", s.GetBalanceSheet)
	api.GET("/reports/profit-loss", s.GetProfitLoss)
	api.GET("/reports/aging", s.GetAging)
	api.GET("/reports/property-profitability", s.GetPropertyProfitability)
	api.GET("/reports/escrow", s.GetEscrow)

	// -------- Fraud --------
	api.GET("/fraud/flags", s.ScanFraudFlags)
}
