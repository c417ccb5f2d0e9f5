package http

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/labelgw/label-gateway/internal/config"
	"github.com/labelgw/label-gateway/internal/http/middleware"
	"github.com/labelgw/label-gateway/internal/metrics"
	"github.com/labelgw/label-gateway/internal/repository"
)

type Server struct{ e *echo.Echo }

func NewServer(
	cfg config.Config,
	accounts repository.AccountsRepository,
	disp Dispatcher,
	chJobsRepo repository.CHJobsRepository,
) *Server {
	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// webhook ingress (legacy path + per-account path)
	wh := webhookHandler(accounts, disp, webhookConfig{
		legacyAccountID: cfg.Webhook.LegacyAccountID,
		signatureHeader: cfg.Webhook.SignatureHeader,
	})
	e.POST("/webhook/easypost", wh)
	e.POST("/webhook/easypost/:account_id", wh)

	// operator reports
	mgmtMW := middleware.ManagementKeyMiddleware(cfg.Reports.APIKey)
	v1 := e.Group("/v1", mgmtMW)
	v1.GET("/reports/jobs", listJobsHandler(chJobsRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
