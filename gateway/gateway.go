// Package gateway is an HTTP front for a plugin. It proxies REST calls to
// the plugin socket and serves entities in their tagged document form.
package gateway

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/sanlink/sanlink/config"
	"github.com/sanlink/sanlink/rpc"

	"github.com/labstack/echo/v5"
	"github.com/rs/zerolog/log"
)

type Gateway struct {
	cfg     *config.GatewayConfig
	version string
	commit  string
	echo    *echo.Echo
	client  *rpc.Client
}

func NewGateway(cfg *config.GatewayConfig, version, commit string) *Gateway {
	return &Gateway{cfg: cfg, version: version, commit: commit}
}

// Start connects to the plugin, wires the routes and begins serving. It
// returns once the listener is running; the server itself lives in a
// goroutine until ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	client, err := rpc.Connect(g.cfg.PluginSocket, g.cfg.PluginTimeout)
	if err != nil {
		return err
	}
	if err := client.Startup(ctx, "sim://", ""); err != nil {
		client.Close()
		return err
	}
	g.client = client

	e := echo.New()
	e.Use(MetricsMiddleware())

	// unauthenticated endpoints
	e.GET("/healthz", Healthz(g.version, g.commit))
	e.GET("/metrics", MetricsHandler())

	h := &Handler{Plugin: client}

	// v1 API with auth
	api := e.Group("/v1", AuthMiddleware(g.cfg.Token))

	api.GET("/systems", h.ListSystems)
	api.GET("/systems/:id/capabilities", h.SystemCapabilities)
	api.GET("/pools", h.ListPools)

	api.GET("/volumes", h.ListVolumes)
	api.POST("/volumes", h.CreateVolume)
	api.DELETE("/volumes/:id", h.DeleteVolume)

	api.GET("/filesystems", h.ListFileSystems)
	api.POST("/filesystems", h.CreateFileSystem)
	api.GET("/exports", h.ListExports)

	api.GET("/access-groups", h.ListAccessGroups)
	api.POST("/access-groups", h.CreateAccessGroup)

	g.echo = e

	go func() {
		<-ctx.Done()
		g.client.Close()
	}()

	go func() {
		var err error
		if g.cfg.TLSCert != "" && g.cfg.TLSKey != "" {
			s := &http.Server{
				Addr:    g.cfg.ListenAddr,
				Handler: e,
				TLSConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			}
			log.Info().Str("addr", g.cfg.ListenAddr).Msg("starting gateway with TLS")
			err = s.ListenAndServeTLS(g.cfg.TLSCert, g.cfg.TLSKey)
		} else {
			log.Warn().Str("addr", g.cfg.ListenAddr).Msg("starting gateway without TLS - set GATEWAY_TLS_CERT and GATEWAY_TLS_KEY for production")
			err = e.Start(g.cfg.ListenAddr)
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("gateway server failed")
		}
	}()

	return nil
}
