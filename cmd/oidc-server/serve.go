package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	oidcserver "github.com/auth0/go-oidc-server"
	"github.com/auth0/go-oidc-server/dataformat/jwt"
	"github.com/auth0/go-oidc-server/dataformat/reference"
	"github.com/auth0/go-oidc-server/dataformat/reference/memory"
	"github.com/auth0/go-oidc-server/dataformat/reference/redis"
	oidcgin "github.com/auth0/go-oidc-server/framework/gin"
	"github.com/auth0/go-oidc-server/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the authorization server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cmd.Flags().Changed("addr") {
			cfg.ListenAddr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("redis-addr") {
			cfg.RedisAddr, _ = cmd.Flags().GetString("redis-addr")
		}

		a, err := newApp(cmd.Context(), cfg, log.Logger, prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		defer a.Close()

		server := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           a.handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Info().Str("addr", cfg.ListenAddr).Str("issuer", cfg.Issuer).Msg("starting server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "address to listen on (overrides OIDC_LISTEN_ADDR)")
	serveCmd.Flags().String("redis-addr", "", "Redis address for refresh tokens (overrides OIDC_REDIS_ADDR)")
}

// app is a configured server with its HTTP routes.
type app struct {
	server  *oidcserver.Server
	handler http.Handler
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{}

	clients, err := cfg.ClientSecrets()
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		logger.Warn().Msg("no clients configured (set OIDC_CLIENTS); every token request will be rejected")
	}

	key, err := loadSigningKey(cfg.SigningKeyFile)
	if err != nil {
		return nil, err
	}
	if cfg.SigningKeyFile == "" {
		logger.Warn().Msg("no signing key configured, generated an ephemeral key")
	}

	accessFormat, err := jwt.New(
		jwt.WithSigningKey(key, jwt.RS256, cfg.SigningKeyID),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("building access token format: %w", err)
	}

	store, err := a.refreshTokenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	refreshFormat, err := reference.New(store, reference.WithSingleUse(cfg.RollingRefreshTokens))
	if err != nil {
		return nil, fmt.Errorf("building refresh token format: %w", err)
	}

	a.server, err = oidcserver.New(
		oidcserver.WithIssuer(cfg.Issuer),
		oidcserver.WithProvider(staticClients(clients).provider()),
		oidcserver.WithAccessTokenFormat(accessFormat),
		oidcserver.WithRefreshTokenFormat(refreshFormat),
		oidcserver.WithAccessTokenLifetime(cfg.AccessTokenLifetime),
		oidcserver.WithRefreshTokenLifetime(cfg.RefreshTokenLifetime),
		oidcserver.WithRollingRefreshTokens(cfg.RollingRefreshTokens),
		oidcserver.WithLogger(oidcserver.NewZerologLogger(logger)),
		oidcserver.WithMetrics(oidcserver.NewPrometheusMetrics(reg)),
		oidcserver.WithTracer(oidcserver.NewOpenTelemetryTracer(otel.Tracer("github.com/auth0/go-oidc-server"))),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("building server: %w", err)
	}

	a.handler = a.routes(reg)
	return a, nil
}

func (a *app) refreshTokenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (reference.Store, error) {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("storing refresh tokens in memory")
		return memory.New(), nil
	}

	client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("storing refresh tokens in redis")
	return redis.New(redis.Config{Client: client, KeyPrefix: cfg.RedisKeyPrefix})
}

func (a *app) routes(reg prometheus.Registerer) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	oidcgin.Mount(r, a.server)

	if gatherer, ok := reg.(prometheus.Gatherer); ok {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/whoami", oidcgin.NewMiddleware(a.server), func(c *gin.Context) {
		t, err := oidcgin.GetTicket(c, "")
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sub":       t.Subject,
			"scope":     t.Scopes(),
			"client_id": t.Presenters(),
			"exp":       t.ExpiresAt.Unix(),
		})
	})

	return r
}

// Close releases the connections held by the app.
func (a *app) Close() error {
	var errs []error
	for _, closer := range a.closers {
		errs = append(errs, closer())
	}
	return errors.Join(errs...)
}
