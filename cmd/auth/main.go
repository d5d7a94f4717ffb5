package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/storeboost/storeboost-auth/internal/adapter/cache"
	shopifyadapter "github.com/storeboost/storeboost-auth/internal/adapter/shopify"
	"github.com/storeboost/storeboost-auth/internal/bootstrap"
	"github.com/storeboost/storeboost-auth/internal/config"
	httptransport "github.com/storeboost/storeboost-auth/internal/http"
	"github.com/storeboost/storeboost-auth/internal/http/handler"
	httpmiddleware "github.com/storeboost/storeboost-auth/internal/http/middleware"
	"github.com/storeboost/storeboost-auth/internal/mail"
	apimiddleware "github.com/storeboost/storeboost-auth/internal/middleware"
	"github.com/storeboost/storeboost-auth/internal/repository"
	"github.com/storeboost/storeboost-auth/internal/server"
	"github.com/storeboost/storeboost-auth/internal/service"
	"github.com/storeboost/storeboost-auth/internal/shopify"
	"github.com/storeboost/storeboost-auth/internal/telemetry"
	"github.com/storeboost/storeboost-auth/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newOrgRepository,
			newUserRepository,
			newStoreRepository,
			newRedisClient,
			newTokenCache,
			newOAuthStateStore,
			newTokenService,
			newMailer,
			newShopifyAPIClient,
			newHandshakeService,
			newRateLimiter,
			service.NewAuthService,
			newStoreService,
			handler.NewAuthHandler,
			handler.NewUserHandler,
			handler.NewStoreHandler,
			newAuthGateway,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureAdmin, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newOrgRepository(pool *pgxpool.Pool) repository.OrgRepository {
	return repository.NewPostgresOrgRepo(pool)
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newStoreRepository(pool *pgxpool.Pool) repository.StoreRepository {
	return repository.NewPostgresStoreRepo(pool)
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newTokenCache(client redis.UniversalClient) repository.TokenCache {
	return cacheadapter.NewRedisTokenCache(client)
}

func newOAuthStateStore(client redis.UniversalClient) repository.OAuthStateStore {
	return cacheadapter.NewRedisStateStore(client)
}

func newTokenService(cfg config.Config, cache repository.TokenCache) *token.Service {
	return token.NewService([]byte(cfg.SecretKey), cache, cfg.SessionTokenTTL)
}

func newMailer(cfg config.Config) mail.Sender {
	return mail.NewSendGridSender(nil, "", cfg.SendGridAPIKey, cfg.SendGridFromAddress)
}

func newShopifyAPIClient() shopifyadapter.APIClient {
	return shopifyadapter.NewHTTPAPIClient(nil)
}

func newHandshakeService(states repository.OAuthStateStore, client shopifyadapter.APIClient, cfg config.Config, logger *zap.Logger) shopify.HandshakeService {
	return shopify.NewHandshakeService(states, client, shopify.Config{
		APIKey:      cfg.ShopifyAPIKey,
		APISecret:   cfg.ShopifyAPISecret,
		CallbackURL: cfg.ShopifyCallbackURL(),
	}, logger)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newStoreService(stores repository.StoreRepository, handshake shopify.HandshakeService, client shopifyadapter.APIClient, node *snowflake.Node, logger *zap.Logger) *service.StoreService {
	return service.NewStoreService(stores, handshake, client, node, logger)
}

func newAuthGateway(tokens *token.Service, users repository.UserRepository) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Tokens: tokens, Users: users}
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
