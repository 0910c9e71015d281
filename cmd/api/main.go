package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bubblebox/bubblebox-api/internal/config"
	"github.com/bubblebox/bubblebox-api/internal/domain/address"
	"github.com/bubblebox/bubblebox-api/internal/domain/credit"
	"github.com/bubblebox/bubblebox-api/internal/domain/order"
	"github.com/bubblebox/bubblebox-api/internal/domain/promo"
	"github.com/bubblebox/bubblebox-api/internal/domain/referral"
	"github.com/bubblebox/bubblebox-api/internal/domain/settings"
	"github.com/bubblebox/bubblebox-api/internal/domain/subscription"
	"github.com/bubblebox/bubblebox-api/internal/domain/user"
	"github.com/bubblebox/bubblebox-api/internal/middleware"
	"github.com/bubblebox/bubblebox-api/internal/pkg/database"
	"github.com/bubblebox/bubblebox-api/internal/pkg/jwt"
	"github.com/bubblebox/bubblebox-api/internal/pkg/logger"
	pkgresponse "github.com/bubblebox/bubblebox-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Bubble Box API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	settingsRepo := settings.NewRepository(db)
	creditRepo := credit.NewRepository(db)
	promoRepo := promo.NewRepository(db)
	referralRepo := referral.NewRepository(db, creditRepo)
	orderRepo := order.NewRepository(db)
	addressRepo := address.NewRepository(db)
	subscriptionRepo := subscription.NewRepository(db)

	// ---------- Services ----------
	settingsProvider := settings.NewProvider(settingsRepo, redis, cfg.SettingsCacheTTL)
	creditService := credit.NewService(creditRepo)
	promoService := promo.NewService(promoRepo)
	referralService := referral.NewService(
		referralRepo,
		&referralUserAdapter{repo: userRepo},
		&referralOrderAdapter{repo: orderRepo},
		settingsProvider,
	)
	orderService := order.NewService(
		orderRepo,
		promoService,
		creditService,
		referralService,
		settingsProvider,
		&orderAddressAdapter{repo: addressRepo},
	)
	subscriptionService := subscription.NewService(subscriptionRepo)

	// ---------- Handlers ----------
	userHandler := user.NewHandler(userRepo)
	settingsHandler := settings.NewHandler(settingsRepo, settingsProvider)
	creditHandler := credit.NewHandler(creditService)
	promoHandler := promo.NewHandler(promoService)
	referralHandler := referral.NewHandler(referralService)
	orderHandler := order.NewHandler(orderService)
	addressHandler := address.NewHandler(addressRepo)
	subscriptionHandler := subscription.NewHandler(subscriptionService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/users", userHandler.Routes(authMiddleware))
		r.Mount("/promo", promoHandler.Routes(authMiddleware))
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.Mount("/referrals", referralHandler.Routes(authMiddleware))
		r.Mount("/orders", orderHandler.Routes(authMiddleware))
		r.Mount("/addresses", addressHandler.Routes(authMiddleware))
		r.Mount("/subscriptions", subscriptionHandler.Routes(authMiddleware))
		r.Mount("/settings", settingsHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// Adapter implementations to bridge interface mismatches

// referralUserAdapter exposes the user repository as referral.UserReader
type referralUserAdapter struct {
	repo user.Repository
}

func (a *referralUserAdapter) GetName(ctx context.Context, userID uuid.UUID) (string, error) {
	u, err := a.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}

// referralOrderAdapter exposes the order repository as referral.OrderReader
type referralOrderAdapter struct {
	repo order.Repository
}

func (a *referralOrderAdapter) OwnerID(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	return a.repo.OwnerID(ctx, orderID)
}

func (a *referralOrderAdapter) CountDelivered(ctx context.Context, userID uuid.UUID) (int, error) {
	return a.repo.CountDelivered(ctx, userID)
}

// orderAddressAdapter exposes the address repository as order.AddressSaver
type orderAddressAdapter struct {
	repo *address.Repository
}

func (a *orderAddressAdapter) SaveForUser(ctx context.Context, userID uuid.UUID, in order.AddressInput) (uuid.UUID, error) {
	created, err := a.repo.Create(ctx, &address.Address{
		UserID:     userID,
		Label:      in.Label,
		Street:     in.Street,
		City:       in.City,
		PostalCode: in.PostalCode,
		Notes:      in.Notes,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}
