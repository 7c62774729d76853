package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-booking/internal/booking"
	"github.com/iliyamo/coworking-booking/internal/config"
	"github.com/iliyamo/coworking-booking/internal/database"
	"github.com/iliyamo/coworking-booking/internal/handler"
	"github.com/iliyamo/coworking-booking/internal/middleware"
	"github.com/iliyamo/coworking-booking/internal/model"
	"github.com/iliyamo/coworking-booking/internal/queue"
	"github.com/iliyamo/coworking-booking/internal/repository"
	"github.com/iliyamo/coworking-booking/internal/router"
	"github.com/iliyamo/coworking-booking/internal/utils"
)

// stores groups the persistence backends selected by STORE.
type stores struct {
	booking booking.Store
	users   handler.UserStore
	tokens  handler.TokenStore
	ping    handler.Pinger
	close   func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer func() { _ = st.close() }()

	if err := seedAdmin(ctx, cfg, st.users); err != nil {
		logger.Warn("seed admin failed", zap.Error(err))
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Info("redis unavailable; cache disabled and rate limit runs in-process")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var pub booking.Publisher = queue.LogPublisher{Log: logger}
	if cfg.RabbitURL != "" {
		p := queue.NewPublisher(cfg.RabbitURL, logger)
		defer func() { _ = p.Close() }()
		pub = p
		if cfg.ConsumerEnabled {
			consumer := queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogDir, logger)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	clock := booking.SystemClock{}
	cal := booking.NewCalendar(cfg.UTCOffsetMin, cfg.SlotStep(), cfg.BookingHorizonDays)
	writer := booking.NewWriter(st.booking, cal, clock,
		booking.WithMinHours(cfg.MinBookingHours),
		booking.WithPublisher(pub),
		booking.WithWriterLogger(logger),
	)
	lifecycle := booking.NewLifecycle(st.booking, clock,
		booking.WithSweepGrace(cfg.SweepGrace),
		booking.WithLifecyclePublisher(pub),
		booking.WithLifecycleLogger(logger),
	)
	planner := booking.NewPlanner(st.booking, cal, clock, cfg.MinBookingHours)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORS())
	e.Use(middleware.RequestLogger(logger))

	router.RegisterRoutes(e, st.ping)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.users, st.tokens, logger), cfg.JWTSecret)
	router.RegisterPublic(e,
		handler.NewPublicHandler(st.booking, planner, cfg.RequestTimeout, logger),
		middleware.NewRedisCache(cfg.Cache, rdb),
	)
	router.RegisterBookings(e,
		handler.NewBookingHandler(st.booking, writer, lifecycle, cal, cfg.RequestTimeout, logger),
		cfg.JWTSecret,
		middleware.NewTokenBucket(cfg.RateLimit, rdb),
	)
	router.RegisterStaff(e, handler.NewStaffHandler(st.booking, lifecycle, cal, cfg.RequestTimeout, logger), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.Store == "memory" {
		mem := repository.NewMemory()
		seedResources(mem)
		logger.Warn("using in-memory store; data is lost on restart")
		return stores{booking: mem, users: mem, tokens: mem, close: func() error { return nil }}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
		logger.Info("schema migrated")
	}
	return stores{
		booking: repository.NewBookingStore(db),
		users:   repository.NewUserRepo(db),
		tokens:  repository.NewTokenRepo(db),
		ping:    db,
		close:   db.Close,
	}, nil
}

func seedAdmin(ctx context.Context, cfg config.Config, users handler.UserStore) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	if _, err := users.GetUserByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, booking.ErrNotFound) {
		return err
	}
	hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	_, err = users.CreateUser(ctx, cfg.AdminEmail, hash, model.RoleAdmin)
	return err
}

// seedResources gives the in-memory store a small workspace to book against.
func seedResources(mem *repository.Memory) {
	mem.AddResource(model.Resource{
		Name: "Hot desk", PricePerHour: decimal.RequireFromString("3.50"), Quantity: 12,
		OpenTime: model.MustTimeOfDay("08:00"), CloseTime: model.MustTimeOfDay("20:00"),
	})
	mem.AddResource(model.Resource{
		Name: "Focus pod", PricePerHour: decimal.RequireFromString("6.00"), Quantity: 3,
		OpenTime: model.MustTimeOfDay("08:00"), CloseTime: model.MustTimeOfDay("22:00"),
	})
	mem.AddResource(model.Resource{
		Name: "Meeting room", PricePerHour: decimal.RequireFromString("25.00"), Quantity: 1,
		OpenTime: model.MustTimeOfDay("09:00"), CloseTime: model.MustTimeOfDay("18:00"),
	})
}
