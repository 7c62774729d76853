// Command sweeper marks confirmed bookings whose start has passed without a
// check-in as no-shows. With -once it runs a single sweep and exits;
// otherwise it sweeps on SWEEP_SCHEDULE until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-booking/internal/booking"
	"github.com/iliyamo/coworking-booking/internal/config"
	"github.com/iliyamo/coworking-booking/internal/database"
	"github.com/iliyamo/coworking-booking/internal/queue"
	"github.com/iliyamo/coworking-booking/internal/repository"
	"github.com/iliyamo/coworking-booking/internal/utils"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	timeout := flag.Duration("timeout", time.Minute, "deadline for one sweep")
	flag.Parse()

	// run owns every deferred Close and the logger flush; exit only after
	// they have happened.
	os.Exit(run(*once, *timeout))
}

func run(once bool, timeout time.Duration) int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	if cfg.Store != "mysql" {
		log.Printf("sweeper needs STORE=mysql, got %q", cfg.Store)
		return 1
	}
	logger, err := utils.NewLogger(cfg.IsProduction())
	if err != nil {
		log.Printf("logger: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Error("open database", zap.Error(err))
		return 1
	}
	defer func() { _ = db.Close() }()

	var pub booking.Publisher = queue.LogPublisher{Log: logger}
	if cfg.RabbitURL != "" {
		p := queue.NewPublisher(cfg.RabbitURL, logger)
		defer func() { _ = p.Close() }()
		pub = p
	}
	lifecycle := booking.NewLifecycle(repository.NewBookingStore(db), booking.SystemClock{},
		booking.WithSweepGrace(cfg.SweepGrace),
		booking.WithLifecyclePublisher(pub),
		booking.WithLifecycleLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep := func() error {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		_, err := lifecycle.SweepNoShows(sctx)
		if err != nil {
			logger.Error("sweep finished with failures", zap.Error(err))
		}
		return err
	}

	if once {
		if err := sweep(); err != nil {
			return 1
		}
		return 0
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.SweepSchedule, func() { _ = sweep() }); err != nil {
		logger.Error("invalid SWEEP_SCHEDULE", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
		return 1
	}
	c.Start()
	logger.Info("sweeper scheduled", zap.String("schedule", cfg.SweepSchedule))

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("sweeper stopped")
	return 0
}
