package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/checkpoint"
	"github.com/ukydev/ambulance-tracker/internal/config"
	"github.com/ukydev/ambulance-tracker/internal/db"
	"github.com/ukydev/ambulance-tracker/internal/fleet"
	"github.com/ukydev/ambulance-tracker/internal/handlers"
	"github.com/ukydev/ambulance-tracker/internal/logging"
	"github.com/ukydev/ambulance-tracker/internal/middleware"
	"github.com/ukydev/ambulance-tracker/internal/models"
	"github.com/ukydev/ambulance-tracker/internal/publisher"
	"github.com/ukydev/ambulance-tracker/internal/reports"
	"github.com/ukydev/ambulance-tracker/internal/stream"
	"github.com/ukydev/ambulance-tracker/internal/telemetry"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	shutdownTimeout = 10 * time.Second
	checkpointTTL   = 24 * time.Hour
)

// app is the wired server. Workers run until the context passed to start is
// cancelled; closers release external connections on shutdown.
type app struct {
	fleet        *fleet.Service
	hub          *stream.Hub
	limiter      *middleware.RateLimitMiddleware
	checkpointer *checkpoint.Checkpointer
	handler      http.Handler
	window       time.Duration

	workers []func(context.Context)
	closers []func()
}

func newApp(cfg config.Config) (*app, error) {
	a := &app{
		limiter: middleware.NewRateLimitMiddleware(),
		window:  time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
	}

	var (
		telemetryColl db.TelemetryCollection = db.NewMemoryTelemetry(0)
		reportColl    db.ReportCollection    = db.NewMemoryReports()
	)
	if cfg.MongoURI != "" {
		client, err := db.ConnectMongo(cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { disconnectMongo(client) })
		database := client.Database(cfg.MongoDB)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.EnsureIndexes(ctx, database); err != nil {
			log.WithError(err).Warn("Failed to create indexes")
		}
		cancel()
		telemetryColl = &db.MongoCollection{Collection: database.Collection("telemetry")}
		reportColl = &db.MongoCollection{Collection: database.Collection("reports")}
		log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	} else {
		log.Info("MONGO_URI not set, keeping telemetry and reports in memory")
	}

	fleetCfg := fleet.DefaultConfig()
	fleetCfg.TickInterval = cfg.TickInterval
	fleetCfg.MobilizationDelay = cfg.MobilizationDelay
	fleetCfg.ArrivalThresholdKm = cfg.ArrivalKm
	opts := []fleet.Option{fleet.WithConfig(fleetCfg)}

	if cfg.RedisURL != "" {
		store, err := checkpoint.NewRedisStore(cfg.RedisURL, checkpointTTL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		a.checkpointer = checkpoint.NewCheckpointer(store, cfg.CheckpointKey)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		snap, ok, err := a.checkpointer.Restore(ctx)
		cancel()
		switch {
		case err != nil:
			log.WithError(err).Warn("Failed to restore fleet checkpoint, starting fresh")
		case ok:
			opts = append(opts, fleet.WithSeed(fleet.SeedFromSnapshot(snap)), fleet.WithSequence(snap.Sequence))
			log.WithFields(log.Fields{
				"sequence": snap.Sequence,
				"vehicles": len(snap.Vehicles),
			}).Info("Restored fleet from checkpoint")
		}
	}

	f, err := fleet.New(models.Location{Lat: cfg.RiderLat, Lon: cfg.RiderLon}, opts...)
	if err != nil {
		a.close()
		return nil, err
	}
	a.fleet = f

	a.hub = stream.NewHub(f)
	f.Subscribe(a.hub.Publish)

	recorder := telemetry.NewRecorder(telemetryColl, 0)
	f.Subscribe(recorder.Observe)
	a.workers = append(a.workers, recorder.Run)

	reportSvc := reports.NewService(reportColl, f)
	f.Subscribe(reportSvc.Observe)
	a.workers = append(a.workers, reportSvc.Run)

	if a.checkpointer != nil {
		f.Subscribe(a.checkpointer.Observe)
		a.workers = append(a.workers, a.checkpointer.Run)
	}

	if cfg.MQTTBroker != "" {
		client, err := publisher.Connect(cfg.MQTTBroker, cfg.MQTTClientID, 10*time.Second)
		if err != nil {
			log.WithError(err).Warn("MQTT broker unreachable, publishing disabled")
		} else {
			a.closers = append(a.closers, func() { client.Disconnect(250) })
			pub := publisher.NewMQTTPublisher(client, cfg.MQTTTopicPrefix)
			f.Subscribe(pub.Observe)
			a.workers = append(a.workers, pub.Run)
		}
	}

	mux := http.NewServeMux()
	handlers.Register(mux,
		handlers.NewFleetHandler(f),
		handlers.NewReportHandler(reportSvc),
		handlers.NewTelemetryHandler(telemetryColl),
		a.hub,
	)
	limit := a.limiter.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindowSeconds)
	a.handler = middleware.RequestLogger(limit(mux))
	return a, nil
}

// start launches every worker and the rate limiter pruning loop.
func (a *app) start(ctx context.Context, wg *sync.WaitGroup) {
	for _, run := range a.workers {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}
	if a.window > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(a.window)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					a.limiter.Prune(a.window)
				}
			}
		}()
	}
}

// stop halts the simulation, saves a final checkpoint and disconnects.
func (a *app) stop() {
	a.fleet.StopTracking()
	a.hub.Close()
	if a.checkpointer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.checkpointer.Flush(ctx); err != nil {
			log.WithError(err).Warn("Failed to save final checkpoint")
		}
		cancel()
	}
	a.close()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func disconnectMongo(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.WithError(err).Warn("Failed to disconnect from MongoDB")
	}
}

func main() {
	cfg := config.Load(".env")
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	a, err := newApp(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	a.start(ctx, &wg)
	a.fleet.StartTracking()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.WithField("signal", sig.String()).Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}

	cancel()
	wg.Wait()
	a.stop()
	log.Info("Server stopped")
}
