package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swsclab/swsc/internal/api"
	"github.com/swsclab/swsc/internal/logger"
	"github.com/swsclab/swsc/internal/recorder"
	"github.com/swsclab/swsc/internal/session"
	"github.com/swsclab/swsc/pkg/mqttclient"
)

func main() {
	cfg, err := loadConfig()
	log := logger.New(cfg.LogLevel)
	defer log.Sync()
	if err != nil {
		log.Fatalw("load config", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mq := mqttclient.New(cfg.MQTT, log)
	sched := session.NewScheduler(mq, log)

	if cfg.Influx.URL != "" {
		rec, err := recorder.New(cfg.Influx, log)
		if err != nil {
			log.Fatalw("init recorder", "error", err)
		}
		defer rec.Close()
		mq.SetReadingObserver(rec.Record)
	}

	go func() {
		if err := mq.Start(ctx); err != nil && ctx.Err() == nil {
			log.Errorw("mqtt connect", "error", err)
		}
	}()
	go sched.Run(ctx, cfg.TickInterval)

	handler := api.NewHandler(sched, mq, log)
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handler.InitRoutes(),
	}

	go func() {
		log.Infow("http server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("http shutdown", "error", err)
	}
	mq.Stop()
}
