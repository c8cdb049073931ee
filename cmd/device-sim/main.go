package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swsclab/swsc/internal/logger"
	"github.com/swsclab/swsc/internal/simulator"
	"github.com/swsclab/swsc/pkg/mqttclient"
)

func main() {
	host := flag.String("host", "broker.hivemq.com", "MQTT broker host")
	port := flag.Int("port", 1883, "MQTT broker port")
	clientID := flag.String("client-id", "swsc_device", "MQTT client ID prefix")
	interval := flag.Duration("interval", 5*time.Second, "sensor publish interval")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random walk seed")
	level := flag.String("log-level", "info", "log level (debug|info|warn|error)")
	flag.Parse()

	log := logger.New(*level)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mq := mqttclient.New(mqttclient.Config{
		Host:           *host,
		Port:           *port,
		ClientIDPrefix: *clientID,
	}, log)

	// Register control and alert handlers before connecting so the
	// initial subscription set already includes them.
	dev := simulator.NewDevice(mq, simulator.NewGenerator(*seed), log)

	if err := mq.Start(ctx); err != nil {
		log.Fatalw("mqtt connect", "error", err)
	}
	defer mq.Stop()

	log.Infow("device simulator running", "broker", *host, "interval", interval.String())
	dev.Run(ctx, *interval)
}
