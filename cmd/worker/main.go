// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/moderated-board/internal/config"
	"github.com/unclebandit/moderated-board/internal/logger"
	"github.com/unclebandit/moderated-board/internal/mailer"
	"github.com/unclebandit/moderated-board/internal/queue"
	"github.com/unclebandit/moderated-board/internal/service"
)

// The worker delivers administrator notifications queued on RabbitMQ by the server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.AMQPURL == "" {
		log.Fatal("BOARD_AMQP_URL is not set; the server delivers notifications in-process and no worker is needed")
	}

	// Connect to RabbitMQ
	q, err := queue.DialAMQP(cfg.AMQPURL, log)
	if err != nil {
		log.Fatal(err)
	}
	defer q.Close()

	notificationService := &service.NotificationService{
		Mailer:  mailer.FromConfig(cfg, log),
		Queue:   q,
		Topic:   cfg.AMQPQueue,
		Admins:  cfg.Admins,
		BaseURL: cfg.BaseURL,
		Log:     log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := service.NewNotificationWorker(q, cfg.AMQPQueue, notificationService, log)
	if err := worker.Start(ctx); err != nil {
		log.Fatal(err)
	}

	<-worker.Done()
}
