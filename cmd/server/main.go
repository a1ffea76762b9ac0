// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/moderated-board/internal/captcha"
	"github.com/unclebandit/moderated-board/internal/config"
	"github.com/unclebandit/moderated-board/internal/controller"
	"github.com/unclebandit/moderated-board/internal/db"
	"github.com/unclebandit/moderated-board/internal/handler"
	"github.com/unclebandit/moderated-board/internal/logger"
	"github.com/unclebandit/moderated-board/internal/mailer"
	"github.com/unclebandit/moderated-board/internal/queue"
	"github.com/unclebandit/moderated-board/internal/repository"
	"github.com/unclebandit/moderated-board/internal/service"
	"github.com/unclebandit/moderated-board/internal/session"
	"github.com/unclebandit/moderated-board/internal/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	// Init DB
	conn, err := db.Open(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()
	if err := db.Migrate(conn, cfg.DBDriver); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo := &repository.UserRepository{DB: conn}
	messageRepo := &repository.MessageRepository{DB: conn}

	// Administrator notifications go through RabbitMQ when configured, in-process otherwise
	var q queue.Queue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, log)
		if err != nil {
			log.Fatal(err)
		}
		defer amqpQueue.Close()
		q = amqpQueue
		log.Info("Queueing administrator notifications on RabbitMQ; run the worker to deliver them")
	} else {
		q = queue.NewInMemoryQueue(log)
	}

	notificationService := &service.NotificationService{
		Mailer:  mailer.FromConfig(cfg, log),
		Queue:   q,
		Topic:   cfg.AMQPQueue,
		Admins:  cfg.Admins,
		BaseURL: cfg.BaseURL,
		Log:     log,
	}
	if cfg.AMQPURL == "" {
		worker := service.NewNotificationWorker(q, cfg.AMQPQueue, notificationService, log)
		if err := worker.Start(ctx); err != nil {
			log.Fatal(err)
		}
	}
	if len(cfg.Admins) == 0 {
		log.Warn("BOARD_ADMINS is empty, administrators will not be emailed about new messages")
	}

	verifier := captcha.NewImageVerifier(cfg.CaptchaTestMode)
	accountService := &service.AccountService{UserRepo: userRepo, Log: log}
	messageService := &service.MessageService{
		MessageRepo: messageRepo,
		Captcha:     verifier,
		Reviews:     notificationService,
		PageSize:    cfg.PageSize,
		Log:         log,
	}
	moderationService := &service.ModerationService{
		MessageRepo: messageRepo,
		Notifier:    notificationService,
		Log:         log,
	}

	views, err := view.New(log)
	if err != nil {
		log.Fatal(err)
	}
	pages := &controller.Pages{
		Sessions:     session.NewManager(cfg.SessionSecret, cfg.SessionSecure, accountService, log),
		Views:        views,
		AdminContact: cfg.AdminContact(),
		Log:          log,
	}
	router := &controller.Router{
		Board:      &controller.BoardController{Pages: pages, Messages: messageService, Captcha: verifier},
		Accounts:   &controller.AccountController{Pages: pages, Accounts: accountService},
		Admin:      &controller.AdminController{Pages: pages, Moderation: moderationService},
		API:        handler.NewModerationHandler(moderationService, log),
		CaptchaImg: verifier.Handler(),
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Graceful shutdown failed")
		}
	}()

	log.WithField("addr", cfg.HTTPAddr).Info("Server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Info("Server stopped")
}
