package main

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"prizedraw/internal/config"
	"prizedraw/internal/handlers"
	"prizedraw/internal/sequencer"
	"prizedraw/internal/services"
)

func main() {
	// 1. Load configuration (.env, config.yaml, PRIZEDRAW_* env)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logging
	var logOut io.Writer = io.Discard
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o660)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	defer logger.Init("prizedraw", cfg.Log.Verbose, false, logOut).Close()

	// 3. Initialize the Lottery Service
	lotteryService := services.NewLotteryService(services.Options{
		Manual: cfg.Presentation.Mode == config.ModeManual,
		Timing: cfg.Presentation.Timing,
		Clock:  clockwork.NewRealClock(),
		Player: sequencer.PlayerFunc(func(_ context.Context, cue sequencer.Cue) error {
			logger.V(1).Infof("cue %s", cue)
			return nil
		}),
		Title: cfg.Server.Title,
	})

	// 4. Initialize the HTTP Handler
	httpHandler := handlers.NewHTTPHandler(lotteryService)

	// 5. Set up the Gin router
	r := gin.Default()
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	secret := cfg.Server.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warning("server.sessionsecret is not set; sessions will not survive a restart")
	}
	r.Use(sessions.Sessions("prizedraw", cookie.NewStore([]byte(secret))))

	// 6. Register public routes (before middleware)
	httpHandler.RegisterPublicRoutes(r)

	// 7. Group routes that require tenant identification and apply middleware
	tenantRoutes := r.Group("/")
	tenantRoutes.Use(httpHandler.TenantMiddleware())
	httpHandler.RegisterTenantRoutes(tenantRoutes)

	// 8. Start the background janitor to clean up inactive sessions
	janitor := cron.New()
	idleAfter := cfg.Janitor.IdleAfter
	if _, err := janitor.AddFunc(cfg.Janitor.Schedule, func() {
		start := time.Now()
		removed := lotteryService.CleanUpInactiveSessions(idleAfter)
		logger.Infof("Performed cleanup of inactive sessions: %d removed in %s", removed, time.Since(start))
	}); err != nil {
		logger.Fatalf("Invalid janitor schedule %q: %v", cfg.Janitor.Schedule, err)
	}
	janitor.Start()
	defer janitor.Stop()

	// 9. Run the server
	logger.Infof("Server starting on %s (%s presentation)", cfg.Server.Port, cfg.Presentation.Mode)
	if err := r.Run(cfg.Server.Port); err != nil {
		logger.Fatalf("Failed to run server: %v", err)
	}
}
