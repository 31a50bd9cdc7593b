package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/readyset/realtor/internal/agents"
	"github.com/readyset/realtor/internal/api"
	"github.com/readyset/realtor/internal/auth"
	"github.com/readyset/realtor/internal/bus"
	"github.com/readyset/realtor/internal/config"
	"github.com/readyset/realtor/internal/mcp"
	"github.com/readyset/realtor/internal/notify"
	"github.com/readyset/realtor/internal/provider"
	"github.com/readyset/realtor/internal/scheduler"
	"github.com/readyset/realtor/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Ready Set Realtor...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/realtor.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// PostgreSQL store
	st, err := store.New(cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("PostgreSQL unavailable", zap.Error(err))
	}
	if err := st.Migrate(context.Background(), "migrations"); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// Event bus (optional)
	var events *bus.Bus
	if cfg.Database.Redis.URL != "" {
		b, busErr := bus.New(cfg.Database.Redis.URL, logger)
		if busErr != nil {
			logger.Warn("Redis unavailable, running without event stream", zap.Error(busErr))
		} else {
			events = b
		}
	}

	// Chat-completion provider and worker agents
	llm := provider.NewOpenAIClient(provider.Config{
		Endpoint: cfg.Provider.Endpoint,
		APIKey:   cfg.Provider.APIKey,
		Model:    cfg.Provider.Model,
	}, logger)

	registry := mcp.NewRegistry(logger)
	assistant := agents.NewAssistant(llm, registry, logger)
	qualifier := agents.NewLeadQualifier(llm, registry, logger)
	planner := agents.NewFollowUpPlanner(llm, registry, logger)
	coordinator := agents.NewTransactionCoordinator(llm, registry, logger)

	desk := scheduler.NewDesk(assistant, logger)

	// Auth
	ttl := time.Duration(cfg.Auth.TokenTTLMins) * time.Minute
	authenticator := auth.New([]byte(cfg.Auth.JWTSecret), ttl)

	// Outbound channels (each optional)
	var sms *notify.TwilioClient
	if cfg.Twilio.AccountSID != "" {
		sms = notify.NewTwilioClient(notify.TwilioConfig{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromNumber: cfg.Twilio.FromNumber,
		}, logger)
	}
	var voice *notify.VapiClient
	if cfg.Vapi.APIKey != "" {
		voice = notify.NewVapiClient(notify.VapiConfig{
			APIKey:      cfg.Vapi.APIKey,
			AssistantID: cfg.Vapi.AssistantID,
		}, logger)
	}
	var signatures *notify.DocuSignClient
	if cfg.DocuSign.APIKey != "" {
		signatures = notify.NewDocuSignClient(notify.DocuSignConfig{
			BaseURL:   cfg.DocuSign.BaseURL,
			APIKey:    cfg.DocuSign.APIKey,
			AccountID: cfg.DocuSign.AccountID,
		}, logger)
	}
	var email *notify.EmailSender
	if cfg.Email.Host != "" {
		email = notify.NewEmailSender(notify.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		}, logger)
	}

	// Build HTTP handler
	handler := api.NewHandler(st, desk, registry, qualifier, planner, coordinator,
		authenticator, sms, voice, signatures, email, events, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Ready Set Realtor listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	if events != nil {
		events.Close()
	}
	st.Close()
}
