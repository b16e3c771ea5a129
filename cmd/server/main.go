package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"quicksale/backend/internal/app"
	"quicksale/backend/internal/config"
	"quicksale/backend/internal/httpapi"
	"quicksale/backend/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if err := validateSecurityConfig(cfg); err != nil {
		logger.WithError(err).Fatal("invalid security configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	application, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}

	auth := httpapi.NewAuthManager(
		cfg.AuthSecret,
		time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		httpapi.NewKVUserStore(application.KV),
		httpapi.Bootstrap{AdminPassword: cfg.AdminPassword, CashierPassword: cfg.CashierPassword},
	)
	api := httpapi.New(application.Service, auth, cfg.AllowedOrigin,
		httpapi.WithNotifications(application.Notifications),
		httpapi.WithLogger(logger),
	)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.Address(), "backend": cfg.StoreBackend, "sink": cfg.BackupSink}).Info("quicksale backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
	if err := application.Close(); err != nil {
		logger.WithError(err).Error("close error")
	}

	logger.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AdminPassword != "" {
		if err := validatePasswordStrength(cfg.AdminPassword); err != nil {
			return fmt.Errorf("ADMIN_PASSWORD is too weak: %w", err)
		}
	}
	if cfg.CashierPassword != "" {
		if err := validatePasswordStrength(cfg.CashierPassword); err != nil {
			return fmt.Errorf("CASHIER_PASSWORD is too weak: %w", err)
		}
	}
	return nil
}

// validatePasswordStrength rejects short passwords, a single repeated
// character, straight ascending or descending runs and a known-weak list.
func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("must be at least 8 characters")
	}
	known := map[string]bool{
		"password": true, "12345678": true, "87654321": true, "qwertyui": true,
		"admin123": true, "password1": true, "cashier1": true, "letmein1": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated character not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(password); i++ {
		diff := int(password[i]) - int(password[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential password not allowed")
	}

	return nil
}
