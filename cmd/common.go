package main

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/severn-soft/pricegrab/internal/browser"
	"github.com/severn-soft/pricegrab/internal/notify"
	"github.com/severn-soft/pricegrab/internal/resilience"
	"github.com/severn-soft/pricegrab/internal/store"
	"github.com/severn-soft/pricegrab/pkg/telegram"
)

func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func initSession() (*browser.Chrome, error) {
	if err := browser.PrepareDownloadDir(cfg.Browser.DownloadDir); err != nil {
		return nil, err
	}
	headless := cfg.Browser.Headless
	return browser.Launch(browser.Config{
		Headless:        &headless,
		DownloadDir:     cfg.Browser.DownloadDir,
		NavigateTimeout: time.Duration(cfg.Browser.NavTimeoutSecs) * time.Second,
	})
}

func initNotifier() *notify.Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "" {
		return nil
	}
	return notify.New(telegram.NewClient(cfg.Telegram.Token), cfg.Telegram.ChatID)
}

func retryConfig(source string) resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger(source, "navigate")
	return cfg
}

func navLimiter() *rate.Limiter {
	perMin := cfg.Browser.RequestsPerMin
	if perMin <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1)
}
