package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"trainslot-backend/lib/browser"
	"trainslot-backend/lib/configutil"
	"trainslot-backend/lib/gate"
	"trainslot-backend/lib/linkstore"
	"trainslot-backend/lib/serviceutil"
	"trainslot-backend/lib/telemetry"
	"trainslot-backend/services/training"
	"trainslot-backend/services/training/server"

	_ "modernc.org/sqlite"
)

type SiteConfig struct {
	Url      string `json:"url"`
	Password string `json:"password"`
}

type AuthConfig struct {
	// bcrypt hash of the shared access password
	PasswordBcrypt string `json:"password_bcrypt"`
}

type BrowserConfig struct {
	ExecPath string `json:"exec_path"`
	// run the browser with a visible window, for debugging scrapes
	Windowed         bool `json:"windowed"`
	NoSandbox        bool `json:"no_sandbox"`
	OpTimeoutSeconds int  `json:"op_timeout_seconds"`
}

type Config struct {
	Port    int           `json:"port"`
	Db      string        `json:"db"`
	Site    SiteConfig    `json:"site"`
	Auth    AuthConfig    `json:"auth"`
	Browser BrowserConfig `json:"browser"`
}

func main() {
	telemetry.InitSlog(false)

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "trainslotd")
	if err != nil {
		slog.Warn("telemetry export disabled", "err", err)
	} else {
		defer tel.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)
	}

	slog.Info("opening database...", "path", config.Db)
	sqlite, err := sql.Open("sqlite", config.Db)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	store, err := linkstore.NewStore(sqlite)
	if err != nil {
		serviceutil.Fatal("failed to initialize edit link store", err)
	}

	b := browser.NewSession(ctx, browser.Options{
		ExecPath:  config.Browser.ExecPath,
		Headless:  !config.Browser.Windowed,
		NoSandbox: config.Browser.NoSandbox,
		OpTimeout: time.Duration(config.Browser.OpTimeoutSeconds) * time.Second,
	})
	defer b.Close()

	service := training.NewService(
		gate.New(config.Auth.PasswordBcrypt),
		store,
		b,
		config.Site.Url,
		config.Site.Password,
	)

	go serviceutil.StartHttpServer(config.Port, server.NewServer(service, config.Site.Url).Router())

	<-ctx.Done()
	slog.Info("shutting down...")
}
