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

	bookrepo "github.com/librarium-io/librarium/internal/book/repo"
	historyrepo "github.com/librarium-io/librarium/internal/history/repo"
	"github.com/librarium-io/librarium/internal/router"
	"github.com/librarium-io/librarium/internal/token"
	userrepo "github.com/librarium-io/librarium/internal/user/repo"
	"github.com/librarium-io/librarium/pkg/database"
	"github.com/librarium-io/librarium/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.InitLogger(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting librarium api")

	// signing config is required; refuse to start without a secret
	tokenCfg, err := token.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("token config: %v", err)
	}
	tokens, err := token.NewManager(tokenCfg)
	if err != nil {
		sugar.Fatalf("token manager: %v", err)
	}

	// init db
	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// ensure schema
	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSchema()
	if err := userrepo.NewUserRepo(db).EnsureTable(schemaCtx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}
	if err := bookrepo.NewBookRepo(db).EnsureTable(schemaCtx); err != nil {
		sugar.Fatalf("ensure books table: %v", err)
	}
	if err := historyrepo.NewHistoryRepo(db).EnsureTable(schemaCtx); err != nil {
		sugar.Fatalf("ensure history table: %v", err)
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8000"
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: router.RegisterRoutes(sugar, db, tokens),
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	sugar.Infow("service is running; press Ctrl+C to stop", "addr", addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if err := db.PingContext(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
