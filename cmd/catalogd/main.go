package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/makavanaraju78/Streamverse/internal/auth"
	"github.com/makavanaraju78/Streamverse/internal/catalog"
	"github.com/makavanaraju78/Streamverse/internal/config"
	"github.com/makavanaraju78/Streamverse/internal/mock"
	"github.com/makavanaraju78/Streamverse/internal/ws"
)

func main() {
	mockMode := flag.Bool("mock", false, "Simulate watch-later changes from another device")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	dataDir := flag.String("data", "", "Override catalog data directory")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *dataDir != "" {
		cfg.Catalog.DataDir = *dataDir
	}
	if *mockMode {
		cfg.Mock.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	store := catalog.NewStore(cfg.Catalog.DataDir)
	if err := store.Load(); err != nil {
		log.Fatalf("Failed to load catalog from %s: %v", store.Path(), err)
	}
	if cfg.Catalog.Seed {
		n, err := store.Seed()
		if err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
		if n > 0 {
			log.Printf("Seeded catalog with %d titles", n)
		}
	}

	authSvc := auth.NewService(cfg.Auth.SessionTTL, cfg.Auth.FederatedTokens)
	for _, u := range cfg.Auth.Users {
		if err := authSvc.Register(u.Email, u.Password); err != nil && !errors.Is(err, auth.ErrUserExists) {
			log.Fatalf("Failed to register %s: %v", u.Email, err)
		}
	}

	hub := ws.NewHub()
	defer hub.Close()
	server := ws.NewServer(authSvc, store, hub, cfg.Server.AllowedOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Mock.Enabled {
		email := cfg.Mock.Email
		if email == "" && len(cfg.Auth.Users) > 0 {
			email = cfg.Auth.Users[0].Email
		}
		if email == "" {
			log.Println("Mock mode enabled but no account to edit; simulator not started")
		} else {
			mock.NewSimulator(store, hub, email, cfg.Mock.Interval).Start(ctx)
		}
	}

	if err := ws.ListenAndServe(ctx, cfg.Server.Host, cfg.Server.Port, server.Handler()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Shut down")
}
