package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"penguinims.org/internal/auth"
	"penguinims.org/internal/categories"
	"penguinims.org/internal/httpapi"
	"penguinims.org/internal/obs"
	"penguinims.org/internal/users"
)

var version = "1.0.0"

func main() {
	_ = godotenv.Load()
	obs.Init()
	obs.SetBuildInfo(version)

	dsn := os.Getenv("PENGUIN_PG_DSN")
	if dsn == "" {
		log.Fatal("missing PENGUIN_PG_DSN")
	}
	secret := os.Getenv("PENGUIN_AUTH_SECRET")
	if secret == "" {
		log.Fatal("missing PENGUIN_AUTH_SECRET")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	issuerOpts := []auth.IssuerOption{}
	if raw := os.Getenv("PENGUIN_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("parse PENGUIN_TOKEN_TTL: %v", err)
		}
		issuerOpts = append(issuerOpts, auth.WithTTL(ttl))
	}
	issuer, err := auth.NewTokenIssuer(secret, issuerOpts...)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	usersSvc, err := users.NewService(users.NewPGStore(db), issuer)
	if err != nil {
		log.Fatalf("users service: %v", err)
	}
	categoriesSvc, err := categories.NewService(categories.NewPGStore(db))
	if err != nil {
		log.Fatalf("categories service: %v", err)
	}

	probe := httpapi.ReadyProbe{DB: db}
	api := httpapi.New(probe, version, usersSvc, categoriesSvc)

	httpAddr := os.Getenv("PENGUIN_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	srv := &http.Server{
		Addr:              httpAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting penguin-api %s on %s", version, srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	var grpcSrv *grpc.Server
	if grpcAddr := os.Getenv("PENGUIN_GRPC_ADDR"); grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcSrv, httpapi.NewHealthServer(probe))
		log.Printf("Starting grpc health on %s", grpcAddr)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	_ = db.Close()
	log.Println("Stopped")
}
