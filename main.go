package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"LUMEN-backend/internal/borrowers"
	"LUMEN-backend/internal/circulation"
	"LUMEN-backend/internal/platform/db"
)

func main() {
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if mode != "dev" && mode != "release" && mode != "memory" {
		fmt.Println("Usage: set mode to one of [dev|release|memory] in config/config.yaml")
		return
	}

	dailyRate, err := decimal.NewFromString(cfg.Lending.DailyFineRate)
	if err != nil {
		panic(fmt.Errorf("invalid lending.daily_fine_rate: %w", err))
	}

	var borrSvc *borrowers.Service
	var circSvc *circulation.Service

	if mode == "memory" {
		// Volatile backend, nothing survives a restart. Demo and local
		// poking only.
		borrSvc = borrowers.NewServiceWithStore(borrowers.NewMemoryDirectory())
		circSvc = circulation.NewServiceWithLedger(circulation.NewMemoryLedger(), borrSvc, cfg.Lending.DefaultLoanDays)
		log.Printf("[INFO] using in-memory stores")
	} else {
		conn, err := db.Connect(cfg.DB)
		if err != nil {
			panic(err)
		}
		defer conn.Close()
		log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

		borrSvc = borrowers.NewService(conn)
		circSvc = circulation.NewService(conn, borrSvc, cfg.Lending.DefaultLoanDays)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode != "release" {
		// CORS (only needed while the frontend runs on its own port)
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// /api/v1
	api := r.Group("/api/v1")
	borrowers.RegisterRoutes(api, borrSvc)
	circulation.RegisterRoutes(api, circSvc, dailyRate)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
