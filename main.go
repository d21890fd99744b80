package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"strategy-core/internal/api"
	"strategy-core/internal/balance"
	"strategy-core/internal/engine"
	"strategy-core/internal/events"
	"strategy-core/internal/exec"
	"strategy-core/internal/market"
	"strategy-core/internal/monitor"
	"strategy-core/internal/profile"
	"strategy-core/pkg/config"
	"strategy-core/pkg/db"
)

const buildVersion = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("strategy core %s starting on :%s", buildVersion, cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("db migrations failed: %v", err)
	}

	prof := loadProfile(cfg)
	log.Printf("using profile %q (window=%d z_entry=%.2f)", prof.Name, prof.WindowSize, prof.Signal.ZEntry)

	bal := balance.NewManager(cfg.InitialBalance)

	eng := engine.New(prof, bal, bus, database)
	if err := eng.LoadState(ctx); err != nil {
		log.Fatalf("restore engine state: %v", err)
	}

	paper := exec.NewPaper(exec.SimConfig{
		FeeRate:      cfg.FeeRate,
		SlippageBps:  cfg.SlippageBps,
		LatencyMinMs: cfg.LatencyMinMs,
		LatencyMaxMs: cfg.LatencyMaxMs,
		RejectRate:   cfg.RejectRate,
	}, eng)

	sysMetrics := monitor.NewSystemMetrics()
	mon := &monitor.Monitor{
		Bus:         bus,
		Metrics:     sysMetrics,
		Sink:        monitor.LogSink{},
		MaxDrawdown: cfg.MaxDrawdownAlert,
	}
	mon.Start(ctx)

	feed := &market.MockFeed{
		Bus:         bus,
		Symbols:     cfg.Symbols,
		StartPrice:  cfg.FeedStartPrice,
		Step:        cfg.FeedStep,
		TicksPerSec: cfg.FeedTicksPerSec,
	}
	feed.Start(ctx)

	// Decision loop: one synchronous pass per feed batch. The engine is not
	// re-entered until the emitted action (if any) has been confirmed.
	go func() {
		stream, unsub := bus.Subscribe(events.EventMarketData, 100)
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-stream:
				if !ok {
					return
				}
				tick, castOK := msg.(market.Tick)
				if !castOK {
					continue
				}

				timer := monitor.NewTimer(sysMetrics.DecisionLatency)
				act := eng.OnPriceUpdate(tick)
				timer.Stop()

				if act == nil {
					continue
				}
				if err := paper.Execute(ctx, *act); err != nil {
					log.Printf("execution failed for %s %s: %v", act.Side, act.Symbol, err)
					sysMetrics.IncrementErrors()
					continue
				}
				mon.CheckRisk(eng.Governor().Metrics())
			}
		}
	}()

	// API
	server := api.NewServer(
		bus,
		database,
		eng,
		bal,
		paper,
		sysMetrics,
		api.SystemMeta{
			Profile: prof.Name,
			Symbols: cfg.Symbols,
			Version: buildVersion,
		},
		cfg.JWTSecret,
		cfg.OperatorKey,
	)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}

func loadProfile(cfg *config.Config) profile.Profile {
	if cfg.ProfilePath == "" {
		return profile.Default()
	}
	profiles, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		log.Fatalf("load profiles from %s: %v", cfg.ProfilePath, err)
	}
	prof, err := profile.Select(profiles, cfg.ProfileName)
	if err != nil {
		log.Fatalf("select profile: %v", err)
	}
	return prof
}
