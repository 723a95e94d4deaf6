package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocklens/internal/agent"
	"stocklens/internal/cache"
	"stocklens/internal/config"
	"stocklens/internal/pipeline"
	"stocklens/internal/rules"
	"stocklens/internal/scheduler"
	"stocklens/internal/source"
	"stocklens/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] stocklens starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Open store
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("[FATAL] open store: %v", err)
	}
	defer st.Close()

	// Build data sources and cache
	registry := source.NewRegistry(
		source.NewBinance(cfg.Proxy),
		source.NewYahoo(cfg.Proxy),
	)
	c := cache.New(st, registry,
		cache.WithMaxAge(time.Duration(cfg.Cache.MaxAgeHours)*time.Hour))

	// Build rule engine config
	rulesCfg := rules.DefaultConfig()
	rulesCfg.RSILow = cfg.Signals.RSILow
	rulesCfg.RSIHigh = cfg.Signals.RSIHigh
	rulesCfg.VolumeWindow = cfg.Signals.VolumeWindow
	rulesCfg.ATRMult = cfg.Signals.ATRMult
	rulesCfg.EnterThreshold = cfg.Signals.EnterThreshold

	// Build pipeline and scheduler
	p := pipeline.New(c, st, agent.NewLocal(st), rulesCfg, cfg.Assets)
	sched := scheduler.New(p)
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing refresh now")
		go sched.RunNow()
	}

	log.Println("[INFO] stocklens is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	log.Println("[INFO] stocklens stopped")
}
