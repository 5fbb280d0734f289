package main

import (
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/doppelbot/doppel/internal/assistant"
	"github.com/doppelbot/doppel/internal/autoreply"
	"github.com/doppelbot/doppel/internal/config"
	"github.com/doppelbot/doppel/internal/effectors"
	"github.com/doppelbot/doppel/internal/memory"
	"github.com/doppelbot/doppel/internal/profile"
	"github.com/doppelbot/doppel/internal/senses"
	"github.com/doppelbot/doppel/internal/synth"
	"github.com/doppelbot/doppel/internal/types"
)

func main() {
	log.Println("doppel - personal style-learning auto-reply assistant")
	log.Println("=====================================================")

	// Load .env file (optional - won't error if missing)
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, using environment variables")
	} else {
		log.Println("[config] Loaded .env file")
	}

	// Config from environment
	discordToken := os.Getenv("DISCORD_TOKEN")
	discordChannel := os.Getenv("DISCORD_CHANNEL_ID")
	discordOwner := os.Getenv("DISCORD_OWNER_ID")
	statePath := os.Getenv("STATE_PATH")
	if statePath == "" {
		statePath = "state"
	}
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "doppel.yaml"
	}
	dryRun := os.Getenv("DRY_RUN") == "true"

	if discordToken == "" {
		log.Fatal("DISCORD_TOKEN environment variable required")
	}
	if discordOwner == "" {
		log.Fatal("DISCORD_OWNER_ID environment variable required")
	}

	// Ensure state directory exists
	os.MkdirAll(statePath, 0755)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Profile storage
	store, err := profile.Open(statePath)
	if err != nil {
		log.Fatalf("Failed to open profile store: %v", err)
	}
	defer store.Close()

	// Outbox of queued sends
	outbox := memory.NewOutbox(filepath.Join(statePath, "outbox.jsonl"))
	if err := outbox.Load(); err != nil {
		log.Printf("Warning: failed to load outbox: %v", err)
	}

	// Style engine and scheduler. Each gets its own rand source: the
	// synthesizer and scheduler draw from different goroutines behind
	// different locks.
	seed := time.Now().UnixNano()
	syn := synth.New(rand.New(rand.NewSource(seed)))
	schedRng := rand.New(rand.NewSource(seed + 1))

	schedCfg := autoreply.Config{
		CommandPrefix:   cfg.CommandPrefix,
		BaseRate:        cfg.AutoReply.BaseRate,
		SkipProbability: cfg.AutoReply.SkipProbability,
		MaxRate:         cfg.AutoReply.MaxRate,
		MinDelay:        cfg.AutoReply.MinDelay(),
		MaxDelay:        cfg.AutoReply.MaxDelay(),
		DelayFloor:      cfg.AutoReply.DelayFloor(),
		DelayCeil:       cfg.AutoReply.DelayCeil(),
		Cooldown:        cfg.AutoReply.Cooldown(),
		BurstCap:        cfg.AutoReply.BurstCap,
	}
	scheduler := autoreply.New(schedCfg, schedRng, discordOwner, store, syn, outbox)
	if cfg.AutoReply.Enabled {
		scheduler.EnableAll()
	}
	if cfg.AutoReply.Proactive {
		scheduler.StartProactive(cfg.AutoReply.ProactiveCooldown())
	}

	// Coordinator
	asst := assistant.New(cfg, discordOwner, store, syn, scheduler, outbox)
	asst.Start()

	// Discord sense feeds the coordinator
	discordSense, err := senses.NewDiscordSense(senses.DiscordConfig{
		Token:     discordToken,
		ChannelID: discordChannel,
		OwnerID:   discordOwner,
	}, asst.HandleMessage)
	if err != nil {
		log.Fatalf("Failed to create Discord sense: %v", err)
	}
	if err := discordSense.Start(); err != nil {
		log.Fatalf("Failed to start Discord sense: %v", err)
	}

	// Effector drains the outbox (shares session with sense)
	var stopEffector func()
	if dryRun {
		eff := effectors.NewDryRunEffector(
			statePath,
			func() []*types.Action { return outbox.Pending() },
			outbox.MarkComplete,
		)
		eff.Start()
		stopEffector = eff.Stop
	} else {
		eff := effectors.NewDiscordEffector(
			discordSense.Session(),
			func() []*types.Action { return outbox.Pending() },
			outbox.MarkComplete,
			outbox.MarkFailed,
		)
		eff.Start()
		stopEffector = eff.Stop
	}

	log.Println("[main] All subsystems started. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("[main] Shutting down...")

	// Stop subsystems
	stopEffector()
	discordSense.Stop()
	scheduler.Stop()
	asst.Stop()

	// Persist state
	outbox.CleanupCompleted(24 * time.Hour)
	if err := outbox.Save(); err != nil {
		log.Printf("Warning: failed to save outbox: %v", err)
	}

	log.Println("[main] Goodbye!")
}
