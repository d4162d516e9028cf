package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automoto/kartsync/components"
	"github.com/automoto/kartsync/config"
	"github.com/automoto/kartsync/input"
	"github.com/automoto/kartsync/network"
	"github.com/automoto/kartsync/shared/kartsim"
	"github.com/automoto/kartsync/systems"
	"github.com/automoto/kartsync/systems/factory"
	"github.com/charmbracelet/log"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

const (
	appName     = "kartsync"
	joinTimeout = 10 * time.Second
)

func main() {
	cfg := config.Client

	flag.StringVar(&cfg.Address, "server", cfg.Address, "Server address (host:port)")
	flag.StringVar(&cfg.PlayerName, "name", cfg.PlayerName, "Player name")
	flag.StringVar(&cfg.Script, "script", cfg.Script, "Driving script (straight, circle, figure8, zigzag)")
	version := flag.String("version", "", "Client version sent to the server")
	assetsDir := flag.String("assets", "", "Directory containing levels/*.tmx (empty = embedded)")
	arenaName := flag.String("level", config.Server.Level, "Arena the server is running")
	tickRateFlag := flag.Int("tickrate", 0, "Client tick rate (0 = use the server's)")
	fresh := flag.Bool("fresh", false, "Ignore any saved reconnect token")
	logLevel := flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "client",
	})
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatal("invalid log level", "level", *logLevel, "err", err)
	}
	logger.SetLevel(level)

	driver, err := input.NewDriver(cfg.Script)
	if err != nil {
		logger.Fatal("invalid script", "script", cfg.Script, "available", input.Scripts())
	}

	arena, err := kartsim.LoadArena(*assetsDir, *arenaName, logger)
	if err != nil {
		logger.Fatal("failed to load arena", "err", err)
	}

	store := network.OpenSessionStore(appName, logger.WithPrefix("session"))
	var token string
	if saved, ok := store.Load(); ok && !*fresh &&
		saved.Server == cfg.Address && saved.PlayerName == cfg.PlayerName {
		token = saved.ReconnectToken
		logger.Info("resuming previous session")
	}

	client := network.NewClient(config.Net.StateQueueSize, logger.WithPrefix("net"))
	client.Connect(cfg.Address, *version, cfg.PlayerName, token)

	if err := waitForJoin(client); err != nil {
		logger.Fatal("could not join", "server", cfg.Address, "err", err)
	}

	tickRate := *tickRateFlag
	if tickRate <= 0 {
		tickRate = client.TickRate()
	}
	if tickRate <= 0 {
		tickRate = config.Net.TickRate
	}

	err = store.Save(network.Session{
		PlayerName:     cfg.PlayerName,
		Server:         cfg.Address,
		ReconnectToken: client.ReconnectToken(),
	})
	if err != nil {
		logger.Warn("session not saved", "err", err)
	}

	dt := 1 / float64(tickRate)
	world := ecs.NewECS(donburi.NewWorld())
	snapshot := systems.NewSnapshot(client, arena, factory.KartSpec{
		Name:   cfg.PlayerName,
		Driver: driver,
		Sender: client,
		Logger: logger.WithPrefix("kart"),
	}, logger)
	world.AddSystem(snapshot.Update)
	world.AddSystem(systems.NewInputSystem(dt, client.ServerTime))
	world.AddSystem(systems.NewReplicationSystem(dt, logger))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()
	status := time.NewTicker(cfg.StatusPeriod)
	defer status.Stop()

	logger.Info("driving",
		"server", client.ServerName(), "kart", client.KartID(), "script", cfg.Script, "tickRate", tickRate)

	for {
		select {
		case <-sigChan:
			logger.Info("shutting down client")
			client.Disconnect()
			return
		case <-ticker.C:
			switch client.State() {
			case network.StateError:
				logger.Fatal("connection lost", "err", client.LastError())
			case network.StateDisconnected:
				logger.Info("server closed the connection")
				return
			}
			world.Update()
		case <-status.C:
			logStatus(logger, world, snapshot, client.KartID())
		}
	}
}

// waitForJoin blocks until the join handshake succeeds or fails.
func waitForJoin(client *network.Client) error {
	deadline := time.After(joinTimeout)
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-deadline:
			client.Disconnect()
			return network.ErrNotJoined
		case <-poll.C:
			switch client.State() {
			case network.StateJoinedGame:
				return nil
			case network.StateError:
				return client.LastError()
			}
		}
	}
}

func logStatus(logger *log.Logger, world *ecs.ECS, snapshot *systems.Snapshot, kartID uint32) {
	entry, ok := snapshot.Kart(world, kartID)
	if !ok {
		logger.Info("waiting for own kart", "karts", snapshot.Count())
		return
	}

	kart := components.Kart.Get(entry)
	pos := kart.Sim.Position()
	logger.Info("status",
		"karts", snapshot.Count(),
		"pending", kart.Replication.Pending(),
		"x", int(pos.X()), "z", int(pos.Z()),
		"speed", kart.Sim.Velocity().Len())
}
