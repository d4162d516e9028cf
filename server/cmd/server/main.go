package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/automoto/kartsync/config"
	"github.com/automoto/kartsync/server/core"
	"github.com/automoto/kartsync/shared/kartsim"
	"github.com/charmbracelet/log"
)

func main() {
	cfg := config.Server

	port := flag.Uint("port", cfg.Port, "Server port")
	tickRate := flag.Int("tickrate", config.Net.TickRate, "Server tick rate (updates per second)")
	flag.StringVar(&cfg.Name, "name", cfg.Name, "Server display name")
	flag.StringVar(&cfg.Version, "version", cfg.Version, "Required client version (empty = accept any)")
	flag.IntVar(&cfg.MaxKarts, "maxkarts", cfg.MaxKarts, "Maximum number of client karts")
	flag.StringVar(&cfg.AssetsDir, "assets", cfg.AssetsDir, "Directory containing levels/*.tmx (empty = embedded)")
	flag.StringVar(&cfg.Level, "level", cfg.Level, "Arena to load")
	flag.BoolVar(&cfg.HostKart, "hostkart", cfg.HostKart, "Drive a scripted kart on the server")
	flag.StringVar(&cfg.HostScript, "script", cfg.HostScript, "Driving script for the host kart")
	flag.Float64Var(&cfg.MoveRate, "moverate", cfg.MoveRate, "Moves per second accepted per client (0 = unlimited)")
	flag.Float64Var(&config.Net.RunAheadTolerance, "tolerance", config.Net.RunAheadTolerance, "Seconds a client may run ahead of the server clock")
	logLevel := flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "server",
	})
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatal("invalid log level", "level", *logLevel, "err", err)
	}
	logger.SetLevel(level)

	if secret := os.Getenv("KARTSYNC_TOKEN_SECRET"); secret != "" {
		cfg.TokenSecret = secret
	}

	arena, err := kartsim.LoadArena(cfg.AssetsDir, cfg.Level, logger)
	if err != nil {
		logger.Fatal("failed to load arena", "err", err)
	}

	server, err := core.NewServer(cfg, *tickRate, arena, logger)
	if err != nil {
		logger.Fatal("failed to create server", "err", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down server")
		server.Stop()
		os.Exit(0)
	}()

	logger.Info("starting kartsync server",
		"name", cfg.Name, "port", *port, "tickRate", *tickRate,
		"version", cfg.Version, "level", cfg.Level, "hostKart", cfg.HostKart)
	if err := server.Start(*port); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
