package core

import (
	"time"
)

type GameLoop struct {
	server   *Server
	tickRate int
	running  bool
	stopChan chan struct{}
}

func NewGameLoop(server *Server, tickRate int) *GameLoop {
	return &GameLoop{
		server:   server,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
	}
}

func (g *GameLoop) Run() {
	g.running = true
	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	g.server.logger.Info("game loop started", "tickRate", g.tickRate)

	for {
		select {
		case <-g.stopChan:
			g.running = false
			g.server.logger.Info("game loop stopped")
			return
		case <-ticker.C:
			g.tick()
		}
	}
}

func (g *GameLoop) Stop() {
	close(g.stopChan)
}

// tick applies queued client commands, runs the host kart and broadcasts
// every state published along the way.
func (g *GameLoop) tick() {
	g.server.ProcessCommands()
	g.server.ecs.Update()
	g.server.reapDetached()
	g.server.flush()
}
