package kartsim

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/automoto/kartsync/assets"
	"github.com/automoto/kartsync/shared/leveldata"
	"github.com/charmbracelet/log"
)

var ErrUnknownArena = errors.New("unknown arena")

// LoadArena loads the named arena from assetsDir/levels, or from the
// embedded arenas when assetsDir is empty.
func LoadArena(assetsDir, name string, logger *log.Logger) (*Arena, error) {
	var fsys fs.FS = assets.Levels
	if assetsDir != "" {
		fsys = os.DirFS(assetsDir)
	}

	arenas, names, err := leveldata.LoadAllArenas(fsys, assets.LevelsDir)
	if err != nil {
		return nil, fmt.Errorf("load all arenas: %w", err)
	}

	data, ok := arenas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownArena, name, names)
	}

	if logger != nil {
		logger.Info("loaded arena",
			"name", name, "walls", len(data.Walls), "spawns", len(data.Spawns),
			"width", data.Width, "depth", data.Depth)
	}

	return NewArena(data), nil
}
