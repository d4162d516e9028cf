package leveldata

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lafriks/go-tiled"
)

const (
	wallsLayer = "Walls"
	spawnLayer = "KartSpawn"
)

var ErrNoSpawns = errors.New("arena has no kart spawn points")

// LoadArena parses a TMX file and returns its walls and kart spawn points.
// It takes an fs.FS so callers can pass embed.FS or os.DirFS.
func LoadArena(fsys fs.FS, tmxPath string) (*ArenaData, error) {
	arenaMap, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}

	data := &ArenaData{
		Width: arenaMap.Width * arenaMap.TileWidth,
		Depth: arenaMap.Height * arenaMap.TileHeight,
	}

	for _, og := range arenaMap.ObjectGroups {
		switch og.Name {
		case wallsLayer:
			for _, o := range og.Objects {
				if o.Width <= 0 || o.Height <= 0 {
					continue
				}
				data.Walls = append(data.Walls, WallRect{
					X: o.X,
					Z: o.Y,
					W: o.Width,
					D: o.Height,
				})
			}
		case spawnLayer:
			for _, o := range og.Objects {
				data.Spawns = append(data.Spawns, SpawnPoint{
					X:       o.X,
					Z:       o.Y,
					Heading: o.Properties.GetInt("heading"),
					Index:   o.Properties.GetInt("spawnIndex"),
				})
			}
		}
	}

	if len(data.Spawns) == 0 {
		return nil, fmt.Errorf("%s: %w", tmxPath, ErrNoSpawns)
	}

	// Stable assignment order regardless of object order in the file
	sort.Slice(data.Spawns, func(i, j int) bool {
		return data.Spawns[i].Index < data.Spawns[j].Index
	})

	return data, nil
}

// LoadAllArenas discovers all .tmx files in dir within fsys and returns them
// keyed by stem name plus a sorted list of names.
func LoadAllArenas(fsys fs.FS, dir string) (map[string]*ArenaData, []string, error) {
	pattern := dir + "/*.tmx"
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, nil, fmt.Errorf("no .tmx files found in %s", dir)
	}

	arenas := make(map[string]*ArenaData, len(matches))
	names := make([]string, 0, len(matches))

	for _, path := range matches {
		data, err := LoadArena(fsys, path)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
		stem := strings.TrimSuffix(filepath.Base(path), ".tmx")
		arenas[stem] = data
		names = append(names, stem)
	}

	sort.Strings(names)
	return arenas, names, nil
}
