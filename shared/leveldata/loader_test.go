package leveldata

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/automoto/kartsync/assets"
)

func TestLoadEmbeddedArena(t *testing.T) {
	data, err := LoadArena(assets.Levels, "levels/arena.tmx")
	if err != nil {
		t.Fatalf("LoadArena: %v", err)
	}

	if data.Width != 4000 || data.Depth != 4000 {
		t.Errorf("size = %dx%d, want 4000x4000", data.Width, data.Depth)
	}
	if len(data.Walls) != 5 {
		t.Errorf("walls = %d, want 5", len(data.Walls))
	}
	if len(data.Spawns) != 7 {
		t.Fatalf("spawns = %d, want 7", len(data.Spawns))
	}
	for i, s := range data.Spawns {
		if s.Index != i {
			t.Errorf("spawn %d has index %d, want sorted order", i, s.Index)
		}
	}
	if data.Spawns[1].Heading != 90 {
		t.Errorf("spawn 1 heading = %d, want 90", data.Spawns[1].Heading)
	}
}

func TestLoadArenaWithoutSpawns(t *testing.T) {
	fsys := fstest.MapFS{
		"empty.tmx": &fstest.MapFile{Data: []byte(`<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="2" height="2" tilewidth="100" tileheight="100" infinite="0">
 <objectgroup id="1" name="Walls">
  <object id="1" x="0" y="0" width="200" height="10"/>
 </objectgroup>
</map>
`)},
	}

	_, err := LoadArena(fsys, "empty.tmx")
	if !errors.Is(err, ErrNoSpawns) {
		t.Fatalf("err = %v, want ErrNoSpawns", err)
	}
}

func TestLoadAllArenas(t *testing.T) {
	arenas, names, err := LoadAllArenas(assets.Levels, assets.LevelsDir)
	if err != nil {
		t.Fatalf("LoadAllArenas: %v", err)
	}
	if len(names) == 0 || names[0] != "arena" {
		t.Fatalf("names = %v, want [arena]", names)
	}
	if arenas["arena"] == nil {
		t.Fatal("arena missing from map")
	}
}
