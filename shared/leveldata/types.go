// Package leveldata provides TMX arena parsing shared between client and server.
// It has no dependencies on donburi or resolv, pure data only.
package leveldata

// ArenaData holds all collision-relevant data parsed from a TMX arena file.
// Units are centimetres; TMX y maps to world z.
type ArenaData struct {
	Walls  []WallRect
	Spawns []SpawnPoint
	Width  int
	Depth  int
}

// WallRect is a solid axis-aligned wall on the XZ plane.
type WallRect struct {
	X, Z, W, D float64
}

// SpawnPoint is a kart spawn location with a heading in degrees about +Y.
type SpawnPoint struct {
	X, Z    float64
	Heading int
	Index   int
}
