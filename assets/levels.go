// Package assets embeds the arenas shipped with the binaries.
package assets

import "embed"

// LevelsDir is the directory inside Levels holding the .tmx arenas.
const LevelsDir = "levels"

//go:embed levels/*.tmx
var Levels embed.FS
