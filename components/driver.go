package components

import (
	"github.com/automoto/kartsync/input"
	"github.com/yohamta/donburi"
)

// DriverData feeds scripted input to a locally driven kart.
type DriverData struct {
	*input.Driver
}

var Driver = donburi.NewComponentType[DriverData]()
