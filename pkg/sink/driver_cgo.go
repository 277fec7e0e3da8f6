//go:build cgo

package sink

import (
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const driverAvailable = true
