// Command fanmonitor is the firmware entry point. Off-target builds run the
// same services against host fakes.
package main

import (
	"context"
	"time"

	"fanmonitor-go/internal/firmware"
	"fanmonitor-go/internal/platform"
	"fanmonitor-go/x/logx"
)

// device selects the embedded configuration; override with
// -ldflags "-X main.device=pico-eeprom".
var device = "pico"

func main() {
	// Give a console time to attach before the first line.
	time.Sleep(500 * time.Millisecond)

	board, err := platform.NewBoard()
	if err != nil {
		println("board:", err.Error())
		return
	}
	logx.SetWriter(board.Log)
	logx.Info("main", "boot", logx.Str("board", board.Wiring.Name), logx.Str("device", device))

	platform.Boot(context.Background(), board, firmware.BootFunc(board, device))
}
