// Package firmware assembles one boot of the fan monitor from a board and
// an embedded device configuration.
package firmware

import (
	"context"

	"fanmonitor-go/bus"
	"fanmonitor-go/internal/platform"
	"fanmonitor-go/services/config"
	"fanmonitor-go/services/fan"
	"fanmonitor-go/services/featurereport"
	"fanmonitor-go/services/heartbeat"
	"fanmonitor-go/services/sampler"
	"fanmonitor-go/services/store"
	"fanmonitor-go/services/supervisor"
	"fanmonitor-go/types"
	"fanmonitor-go/x/logx"
)

const busQueue = 8

// Settings are the configuration sections read before bring-up.
type Settings struct {
	Fan        types.FanConfig
	Supervisor types.SupervisorConfig
	Sampler    types.SamplerConfig
	Store      types.StoreConfig
}

// LoadSettings starts from the built-in defaults and overlays the device's
// embedded configuration.
func LoadSettings(device string) (Settings, error) {
	s := Settings{
		Fan:        fan.DefaultConfig(),
		Supervisor: supervisor.DefaultConfig(),
		Store:      types.StoreConfig{Backend: "memory"},
	}
	if err := config.Load(device, "fan", &s.Fan); err != nil {
		return s, err
	}
	if err := config.Load(device, "supervisor", &s.Supervisor); err != nil {
		return s, err
	}
	if err := config.Load(device, "sampler", &s.Sampler); err != nil {
		return s, err
	}
	if err := config.Load(device, "store", &s.Store); err != nil {
		return s, err
	}
	return s, nil
}

// Run performs one boot: bring-up, then the supervisor loop until ctx ends.
// It has the shape of platform.BootFunc once device and board are bound.
func Run(ctx context.Context, b *platform.Board, device string, boot uint32) error {
	set, err := LoadSettings(device)
	if err != nil {
		return err
	}
	if l, ok := logx.ParseLevel(set.Supervisor.LogLevel); ok {
		logx.SetLevel(l)
	}

	st, err := store.Open(b.I2C, set.Store)
	if err != nil {
		return err
	}

	bs := bus.NewBus(busQueue)
	supConn := bs.NewConnection("supervisor")
	usbConn := bs.NewConnection("usb")

	samp := sampler.New(b.ADC, b.Intr, b.Sleep, set.Sampler)
	fc := fan.New(b.PWM, set.Fan)
	sup := supervisor.New(supervisor.Deps{
		USB:      b.USB,
		Watchdog: b.Watchdog,
		Debug:    b.Debug,
		Fan:      fc,
		Sampler:  samp,
		Engine:   featurereport.New(st, usbConn),
	}, set.Supervisor, supConn, boot)

	if err := sup.BringUp(ctx); err != nil {
		return err
	}

	// Background services start after bring-up so a failed attempt leaves
	// nothing running.
	go samp.Run(ctx, bs.NewConnection("sampler"))
	go fc.Run(ctx, bs.NewConnection("fan"))
	heartbeat.New().Start(ctx, bs.NewConnection("heartbeat"))
	config.NewService(device).Start(ctx, bs.NewConnection("config"))

	return sup.Run(ctx)
}

// BootFunc binds Run to a board and device.
func BootFunc(b *platform.Board, device string) platform.BootFunc {
	return func(ctx context.Context, boot uint32) error {
		return Run(ctx, b, device, boot)
	}
}
