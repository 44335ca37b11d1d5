// Package config publishes the embedded per-device configuration. Each
// top-level key becomes a retained message on config/<key> carrying the
// key's raw JSON; services decode their own section.
package config

import (
	"context"
	"encoding/json"

	"fanmonitor-go/bus"
	"fanmonitor-go/errcode"
	"fanmonitor-go/internal/util"
	"fanmonitor-go/x/logx"
	"fanmonitor-go/x/strx"
)

const (
	serviceName   = "config"
	configPrefix  = "config"
	DefaultDevice = "pico"
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Topic returns the retained topic for one configuration section.
func Topic(key string) bus.Topic { return bus.T(configPrefix, key) }

func sections(device string) (map[string]json.RawMessage, error) {
	device = strx.Coalesce(device, DefaultDevice)
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, &errcode.E{C: errcode.Unsupported, Op: "config.lookup", Msg: "no embedded config for " + device}
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "config.parse", Err: err}
	}
	return m, nil
}

// Load decodes one section into dst. A missing section leaves dst
// untouched so callers can pre-fill defaults.
func Load[T any](device, key string, dst *T) error {
	m, err := sections(device)
	if err != nil {
		return err
	}
	v, ok := m[key]
	if !ok {
		return nil
	}
	return util.DecodeJSON(v, dst)
}

type Service struct {
	Name   string
	device string
}

func NewService(device string) *Service {
	return &Service{Name: serviceName, device: strx.Coalesce(device, DefaultDevice)}
}

// Publish sends every section as a retained message.
func (s *Service) Publish(conn *bus.Connection) error {
	m, err := sections(s.device)
	if err != nil {
		return err
	}
	for k, v := range m {
		conn.Publish(conn.NewMessage(Topic(k), v, true))
	}
	logx.Info(serviceName, "published", logx.Str("device", s.device), logx.Int("sections", len(m)))
	return nil
}

// Start publishes in the background.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.Publish(conn); err != nil {
			logx.Error(serviceName, "publish failed", logx.Err(err))
		}
	}()
}
