package store

import (
	"fanmonitor-go/errcode"
	"fanmonitor-go/types"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/at24cx"
)

const (
	defaultI2CAddr  = 0x50
	defaultPageSize = 32
)

// blockDevice is the part of at24cx.Device we use.
type blockDevice interface {
	ReadAt(buf []byte, off int64) (int, error)
	WriteAt(buf []byte, off int64) (int, error)
}

// EEPROM maps the region onto an AT24Cxx part starting at a fixed offset.
type EEPROM struct {
	dev    blockDevice
	offset uint16
}

// NewEEPROM configures an AT24Cxx on bus using cfg (zero fields take
// defaults: address 0x50, 32-byte pages, offset 0).
func NewEEPROM(bus drivers.I2C, cfg types.StoreConfig) (*EEPROM, error) {
	if bus == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "store.eeprom", Msg: "nil bus"}
	}
	addr := cfg.I2CAddr
	if addr == 0 {
		addr = defaultI2CAddr
	}
	page := cfg.PageSize
	if page == 0 {
		page = defaultPageSize
	}
	d := at24cx.New(bus)
	d.Address = addr
	if err := d.Configure(at24cx.Config{
		PageSize:        page,
		StartRAMAddress: 0,
		EndRAMAddress:   cfg.Offset + Size,
	}); err != nil {
		return nil, &errcode.E{C: errcode.IOError, Op: "store.eeprom", Err: err}
	}
	return &EEPROM{dev: &d, offset: cfg.Offset}, nil
}

func (e *EEPROM) Size() int { return Size }

func (e *EEPROM) ReadBlock(addr uint8, buf []byte) error {
	if err := checkRange("store.read", addr, len(buf)); err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}
	if _, err := e.dev.ReadAt(buf, int64(e.offset)+int64(addr)); err != nil {
		return &errcode.E{C: errcode.IOError, Op: "store.read", Err: err}
	}
	return nil
}

func (e *EEPROM) WriteBlock(addr uint8, data []byte) error {
	if err := checkRange("store.write", addr, len(data)); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if _, err := e.dev.WriteAt(data, int64(e.offset)+int64(addr)); err != nil {
		return &errcode.E{C: errcode.IOError, Op: "store.write", Err: err}
	}
	return nil
}

// Open returns the backend named by cfg.Backend: "memory" (the default) or
// "eeprom" on i2c.
func Open(i2c drivers.I2C, cfg types.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "eeprom":
		e, err := NewEEPROM(i2c, cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, &errcode.E{C: errcode.InvalidParams, Op: "store.open", Msg: "unknown backend " + cfg.Backend}
}
