// Package fanctl reads and writes the fan monitor's 128-byte feature report
// from a PC over HID class control transfers.
package fanctl

import (
	"errors"
	"fmt"

	"github.com/google/gousb"
)

const (
	ReportSize = 128

	reqGetReport = 0x01
	reqSetReport = 0x09

	// bmRequestType: class, interface recipient.
	typeClassIn  = 0xA1
	typeClassOut = 0x21

	// wValue: feature report type in the high byte, report ID 0.
	featureReport = 0x0300
)

var ErrShortTransfer = errors.New("short transfer")

// Device is the control-transfer surface of *gousb.Device.
type Device interface {
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
}

type Client struct {
	dev   Device
	iface uint16
}

func NewClient(dev Device, iface uint16) *Client {
	return &Client{dev: dev, iface: iface}
}

// ReadReport fetches the whole report with one GET_REPORT.
func (c *Client) ReadReport() ([]byte, error) {
	buf := make([]byte, ReportSize)
	n, err := c.dev.Control(typeClassIn, reqGetReport, featureReport, c.iface, buf)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if n != ReportSize {
		return buf[:n], fmt.Errorf("get report: %w: %d of %d bytes", ErrShortTransfer, n, ReportSize)
	}
	return buf, nil
}

// WriteReport sends data with one SET_REPORT, zero-padded to the report
// size.
func (c *Client) WriteReport(data []byte) error {
	if len(data) > ReportSize {
		return fmt.Errorf("set report: %d bytes exceeds %d", len(data), ReportSize)
	}
	buf := make([]byte, ReportSize)
	copy(buf, data)
	n, err := c.dev.Control(typeClassOut, reqSetReport, featureReport, c.iface, buf)
	if err != nil {
		return fmt.Errorf("set report: %w", err)
	}
	if n != ReportSize {
		return fmt.Errorf("set report: %w: %d of %d bytes", ErrShortTransfer, n, ReportSize)
	}
	return nil
}

// Conn is an open device plus the libusb context behind it.
type Conn struct {
	*Client
	ctx *gousb.Context
	dev *gousb.Device
}

// Open finds the device named by p and detaches any kernel HID driver so
// control transfers reach the firmware.
func Open(p Profile) (*Conn, error) {
	ctx := gousb.NewContext()
	c := &Conn{ctx: ctx}

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(p.VID), gousb.ID(p.PID))
	if err != nil || dev == nil {
		c.Close()
		if err == nil {
			err = errors.New("not found")
		}
		return nil, fmt.Errorf("open %04x:%04x: %w", p.VID, p.PID, err)
	}
	c.dev = dev

	if p.Serial != "" {
		sn, err := dev.SerialNumber()
		if err != nil || sn != p.Serial {
			c.Close()
			return nil, fmt.Errorf("open %04x:%04x: serial %q does not match %q", p.VID, p.PID, sn, p.Serial)
		}
	}
	if err := dev.SetAutoDetach(true); err != nil {
		c.Close()
		return nil, fmt.Errorf("unable to set autodetach on device: %w", err)
	}
	dev.ControlTimeout = p.Timeout()
	c.Client = NewClient(dev, p.Interface)
	return c, nil
}

func (c *Conn) Close() {
	if c.dev != nil {
		c.dev.Close()
	}
	if c.ctx != nil {
		c.ctx.Close()
	}
}
