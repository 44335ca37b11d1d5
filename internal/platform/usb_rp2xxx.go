//go:build rp2040 || rp2350

package platform

import (
	"device/rp"
	"machine"
	"machine/usb"
	"machine/usb/descriptor"
	"runtime/volatile"

	"fanmonitor-go/internal/halcore"
)

// ep0Packet is the full-speed control endpoint packet size.
const ep0Packet = 64

// Class requests arrive in the USB interrupt. They are parked here and
// served from Poll on the foreground loop; the controller NAKs the data
// stage until Poll arms the endpoint.
var usbMailbox struct {
	full  volatile.Register8
	setup usb.Setup
}

type rp2USB struct {
	handler halcore.FeatureHandler
}

func (u *rp2USB) Init(h halcore.FeatureHandler, reportDescriptor []byte) error {
	u.handler = h
	desc := descriptor.CDCHID
	desc.HID = map[uint16][]byte{
		usb.HID_INTERFACE: reportDescriptor,
	}
	machine.ConfigureUSBEndpoint(desc,
		[]usb.EndpointConfig{
			{
				Index: usb.HID_ENDPOINT_IN,
				IsIn:  true,
				Type:  usb.ENDPOINT_TYPE_INTERRUPT,
			},
		},
		[]usb.SetupConfig{
			{
				Index:   usb.HID_INTERFACE,
				Handler: usbSetupISR,
			},
		})
	return nil
}

func (u *rp2USB) Disconnect() {
	rp.USBCTRL_REGS.SIE_CTRL.ClearBits(rp.USBCTRL_REGS_SIE_CTRL_PULLUP_EN)
}

func (u *rp2USB) Connect() {
	rp.USBCTRL_REGS.SIE_CTRL.SetBits(rp.USBCTRL_REGS_SIE_CTRL_PULLUP_EN)
}

func usbSetupISR(setup usb.Setup) bool {
	if setup.BmRequestType&halcore.RequestTypeMask != halcore.RequestTypeClass {
		return false
	}
	if usbMailbox.full.Get() != 0 {
		return false
	}
	usbMailbox.setup = setup
	usbMailbox.full.Set(1)
	return true
}

func (u *rp2USB) Poll() {
	if usbMailbox.full.Get() == 0 || u.handler == nil {
		return
	}
	s := usbMailbox.setup
	usbMailbox.full.Set(0)

	p := halcore.SetupPacket{
		RequestType: s.BmRequestType,
		Request:     s.BRequest,
		Value:       uint16(s.WValueH)<<8 | uint16(s.WValueL),
		Index:       s.WIndex,
		Length:      s.WLength,
	}
	if u.handler.Setup(p) != halcore.NoMsg {
		machine.SendZlp()
		return
	}

	if p.DeviceToHost() {
		var pkt [ep0Packet]byte
		sent := 0
		for sent < int(p.Length) {
			want := int(p.Length) - sent
			if want > ep0Packet {
				want = ep0Packet
			}
			n := u.handler.Read(pkt[:want])
			machine.SendUSBInPacket(0, pkt[:n])
			sent += n
			if n < want {
				return
			}
		}
		return
	}

	// TODO: machine.ReceiveUSBControlPacket only surfaces the first seven
	// bytes of an OUT packet; switch to a full EP0 OUT read when TinyGo
	// exposes one.
	for got := 0; got < int(p.Length); {
		b, err := machine.ReceiveUSBControlPacket()
		if err != nil {
			break
		}
		n := int(p.Length) - got
		if n > len(b) {
			n = len(b)
		}
		got += n
		if u.handler.Write(b[:n]) {
			break
		}
	}
	machine.SendZlp()
}
