//go:build !rp2040 && !rp2350

package platform

import (
	"context"
	"sync"

	"fanmonitor-go/errcode"
	"fanmonitor-go/internal/halcore"
)

// ep0Size is the low-speed control endpoint packet size.
const ep0Size = 8

// ControlResult is what the host side observed for one control transfer.
type ControlResult struct {
	Setup   halcore.SetupPacket
	Handled bool   // Setup asked for a streamed data stage
	Data    []byte // IN data returned to the host
	Written int    // OUT bytes offered before the handler reported completion
	Done    bool   // Write reported completion
}

type pendingXfer struct {
	setup halcore.SetupPacket
	data  []byte
	reply chan ControlResult
}

// HostUSB is a device-side transport driven by queued control transfers.
// Transfers are served one per Poll, in EP0-sized packets, only while
// connected.
type HostUSB struct {
	mu         sync.Mutex
	handler    halcore.FeatureHandler
	descriptor []byte
	connected  bool
	events     []string
	pending    []pendingXfer
}

func NewHostUSB() *HostUSB { return &HostUSB{} }

func (u *HostUSB) Init(h halcore.FeatureHandler, reportDescriptor []byte) error {
	if h == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "usb.init", Msg: "nil handler"}
	}
	u.mu.Lock()
	u.handler = h
	u.descriptor = append([]byte(nil), reportDescriptor...)
	u.events = append(u.events, "init")
	u.mu.Unlock()
	return nil
}

func (u *HostUSB) Disconnect() {
	u.mu.Lock()
	u.connected = false
	u.events = append(u.events, "disconnect")
	u.mu.Unlock()
}

func (u *HostUSB) Connect() {
	u.mu.Lock()
	u.connected = true
	u.events = append(u.events, "connect")
	u.mu.Unlock()
}

// Events lists init/connect/disconnect calls in order.
func (u *HostUSB) Events() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.events...)
}

func (u *HostUSB) Connected() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.connected
}

func (u *HostUSB) Descriptor() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]byte(nil), u.descriptor...)
}

// Submit queues a control transfer for the next Poll. data is the OUT data
// stage and is ignored for device-to-host requests.
func (u *HostUSB) Submit(p halcore.SetupPacket, data []byte) <-chan ControlResult {
	ch := make(chan ControlResult, 1)
	u.mu.Lock()
	u.pending = append(u.pending, pendingXfer{setup: p, data: append([]byte(nil), data...), reply: ch})
	u.mu.Unlock()
	return ch
}

// Control submits a transfer and waits for a polling loop to serve it.
func (u *HostUSB) Control(ctx context.Context, p halcore.SetupPacket, data []byte) (ControlResult, error) {
	ch := u.Submit(p, data)
	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		return ControlResult{}, errcode.Timeout
	}
}

// Poll serves at most one queued transfer.
func (u *HostUSB) Poll() {
	u.mu.Lock()
	if !u.connected || u.handler == nil || len(u.pending) == 0 {
		u.mu.Unlock()
		return
	}
	x := u.pending[0]
	u.pending = u.pending[1:]
	h := u.handler
	u.mu.Unlock()

	x.reply <- serve(h, x.setup, x.data)
}

// Serve runs one transfer synchronously, bypassing the queue.
func (u *HostUSB) Serve(p halcore.SetupPacket, data []byte) ControlResult {
	u.mu.Lock()
	h := u.handler
	u.mu.Unlock()
	if h == nil {
		return ControlResult{Setup: p}
	}
	return serve(h, p, data)
}

func serve(h halcore.FeatureHandler, p halcore.SetupPacket, data []byte) ControlResult {
	res := ControlResult{Setup: p}
	if h.Setup(p) != halcore.NoMsg {
		return res
	}
	res.Handled = true

	if p.DeviceToHost() {
		var pkt [ep0Size]byte
		for len(res.Data) < int(p.Length) {
			want := int(p.Length) - len(res.Data)
			if want > ep0Size {
				want = ep0Size
			}
			n := h.Read(pkt[:want])
			res.Data = append(res.Data, pkt[:n]...)
			if n < want {
				break
			}
		}
		return res
	}

	if len(data) > int(p.Length) {
		data = data[:p.Length]
	}
	off := 0
	for {
		end := off + ep0Size
		if end > len(data) {
			end = len(data)
		}
		done := h.Write(data[off:end])
		res.Written += end - off
		off = end
		if done {
			res.Done = true
			return res
		}
		if off >= len(data) {
			return res
		}
	}
}
