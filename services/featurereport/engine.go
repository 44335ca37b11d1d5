// Package featurereport streams the persistent store through a single HID
// feature report. The host picks the chunk size; the engine keeps the
// session cursor and moves bytes between the transport and the store.
package featurereport

import (
	"time"

	"fanmonitor-go/bus"
	"fanmonitor-go/errcode"
	"fanmonitor-go/internal/halcore"
	"fanmonitor-go/services/store"
	"fanmonitor-go/types"
	"fanmonitor-go/x/logx"
)

const component = "feature"

// Session is the cursor of one GET_REPORT or SET_REPORT transfer.
// Address+Remaining never exceeds ReportSize.
type Session struct {
	Address   uint8
	Remaining uint8
}

// Engine is driven from the foreground loop only (transport Poll).
type Engine struct {
	st   store.Store
	conn *bus.Connection

	sess     Session
	dir      types.Direction
	moved    uint8
	active   bool
	sessions uint32
}

// New returns an engine over st. conn may be nil, in which case no
// transfer status is published.
func New(st store.Store, conn *bus.Connection) *Engine {
	return &Engine{st: st, conn: conn}
}

// Session returns a copy of the current cursor.
func (e *Engine) Session() Session { return e.sess }

// Sessions counts transfers started since construction.
func (e *Engine) Sessions() uint32 { return e.sessions }

// Setup consumes a control request. Class GET_REPORT and SET_REPORT start a
// new session and ask the transport to stream the data stage through
// Read/Write. Everything else is declined with 0.
func (e *Engine) Setup(p halcore.SetupPacket) uint8 {
	if !p.IsClass() {
		return 0
	}
	switch p.Request {
	case halcore.HIDGetReport:
		e.begin(types.DirectionIn)
	case halcore.HIDSetReport:
		e.begin(types.DirectionOut)
	default:
		return 0
	}
	return halcore.NoMsg
}

func (e *Engine) begin(dir types.Direction) {
	if e.active {
		// Host abandoned the previous transfer part way.
		e.finish(nil)
	}
	e.sess = Session{Address: 0, Remaining: ReportSize}
	e.dir = dir
	e.moved = 0
	e.active = true
	e.sessions++
}

// Read fills buf with the next min(len(buf), Remaining) bytes of the store
// and returns the count. It returns 0 once the session is exhausted or the
// store fails.
func (e *Engine) Read(buf []byte) int {
	n := int(e.sess.Remaining)
	if len(buf) < n {
		n = len(buf)
	}
	if n == 0 {
		if e.sess.Remaining == 0 && e.active {
			e.finish(nil)
		}
		return 0
	}
	if err := e.st.ReadBlock(e.sess.Address, buf[:n]); err != nil {
		logx.Warn(component, "store read failed", logx.Uint("addr", uint32(e.sess.Address)), logx.Err(err))
		e.sess.Remaining = 0
		e.finish(err)
		return 0
	}
	e.advance(n)
	return n
}

// Write stores data at the cursor (clamped to Remaining) and reports
// whether the transfer is complete: the session is exhausted, the host sent
// an empty chunk, or the store failed.
func (e *Engine) Write(data []byte) bool {
	n := int(e.sess.Remaining)
	if len(data) < n {
		n = len(data)
	}
	if n == 0 {
		if e.active {
			e.finish(nil)
		}
		return true
	}
	if err := e.st.WriteBlock(e.sess.Address, data[:n]); err != nil {
		logx.Warn(component, "store write failed", logx.Uint("addr", uint32(e.sess.Address)), logx.Err(err))
		e.sess.Remaining = 0
		e.finish(err)
		return true
	}
	e.advance(n)
	return e.sess.Remaining == 0
}

func (e *Engine) advance(n int) {
	e.sess.Address += uint8(n)
	e.sess.Remaining -= uint8(n)
	e.moved += uint8(n)
	if e.sess.Remaining == 0 {
		e.finish(nil)
	}
}

func (e *Engine) finish(err error) {
	if !e.active {
		return
	}
	e.active = false
	st := types.TransferStatus{
		Direction: e.dir,
		Bytes:     e.moved,
		Complete:  err == nil && e.moved == ReportSize,
		Sessions:  e.sessions,
		TS:        time.Now().UnixMilli(),
	}
	if err != nil {
		st.Error = string(errcode.Of(err))
	}
	logx.Debug(component, "transfer done",
		logx.Str("dir", string(st.Direction)),
		logx.Uint("bytes", uint32(st.Bytes)),
		logx.Bool("complete", st.Complete))
	if e.conn != nil {
		e.conn.Publish(e.conn.NewMessage(StatusTopic, st, true))
	}
}

// StatusTopic carries the TransferStatus of the last finished transfer.
var StatusTopic = bus.T("usb", "feature", "status")
