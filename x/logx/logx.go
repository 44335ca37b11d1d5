// Package logx is a small leveled logger for firmware. Lines look like
//
//	Info: [sampler] conversion raw=292
//
// and are assembled into a stack buffer with x/conv, so no fmt is linked.
package logx

import (
	"io"
	"sync"

	"fanmonitor-go/x/conv"
)

type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l Level) prefix() string {
	switch l {
	case LevelDebug:
		return "Debug: "
	case LevelInfo:
		return "Info: "
	case LevelWarn:
		return "Warn: "
	default:
		return "Error: "
	}
}

// ParseLevel accepts "debug", "info", "warn", "error" or "off".
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "off":
		return LevelOff, true
	}
	return LevelInfo, false
}

type fieldKind uint8

const (
	kindInt fieldKind = iota
	kindUint
	kindHex
	kindStr
	kindBool
)

// Field is a key/value pair appended after the message.
type Field struct {
	key  string
	kind fieldKind
	i    int64
	u    uint64
	s    string
}

func Int(key string, v int) Field     { return Field{key: key, kind: kindInt, i: int64(v)} }
func Int32(key string, v int32) Field { return Field{key: key, kind: kindInt, i: int64(v)} }
func Uint(key string, v uint32) Field { return Field{key: key, kind: kindUint, u: uint64(v)} }
func Hex(key string, v uint32) Field  { return Field{key: key, kind: kindHex, u: uint64(v)} }
func Str(key string, v string) Field  { return Field{key: key, kind: kindStr, s: v} }
func Bool(key string, v bool) Field   { return Field{key: key, kind: kindBool, u: b2u(v)} }

func Err(err error) Field {
	if err == nil {
		return Field{key: "err", kind: kindStr, s: "<nil>"}
	}
	return Field{key: "err", kind: kindStr, s: err.Error()}
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// printWriter forwards to the runtime's print, which TinyGo routes to the
// default serial console.
type printWriter struct{}

func (printWriter) Write(p []byte) (int, error) {
	print(string(p))
	return len(p), nil
}

var (
	mu    sync.Mutex
	out   io.Writer = printWriter{}
	level           = LevelInfo
	line  []byte
)

// SetWriter replaces the sink. A nil writer restores the default.
func SetWriter(w io.Writer) {
	mu.Lock()
	if w == nil {
		w = printWriter{}
	}
	out = w
	mu.Unlock()
}

func SetLevel(l Level) {
	mu.Lock()
	level = l
	mu.Unlock()
}

func Enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l >= level && level != LevelOff
}

func Debug(component, msg string, fields ...Field) { emit(LevelDebug, component, msg, fields) }
func Info(component, msg string, fields ...Field)  { emit(LevelInfo, component, msg, fields) }
func Warn(component, msg string, fields ...Field)  { emit(LevelWarn, component, msg, fields) }
func Error(component, msg string, fields ...Field) { emit(LevelError, component, msg, fields) }

func emit(l Level, component, msg string, fields []Field) {
	mu.Lock()
	defer mu.Unlock()
	if level == LevelOff || l < level {
		return
	}
	var num [24]byte
	b := line[:0]
	b = append(b, l.prefix()...)
	if component != "" {
		b = append(b, '[')
		b = append(b, component...)
		b = append(b, "] "...)
	}
	b = append(b, msg...)
	for _, f := range fields {
		b = append(b, ' ')
		b = append(b, f.key...)
		b = append(b, '=')
		switch f.kind {
		case kindInt:
			b = append(b, conv.Itoa(num[:], f.i)...)
		case kindUint:
			b = append(b, conv.Utoa(num[:], f.u)...)
		case kindHex:
			b = append(b, "0x"...)
			b = append(b, conv.Hex(num[:], uint32(f.u), hexDigits(f.u))...)
		case kindStr:
			b = append(b, f.s...)
		case kindBool:
			if f.u != 0 {
				b = append(b, "true"...)
			} else {
				b = append(b, "false"...)
			}
		}
	}
	b = append(b, '\n')
	line = b
	_, _ = out.Write(b)
}

func hexDigits(v uint64) int {
	switch {
	case v <= 0xFF:
		return 2
	case v <= 0xFFFF:
		return 4
	default:
		return 8
	}
}
