package halcore

// Request type bits of bmRequestType (USB 2.0 §9.3).
const (
	RequestDirectionIn  uint8 = 0x80
	RequestTypeMask     uint8 = 0x60
	RequestTypeStandard uint8 = 0x00
	RequestTypeClass    uint8 = 0x20
	RequestTypeVendor   uint8 = 0x40
	RecipientInterface  uint8 = 0x01
)

// HID class requests (HID 1.11 §7.2).
const (
	HIDGetReport uint8 = 0x01
	HIDGetIdle   uint8 = 0x02
	HIDSetReport uint8 = 0x09
	HIDSetIdle   uint8 = 0x0A
)

// HID report types carried in wValue high byte.
const (
	ReportTypeInput   uint8 = 0x01
	ReportTypeOutput  uint8 = 0x02
	ReportTypeFeature uint8 = 0x03
)

// SetupPacket is the 8-byte control request header.
type SetupPacket struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
}

// ParseSetup decodes a little-endian setup packet. ok is false when b is
// shorter than 8 bytes.
func ParseSetup(b []byte) (p SetupPacket, ok bool) {
	if len(b) < 8 {
		return p, false
	}
	p.RequestType = b[0]
	p.Request = b[1]
	p.Value = uint16(b[2]) | uint16(b[3])<<8
	p.Index = uint16(b[4]) | uint16(b[5])<<8
	p.Length = uint16(b[6]) | uint16(b[7])<<8
	return p, true
}

// Bytes encodes the packet back into its wire form.
func (p SetupPacket) Bytes() [8]byte {
	return [8]byte{
		p.RequestType, p.Request,
		byte(p.Value), byte(p.Value >> 8),
		byte(p.Index), byte(p.Index >> 8),
		byte(p.Length), byte(p.Length >> 8),
	}
}

func (p SetupPacket) Type() uint8   { return p.RequestType & RequestTypeMask }
func (p SetupPacket) IsClass() bool { return p.Type() == RequestTypeClass }
func (p SetupPacket) DeviceToHost() bool {
	return p.RequestType&RequestDirectionIn != 0
}

// ReportType and ReportID split wValue for GET/SET_REPORT.
func (p SetupPacket) ReportType() uint8 { return uint8(p.Value >> 8) }
func (p SetupPacket) ReportID() uint8   { return uint8(p.Value) }
