package featurereport

import "fanmonitor-go/services/store"

// ReportSize is the feature report length; it covers the whole store.
const ReportSize = store.Size

// ReportDescriptor declares one vendor-defined feature report of 128
// opaque bytes, without a report ID.
var ReportDescriptor = []byte{
	// USAGE_PAGE (Vendor Defined 0xFF00)
	0x06, 0x00, 0xFF,
	// USAGE (Vendor Usage 1)
	0x09, 0x01,
	// COLLECTION (Application)
	0xA1, 0x01,
	// LOGICAL_MINIMUM (0)
	0x15, 0x00,
	// LOGICAL_MAXIMUM (255)
	0x26, 0xFF, 0x00,
	// REPORT_SIZE (8)
	0x75, 0x08,
	// REPORT_COUNT (128)
	0x95, ReportSize,
	// USAGE (Undefined)
	0x09, 0x00,
	// FEATURE (Data,Var,Abs,Buf)
	0xB2, 0x02, 0x01,
	// END_COLLECTION
	0xC0,
}
