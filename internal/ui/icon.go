package ui

// iconBytes is a 16x16 PNG: a blue film frame with a play mark.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x31, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0x18, 0x05, 0x28,
	0x40, 0x23, 0xea, 0xc4, 0x7f, 0x18, 0x06, 0x01, 0x64, 0x3e, 0x32, 0x26,
	0xda, 0x00, 0x5c, 0x86, 0x90, 0x64, 0x00, 0x36, 0x43, 0x48, 0x36, 0x00,
	0xdd, 0x10, 0xfa, 0x1b, 0x30, 0x70, 0x81, 0x48, 0x72, 0x34, 0x8e, 0x50,
	0x00, 0x00, 0x67, 0xb6, 0xd8, 0xcd, 0xba, 0xa2, 0x5f, 0x51, 0x00, 0x00,
	0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
