package encoding

// Method identifies the transport function a chunk is dispatched to.
type Method uint8

const (
	// MethodBuffer dispatches raw bytes with no conversion.
	MethodBuffer Method = iota
	MethodUTF8
	MethodLatin1
	MethodASCII
	MethodUCS2
	// MethodConvert converts the string via its named encoding, then
	// dispatches the bytes through MethodBuffer.
	MethodConvert
	// MethodUnknown means the encoding cannot be resolved; the write fails.
	MethodUnknown
)

var methodNames = [...]string{
	MethodBuffer:  "writeBuffer",
	MethodUTF8:    "writeUtf8String",
	MethodLatin1:  "writeLatin1String",
	MethodASCII:   "writeAsciiString",
	MethodUCS2:    "writeUcs2String",
	MethodConvert: "convert",
	MethodUnknown: "unknown",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return "unknown"
}

// Select maps an encoding to its dispatch method. It is a pure function of
// the name: aliases select the same method as their canonical encoding.
func Select(enc Encoding) Method {
	switch enc.Normalize() {
	case Buffer:
		return MethodBuffer
	case "", UTF8:
		return MethodUTF8
	case Latin1:
		return MethodLatin1
	case ASCII:
		return MethodASCII
	case UCS2:
		return MethodUCS2
	case Hex, Base64, Base64URL:
		return MethodConvert
	default:
		return MethodUnknown
	}
}
