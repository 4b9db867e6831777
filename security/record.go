package security

// MaxRecordSize is the largest framed record the engine emits or accepts,
// header included. Transfer buffers of this size always fit one record.
const MaxRecordSize = recordHeaderLen + maxCiphertext

const (
	maxPlaintext    = 16384        // maximum plaintext payload length
	maxCiphertext   = 16384 + 2048 // maximum ciphertext payload length
	recordHeaderLen = 3            // record header length
	maxHandshake    = 4096         // maximum handshake message we support
)

type recordType uint8

const (
	recordTypeAlert           recordType = 21
	recordTypeHandshake       recordType = 22
	recordTypeApplicationData recordType = 23
)

func validRecordType(typ recordType) bool {
	switch typ {
	case recordTypeAlert, recordTypeHandshake, recordTypeApplicationData:
		return true
	default:
		return false
	}
}
