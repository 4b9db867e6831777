package security

import (
	"strconv"
)

type Alert uint8

func (e Alert) String() string {
	s, ok := alertText[e]
	if ok {
		return "security: " + s
	}
	return "security: Alert(" + strconv.Itoa(int(e)) + ")"
}

func (e Alert) Error() string {
	return e.String()
}

const (
	alertLevelWarning uint8 = 1
	alertLevelError   uint8 = 2
)

const (
	alertCloseNotify       Alert = 0
	alertUnexpectedMessage Alert = 10
	alertBadRecordMAC      Alert = 20
	alertRecordOverflow    Alert = 22
	alertHandshakeFailure  Alert = 40
	alertIllegalParameter  Alert = 47
	alertDecodeError       Alert = 50
	alertDecryptError      Alert = 51
	alertProtocolVersion   Alert = 70
	alertInternalError     Alert = 80
)

var alertText = map[Alert]string{
	alertCloseNotify:       "close notify",
	alertUnexpectedMessage: "unexpected message",
	alertBadRecordMAC:      "bad record MAC",
	alertRecordOverflow:    "record overflow",
	alertHandshakeFailure:  "handshake failure",
	alertIllegalParameter:  "illegal parameter",
	alertDecodeError:       "error decoding message",
	alertDecryptError:      "error decrypting message",
	alertProtocolVersion:   "protocol version not supported",
	alertInternalError:     "internal error",
}
