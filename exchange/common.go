package exchange

import (
	"os"

	"github.com/Lafeng/keyx/exception"
)

const (
	NULL = ""

	DEFAULT_HOST = "localhost"
	DEFAULT_PORT = 12345
	MIN_PORT     = 1024
	MAX_PORT     = 65535
)

var (
	CONF_MISS             = exception.New(exception.ConfigurationError, 2, "Missed field in config:")
	CONF_ERROR            = exception.New(exception.ConfigurationError, 2, "Error field in config:")
	UNEXPECTED_ROLE       = exception.New(exception.ConfigurationError, 2, "Unexpected role in config:")
	PEER_UNREACHABLE      = exception.New(exception.TransportError, 3, "Peer is unreachable")
	LOCAL_BIND_ERROR      = exception.New(exception.TransportError, 3, "Local bind error")
	TRANSPORT_ERROR       = exception.New(exception.TransportError, 3, "Transport error")
	PROTOCOL_FORMAT_ERROR = exception.New(exception.ProtocolFormatError, 4, "Malformed peer message")
	ILLEGAL_STATE         = exception.New(exception.Uncategorized, 1, "Illegal state")
)

func ThrowErr(e interface{}) {
	if e != nil {
		panic(e)
	}
}

func ThrowIf(condition bool, e interface{}) {
	if condition {
		panic(e)
	}
}

func IsNotExist(file string) bool {
	_, err := os.Stat(file)
	return err != nil && os.IsNotExist(err)
}
