package glog

const (
	// generic error message
	LV_ERR_DETAIL = 1
	// error stack or DEBUG
	LV_ERR_STACK = 3

	LV_SESSION   = 1 // exchange: role, peer, outcome
	LV_CONFIG    = 2 // config file resolution
	LV_HANDSHAKE = 2 // exchange: each state transition
	LV_TIMING    = 3 // key generation and agreement timing
	LV_KEY_FP    = 3 // session key fingerprint
	LV_WIRE      = 4 // raw byte counts on the transport
	LV_ARITH     = 5 // curve parameter validation
)
