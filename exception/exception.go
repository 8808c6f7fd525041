package exception

import (
	"fmt"
	"runtime"

	log "github.com/Lafeng/keyx/glog"
	"github.com/pkg/errors"
)

// injectable
var DEBUG bool

type Kind int

const (
	Uncategorized Kind = iota
	ConfigurationError
	TransportError
	ProtocolFormatError
	DegenerateResultError
	RangeError
	FormatError
	ArithmeticInvariantViolation
)

var kindNames = [...]string{
	"Uncategorized",
	"ConfigurationError",
	"TransportError",
	"ProtocolFormatError",
	"DegenerateResultError",
	"RangeError",
	"FormatError",
	"ArithmeticInvariantViolation",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Exception struct {
	msg    string
	code   int
	kind   Kind
	origin *Exception
}

func (e *Exception) Error() string {
	return e.msg
}

// exit status of the process failing with this exception
func (e *Exception) Code() int {
	return e.code
}

func (e *Exception) Kind() Kind {
	return e.kind
}

// Is reports whether target is e or the exception e was applied from,
// so errors.Is(err, PROTOCOL_ERR) holds for PROTOCOL_ERR.Apply(...).
func (e *Exception) Is(target error) bool {
	t, ok := target.(*Exception)
	if !ok {
		return false
	}
	return e == t || e.root() == t.root()
}

func (e *Exception) root() *Exception {
	if e.origin != nil {
		return e.origin
	}
	return e
}

func (e *Exception) Apply(appendage interface{}) *Exception {
	newE := new(Exception)
	newE.code = e.code
	newE.kind = e.kind
	newE.origin = e.root()
	newE.msg = fmt.Sprintf("%s %v", e.msg, appendage)
	return newE
}

func New(kind Kind, code int, msg string) *Exception {
	return &Exception{msg: msg, code: code, kind: kind}
}

// KindOf finds the Exception in err's cause chain.
func KindOf(err error) Kind {
	if ex, y := errors.Cause(err).(*Exception); y {
		return ex.Kind()
	}
	return Uncategorized
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ex, y := errors.Cause(err).(*Exception); y && ex.Code() > 0 {
		return ex.Code()
	}
	return 1
}

func Detail(err error) string {
	if err != nil && (log.V(log.LV_ERR_DETAIL) == true || DEBUG) {
		return fmt.Sprintf("(Error:%T::%s)", err, err)
	}
	return ""
}

// converts a recovered value into error.
// invariant violations are re-raised: they mark a defect and must abort.
func ErrorOf(re interface{}) (error, bool) {
	if re == nil {
		return nil, false
	}
	var ex error
	switch rex := re.(type) {
	case *Exception:
		if rex.kind == ArithmeticInvariantViolation {
			panic(rex)
		}
		ex = rex
	case error:
		ex = rex
	default:
		ex = fmt.Errorf("%v", re)
	}
	if DEBUG || bool(log.V(log.LV_ERR_STACK)) {
		buf := make([]byte, 1600)
		n := runtime.Stack(buf, false)
		log.Errorln(ex.Error() + "\n" + string(buf[:n]))
	}
	return ex, true
}

// if ( [re] != nil OR [err] !=nil ) then return true
// and set [err] to [re] if [re] != nil
func Catch(re interface{}, err *error) bool {
	ex, _ := ErrorOf(re)
	if ex != nil {
		if err != nil {
			*err = ex
		}
		return true
	}
	return err != nil && *err != nil
}

func Spawn(ePtr *error, format string, args ...interface{}) error {
	var err error
	if err = *ePtr; err == nil {
		return nil
	}
	var e Exception
	e.msg = fmt.Sprintf(format, args...) + ": " + err.Error()
	if src, y := errors.Cause(err).(*Exception); y {
		e.code, e.kind, e.origin = src.code, src.kind, src.root()
	}
	*ePtr = &e
	return &e
}
