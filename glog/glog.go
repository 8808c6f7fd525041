// Package glog keeps the call shape of the in-tree glog fork on top of
// the upstream github.com/golang/glog.
package glog

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/golang/glog"
)

type Verbose = glog.Verbose

func V(level int) Verbose {
	return glog.V(glog.Level(level))
}

// SetLogOutput sends logs into dir, or to stderr when dir is empty.
func SetLogOutput(dir string) {
	if dir == "" {
		flag.Set("logtostderr", "true")
	} else {
		flag.Set("logtostderr", "false")
		flag.Set("log_dir", dir)
	}
}

func SetLogVerbose(v int) {
	if v < 0 {
		v = 0
	}
	flag.Set("v", strconv.Itoa(v))
}

func Infoln(args ...interface{}) { glog.InfoDepth(1, fmt.Sprintln(args...)) }
func Infof(format string, args ...interface{}) { glog.InfoDepthf(1, format, args...) }
func Warningln(args ...interface{}) { glog.WarningDepth(1, fmt.Sprintln(args...)) }
func Errorln(args ...interface{}) { glog.ErrorDepth(1, fmt.Sprintln(args...)) }
func Exitln(args ...interface{}) { glog.Infoln(args...); glog.Flush() }
func Flush() { glog.Flush() }
