package main

import (
	"fmt"
	"runtime"
)

const (
	app_name           = "keyx"
	project_url        = "https://github.com/Lafeng/keyx"
	ver_major   uint8  = 0
	ver_minor   uint8  = 3
	ver_build   uint16 = 118
)

var build_flag string // -ldflags "-X main.build_flag=-beta"

func versionString() string {
	return fmt.Sprintf("%s version: v%d.%d.%04d%s", app_name, ver_major, ver_minor, ver_build, build_flag)
}

func buildString() string {
	return fmt.Sprintf("Built with %s %s for %s/%s", runtime.Compiler, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
