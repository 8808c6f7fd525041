package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/Lafeng/keyx/artifact"
	ex "github.com/Lafeng/keyx/exception"
	. "github.com/Lafeng/keyx/exchange"
	log "github.com/Lafeng/keyx/glog"
	"github.com/urfave/cli/v2"
)

var (
	context = &bootContext{}
	sigChan = make(chan os.Signal, 1)
)

type bootContext struct {
	configFile string
	logdir     string
	debug      bool
	vSpecified bool
	vFlag      int
	cc         *ConfigContext
	closeable  []io.Closer
}

// global before handler
func (ctx *bootContext) initialize(c *cli.Context) (err error) {
	// inject parameters into package.exception
	ex.DEBUG = ctx.debug
	// glog
	ctx.vSpecified = c.IsSet("v")
	log.SetLogOutput(ctx.logdir)
	log.SetLogVerbose(ctx.vFlag)
	return nil
}

func (ctx *bootContext) initConfig(c *cli.Context, r Role) (conf *Config) {
	var err error
	// load config file
	ctx.cc, err = LoadConfig(ctx.configFile)
	fatalError(err)
	if r == ROLE_AUTO && ctx.cc.FilePath() == NULL {
		// defaults describe a Responder
		r = ROLE_RESPONDER
	}
	// parse config file
	_, err = ctx.cc.Initialize(r)
	fatalError(err)
	conf = ctx.cc.Config()
	overrideConfig(c, conf)
	fatalError(conf.Validate())
	if !ctx.vSpecified { // no -v
		// set logV with config.Verbose
		log.SetLogVerbose(conf.Verbose)
	}
	return conf
}

// command line flags win over the file
func overrideConfig(c *cli.Context, conf *Config) {
	if c.IsSet("host") {
		conf.Host = c.String("host")
	}
	if c.IsSet("port") {
		conf.Port = c.Int("port")
	}
	if c.IsSet("curve") {
		conf.Variant, conf.Curve = "ECDH", c.String("curve")
	}
	if c.IsSet("group") {
		conf.Variant, conf.Group = "DH", c.Int("group")
	}
	if c.IsSet("ec") {
		if c.Bool("ec") {
			conf.Variant = "ECDH"
		} else {
			conf.Variant = "DH"
		}
	}
	if c.IsSet("timeout") {
		conf.Timeout = c.String("timeout")
	}
	if c.IsSet("out") {
		conf.OutputDir = c.String("out")
	}
	if c.IsSet("transport") {
		conf.Transport = c.String("transport")
	}
	if c.IsSet("validate-peer") {
		conf.ValidatePeer = c.Bool("validate-peer")
	}
}

// ./keyx init [-o FILE] [--initiator]
func (ctx *bootContext) initCommandHandler(c *cli.Context) error {
	var role = ROLE_RESPONDER
	if c.Bool("initiator") {
		role = ROLE_INITIATOR
	}
	output := getOutputArg(c)
	err := CreateConfigTemplate(output, role)
	fatalError(err)
	if output != NULL {
		fmt.Fprintln(os.Stderr, "Created", role, "config", output)
	}
	return nil
}

func (ctx *bootContext) infoCommandHandler(c *cli.Context) error {
	// need config
	ctx.initConfig(c, ROLE_AUTO)
	fmt.Fprint(os.Stderr, ctx.cc.Info())
	return nil
}

// ./keyx serve [--port PORT]
func (ctx *bootContext) serveCommandHandler(c *cli.Context) error {
	if c.Args().Len() > 0 {
		fatalAndCommandHelp(c)
	}
	conf := ctx.initConfig(c, ROLE_RESPONDER)
	log.Infoln(versionString())

	sink := artifact.NewWriter(conf.OutputDir, ROLE_RESPONDER.FileStem())
	// a failed bind must not leave the session key of an earlier run
	fatalError(sink.Begin())
	ln, err := Listen(conf)
	fatalError(err)
	ctx.register(ln)

	ctx.runExchange(sink, func() (*Result, error) {
		return Serve(conf, ln, sink)
	})
	return nil
}

// ./keyx connect [--host HOST] [--port PORT]
func (ctx *bootContext) connectCommandHandler(c *cli.Context) error {
	if c.Args().Len() > 0 {
		fatalAndCommandHelp(c)
	}
	conf := ctx.initConfig(c, ROLE_INITIATOR)
	log.Infoln(versionString())

	sink := artifact.NewWriter(conf.OutputDir, ROLE_INITIATOR.FileStem())
	ctx.runExchange(sink, func() (*Result, error) {
		return Connect(conf, sink)
	})
	return nil
}

// runs the single exchange, a signal aborts it
func (ctx *bootContext) runExchange(sink *artifact.Writer, run func() (*Result, error)) {
	var done = make(chan error, 1)
	go func() {
		defer abortOnPanic()
		res, err := run()
		if err == nil {
			log.Infof("%s done with %s, session key in %s\n",
				res.Role, res.Method, sink.Path(artifact.EXT_SHARED))
		}
		done <- err
	}()

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	select {
	case err := <-done:
		fatalError(err)
		ctx.doClose()
		log.Flush()
	case sig := <-sigChan:
		log.Exitln("Terminated by", sig)
		ctx.doClose()
		os.Exit(1)
	}
}

// invariant violations escape the session and abort with their own code
func abortOnPanic() {
	if re := recover(); re != nil {
		fmt.Fprintf(os.Stderr, "panic: %v\n%s", re, debug.Stack())
		var code = 1
		if err, y := re.(error); y {
			code = ex.ExitCode(err)
		}
		context.doClose()
		log.Flush()
		os.Exit(code)
	}
}

func (ctx *bootContext) register(cz io.Closer) {
	ctx.closeable = append(ctx.closeable, cz)
}

func (ctx *bootContext) doClose() {
	for _, t := range ctx.closeable {
		SafeClose(t)
	}
	ctx.closeable = nil
}

func getOutputArg(c *cli.Context) string {
	output := c.String("output")
	if output != NULL && !strings.Contains(output, ".") {
		output += ".ini"
	}
	return output
}

// exits with the code of the failure kind
func fatalError(err error, args ...interface{}) {
	if err != nil {
		msg := err.Error()
		if len(args) > 0 {
			msg += fmt.Sprint(args...)
		}
		fmt.Fprintln(os.Stderr, msg)
		if kind := ex.KindOf(err); kind != ex.Uncategorized {
			log.Errorln(kind, msg, ex.Detail(err))
		}
		context.doClose()
		log.Flush()
		os.Exit(ex.ExitCode(err))
	}
}

func fatalAndCommandHelp(c *cli.Context) {
	cli.ShowCommandHelp(c, c.Command.Name)
	context.doClose()
	os.Exit(1)
}
