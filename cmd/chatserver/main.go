// Command chatserver relays every line a client sends to all connected
// clients. The listening port is given with --port or as the first argument.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/cyberinferno/chatrelay/chatserver"
	"github.com/cyberinferno/chatrelay/logger"
)

type options struct {
	server   chatserver.Config
	logLevel string
	logDir   string
	quiet    bool
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// parseArgs reads flags; a positional port argument takes precedence over --port.
func parseArgs(args []string, output io.Writer) (options, error) {
	opts := options{server: chatserver.DefaultConfig()}

	fs := flag.NewFlagSet("chatserver", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVarP(&opts.server.Port, "port", "p", chatserver.DefaultPort, "TCP port to listen on")
	fs.StringVar(&opts.server.Host, "host", "", "Interface to bind (default all)")
	fs.DurationVar(&opts.server.WriteTimeout, "write-timeout", 0, "Per-client write timeout (0 disables)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&opts.logDir, "log-dir", "", "Also write logs to daily files in this directory")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print event lines to stdout")
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: chatserver [flags] [port]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if fs.NArg() > 1 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}

	if fs.NArg() == 1 {
		port, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			return opts, fmt.Errorf("invalid port %q: %w", fs.Arg(0), err)
		}
		opts.server.Port = port
	}

	if _, err := logger.ParseLevel(opts.logLevel); err != nil {
		return opts, err
	}

	return opts, opts.server.Validate()
}

func newLogger(opts options) (logger.Logger, error) {
	level, err := logger.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, err
	}

	if opts.logDir != "" {
		return logger.NewZerologFileLogger(opts.server.Name, opts.logDir, level)
	}

	return logger.NewZerologLogger(os.Stderr, opts.server.Name, level), nil
}

func newSink(opts options, l logger.Logger) logger.Sink {
	sinks := logger.MultiSink{}
	if !opts.quiet {
		sinks = append(sinks, logger.NewWriterSink(os.Stdout))
	}

	if opts.logDir != "" {
		sinks = append(sinks, logger.NewLoggerSink(l))
	}

	return sinks
}

func run(ctx context.Context, opts options) error {
	l, err := newLogger(opts)
	if err != nil {
		return err
	}
	defer l.Close()

	sink := newSink(opts, l)
	srv := chatserver.NewServer(opts.server, l, sink)
	if err := srv.Run(ctx); err != nil {
		sink.LogLine("Error: could not setup server.")
		return err
	}

	return nil
}
