// Command chatclient connects to a chat relay, sends each line read from
// stdin and prints every line the server relays.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/cyberinferno/chatrelay/chatclient"
)

var errServerClosed = errors.New("server closed the connection")

func main() {
	fs := flag.NewFlagSet("chatclient", flag.ContinueOnError)
	addr := fs.StringP("addr", "a", "localhost:2000", "Server address host:port")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, chatclient.DefaultConfig(*addr), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run pumps in to the server and relayed lines to out until in ends, the
// server goes away or ctx is cancelled.
func run(ctx context.Context, cfg chatclient.Config, in io.Reader, out io.Writer) error {
	client := chatclient.New(cfg)
	defer client.Close()

	var outMu sync.Mutex
	client.OnLine(func(e chatclient.LineEvent) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintln(out, e.Line)
	})

	gone := make(chan struct{})
	var goneOnce sync.Once
	client.OnConnectionState(func(e chatclient.ConnectionStateEvent) {
		if e.State == chatclient.Disconnected {
			goneOnce.Do(func() { close(gone) })
		}
	})

	if err := client.Connect(); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-gone:
			return errServerClosed
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := client.Send(line); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}
