// Wsdump is a minimal command-line WebSocket client: it connects to a
// server, prints every message it receives, and sends every line read
// from standard input as a text message.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/xdg"

	"github.com/tzrikka/timpani/internal/logger"
	"github.com/tzrikka/timpani/pkg/websocket"
)

const (
	configDirName  = "wsdump"
	configFileName = "config.toml"
)

func main() {
	bi, _ := debug.ReadBuildInfo()

	cmd := &cli.Command{
		Name:      "wsdump",
		Usage:     "connect to a WebSocket server and exchange text messages with it",
		Version:   bi.Main.Version,
		Flags:     flags(),
		Arguments: []cli.Argument{&cli.StringArg{Name: "url"}},
		Action:    run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func flags() []cli.Flag {
	path := configFile()
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "protocol",
			Usage: "Sec-WebSocket-Protocol to request",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WSDUMP_PROTOCOL"),
				toml.TOML("wsdump.protocol", path),
			),
		},
		&cli.StringFlag{
			Name:  "origin",
			Usage: "Origin header to send",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WSDUMP_ORIGIN"),
				toml.TOML("wsdump.origin", path),
			),
		},
	}
}

// configFile returns the path to the app's configuration file, creating
// an empty one if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, configDirName, configFileName)
	if err != nil {
		logger.FatalError("failed to create config file", err)
	}
	return altsrc.StringSourcer(path)
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx = logger.InContext(ctx, slog.Default())
	l := logger.FromContext(ctx)

	url := cmd.StringArg("url")
	if url == "" {
		logger.Fatal(ctx, "missing required URL argument")
	}

	b := websocket.NewBuilder(url)
	if p := cmd.String("protocol"); p != "" {
		b = b.AddProtocol(p)
	}
	if o := cmd.String("origin"); o != "" {
		b = b.Origin(o)
	}

	conn, err := b.Connect(ctx)
	if err != nil {
		logger.FatalErrorContext(ctx, "connect failed", err, slog.String("url", url))
	}
	l.Info("connected", slog.String("url", url))

	reader, writer, err := conn.Split()
	if err != nil {
		// The underlying stream doesn't support half-closing; the send and
		// receive loops share the unsplit Conn instead, which is safe
		// because SendMessage and RecvMessage already serialize independently.
		return runUnsplit(conn)
	}

	done := make(chan struct{})
	go recvLoop(reader, done)
	sendLoop(writer)
	<-done
	return nil
}

func runUnsplit(conn *websocket.Conn) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msg, err := conn.RecvMessage()
			if err != nil {
				return
			}
			fmt.Println(msg.Text())
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := conn.SendMessage(websocket.Message{Opcode: websocket.OpcodeText, Data: scanner.Bytes()}); err != nil {
			return err
		}
	}
	return conn.Close(websocket.StatusNormalClosure)
}

func recvLoop(r *websocket.Reader, done chan<- struct{}) {
	defer close(done)
	for {
		msg, err := r.RecvMessage()
		if err != nil {
			return
		}
		fmt.Println(msg.Text())
	}
}

func sendLoop(w *websocket.Writer) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := w.SendMessage(websocket.Message{Opcode: websocket.OpcodeText, Data: scanner.Bytes()}); err != nil {
			return
		}
	}
}
