// Wstest runs the WebSocket client against the fuzzing server of the
// [Autobahn Testsuite].
//
// [Autobahn Testsuite]: https://github.com/crossbario/autobahn-testsuite
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/tzrikka/timpani/internal/logger"
	"github.com/tzrikka/timpani/pkg/websocket"
)

const (
	baseURL = "ws://127.0.0.1:9001"
	agent   = "timpani"
)

func main() {
	n := getCaseCount()
	slog.Info("case count", slog.Int("n", n))

	// Not implemented (so excluded in "config/fuzzingserver.json"):
	//   - 6.4.*: fail-fast on invalid UTF-8 frames,
	//   - 12.* and 13.*: permessage-deflate compression.
	for i := 1; i <= n; i++ {
		runCase(i)
	}

	updateReports()
}

func dial(url string) (*websocket.Conn, error) {
	return websocket.NewBuilder(url).Connect(context.Background())
}

// getCaseCount retrieves the number of enabled test cases from the
// Autobahn fuzzing server, using a WebSocket request.
func getCaseCount() int {
	conn, err := dial(baseURL + "/getCaseCount")
	if err != nil {
		logger.FatalError("dial error", err)
	}

	msg, err := conn.RecvMessage()
	if errors.Is(err, websocket.NoDataAvailable) {
		slog.Debug("connection closed")
		return 0
	}
	if err != nil {
		logger.FatalError("receive error", err)
	}

	n, err := strconv.Atoi(string(msg.Data))
	if err != nil {
		logger.FatalError("invalid test case count", err)
	}

	return n
}

// updateReports instructs the Autobahn fuzzing server to generate/update
// all the HTML and JSON files for all the test-case results.
func updateReports() {
	slog.Info("updating reports")

	url := fmt.Sprintf("%s/updateReports?agent=%s", baseURL, agent)
	if _, err := dial(url); err != nil {
		logger.FatalError("dial error", err)
	}
}

func runCase(i int) {
	l := slog.With(slog.Int("case", i))
	l.Info("starting test")

	conn, err := dial(fmt.Sprintf("%s/runCase?case=%d&agent=%s", baseURL, i, agent))
	if err != nil {
		logger.FatalError("dial error", err)
	}

	// Echo loop: every text/binary message received is sent back unchanged,
	// until the peer closes the connection or a Close message arrives.
	for {
		msg, err := conn.RecvMessage()
		if errors.Is(err, websocket.NoDataAvailable) {
			l.Debug("connection closed")
			break
		}
		if err != nil {
			l.Error("receive error", slog.Any("error", err))
			break
		}

		switch msg.Opcode {
		case websocket.OpcodeText, websocket.OpcodeBinary:
			l.Info("received message", slog.String("opcode", msg.Opcode.String()), slog.Int("length", len(msg.Data)))
			if err := conn.SendMessage(msg); err != nil {
				l.Error("echo error", slog.Any("error", err))
				_ = conn.Close(websocket.StatusProtocolError)
				return
			}
		case websocket.OpcodeClose:
			l.Debug("received close", slog.Any("status", msg.Close))
			_ = conn.AutoEcho(msg)
			return
		default:
			l.Error("unexpected opcode in data message")
			os.Exit(1)
		}
	}
}
