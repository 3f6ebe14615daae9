package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"

	"mingle-chat/client"
	"mingle-chat/domain"
	"mingle-chat/internal"
	"mingle-chat/transport/ws"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const historyPageSize = 20

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:8080/ws"`
	Token     string `env:"CHAT_TOKEN,required=true"`
	RoomID    string `env:"CHAT_ROOM_ID,required=true"`
	LogLevel  string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the chat client to the terminal: typed lines are sent to
// the room, incoming frames are rendered until Ctrl+C.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := internal.NewLogger(config.LogLevel)
	roomID := domain.RoomID(config.RoomID)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect; the client keeps the room joined across reconnects.
	c := client.New(config.ServerURL, config.Token, log)
	runDone := make(chan error, 1)
	go func() {
		runDone <- c.Run(ctx)
	}()
	c.JoinRoom(roomID)
	c.RequestHistory(roomID, historyPageSize, nil)

	color.Cyanln(">>> Joining", config.RoomID, "(Ctrl+C to quit)...")

	// 4. Forward typed lines as messages.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			c.SendMessage(roomID, line)
		}
	}()

	// 5. Render incoming frames until shutdown.
	for {
		select {
		case <-ctx.Done():
			color.Cyanln("Leaving...")
			return exitOK, nil
		case err := <-runDone:
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, err
		case frame, ok := <-c.Events():
			if !ok {
				return exitOK, nil
			}
			render(frame)
		}
	}
}

func render(frame ws.ServerFrame) {
	switch frame.Type {
	case ws.TypeJoinedRoom:
		color.Greenln("--- joined", frame.RoomID)

	case ws.TypeNewMessage:
		if frame.Message != nil {
			printMessage(*frame.Message)
		}

	case ws.TypeHistory:
		// Pages arrive newest first; print oldest first so the
		// transcript reads top to bottom.
		for i := len(frame.Messages) - 1; i >= 0; i-- {
			printMessage(frame.Messages[i])
		}

	case ws.TypeChatUpdated:
		if frame.LastMessage != nil {
			color.Grayln(fmt.Sprintf("~ %s: %s (in %s)",
				frame.LastMessage.SenderID, frame.LastMessage.Content, frame.RoomID))
		}

	case ws.TypeError:
		color.Redln(fmt.Sprintf("! %s: %s", frame.Code, frame.Reason))
	}
}

func printMessage(msg ws.MessagePayload) {
	fmt.Printf("[%s] %s: %s\n",
		msg.CreatedAt.Local().Format(time.TimeOnly),
		color.Yellow.Sprint(msg.SenderID),
		msg.Content,
	)
}
