package chat

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/parlor/cmd/parlor/internal"
	"github.com/tinyland-inc/parlor/pkg/broker"
	"github.com/tinyland-inc/parlor/pkg/bus"
)

func chatCmd(configPath, room string, debug bool) error {
	log := internal.NewLogger(debug)

	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	username := cfg.Broker.Username
	if username == "" {
		username = "human"
	}
	humanID := "human-" + username

	client := broker.New(internal.BrokerOptions(cfg, humanID, log))

	// Print everything other participants say; our own sends are echoed
	// by the prompt line itself.
	unsubChat := client.Events().Chat.Subscribe(func(ev bus.ChatEvent) {
		if ev.FromAgentID == humanID {
			return
		}
		name := ev.FromUsername
		if name == "" {
			name = ev.FromAgentID
		}
		fmt.Printf("\r[%s] %s\n", name, ev.Text)
	})
	defer unsubChat()

	unsubHistory := client.Events().RoomHistory.Subscribe(func(ev bus.RoomHistoryEvent) {
		fmt.Printf("\r--- history (%d messages) ---\n", len(ev.Messages))
		for _, m := range ev.Messages {
			name := m.Sender
			if name == "" {
				name = m.AgentID
			}
			fmt.Printf("[%s] %s\n", name, m.Content)
		}
	})
	defer unsubHistory()

	unsubLifecycle := client.Events().Lifecycle.Subscribe(func(ev bus.LifecycleEvent) {
		switch ev.Kind {
		case bus.LifecycleReconnecting, bus.LifecycleError:
			fmt.Printf("\r%s connection: %s\n", internal.Logo, ev.Kind)
		}
	})
	defer unsubLifecycle()

	if err := client.Connect(); err != nil {
		return err
	}
	defer client.Close()

	if room != "" {
		if err := client.JoinRoom(room); err != nil {
			return err
		}
		fmt.Printf("%s joined %s\n", internal.Logo, room)
	}

	fmt.Printf("%s chatting as %s (/join <room>, /leave, /rooms, /history [n], /quit)\n", internal.Logo, username)
	return repl(client, username)
}

func repl(client *broker.Client, username string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s> ", username),
		HistoryFile:     filepath.Join(os.TempDir(), ".parlor_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("error initializing readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := command(client, input); quit {
				fmt.Println("Goodbye!")
				return nil
			}
			continue
		}

		roomID := client.CurrentRoom()
		if roomID == "" {
			fmt.Println("Not in a room. Use /join <room> first.")
			continue
		}
		if err := client.SendRoomMessage(roomID, input); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// command handles a /slash command and reports whether to quit.
func command(client *broker.Client, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/join":
		if len(fields) < 2 {
			fmt.Println("Usage: /join <room>")
			return false
		}
		if err := client.JoinRoom(fields[1]); err != nil {
			fmt.Printf("Error: %v\n", err)
		} else {
			fmt.Printf("Joined %s\n", fields[1])
		}
	case "/leave":
		if err := client.LeaveRoom(); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	case "/rooms":
		for _, r := range client.Rooms().List() {
			name := r.Topic
			if name == "" {
				name = r.ID
			}
			fmt.Printf("  %s (%d messages)\n", name, len(r.Messages))
		}
	case "/history":
		roomID := client.CurrentRoom()
		if roomID == "" {
			fmt.Println("Not in a room.")
			return false
		}
		limit := 20
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil {
				limit = n
			}
		}
		if _, err := client.RequestRoomHistory(roomID, limit, 0); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	default:
		fmt.Printf("Unknown command %s\n", fields[0])
	}
	return false
}
