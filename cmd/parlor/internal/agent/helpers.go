package agent

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tinyland-inc/parlor/cmd/parlor/internal"
	"github.com/tinyland-inc/parlor/pkg/agent"
	"github.com/tinyland-inc/parlor/pkg/broker"
	"github.com/tinyland-inc/parlor/pkg/providers"
)

func agentCmd(configPath, room string, debug bool) error {
	log := internal.NewLogger(debug)

	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Agent.ID == "" {
		return fmt.Errorf("no agent identity configured, set agent.id or PARLOR_AGENT_ID")
	}

	provider, modelID, err := providers.CreateProvider(cfg)
	if err != nil {
		return fmt.Errorf("error creating provider: %w", err)
	}
	cfg.Agent.Model = modelID

	opts := internal.BrokerOptions(cfg, cfg.Agent.ID, log)
	if cfg.Agent.Name != "" {
		opts.Username = cfg.Agent.Name
	}
	client := broker.New(opts)

	coord := agent.NewCoordinator(agent.Config{
		AgentID:             cfg.Agent.ID,
		DisplayName:         cfg.Agent.Name,
		SystemPrompt:        cfg.Agent.SystemPrompt,
		Model:               cfg.Agent.Model,
		AutoRespond:         cfg.Agent.AutoRespond,
		ResponseProbability: cfg.Agent.ResponseProbability,
		MaxContextTokens:    cfg.Agent.MaxContextTokens,
		ShowThinking:        cfg.Agent.ShowThinking,
	}, provider, client, client.Rooms(), log)

	detach := coord.Attach(client.Events())
	defer detach()

	if err := client.Connect(); err != nil {
		return err
	}
	defer client.Close()

	if room != "" {
		if err := client.JoinRoom(room); err != nil {
			return err
		}
	}

	log.Info("agent running",
		"agent_id", cfg.Agent.ID,
		"model", cfg.Agent.Model,
		"room", room)
	fmt.Printf("%s agent %s online (Ctrl+C to exit)\n", internal.Logo, cfg.Agent.ID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	coord.Abort()
	return nil
}
