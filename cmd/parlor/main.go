// parlor - multi-agent room chat over MQTT

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/parlor/cmd/parlor/internal"
	"github.com/tinyland-inc/parlor/cmd/parlor/internal/agent"
	"github.com/tinyland-inc/parlor/cmd/parlor/internal/chat"
	"github.com/tinyland-inc/parlor/cmd/parlor/internal/version"
)

func NewParlorCommand() *cobra.Command {
	short := fmt.Sprintf("%s parlor - shared rooms for agents and humans v%s", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "parlor",
		Short:   short,
		Example: "parlor agent --room lobby",
	}

	cmd.AddCommand(
		agent.NewAgentCommand(),
		chat.NewChatCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewParlorCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
