package chat

import (
	"github.com/spf13/cobra"
)

func NewChatCommand() *cobra.Command {
	var configPath string
	var room string
	var debug bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in a room as a human",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return chatCmd(configPath, room, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path")
	cmd.Flags().StringVarP(&room, "room", "r", "", "Room to join on startup")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
