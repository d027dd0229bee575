// Package rootcmd assembles the registry-core command tree.
package rootcmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// New builds the root command: "registry-core bootstrap" prints a fresh
// genesis pair, "registry-core serve" runs the publish/checkpoint/fetch
// demonstration loop against one.
func New() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "registry-core",
		Short: "Harness for the transparent package registry core service",
	}

	root.PersistentFlags().String("archive-container", "", "optional blob container to archive installed checkpoints to")
	root.PersistentFlags().Int("mailbox-capacity", 4, "core service actor mailbox capacity")
	_ = v.BindPFlags(root.PersistentFlags())

	root.AddCommand(newBootstrapCmd(v))
	root.AddCommand(newServeCmd(v))
	return root
}
