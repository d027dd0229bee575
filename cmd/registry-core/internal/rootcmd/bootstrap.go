package rootcmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newBootstrapCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Generate a fresh genesis operator record and checkpoint and print their identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			genesisRecord, genesisCheckpoint, signer, err := buildGenesis(cmd.Context())
			if err != nil {
				return err
			}
			h := genesisCheckpoint.Hash(hashDigestBytes)
			fmt.Fprintf(cmd.OutOrStdout(), "genesis key id:       %s\n", signer.KeyIdentifier())
			fmt.Fprintf(cmd.OutOrStdout(), "genesis record bytes: %d\n", len(genesisRecord.Signed))
			fmt.Fprintf(cmd.OutOrStdout(), "genesis checkpoint:   %s\n", h)
			return nil
		},
	}
}
