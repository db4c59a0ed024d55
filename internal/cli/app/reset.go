package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func ResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every chunk in the configured collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return errors.New("reset deletes all stored chunks; pass --yes to confirm")
			}

			rt, err := NewRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			n, err := rt.Store.Count(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.Store.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d chunks from %s\n", n, rt.Config.Collection)
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Confirm deletion")
	return cmd
}
