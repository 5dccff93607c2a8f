package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order FILE",
		Short: "Print tasks in dependency order",
		Long:  "Print task IDs so that every task follows its dependencies. Tasks on or behind a cycle are listed separately.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd, args[0])
			if err != nil {
				return err
			}
			service, err := a.service()
			if err != nil {
				return err
			}
			ordered, blocked, err := service.Order(req.Tasks)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range ordered {
				fmt.Fprintln(out, id)
			}
			if len(blocked) > 0 {
				fmt.Fprintln(out, "Blocked by circular dependencies:")
				for _, id := range blocked {
					fmt.Fprintf(out, "  %s\n", id)
				}
			}
			return nil
		},
	}
}
