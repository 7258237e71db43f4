package main

import (
	"context"
	"fmt"

	"github.com/hupe1980/viewflow/core"
	"github.com/spf13/cobra"
)

func newFlagsCmd(root *rootOptions) *cobra.Command {
	var (
		user     ScenarioUser
		loggedIn bool
	)

	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Evaluate every feature flag for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root.demo = true
			rt, err := root.runtime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			var u *core.User
			if loggedIn {
				u = user.user()
			}

			w := cmd.OutOrStdout()
			for _, name := range rt.Flags().Names() {
				fmt.Fprintf(w, "%s\t%t\n", name, rt.Flags().Enabled(name, u))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&loggedIn, "logged-in", false, "evaluate for a logged-in user")
	f.Int64Var(&user.ID, "user-id", 1, "user id")
	f.StringVar(&user.Email, "email", "", "user email")
	f.StringVar(&user.Country, "country", "", "user country")
	f.BoolVar(&user.Admin, "admin", false, "user is an admin")

	return cmd
}
