package main

import (
	"github.com/hupe1980/viewflow"
	"github.com/hupe1980/viewflow/config"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile   string
	demo      bool
	flagsFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "viewflow",
		Short:        "Drive view-models from the command line",
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file merged under the process environment")
	pf.BoolVar(&opts.demo, "demo", false, "use the built-in demo backend instead of VIEWFLOW_API_URL")
	pf.StringVar(&opts.flagsFile, "flags-file", "", "feature flags YAML (overrides VIEWFLOW_FLAGS_FILE)")

	cmd.AddCommand(
		newRunCmd(opts),
		newScreensCmd(opts),
		newFlagsCmd(opts),
	)

	return cmd
}

// runtime builds the Runtime for a command. Demo runtimes never touch the
// network; the others are configured from the environment.
func (o *rootOptions) runtime() (*viewflow.Runtime, error) {
	s, err := config.Load(o.envFile)
	if err != nil {
		return nil, err
	}
	if o.flagsFile != "" {
		s.FlagsFile = o.flagsFile
	}

	if !o.demo {
		return viewflow.FromSettings(s)
	}

	logger := s.Logger()
	flags := config.NewFlags(logging.ForComponent(logger, "config"))
	if s.FlagsFile != "" {
		if err := flags.ReloadFile(s.FlagsFile); err != nil {
			return nil, err
		}
	}

	var rt *viewflow.Runtime
	client := newDemoClient(func() *core.User {
		if rt == nil {
			return nil
		}
		return rt.Session().Current()
	})
	rt = viewflow.New(func(vo *viewflow.Options) {
		vo.API = client
		vo.Assist = demoSuggester()
		vo.Flags = flags
		vo.Debounce = s.Debounce
		vo.Logger = logger
	})
	return rt, nil
}
