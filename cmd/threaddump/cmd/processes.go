package cmd

import (
	"github.com/spf13/cobra"

	"github.com/thread-dump-analysis/internal/jvm"
)

var showArgs bool

var processesCmd = &cobra.Command{
	Use:   "processes",
	Short: "List running Java processes (jps -v)",
	RunE: func(cmd *cobra.Command, args []string) error {
		lister := jvm.NewProcessLister(jvm.ExecRunner{}, cfg.JDK.JpsPath, GetLogger())
		processes, err := lister.List(cmd.Context())
		if err != nil {
			return err
		}

		for _, p := range processes {
			printf("%-8d %s\n", p.PID, p.DisplayName)
			if showArgs {
				if p.JVMArguments != "" {
					printf("         jvm: %s\n", p.JVMArguments)
				}
				if p.ApplicationArguments != "" {
					printf("         app: %s\n", p.ApplicationArguments)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processesCmd)
	processesCmd.Flags().BoolVar(&showArgs, "args", false, "Show JVM and application arguments")
}
