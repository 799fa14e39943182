package cli

import (
	"github.com/spf13/cobra"
)

// NewStepsCmd создаёт команду steps, перечисляющую типы шагов.
func NewStepsCmd(appFn func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List registered step types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFn()

			types := app.Registry.Types()
			rows := make([][]string, len(types))
			for i, t := range types {
				rows[i] = []string{t}
			}

			app.Out.Print([]string{"TYPE"}, rows, types)
			return nil
		},
	}
}
