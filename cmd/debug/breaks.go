package debug

import (
	"os"

	"github.com/spf13/cobra"
)

var breaksCmd = &cobra.Command{
	Use:     "breaks",
	Short:   "list all breakpoints and watchpoints",
	Long:    "list all breakpoints and watchpoints",
	Aliases: []string{"bs", "breakpoints"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	Run: func(cmd *cobra.Command, args []string) {
		Mach.ListBreakpoints(os.Stdout)
	},
}

func init() {
	debugRootCmd.AddCommand(breaksCmd)
}
