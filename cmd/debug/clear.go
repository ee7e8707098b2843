package debug

import (
	"errors"
	"fmt"

	"github.com/hitzhangjie/gdbstub/pkg/target"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear <breakpoint no.>",
	Short: "clear a software breakpoint by number",
	Long:  `clear a software breakpoint by number, see breaks for the numbers.`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cmd.Flags().GetUint64("n")
		if err != nil {
			return err
		}

		// look the breakpoint up by number
		var addr uint32
		found := false
		for _, bp := range Mach.SwBreakpoints() {
			if bp.ID == id {
				addr = bp.Addr
				found = true
				break
			}
		}
		if !found {
			return errors.New("breakpoint not found")
		}

		sw, ok := target.SupportsSwBreakpoint[uint32](Mach)
		if !ok {
			return errors.New("target doesn't support software breakpoints")
		}

		done, err := sw.RemoveSwBreakpoint(addr)
		if err != nil {
			return fmt.Errorf("clear breakpoint err: %v", err)
		}
		if !done {
			fmt.Println("no breakpoint installed there")
			return nil
		}
		fmt.Printf("clear breakpoint at %#x ok\n", addr)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(clearCmd)

	clearCmd.Flags().Uint64P("n", "n", 1, "breakpoint number")
}
