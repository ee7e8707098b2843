package debug

import (
	"errors"
	"fmt"

	"github.com/hitzhangjie/gdbstub/pkg/target"
	"github.com/spf13/cobra"
)

var hbreakCmd = &cobra.Command{
	Use:   "hbreak <address>",
	Short: "add a hardware breakpoint",
	Long: `add a hardware breakpoint at an instruction address.

Hardware slots are scarce, a refusal once they run out is the expected
outcome, not an error.`,
	Aliases: []string{"hb"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("invalid arguments")
		}

		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}

		hw, ok := target.SupportsHwBreakpoint[uint32](Mach)
		if !ok {
			return errors.New("target doesn't support hardware breakpoints")
		}

		done, err := hw.AddHwBreakpoint(addr)
		if err != nil {
			return fmt.Errorf("add breakpoint err: %v", err)
		}
		if !done {
			fmt.Println("could not add breakpoint here, hardware slots may be exhausted")
			return nil
		}
		fmt.Printf("add hardware breakpoint at %#x ok\n", addr)
		return nil
	},
}

var hclearCmd = &cobra.Command{
	Use:   "hclear <address>",
	Short: "clear a hardware breakpoint",
	Long:  `clear the hardware breakpoint at an instruction address.`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("invalid arguments")
		}

		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}

		hw, ok := target.SupportsHwBreakpoint[uint32](Mach)
		if !ok {
			return errors.New("target doesn't support hardware breakpoints")
		}

		done, err := hw.RemoveHwBreakpoint(addr)
		if err != nil {
			return fmt.Errorf("clear breakpoint err: %v", err)
		}
		if !done {
			fmt.Println("no hardware breakpoint installed there")
			return nil
		}
		fmt.Printf("clear hardware breakpoint at %#x ok\n", addr)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(hbreakCmd)
	debugRootCmd.AddCommand(hclearCmd)
}
