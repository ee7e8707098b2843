package debug

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hitzhangjie/gdbstub/pkg/target"
	"github.com/spf13/cobra"
)

var breakCmd = &cobra.Command{
	Use:   "break <address>",
	Short: "add a software breakpoint",
	Long: `add a software breakpoint at an instruction address.

The address may be decimal or hex (0x prefix). The target traps it by
patching its instruction stream, so availability depends on the target
implementing the software breakpoint capability.`,
	Aliases: []string{"b", "breakpoint"},
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

		sw, ok := target.SupportsSwBreakpoint[uint32](Mach)
		if !ok {
			return errors.New("target doesn't support software breakpoints")
		}

		done, err := sw.AddSwBreakpoint(addr)
		if err != nil {
			return fmt.Errorf("add breakpoint err: %v", err)
		}
		if !done {
			fmt.Println("could not add breakpoint here")
			return nil
		}
		fmt.Printf("add breakpoint at %#x ok\n", addr)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(breakCmd)
}

func parseAddress(locStr string) (uint32, error) {
	v, err := strconv.ParseUint(locStr, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %v", err)
	}
	if v > target.MaxAddress[uint32]() {
		return 0, fmt.Errorf("address %#x beyond architecture width", v)
	}
	return uint32(v), nil
}
