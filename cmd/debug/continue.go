package debug

import (
	"fmt"

	"github.com/hitzhangjie/gdbstub/pkg/emu"
	"github.com/spf13/cobra"
)

var continueCmd = &cobra.Command{
	Use:     "continue",
	Short:   "run to the next breakpoint or watchpoint",
	Aliases: []string{"c"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		stop, err := Mach.Resume()
		if err != nil {
			return fmt.Errorf("continue err: %v", err)
		}
		reportStop(stop)
		return nil
	},
}

var stepCmd = &cobra.Command{
	Use:     "step",
	Short:   "execute one instruction",
	Aliases: []string{"s"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		stop, err := Mach.StepInstruction()
		if err != nil {
			return fmt.Errorf("step err: %v", err)
		}
		reportStop(stop)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(continueCmd)
	debugRootCmd.AddCommand(stepCmd)
}

func reportStop(stop emu.Stop) {
	switch stop.Reason {
	case emu.StopBreakpoint:
		fmt.Printf("breakpoint hit, current PC: %#x\n", stop.PC)
	case emu.StopWatchpoint:
		fmt.Printf("%s watchpoint at %#x fired, current PC: %#x\n", stop.Watch, stop.Addr, stop.PC)
	case emu.StopHalt:
		fmt.Printf("target halted, current PC: %#x\n", stop.PC)
	default:
		fmt.Printf("single step ok, current PC: %#x\n", stop.PC)
	}
}
