package debug

import (
	"errors"
	"fmt"

	"github.com/hitzhangjie/gdbstub/pkg/target"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <address>",
	Short: "add a hardware watchpoint",
	Long: `add a hardware watchpoint on a data address.

The kind selects which accesses fire it: write, read or rw. A watchpoint
is identified by address and kind together, removal must name the same
kind it was added with.`,
	Aliases: []string{"w"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchpointOp(cmd, args, true)
	},
}

var unwatchCmd = &cobra.Command{
	Use:   "unwatch <address>",
	Short: "remove a hardware watchpoint",
	Long:  `remove the hardware watchpoint matching both address and kind.`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchpointOp(cmd, args, false)
	},
}

func init() {
	debugRootCmd.AddCommand(watchCmd)
	debugRootCmd.AddCommand(unwatchCmd)

	watchCmd.Flags().StringP("kind", "k", "write", "access kind firing the watchpoint: write|read|rw")
	unwatchCmd.Flags().StringP("kind", "k", "write", "access kind the watchpoint was added with: write|read|rw")
}

func watchpointOp(cmd *cobra.Command, args []string, insert bool) error {
	if len(args) != 1 {
		return errors.New("invalid arguments")
	}

	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	kindStr, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	kind, err := parseWatchKind(kindStr)
	if err != nil {
		return err
	}

	wp, ok := target.SupportsHwWatchpoint[uint32](Mach)
	if !ok {
		return errors.New("target doesn't support hardware watchpoints")
	}

	if insert {
		done, err := wp.AddHwWatchpoint(addr, kind)
		if err != nil {
			return fmt.Errorf("add watchpoint err: %v", err)
		}
		if !done {
			fmt.Println("could not add watchpoint here, hardware slots may be exhausted")
			return nil
		}
		fmt.Printf("add %s watchpoint at %#x ok\n", kind, addr)
		return nil
	}

	done, err := wp.RemoveHwWatchpoint(addr, kind)
	if err != nil {
		return fmt.Errorf("remove watchpoint err: %v", err)
	}
	if !done {
		fmt.Printf("no %s watchpoint installed there\n", kind)
		return nil
	}
	fmt.Printf("remove %s watchpoint at %#x ok\n", kind, addr)
	return nil
}

func parseWatchKind(s string) (target.WatchKind, error) {
	switch s {
	case "write", "w":
		return target.WatchWrite, nil
	case "read", "r":
		return target.WatchRead, nil
	case "rw", "readwrite", "access":
		return target.WatchReadWrite, nil
	default:
		return 0, fmt.Errorf("invalid watch kind %q, want write|read|rw", s)
	}
}
