/*
Copyright © 2020 hit.zhangjie@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"net"
	"os"

	"github.com/hitzhangjie/gdbstub/pkg/emu"
	"github.com/hitzhangjie/gdbstub/pkg/rsp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the built-in machine to remote debuggers",
	Long: `serve the built-in machine to remote debuggers.

Listens on a TCP address and runs one debug session per connection, each
against a freshly loaded machine. Connect with:

  gdb> target remote <addr>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen := viper.GetString("listen")

		ln, err := net.Listen("tcp", listen)
		if err != nil {
			return err
		}
		defer ln.Close()
		fmt.Printf("listening on %s\n", ln.Addr())

		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			fmt.Printf("debugger connected: %s\n", conn.RemoteAddr())

			m := emu.NewMachine(0x10000)
			if err := m.Load(emu.DemoProgram()); err != nil {
				conn.Close()
				return err
			}

			if err := rsp.NewServer[uint32](conn, machineTarget{m}).Serve(); err != nil {
				fmt.Fprintf(os.Stderr, "session error: %v\n", err)
			}
			conn.Close()
			fmt.Println("debugger disconnected")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", ":2159", "TCP address to listen on")
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

// machineTarget adapts the machine's stop reporting to the session layer.
// The capability interfaces promote from the embedded machine untouched.
type machineTarget struct {
	*emu.Machine
}

func (t machineTarget) Resume() (rsp.StopEvent, error) {
	stop, err := t.Machine.Resume()
	return toStopEvent(stop), err
}

func (t machineTarget) StepInstruction() (rsp.StopEvent, error) {
	stop, err := t.Machine.StepInstruction()
	return toStopEvent(stop), err
}

func toStopEvent(stop emu.Stop) rsp.StopEvent {
	switch stop.Reason {
	case emu.StopWatchpoint:
		return rsp.StopEvent{Reason: rsp.StopWatch, Addr: uint64(stop.Addr), Watch: stop.Watch}
	case emu.StopHalt:
		return rsp.StopEvent{Reason: rsp.StopExited}
	default:
		return rsp.StopEvent{Reason: rsp.StopTrap}
	}
}
