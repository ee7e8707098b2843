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
	"github.com/hitzhangjie/gdbstub/cmd/debug"
	"github.com/hitzhangjie/gdbstub/pkg/emu"
	"github.com/spf13/cobra"
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "debug the built-in machine interactively",
	Long: `debug the built-in machine interactively, without a remote
debugger: the session drives the same capability interfaces the remote
protocol layer uses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := emu.NewMachine(0x10000)
		if err := m.Load(emu.DemoProgram()); err != nil {
			return err
		}
		debug.Mach = m
		return nil
	},
	PostRun: func(cmd *cobra.Command, args []string) {
		debug.CurrentSession = debug.NewDebugSession()
		debug.CurrentSession.Start()
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
