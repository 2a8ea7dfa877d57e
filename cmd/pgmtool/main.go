// Command pgmtool packages a compiled ELF image into the firmware's .pgm
// container: the program image, with its header validated and its size
// field rewritten, followed by a SHA-1 digest of that image. The QSPI
// sections are checked against the header but are not written to the .pgm.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rpnengine/cmd/pgmtool/pgm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pgmtool",
		Short: "Package a compiled ELF image into a .pgm firmware container",
	}

	var output string
	packCmd := &cobra.Command{
		Use:   "pack [elf-file]",
		Short: "Read an ELF, validate its program header, and write a .pgm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			out := output
			if out == "" {
				out = trimExt(in) + ".pgm"
			}
			report, err := pgm.Pack(in, out)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d bytes program, %d bytes QSPI)\n", out, report.ProgramSize, report.QSPISize)
			return nil
		},
	}
	packCmd.Flags().StringVarP(&output, "output", "o", "", "Output .pgm path (default: input with .pgm extension)")

	rootCmd.AddCommand(packCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func trimExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
