package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reallyoldfogie/mc-replay-capture/mcpr"
)

var validateQuiet bool

var validateCmd = &cobra.Command{
	Use:   "validate <replay.mcpr> [replay2.mcpr ...]",
	Short: "Validate MCPR replay files for ReplayMod compatibility",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, files []string) error {
		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
		failed := 0

		for _, file := range files {
			// Check if file exists
			if _, err := os.Stat(file); err != nil {
				fmt.Fprintf(errOut, "❌ %s: file not found\n", file)
				failed++
				continue
			}

			if verbose {
				fmt.Fprintf(out, "Validating %s...\n", file)
			}

			var err error
			if validateQuiet {
				err = mcpr.ValidateFileQuiet(file)
			} else {
				err = mcpr.ValidateFile(file)
			}

			if err != nil {
				fmt.Fprintf(errOut, "❌ %s: %v\n", filepath.Base(file), err)
				failed++
			} else if !validateQuiet {
				fmt.Fprintf(out, "✅ %s: valid\n", filepath.Base(file))
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d replay files invalid", failed, len(files))
		}
		if !validateQuiet && len(files) > 1 {
			fmt.Fprintf(out, "\nAll %d replay files are valid!\n", len(files))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVarP(&validateQuiet, "quiet", "q", false, "Quiet mode (errors only)")
}
