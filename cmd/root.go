// Package cmd implements the commodoreconv command-line surface: a thin
// wrapper around the three format codecs that handles extension dispatch,
// file open/close and overwrite refusal (spec §6.1). This is an external
// collaborator, not part of the core conversion logic.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "commodoreconv",
	Short: "Convert Commodore 1541 floppy disk images between formats",
	Long: `commodoreconv converts 5.25" Commodore 1541 floppy disk images between
three formats of differing fidelity: LOGICAL sector images (.d64/.d71), GCR
half-track images (.g64), and FLUX-timing half-track images (.i64).`,
}

// Execute runs the root command, exiting the process with a nonzero status
// on any failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// mediaType resolves the format to use for a file: an explicit override, if
// given, otherwise the file's lowercase extension with the leading dot
// stripped.
func mediaType(override, filename string) string {
	if override != "" {
		return strings.ToLower(override)
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
