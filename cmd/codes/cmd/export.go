package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prebaalex/voicememos/internal/server/storage/sqlite"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export unused activation codes to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := sqlite.New(ctx, dbPath)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer store.Close()

		codes, err := store.ListUnusedCodes(ctx)
		if err != nil {
			return fmt.Errorf("failed to list codes: %w", err)
		}

		if len(codes) == 0 {
			fmt.Println("No unused activation codes found")
			return nil
		}

		content := strings.Join(codes, "\n") + "\n"
		if err := os.WriteFile(exportOutput, []byte(content), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", exportOutput, err)
		}

		fmt.Printf("Wrote %d unused activation codes to %s\n", len(codes), exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "unused_activation_codes.txt", "output file")
	rootCmd.AddCommand(exportCmd)
}
