package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "codes",
	Short: "Manage VoiceMemos activation codes",
	Long: `Admin tool for the activation codes that gate registration and
password reset. Codes are stored next to the user accounts in the
server's SQLite database.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "voicememos.db", "path to the server SQLite database")
}
