package cmd

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/prebaalex/voicememos/internal/server/storage/sqlite"
)

const (
	codeLength  = 12
	codeCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var generateCount int

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a batch of fresh activation codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := sqlite.New(ctx, dbPath)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer store.Close()

		codes := make([]string, 0, generateCount)
		for i := 0; i < generateCount; i++ {
			code, err := randomCode(codeLength)
			if err != nil {
				return fmt.Errorf("failed to generate code: %w", err)
			}
			codes = append(codes, code)
		}

		if err := store.CreateCodes(ctx, codes); err != nil {
			return fmt.Errorf("failed to insert codes: %w", err)
		}

		fmt.Printf("Inserted %d new activation codes\n", len(codes))
		return nil
	},
}

// randomCode генерирует случайный alphanumeric код
func randomCode(length int) (string, error) {
	max := big.NewInt(int64(len(codeCharset)))
	buf := make([]byte, length)

	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeCharset[n.Int64()]
	}

	return string(buf), nil
}

func init() {
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 50, "number of codes to generate")
	rootCmd.AddCommand(generateCmd)
}
