package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wortflash",
	Short: "Live German→EN/JA translator with word-flash study reinforcement",
	Long: `wortflash sends submitted German sentences to a local inference backend,
shows English and Japanese translations in submission order, and builds a
durable vocabulary table with per-word translation candidates and exposure
counts for spaced reinforcement.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
