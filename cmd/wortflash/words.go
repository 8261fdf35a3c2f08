package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mtraut/wortflash/pkg/config"
	"github.com/mtraut/wortflash/pkg/wordstore"
)

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Print the saved-word table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		store, err := wordstore.Open(cfg.Store.WordPath, nil)
		if err != nil {
			return fmt.Errorf("open word table: %w", err)
		}
		for _, e := range store.List() {
			skip := ""
			if e.Skip {
				skip = " [skip]"
			}
			fmt.Printf("%s (%d)%s\n  en: %s\n  ja: %s\n",
				e.Word, e.Count, skip, strings.Join(e.EN, "; "), strings.Join(e.JA, "; "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(wordsCmd)
}
