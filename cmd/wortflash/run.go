package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mtraut/wortflash/pkg/archive"
	"github.com/mtraut/wortflash/pkg/config"
	"github.com/mtraut/wortflash/pkg/pipeline"
	"github.com/mtraut/wortflash/pkg/translate"
	"github.com/mtraut/wortflash/pkg/wordstore"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive translation loop",
	Long: `Reads German sentences from stdin, one per line, and prints translation
and word-flash events as they happen.

Commands:
  /show <word>   re-display a saved word (ignores its skip flag)
  /skip <word>   toggle a word's skip flag
  /png <word>    request a manual snapshot
  /ask <text>    ask the backend a free-form question
  /words         list saved words
  /status        print queue depths`,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}

	store, err := wordstore.Open(cfg.Store.WordPath, logger)
	if err != nil {
		return fmt.Errorf("open word table: %w", err)
	}
	logger.WithField("words", store.Len()).Info("word table loaded")

	client := translate.NewClient(cfg.Backend.Host, cfg.Backend.Model, cfg.Backend.Temperature, cfg.Backend.MaxTokens)
	client.Logger = logger

	var disabled []translate.Lang
	for _, code := range cfg.Pipeline.DisabledLangs {
		disabled = append(disabled, translate.Lang(code))
	}

	coord := pipeline.New(client, store, pipeline.Options{
		RequestTimeout: cfg.Backend.Timeout,
		FlashInterval:  cfg.Pipeline.FlashInterval,
		DepthInterval:  cfg.Pipeline.DepthInterval,
		EventBuffer:    cfg.Pipeline.EventBuffer,
		Disabled:       disabled,
		Archiver:       archive.NewWriter(cfg.Store.ArchivePath),
		Logger:         logger,
	})
	events := coord.Events()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	coord.Start(ctx)
	defer coord.Close()

	go renderEvents(events)

	fmt.Println("wortflash ready. Type a German sentence, /help for commands, Ctrl+D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			handleCommand(coord, line)
			continue
		}
		if _, err := coord.Submit(line); err != nil {
			fmt.Printf("! submit failed: %v\n", err)
		}
	}
	return scanner.Err()
}

func init() {
	runCmd.RunE = runRun
	rootCmd.AddCommand(runCmd)
}

func handleCommand(coord *pipeline.Coordinator, line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/show":
		if _, err := coord.Redisplay(arg); err != nil {
			fmt.Printf("! %s: %v\n", arg, err)
		}
	case "/skip":
		val, err := coord.ToggleSkip(arg)
		if err != nil {
			fmt.Printf("! %s: %v\n", arg, err)
			return
		}
		fmt.Printf("skip(%s) = %v\n", arg, val)
	case "/png":
		coord.RequestSnapshot(arg)
	case "/ask":
		if arg == "" {
			fmt.Println("! usage: /ask <question>")
			return
		}
		coord.Ask(arg)
	case "/words":
		printWords(coord)
	case "/status":
		d := coord.Depth()
		fmt.Printf("S %d  W %d  sentence=%s word=%s\n", d.Sentences, d.Words, dash(d.CurrentSentence), dash(d.CurrentWord))
	case "/help":
		fmt.Println(runCmd.Long)
	default:
		fmt.Printf("! unknown command %s\n", cmd)
	}
}

func printWords(coord *pipeline.Coordinator) {
	for _, e := range coord.Words() {
		star := ""
		if e.Skip {
			star = "★"
		}
		fmt.Printf("%s (%s%d)  en: %s  ja: %s\n",
			e.Word, star, e.Count, strings.Join(e.EN, "; "), strings.Join(e.JA, "; "))
	}
}

func renderEvents(events <-chan pipeline.Event) {
	var lastDepth pipeline.QueueDepth
	for e := range events {
		switch ev := e.(type) {
		case pipeline.SentenceReady:
			fmt.Printf("───\n%s\nEN: %s\n", ev.Source, ev.EN)
			if ev.Partial {
				fmt.Println("JA: (unavailable)")
			} else {
				fmt.Printf("JA: %s\n", ev.JA)
			}
		case pipeline.SentenceFailed:
			fmt.Printf("! sentence failed [%s/%s]: %s\n", ev.Stage, ev.ErrorKind, ev.Source)
		case pipeline.WordReady:
			if line, show := formatWordReady(ev); show {
				fmt.Println(line)
			}
		case pipeline.QueueDepth:
			// Only changes in pending work are worth a line.
			if ev != lastDepth && (ev.Sentences > 0 || ev.Words > 0) {
				fmt.Printf("… S %d  W %d  sentence=%s word=%s\n",
					ev.Sentences, ev.Words, dash(ev.CurrentSentence), dash(ev.CurrentWord))
			}
			lastDepth = ev
		case pipeline.SnapshotRequest:
			mode := "manual"
			if ev.Auto {
				mode = "auto"
			}
			fmt.Printf("📷 snapshot requested (%s): %s\n", mode, ev.Word)
		case pipeline.AnswerReady:
			if ev.Err != nil {
				fmt.Printf("? %s\n! answer failed: %v\n", ev.Question, ev.Err)
			} else {
				fmt.Printf("? %s\n→ %s\n", ev.Question, ev.Answer)
			}
		case pipeline.StoreWarning:
			fmt.Printf("! durability degraded: %v\n", ev.Err)
		}
	}
}

// formatWordReady renders one word flash. Skipped words are excluded from
// automatic flashing; an explicit re-display still shows them, starred.
func formatWordReady(ev pipeline.WordReady) (string, bool) {
	if ev.Skip && !ev.Redisplay {
		return "", false
	}
	star := ""
	if ev.Skip {
		star = "★"
	}
	return fmt.Sprintf("⚡ %s (%s%d)  en: %s  ja: %s",
		ev.Word, star, ev.Count, strings.Join(ev.EN, "; "), strings.Join(ev.JA, "; ")), true
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
