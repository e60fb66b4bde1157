package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/config"
	"docqa/internal/logging"
	"docqa/internal/service"
	"docqa/internal/tui"
)

type app struct {
	cfgPath string
	cfg     *config.AppConfig
	log     *zap.SugaredLogger
}

func main() {
	_ = godotenv.Load()

	a := &app{}
	root := &cobra.Command{
		Use:               "docqa",
		Short:             "Answer questions from a fixed document corpus",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "Path to YAML config file (default ./docqa.yaml, then ~/.config/docqa/config.yaml)")
	root.AddCommand(a.buildCmd(), a.askCmd(), a.chatCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := root.ExecuteContext(ctx)
	stop()
	if a.log != nil {
		_ = a.log.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) setup(*cobra.Command, []string) error {
	var err error
	if a.cfgPath == "" {
		a.cfg, a.cfgPath, err = config.LoadDefault()
	} else {
		a.cfg, err = config.Load(a.cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.log, err = logging.New(a.cfg.Log.Level, a.cfg.Log.Format)
	if err != nil {
		return err
	}
	if a.cfgPath != "" {
		a.log.Debugw("config loaded", "path", a.cfgPath)
	}
	return nil
}

func (a *app) buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Encode the corpus and write the index artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := service.Build(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents into %s\n", cat.Len(), a.cfg.Index.Path)
			return nil
		},
	}
}

func (a *app) askCmd() *cobra.Command {
	var retrieveOnly bool
	var topK int
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer one question and list its sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.FromConfig(a.cfg, a.log, !retrieveOnly)
			if err != nil {
				return err
			}
			defer svc.Close()
			if err := svc.Init(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if retrieveOnly {
				k := a.cfg.Retrieval.TopK
				if topK > 0 {
					k = topK
				}
				hits, err := svc.Retrieve(cmd.Context(), args[0], k)
				if err != nil {
					return err
				}
				for i, h := range hits {
					fmt.Fprintf(out, "%d. %s  distance=%.4f\n", i+1, h.DocID, h.Distance)
				}
				return nil
			}

			res, err := svc.Ask(cmd.Context(), args[0])
			if err != nil {
				if len(res.Sources) > 0 {
					fmt.Fprintf(out, "attempted sources: %v\n", res.Sources)
				}
				return err
			}
			fmt.Fprintln(out, res.Answer)
			fmt.Fprintf(out, "\nsources: %v\n", res.Sources)
			return nil
		},
	}
	cmd.Flags().BoolVar(&retrieveOnly, "retrieve-only", false, "Print the nearest documents without calling the generator")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of documents to list with --retrieve-only (default retrieval.top_k)")
	return cmd
}

func (a *app) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive question answering in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := service.FromConfig(a.cfg, a.log, true)
			if err != nil {
				return err
			}
			defer svc.Close()
			if err := svc.Init(cmd.Context()); err != nil {
				return err
			}
			timeout := time.Duration(a.cfg.Generator.TimeoutSecs) * time.Second
			_, err = tea.NewProgram(tui.New(svc, 2*timeout), tea.WithAltScreen()).Run()
			return err
		},
	}
}
