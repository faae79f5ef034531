package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/DerwenAI/dylifo/internal/config"
	"github.com/DerwenAI/dylifo/internal/storage"
	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/ai"
	"github.com/DerwenAI/dylifo/pkg/loader"
	"github.com/DerwenAI/dylifo/pkg/logger"
	"github.com/DerwenAI/dylifo/pkg/logger/console"
	"github.com/DerwenAI/dylifo/pkg/pipeline"
	"github.com/DerwenAI/dylifo/pkg/resolution"

	"github.com/spf13/cobra"
)

func rootCmd(factory pipeline.BackendFactory) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Narrative summaries of entity resolution results",
		Long: `dylifo explains why a set of resolved entities is connected.

It reads the get-entity output of an entity resolution engine, translates
each shared attribute into plain language and asks a language model for one
paragraph per connected group of entities.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  debug || util.GetEnvBool(config.DebugEnv, false),
				Output: cmd.ErrOrStderr(),
			}))
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(summarizeCmd(factory))
	cmd.AddCommand(graphCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func summarizeCmd(factory pipeline.BackendFactory) *cobra.Command {
	var (
		configPath string
		showPrompt bool
		showRows   bool
		showUsage  bool
	)

	cmd := &cobra.Command{
		Use:   "summarize PATH...",
		Short: "Write one narrative per connected group of entities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			docLoader, err := storage.NewLoader(ctx)
			if err != nil {
				return err
			}
			p, err := pipeline.FromSettings(configPath, factory, pipeline.WithLoader(docLoader))
			if err != nil {
				return err
			}

			results := make([]*pipeline.Result, 0, len(args))
			for _, path := range args {
				res, err := p.RunPath(ctx, path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				results = append(results, res)
			}

			out := cmd.OutOrStdout()
			var total ai.MetricsRecorder
			for i, res := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if showPrompt {
					for _, n := range res.Narratives {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s\n\n", n.Narrative.Prompt)
					}
				}
				if showRows {
					if err := writeRows(out, res.Rows); err != nil {
						return err
					}
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, res.Text())
				total.Add(res.Usage)
			}

			if showUsage {
				usage := total.GetMetrics()
				fmt.Fprintf(cmd.ErrOrStderr(),
					"backend=%s model=%s requests=%d input_tokens=%d output_tokens=%d total_tokens=%d duration_ms=%d\n",
					p.Config().Backend(), p.Config().Model(),
					usage.Requests, usage.InputTokens, usage.OutputTokens, usage.TotalTokens, usage.DurationMs,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Settings document (TOML or YAML)")
	cmd.Flags().BoolVar(&showPrompt, "show-prompt", false, "Print the prompt sent to the model on stderr")
	cmd.Flags().BoolVar(&showRows, "rows", false, "Print the entity and data source table before the narrative")
	cmd.Flags().BoolVar(&showUsage, "usage", false, "Print token usage on stderr")

	return cmd
}

func graphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph PATH",
		Short: "Print the Mermaid rendering of a resolution result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docLoader, err := storage.NewLoader(cmd.Context())
			if err != nil {
				return err
			}
			raw, err := docLoader.GetDocument(cmd.Context(), loader.Document{Path: args[0]})
			if err != nil {
				return err
			}
			res, err := pipeline.Inspect(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), res.Mermaid)
			return nil
		},
	}
}

func writeRows(w io.Writer, rows []resolution.EntitySourceRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tDATA SOURCE\tRECORDS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", strings.TrimSpace(r.Entity), r.DataSource, r.RecordCount)
	}
	return tw.Flush()
}
