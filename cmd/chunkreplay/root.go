package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/factory"
	"github.com/inercia/go-llm-stream/pkg/llm"
)

type options struct {
	backend string
	format  string
	output  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "chunkreplay [flags] FILE",
		Short:        "Replay a captured backend stream through its parser",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := llm.ParseBackend(opts.backend)
			if err != nil {
				return err
			}
			format, err := parseFormat(opts.format)
			if err != nil {
				return err
			}

			logger := zap.NewNop()
			if opts.verbose {
				if logger, err = zap.NewDevelopment(); err != nil {
					return err
				}
				defer func() { _ = logger.Sync() }()
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}

			report, err := Replay(cmd.Context(), backend, f, format, logger)
			if err != nil {
				return err
			}

			switch opts.output {
			case "summary":
				fmt.Fprintln(cmd.OutOrStdout(), report.SummaryTable())
			case "chunks":
				fmt.Fprintln(cmd.OutOrStdout(), report.ChunkTable())
			default:
				fmt.Fprintln(cmd.OutOrStdout(), report.ChunkTable())
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), report.SummaryTable())
			}
			return nil
		},
	}

	backends := make([]string, 0, len(factory.Registered()))
	for _, b := range factory.Registered() {
		backends = append(backends, b.String())
	}

	cmd.Flags().StringVarP(&opts.backend, "backend", "b", llm.BackendOpenAI.String(), "backend whose parser decodes the events ("+strings.Join(backends, ", ")+")")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "sse", "capture format (sse, jsonl, body)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "all", "output (all, chunks, summary)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log parser diagnostics to stderr")
	return cmd
}
