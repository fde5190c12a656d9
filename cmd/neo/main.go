// neo is a conversational coding assistant driven by an embedded
// command protocol: the model emits sentinel-delimited commands, neo
// executes them against the workspace, and results flow back into the
// transcript.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose       bool
	workspaceFlag string
	sessionFlag   string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "neo",
	Short: "neo - a command-protocol coding assistant",
	Long: `neo drives an LLM through an embedded command protocol: the model
writes commands between sentinel characters, neo runs them in the
workspace (read_file, write_file, bash, search) and feeds the results
back until the model settles on an answer.

Sessions are checkpointed and pruned automatically so long
conversations stay within the model's context window, and can be
persisted and resumed by ID.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&sessionFlag, "session", "s", "", "session ID to resume or create")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func workspaceRoot() (string, error) {
	if workspaceFlag != "" {
		return workspaceFlag, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return wd, nil
}
