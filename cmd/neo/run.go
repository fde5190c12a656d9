package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rahulgovind/neo/agent"
	"github.com/rahulgovind/neo/config"
	"github.com/rahulgovind/neo/conversation"
	"github.com/rahulgovind/neo/llm"
	"github.com/rahulgovind/neo/shell"
	"github.com/rahulgovind/neo/store"
)

const baseInstructions = `You are neo, a coding assistant working inside the user's workspace.
Use the available commands to inspect and modify files, search the
codebase, and run shell commands. Prefer small, verifiable steps:
read before you write, and check your work with commands rather than
assuming. When the task is done, reply with a short plain-text summary.`

var runCmd = &cobra.Command{
	Use:   "run [message...]",
	Short: "Process a single message and print the response",
	Long: `Runs one message through the assistant and prints the final reply.
The message comes from the arguments, or from stdin when no arguments
are given. With --session, the conversation is loaded first and saved
after, so repeated runs continue the same session.`,
	RunE: runOnce,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Reads messages from stdin line by line and prints each response.
The session is saved after every exchange. Exit with Ctrl-D or by
typing "exit".`,
	RunE: runChat,
}

// assistant bundles the engine with the pieces needed to persist it.
type assistant struct {
	engine *agent.Engine
	store  store.SnapshotStore
	done   chan struct{}
}

func buildAssistant(ctx context.Context) (*assistant, error) {
	root, err := workspaceRoot()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := openStore(cfg, root)
	if err != nil {
		return nil, err
	}

	completer, err := buildCompleter(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	registry := shell.NewRegistry()
	shell.RegisterBuiltins(registry)
	workspace := shell.NewWorkspace(root, logger)
	executor := shell.NewExecutor(registry, workspace, logger)

	opts := []agent.Option{
		agent.WithConfig(cfg.EngineConfig()),
		agent.WithLogger(logger),
	}

	if sessionFlag != "" {
		opts = append(opts, agent.WithSessionID(sessionFlag))
		snap, err := st.Load(ctx, sessionFlag)
		switch {
		case err == nil:
			state, err := conversation.FromSnapshot(snap)
			if err != nil {
				st.Close()
				return nil, fmt.Errorf("resume session %s: %w", sessionFlag, err)
			}
			opts = append(opts, agent.WithState(state))
			logger.Info("session resumed",
				zap.String("session_id", sessionFlag),
				zap.Int("turns", state.Len()))
		case errors.Is(err, store.ErrNotFound):
			// New session under the requested ID.
		default:
			st.Close()
			return nil, err
		}
	}

	base := baseInstructions
	if cfg.Instructions != "" {
		base = cfg.Instructions
	}
	instructions := agent.BuildInstructions(base, registry, root)

	engine := agent.New(completer, executor, instructions, opts...)

	a := &assistant{engine: engine, store: st, done: make(chan struct{})}
	go a.relayEvents()
	return a, nil
}

func buildCompleter(cfg config.Config) (llm.Completer, error) {
	opts := []llm.GollmOption{llm.WithModel(cfg.LLM.Model)}
	if key := cfg.APIKey(); key != "" {
		opts = append(opts, llm.WithAPIKey(key))
	}
	if cfg.LLM.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.LLM.MaxTokens))
	}
	if cfg.LLM.Temperature > 0 {
		opts = append(opts, llm.WithTemperature(cfg.LLM.Temperature))
	}
	return llm.NewGollmCompleter(cfg.LLM.Provider, opts...)
}

func openStore(cfg config.Config, root string) (store.SnapshotStore, error) {
	path := cfg.StorePath(root)
	switch cfg.Store.Backend {
	case "sqlite":
		return store.NewSQLiteStore(path, logger)
	default:
		return store.NewFileStore(path, logger)
	}
}

// relayEvents surfaces command activity on stderr so the user can see
// what the assistant is doing between replies.
func (a *assistant) relayEvents() {
	defer close(a.done)
	for ev := range a.engine.Events() {
		switch ev.Kind {
		case agent.EventCommandStart:
			fmt.Fprintf(os.Stderr, "  > %v\n", ev.Data["command"])
		case agent.EventProtocolRetry:
			fmt.Fprintln(os.Stderr, "  ! retrying malformed response")
		case agent.EventCheckpointCreated:
			fmt.Fprintln(os.Stderr, "  * checkpoint created")
		case agent.EventLoopDetected:
			fmt.Fprintln(os.Stderr, "  ! repeated commands detected, steering")
		}
	}
}

func (a *assistant) save(ctx context.Context) error {
	return a.store.Save(ctx, a.engine.ID(), a.engine.State().ToSnapshot())
}

func (a *assistant) close() {
	a.engine.Close()
	<-a.done
	if err := a.store.Close(); err != nil {
		logger.Warn("close session store", zap.Error(err))
	}
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read message from stdin: %w", err)
		}
		message = strings.TrimSpace(string(data))
	}
	if message == "" {
		return fmt.Errorf("no message given")
	}

	a, err := buildAssistant(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	reply, err := a.engine.Process(ctx, message)
	if err != nil {
		return err
	}
	fmt.Println(reply)

	return a.save(ctx)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildAssistant(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Fprintf(os.Stderr, "session %s (Ctrl-D or \"exit\" to quit)\n", a.engine.ID())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			break
		}

		reply, err := a.engine.Process(ctx, message)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			continue
		}
		fmt.Println(reply)

		if err := a.save(ctx); err != nil {
			logger.Warn("save session", zap.Error(err))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	usage := a.engine.Usage()
	fmt.Fprintf(os.Stderr, "tokens: %d in, %d out\n", usage.InputTokens, usage.OutputTokens)
	return nil
}
