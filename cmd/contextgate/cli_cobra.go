package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dotsetgreg/contextgate/pkg/config"
	"github.com/dotsetgreg/contextgate/pkg/filter"
	"github.com/dotsetgreg/contextgate/pkg/resolve"
	"github.com/dotsetgreg/contextgate/pkg/session"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

// app bundles the wired components each command needs.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *session.FileStore
	resolver *resolve.Resolver
	filter   *filter.ActionFilter
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	store, err := session.NewFileStore(cfg.StorageDir(), logger)
	if err != nil {
		return nil, err
	}
	resolver := resolve.NewResolver(logger, cfg.Resolver.SearchTools)
	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		resolver: resolver,
		filter:   filter.NewActionFilter(resolver, cfg.Resolver.QueryArgKeys, logger),
	}, nil
}

// sessionFiles loads the attached and open file sets for an optional session
// id; an empty id yields empty sets.
func (a *app) sessionFiles(sessionID string) ([]resolve.AttachedFile, []resolve.OpenFile, *session.ConversationContext, error) {
	if sessionID == "" {
		return nil, nil, nil, nil
	}
	cc, err := a.store.Load(sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	if cc == nil {
		return nil, nil, nil, fmt.Errorf("session %q not found", sessionID)
	}
	return cc.UploadedFiles(), cc.OpenFiles(), cc, nil
}

func buildRootCommand() *cobra.Command {
	var (
		configPath  string
		showVersion bool
	)

	root := &cobra.Command{
		Use:   "contextgate",
		Short: "Reference resolution and action gating for workspace agent sessions",
		Long: strings.TrimSpace(`contextgate resolves free-text file references against attached and open
file sets, gates redundant search calls, and manages persisted session state
with per-type entity memory.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Config file path")
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newSessionsCommand(&configPath))
	root.AddCommand(newResolveCommand(&configPath))
	root.AddCommand(newValidateCommand(&configPath))
	root.AddCommand(newHistoryCommand(&configPath))
	root.AddCommand(newVersionCommand())

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build/version metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}

func newSessionsCommand(configPath *string) *cobra.Command {
	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "List, inspect, and delete persisted sessions",
	}

	sessions.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List persisted session ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ids, err := a.store.List()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				cmd.Println("No sessions found.")
				return nil
			}
			for _, id := range ids {
				cmd.Println(id)
			}
			return nil
		},
	})

	sessions.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's state, file context, and entity memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			attached, open, cc, err := a.sessionFiles(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Session %s\n", cc.SessionID)
			cmd.Printf("- Model: %s\n", valueOrUnset(cc.ModelName))
			cmd.Printf("- Execution mode: %s\n", cc.ExecutionMode)
			cmd.Printf("- Messages: %d\n", len(cc.Messages))
			cmd.Printf("- Pending confirmations: %d\n", len(cc.PendingConfirmations))
			cmd.Printf("- Updated: %s\n", cc.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
			cmd.Printf("- %s\n", cc.EntityMemory.BriefString())
			if block := resolve.BuildContextString(attached, open, ""); block != "" {
				cmd.Println()
				cmd.Println(block)
			}
			if entities := cc.EntityMemory.ContextString(); entities != "" {
				cmd.Println()
				cmd.Println(entities)
			}
			return nil
		},
	})

	sessions.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a persisted session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			if err := a.store.Delete(args[0]); err != nil {
				return err
			}
			cmd.Printf("Session %s deleted.\n", args[0])
			return nil
		},
	})

	return sessions
}

func newResolveCommand(configPath *string) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "resolve [query]",
		Short: "Resolve a file reference against a session's attached and open files",
		Long: strings.TrimSpace(`Resolve a free-text file reference. With a query argument the resolution is
printed once; without one an interactive shell reads queries until EOF.`),
		Example: "  contextgate resolve --session s1 \"the report\"\n  contextgate resolve --session s1",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			attached, open, _, err := a.sessionFiles(sessionID)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return printResolution(cmd, a.resolver, args[0], attached, open)
			}
			return resolveShell(cmd, a.resolver, attached, open)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id supplying the file context")
	return cmd
}

func printResolution(cmd *cobra.Command, r *resolve.Resolver, query string, attached []resolve.AttachedFile, open []resolve.OpenFile) error {
	res := r.Resolve(query, attached, open)
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}

func resolveShell(cmd *cobra.Command, r *resolve.Resolver, attached []resolve.AttachedFile, open []resolve.OpenFile) error {
	rl, err := readline.New("resolve> ")
	if err != nil {
		return fmt.Errorf("start shell: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := printResolution(cmd, r, line, attached, open); err != nil {
			return err
		}
	}
}

func newValidateCommand(configPath *string) *cobra.Command {
	var (
		sessionID string
		fileIDs   []string
	)

	cmd := &cobra.Command{
		Use:     "validate <action-json>",
		Short:   "Gate a proposed tool call against a session's file context",
		Example: `  contextgate validate --session s1 '{"tool_name":"workspace_search_files","arguments":{"query":"report"}}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			var action filter.Action
			if err := json.Unmarshal([]byte(args[0]), &action); err != nil {
				return fmt.Errorf("parse action: %w", err)
			}
			var cc *session.ConversationContext
			if sessionID != "" {
				if _, _, cc, err = a.sessionFiles(sessionID); err != nil {
					return err
				}
			}
			var result filter.ValidationResult
			if cc == nil {
				result = a.filter.Validate(action, nil, fileIDs...)
			} else {
				result = a.filter.Validate(action, cc, fileIDs...)
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id supplying the file context")
	cmd.Flags().StringArrayVar(&fileIDs, "file-id", nil, "Explicit uploaded-file ids to union into the attached set")
	return cmd
}

func newHistoryCommand(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Show archived messages for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			archive, err := session.OpenArchive(a.cfg.ArchivePath())
			if err != nil {
				return err
			}
			defer archive.Close()

			msgs, err := archive.Messages(context.Background(), args[0], limit)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				cmd.Printf("No archived messages for %s\n", args[0])
				return nil
			}
			for _, m := range msgs {
				cmd.Printf("[%s] %s: %s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.Role, m.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum messages to show")
	return cmd
}

func valueOrUnset(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(unset)"
	}
	return v
}
