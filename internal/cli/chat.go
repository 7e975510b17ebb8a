package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"membuddy/internal/cache"
	"membuddy/internal/config"
	"membuddy/internal/engine"
	"membuddy/internal/lexicon"
	"membuddy/internal/recordstore"
	"membuddy/internal/session"
)

// ChatCommand creates the interactive chat REPL.
func ChatCommand() *cobra.Command {
	var (
		sessionID string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive member-support conversation",
		Long: `Start a terminal conversation. Type messages as a member would;
meta commands start with a slash:

  /sessions   list active session IDs
  /cleanup    remove expired sessions
  /reset      clear the current session's context
  /quit       exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), sessionID, verbose)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Resume or name a session (default: generated)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log engine decisions to stderr")
	return cmd
}

func runChat(ctx context.Context, sessionID string, verbose bool) error {
	store, storeCfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if mem, ok := store.(*recordstore.Memory); ok && storeCfg.SeedPath == "" {
		mem.SeedDemo()
		fmt.Println("Running with in-memory demo data (set MEMBUDDY_SEED_PATH or MEMBUDDY_STORE_TYPE=postgres for real data).")
	}

	lex := lexicon.New()
	if path := config.GetLexiconPath(); path != "" {
		if err := lex.LoadOverlay(path); err != nil {
			return fmt.Errorf("loading lexicon overlay: %w", err)
		}
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sessions := session.NewManager()
	eng := engine.New(lex, store, cache.ForStore(store, config.GetCacheTTL()), sessions, config.GetEngineConfig(), logger)

	sess := sessions.GetOrCreate(sessionID)
	fmt.Printf("Session %s. Type /quit to exit.\n\n", sess.SessionID)
	fmt.Println("membuddy> Hello! I can help you renew your membership, update your profile, or record feedback.")

	maxAge := config.GetSessionMaxAge()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runMetaCommand(sessions, sess, line, maxAge); quit {
				break
			}
			continue
		}

		act, err := eng.HandleTurn(ctx, sess.SessionID, line)
		if err != nil {
			return fmt.Errorf("handling turn: %w", err)
		}
		fmt.Printf("membuddy> %s\n", act.Message)
		if act.Suggestion != "" {
			fmt.Printf("membuddy> %s\n", act.Suggestion)
		}
	}
	return scanner.Err()
}

// runMetaCommand handles slash commands; returns true to exit the REPL.
func runMetaCommand(sessions *session.Manager, sess *session.Session, line string, maxAge time.Duration) bool {
	switch line {
	case "/quit", "/exit":
		fmt.Println("Bye!")
		return true
	case "/reset":
		sess.Reset()
		fmt.Println("Session context cleared.")
	case "/sessions":
		for _, id := range sessions.List() {
			marker := ""
			if id == sess.SessionID {
				marker = " (current)"
			}
			fmt.Printf("  %s%s\n", id, marker)
		}
		fmt.Printf("%d active session(s)\n", sessions.Count())
	case "/cleanup":
		removed := sessions.CleanupExpired(maxAge)
		fmt.Printf("Removed %d expired session(s)\n", removed)
	default:
		fmt.Println("Unknown command. Available: /sessions /cleanup /reset /quit")
	}
	return false
}
