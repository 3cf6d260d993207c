package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/cms"
	"github.com/blockcanvas/indy/internal/config"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/indy"
	"github.com/blockcanvas/indy/internal/llm"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatResume bool

var chatCmd = &cobra.Command{
	Use:   "chat <site> <entry> | chat /edit/<site>/<entry>",
	Short: "Edit an entry interactively",
	Long: `Start an editing session against one CMS entry.

Each line is sent to the assistant, which may add, update or delete a block,
or save the page. Unsaved changes are kept in a local snapshot; pass --resume
to continue from it instead of reloading the entry from the CMS.

Commands:
  /blocks        list the current blocks
  /select <n>    select block n for the following requests
  /select        clear the selection
  /usage         show shared LLM usage (Redis rate limiter only)
  /help          show this help
  /quit          leave without saving`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatResume, "resume", false, "resume from the last unsaved snapshot")
}

func runChat(cmd *cobra.Command, args []string) error {
	site, entry, err := chatTarget(args)
	if err != nil {
		return err
	}
	resolveOpenAIKey()
	if err := cfg.RequireValid(config.ValidationContextChat); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAssistant(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	client := cms.NewClient(cfg.CMS)

	var snaps *blockstore.BoltSnapshots
	if err := os.MkdirAll(filepath.Dir(cfg.Indy.SnapshotPath), 0755); err == nil {
		snaps, err = blockstore.OpenBoltSnapshots(cfg.Indy.SnapshotPath)
		if err != nil {
			logger.WithError(err).Warn("Snapshots disabled")
		}
	}
	if snaps != nil {
		defer snaps.Close()
	}

	repl := &chatREPL{
		site:       site,
		entry:      entry,
		sessions:   blockstore.NewSessions(&resumeLoader{cms: client, snaps: snaps, resume: chatResume}),
		dispatcher: a.dispatcher(client),
		tokens:     a.tokens,
		usage:      a.usage,
		out:        cmd.OutOrStdout(),
	}
	if snaps != nil {
		repl.snaps = snaps
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		repl.interactive = true
	}
	return repl.Run(ctx, cmd.InOrStdin())
}

func chatTarget(args []string) (string, string, error) {
	if len(args) == 2 {
		if args[0] == "" || args[1] == "" {
			return "", "", errors.ValidationError("site and entry are required")
		}
		return args[0], args[1], nil
	}
	site, entry, ok := cms.ParseEditPath(args[0])
	if !ok {
		return "", "", errors.ValidationErrorf("not an editor path: %q (expected /edit/<site>/<entry>)", args[0])
	}
	return site, entry, nil
}

func snapshotKey(site, entry string) string {
	return site + "/" + entry
}

// resumeLoader loads an entry from its snapshot when resuming, otherwise
// from the CMS.
type resumeLoader struct {
	cms    blockstore.Loader
	snaps  *blockstore.BoltSnapshots
	resume bool
}

func (l *resumeLoader) LoadBlocks(ctx context.Context, site, entry string) ([]blockstore.Block, error) {
	if l.resume && l.snaps != nil {
		snap, err := l.snaps.Load(snapshotKey(site, entry))
		if err == nil {
			logger.WithField("saved_at", snap.SavedAt).Info("Resuming from snapshot")
			return snap.Blocks, nil
		}
		if !errors.IsNotFound(err) {
			logger.WithError(err).Warn("Failed to read snapshot, loading from CMS")
		}
	}
	return l.cms.LoadBlocks(ctx, site, entry)
}

type snapshotter interface {
	Save(key string, blocks []blockstore.Block) error
	Delete(key string) error
}

// chatREPL reads one request per line and runs it against a single entry.
type chatREPL struct {
	site, entry string
	sessions    *blockstore.Sessions
	dispatcher  *indy.Dispatcher
	snaps       snapshotter
	tokens      schema.DesignTokens
	usage       llm.UsageReporter
	out         io.Writer
	interactive bool

	selected *int
}

func (r *chatREPL) Run(ctx context.Context, in io.Reader) error {
	if r.interactive {
		fmt.Fprintf(r.out, "Editing %s/%s. Type /help for commands.\n", r.site, r.entry)
	}

	scanner := bufio.NewScanner(in)
	for {
		if r.interactive {
			fmt.Fprint(r.out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				fmt.Fprintln(r.out, err)
			}
			if quit {
				return nil
			}
			continue
		}
		if err := r.turn(ctx, line); err != nil {
			return err
		}
	}
}

func (r *chatREPL) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(r.out, "Commands: /blocks, /select <n>, /select, /usage, /help, /quit")
	case "/usage":
		if r.usage == nil {
			fmt.Fprintln(r.out, "Usage is only tracked when a Redis rate limiter is configured.")
			return false, nil
		}
		rpm, tpm, rpd, err := r.usage.GetCurrentUsage(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "This minute: %d requests, %d tokens. Today: %d requests.\n", rpm, tpm, rpd)
	case "/blocks":
		return false, r.sessions.With(ctx, r.site, r.entry, func(st blockstore.Store) error {
			r.printBlocks(st.List())
			return nil
		})
	case "/select":
		if len(fields) == 1 {
			r.selected = nil
			fmt.Fprintln(r.out, "Selection cleared.")
			return false, nil
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, errors.ValidationErrorf("not a block index: %q", fields[1])
		}
		return false, r.sessions.With(ctx, r.site, r.entry, func(st blockstore.Store) error {
			b, err := st.Get(n)
			if err != nil {
				return err
			}
			r.selected = &n
			fmt.Fprintf(r.out, "Selected the %s block at position %d.\n", b.BlockType, n)
			return nil
		})
	default:
		return false, errors.ValidationErrorf("unknown command %s", fields[0])
	}
	return false, nil
}

// turn runs one request. Only a failed load is returned; assistant failures
// are already user messages.
func (r *chatREPL) turn(ctx context.Context, input string) error {
	var (
		resp   indy.Response
		blocks []blockstore.Block
	)
	err := r.sessions.With(ctx, r.site, r.entry, func(st blockstore.Store) error {
		resp = r.dispatcher.Handle(ctx, indy.Request{
			Store:         st,
			UserInput:     input,
			SelectedIndex: r.selected,
			PagePath:      "/edit/" + r.site + "/" + r.entry,
			Tokens:        r.tokens,
		})
		blocks = st.List()
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out, resp.Message)

	if resp.Outcome != nil && resp.Outcome.Kind == blockstore.KindRemoveBlock && r.selected != nil {
		// indices shifted
		r.selected = nil
	}
	if r.snaps == nil {
		return nil
	}
	key := snapshotKey(r.site, r.entry)
	switch {
	case resp.Saved:
		if err := r.snaps.Delete(key); err != nil {
			logger.WithError(err).Warn("Failed to drop snapshot")
		}
	case resp.Outcome != nil:
		if err := r.snaps.Save(key, blocks); err != nil {
			logger.WithError(err).Warn("Failed to save snapshot")
		}
	}
	return nil
}

func (r *chatREPL) printBlocks(blocks []blockstore.Block) {
	if len(blocks) == 0 {
		fmt.Fprintln(r.out, "The page has no blocks.")
		return
	}
	for i, b := range blocks {
		marker := " "
		if r.selected != nil && *r.selected == i {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %2d  %-14s %s\n", marker, i, b.BlockType, b.ID)
	}
}
