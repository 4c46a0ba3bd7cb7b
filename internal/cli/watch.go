package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memvra/docbot/internal/agent"
	"github.com/memvra/docbot/internal/scanner"
)

func newWatchCmd() *cobra.Command {
	var (
		debounceMs int
		initial    bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a folder and keep memory in sync with it",
		Long: `Start a long-running watcher on <dir>. New or changed files with a
supported type are ingested, and files removed from <dir> are deleted from
the workspace and from memory.

Changes are debounced so that a burst of writes (a download finishing, a
sync client catching up) is handled in one pass.

Press Ctrl-C to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()

			ignore := scanner.NewIgnoreMatcher(root)
			if err := addWatchDirs(watcher, root, ignore); err != nil {
				return fmt.Errorf("add watch directories: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			t := newTracker(a.agent, root, a.logger)
			if initial {
				batch := make(map[string]fsnotify.Op)
				for _, c := range scanner.Scan(scanner.ScanOptions{Root: root}).Files {
					batch[c.Rel] = fsnotify.Create
				}
				t.process(ctx, batch, os.Stdout)
			}

			debounce := time.Duration(debounceMs) * time.Millisecond
			fmt.Printf("Watching %s for changes (debounce %s). Press Ctrl-C to stop.\n", root, debounce)

			pending := make(map[string]fsnotify.Op)
			timer := time.NewTimer(debounce)
			timer.Stop()

			for {
				select {
				case <-ctx.Done():
					fmt.Println("\nStopping watcher.")
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					rel, err := filepath.Rel(root, event.Name)
					if err != nil || rel == "." {
						continue
					}
					if shouldIgnoreEvent(rel, ignore) {
						continue
					}

					if event.Has(fsnotify.Create) {
						if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
							if !scanner.HardIgnore(filepath.Base(event.Name)) {
								_ = addWatchDirs(watcher, event.Name, ignore)
							}
							continue
						}
					}
					if !scanner.Check(rel, ignore) {
						continue
					}

					pending[rel] |= event.Op
					timer.Reset(debounce)

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintf(os.Stderr, "  watch error: %v\n", err)

				case <-timer.C:
					if len(pending) == 0 {
						continue
					}
					batch := pending
					pending = make(map[string]fsnotify.Op)
					t.process(ctx, batch, os.Stdout)
				}
			}
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "debounce interval in milliseconds")
	cmd.Flags().BoolVar(&initial, "initial", false, "ingest files already in <dir> before watching")

	return cmd
}

// addWatchDirs recursively adds directories to the watcher, skipping ignored ones.
func addWatchDirs(watcher *fsnotify.Watcher, root string, ignore *scanner.IgnoreMatcher) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if scanner.HardIgnore(d.Name()) {
			return filepath.SkipDir
		}
		rel, _ := filepath.Rel(root, path)
		if rel != "." && ignore.Match(rel+"/") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// shouldIgnoreEvent checks whether a relative path should be ignored by the watcher.
func shouldIgnoreEvent(rel string, ignore *scanner.IgnoreMatcher) bool {
	for _, p := range strings.Split(rel, string(filepath.Separator)) {
		if scanner.HardIgnore(p) {
			return true
		}
	}
	return ignore.Match(rel)
}

// syncer is the part of the agent the watcher drives.
type syncer interface {
	Import(ctx context.Context, src string) agent.IngestResult
	Delete(ctx context.Context, name string) agent.DeleteResult
}

// tracker remembers what each watched path was stored as, so edits
// replace the old records and removals delete the right name.
type tracker struct {
	sync   syncer
	root   string
	logger *zap.Logger
	hashes map[string]string // rel -> content hash last ingested
	names  map[string]string // rel -> stored name (images may be renamed)
}

func newTracker(s syncer, root string, logger *zap.Logger) *tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &tracker{
		sync:   s,
		root:   root,
		logger: logger.Named("watch"),
		hashes: make(map[string]string),
		names:  make(map[string]string),
	}
}

// process applies one debounced batch and prints a one-line summary.
func (t *tracker) process(ctx context.Context, batch map[string]fsnotify.Op, out io.Writer) (added, modified, deleted int) {
	rels := make([]string, 0, len(batch))
	for rel := range batch {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	for _, rel := range rels {
		abs := filepath.Join(t.root, rel)
		name, known := t.names[rel]
		if !known {
			name = filepath.Base(rel)
		}

		if _, err := os.Stat(abs); os.IsNotExist(err) {
			res := t.sync.Delete(ctx, name)
			if err := res.Err(); err != nil {
				t.logger.Warn("delete", zap.String("name", name), zap.Error(err))
			}
			if res.Found() {
				deleted++
			}
			delete(t.hashes, rel)
			delete(t.names, rel)
			continue
		}

		hash, err := scanner.HashFile(abs)
		if err != nil {
			t.logger.Warn("hash", zap.String("path", rel), zap.Error(err))
			continue
		}
		if t.hashes[rel] == hash {
			continue
		}
		if known {
			t.sync.Delete(ctx, name)
		}

		res := t.sync.Import(ctx, abs)
		if res.Err != nil {
			fmt.Fprintf(out, "  %s: %s\n", rel, res.Message)
			continue
		}
		t.hashes[rel] = hash
		t.names[rel] = res.Name
		if known {
			modified++
		} else {
			added++
		}
	}

	if added+modified+deleted > 0 {
		fmt.Fprintf(out, "[%s] +%d ~%d -%d\n", time.Now().Format("15:04:05"), added, modified, deleted)
	}
	return added, modified, deleted
}
