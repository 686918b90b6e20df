package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"lvc-go/internal/app"
	"lvc-go/internal/config"
	"lvc-go/internal/export"
	"lvc-go/internal/lvc"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// appOptions builds app.Options for the running command.
func appOptions(cmd *cobra.Command, operation string, args []string) app.Options {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return app.Options{
		Operation:  operation,
		Parameters: strings.Join(args, " "),
		Verbose:    verbose,
		Out:        cmd.OutOrStdout(),
	}
}

// withApp opens the repository containing the start directory, runs fn and
// closes the App, marking the operation failed when fn returns an error.
// operation identifies the CLI command being run (e.g. "commit", "gc").
func withApp(cmd *cobra.Command, operation string, args []string, fn func(a *app.App) error) error {
	defaults, err := app.GetDefaults()
	if err != nil {
		return fmt.Errorf("getting defaults: %w", err)
	}

	a, err := app.Open(defaults["start_dir"], appOptions(cmd, operation, args))
	if err != nil {
		return err
	}

	err = fn(a)
	if err != nil {
		a.Fail(err)
	}
	if cerr := a.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return err
}

// wantJSON reports whether output should be JSON: either --json was given
// or output_format is "json".
func wantJSON(cmd *cobra.Command, a *app.App) bool {
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("json")
		return v
	}
	return a.Config().OutputFormat == "json"
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// displayTime formats t in local time when use_local_timezone is set.
func displayTime(a *app.App, t time.Time) string {
	if a.Config().UseLocalTimezone {
		t = t.Local()
	}
	return t.Format("2006-01-02 15:04:05")
}

// runEditor opens path in the configured editor.
func runEditor(a *app.App, path string) error {
	fields := strings.Fields(a.Config().Editor)
	if len(fields) == 0 {
		return errors.New("no editor configured (set editor)")
	}
	c := exec.Command(fields[0], append(fields[1:], path)...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("running editor: %w", err)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:          "lvc",
	Short:        "Local snapshot version control",
	SilenceUsage: true,
}

// init command
var initCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Create a repository and take an initial snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "."
		if len(args) > 0 {
			target = args[0]
		}

		a, res, err := app.Init(target, appOptions(cmd, "init", args))
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Initialized lvc repository in %s\n", a.Root())
		fmt.Printf("Initial commit %s (%d file(s))\n", idStyle.Render(res.SnapshotID), res.Added)
		printSkipped(res.Skipped)
		return nil
	},
}

// commit command
var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Snapshot the working tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")

		return withApp(cmd, "commit", []string{message}, func(a *app.App) error {
			res, err := a.Commit(message)
			if err != nil {
				return err
			}
			if wantJSON(cmd, a) {
				return printJSON(res)
			}

			fmt.Printf("[%d %s] %s\n", res.SequenceNumber, idStyle.Render(res.SnapshotID), res.Message)
			fmt.Printf("  %s\n", counts(res.Added, res.Modified, res.Deleted))
			printSkipped(res.Skipped)
			if res.AutoGC != nil {
				fmt.Println(mutedStyle.Render(fmt.Sprintf("  auto gc: removed %d object(s), freed %s",
					res.AutoGC.RemovedObjects, bytesOf(res.AutoGC.FreedBytes))))
			}
			return nil
		})
	},
}

func printSkipped(skipped []lvc.SkippedFile) {
	for _, s := range skipped {
		fmt.Println(warnStyle.Render(fmt.Sprintf("  skipped %s (%s, %s)", s.Path, bytesOf(s.Size), s.Reason)))
	}
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		return withApp(cmd, "history", args, func(a *app.App) error {
			entries, err := a.History(all)
			if err != nil {
				return err
			}
			if wantJSON(cmd, a) {
				return printJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No snapshots.")
				return nil
			}

			tagsByID := map[string][]string{}
			for name, id := range a.Tags() {
				tagsByID[id] = append(tagsByID[id], name)
			}

			for _, e := range entries {
				line := fmt.Sprintf("#%-4d %s  %s  %s  %s",
					e.SequenceNumber,
					idStyle.Render(e.SnapshotID),
					displayTime(a, e.Timestamp),
					counts(e.Added, e.Modified, e.Deleted),
					e.Message,
				)
				if names := tagsByID[e.SnapshotID]; len(names) > 0 {
					sort.Strings(names)
					line += " " + tagStyle.Render("("+strings.Join(names, ", ")+")")
				}
				if e.Pruned {
					line = mutedStyle.Render(fmt.Sprintf("#%-4d %s  %s  (pruned)  %s",
						e.SequenceNumber, e.SnapshotID, displayTime(a, e.Timestamp), e.Message))
				}
				fmt.Println(line)
			}
			return nil
		})
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show changes since the last commit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "status", args, func(a *app.App) error {
			changes, err := a.Status()
			if err != nil {
				return err
			}
			if wantJSON(cmd, a) {
				return printJSON(changes)
			}
			if changes.Empty() {
				fmt.Println("Nothing to commit, working tree clean.")
				return nil
			}
			fmt.Println(titleStyle.Render("Changes since last commit:"))
			printChanges(changes)
			return nil
		})
	},
}

// diff command
var diffCmd = &cobra.Command{
	Use:   "diff [REF] [REF]",
	Short: "Compare snapshots or a snapshot and the working tree",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, _ := cmd.Flags().GetBool("patch")

		var from, to string
		if len(args) > 0 {
			from = args[0]
		}
		if len(args) > 1 {
			to = args[1]
		}

		return withApp(cmd, "diff", args, func(a *app.App) error {
			res, err := a.Diff(from, to, patch)
			if err != nil {
				return err
			}
			if wantJSON(cmd, a) {
				return printJSON(res)
			}

			fmt.Println(titleStyle.Render(fmt.Sprintf("%s..%s", res.From, res.To)))
			if res.Changes.Empty() {
				fmt.Println("No differences.")
				return nil
			}
			if !patch {
				printChanges(res.Changes)
				return nil
			}
			for _, p := range res.Patches {
				fmt.Print(colorPatch(p.Patch))
			}
			return nil
		})
	},
}

// rollback command
var rollbackCmd = &cobra.Command{
	Use:   "rollback REF",
	Short: "Export a snapshot, or restore it over the working tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		restore, _ := cmd.Flags().GetBool("restore")
		keepIndex, _ := cmd.Flags().GetBool("keep-index")

		return withApp(cmd, "rollback", args, func(a *app.App) error {
			res, err := a.Rollback(args[0], lvc.RollbackOptions{Restore: restore, KeepIndex: keepIndex})
			if err != nil {
				return err
			}
			if res.Restored {
				fmt.Printf("Restored %s: %d file(s) written\n", idStyle.Render(res.SnapshotID), res.FilesWritten)
				fmt.Printf("Previous working files (%d) saved to %s\n", res.FilesBackedUp, res.BackupDir)
				return nil
			}
			fmt.Printf("Exported %s: %d file(s) to %s\n", idStyle.Render(res.SnapshotID), res.FilesWritten, res.BackupDir)
			return nil
		})
	},
}

// tag command
var tagCmd = &cobra.Command{
	Use:   "tag [NAME REF]",
	Short: "Name a snapshot, or list tags",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return withApp(cmd, "tag", args, func(a *app.App) error {
				tags := a.Tags()
				names := make([]string, 0, len(tags))
				for name := range tags {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Printf("%s\t%s\n", tagStyle.Render(name), tags[name])
				}
				return nil
			})
		}

		return withApp(cmd, "tag", args, func(a *app.App) error {
			id, err := a.Tag(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Tagged %s as %s\n", idStyle.Render(id), tagStyle.Render(args[0]))
			return nil
		})
	},
}

// ignore command
var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Show the ignore rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ignore", args, showIgnore)
	},
}

var ignoreShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the ignore rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ignore show", args, showIgnore)
	},
}

var ignoreEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the ignore file in the configured editor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ignore edit", args, func(a *app.App) error {
			path, _, err := a.IgnoreFile()
			if err != nil {
				return err
			}
			return runEditor(a, path)
		})
	},
}

func showIgnore(a *app.App) error {
	path, patterns, err := a.IgnoreFile()
	if err != nil {
		return err
	}
	fmt.Println(mutedStyle.Render("# " + path))
	for _, p := range patterns {
		fmt.Println(p)
	}
	return nil
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage repository configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "config get", args, func(a *app.App) error {
			v, err := a.ConfigGet(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "config set", args, func(a *app.App) error {
			if err := a.ConfigSet(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", args[0], args[1])
			return nil
		})
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "config list", args, func(a *app.App) error {
			fmt.Printf("Configuration from %s:\n\n", a.ConfigPath())
			for _, k := range config.Keys() {
				v, err := a.ConfigGet(k)
				if err != nil {
					return err
				}
				fmt.Printf("%-20s %s\n", k, v)
			}
			tags := a.Tags()
			names := make([]string, 0, len(tags))
			for name := range tags {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("%-20s %s\n", "tag."+name, tags[name])
			}
			return nil
		})
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the config file in the configured editor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "config edit", args, func(a *app.App) error {
			if err := runEditor(a, a.ConfigPath()); err != nil {
				return err
			}
			if _, err := config.ReadFromFile(a.ConfigPath()); err != nil {
				return fmt.Errorf("config no longer valid: %w", err)
			}
			return nil
		})
	},
}

// gc command
var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove unreferenced objects and expired snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		aggressive, _ := cmd.Flags().GetBool("aggressive")
		pruneExpired, _ := cmd.Flags().GetBool("prune-expired")

		return withApp(cmd, "gc", args, func(a *app.App) error {
			report, err := a.GC(lvc.GCOptions{DryRun: dryRun, Aggressive: aggressive, PruneExpired: pruneExpired})
			if err != nil {
				return err
			}
			if wantJSON(cmd, a) {
				return printJSON(report)
			}
			printGCReport(report)
			return nil
		})
	},
}

func printGCReport(r *lvc.GCReport) {
	if r.DryRun {
		fmt.Println(titleStyle.Render("Garbage collection (dry run)"))
	} else {
		fmt.Println(titleStyle.Render("Garbage collection"))
	}
	fmt.Printf("  snapshots scanned:   %d\n", r.SnapshotsScanned)
	fmt.Printf("  objects stored:      %d (%d referenced)\n", r.StoredObjects, r.ReferencedObjects)
	if r.DryRun {
		var total int64
		for _, o := range r.Unreferenced {
			total += o.Size
		}
		fmt.Printf("  would remove:        %d object(s), %s\n", len(r.Unreferenced), bytesOf(total))
	} else {
		fmt.Printf("  removed:             %d object(s), %s\n", r.RemovedObjects, bytesOf(r.FreedBytes))
	}
	if len(r.PrunedSnapshots) > 0 {
		fmt.Printf("  pruned snapshots:    %s\n", strings.Join(r.PrunedSnapshots, ", "))
	}
	if r.RecompressedObjects > 0 {
		fmt.Printf("  recompressed:        %d object(s), saved %s\n", r.RecompressedObjects, bytesOf(r.RecompressSavedBytes))
	}
	if r.Fragments != nil {
		fmt.Printf("  fragments:           %d file(s), %s, %d empty dir(s)\n",
			len(r.Fragments.Fragments), bytesOf(r.Fragments.FreedBytes), r.Fragments.EmptyDirsRemoved)
	}
	for _, m := range r.MergeCandidates {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("  merge candidate:     %s -> %s (%s)", m.Older, m.Newer, m.Reason)))
	}
	for _, s := range r.Skipped {
		fmt.Println(warnStyle.Render("  skipped: " + s))
	}
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show repository statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "stats", args, func(a *app.App) error {
			s, err := a.Stats()
			if err != nil {
				return err
			}
			if wantJSON(cmd, a) {
				return printJSON(s)
			}

			fmt.Println(titleStyle.Render("Repository"))
			fmt.Printf("  snapshots:     %d (%d pruned)\n", s.Snapshots, s.PrunedSnapshots)
			fmt.Printf("  objects:       %d\n", s.Objects)
			fmt.Printf("  tracked files: %d\n", s.TrackedFiles)
			fmt.Printf("  size:          %s stored, %s original (ratio %.2f)\n",
				bytesOf(s.CompressedBytes), bytesOf(s.OriginalBytes), s.CompressionRatio)

			if len(s.Extensions) > 0 {
				fmt.Println(titleStyle.Render("Extensions"))
				for _, e := range s.Extensions {
					fmt.Printf("  %-10s %5d file(s)  %10s  avg %s\n", e.Extension, e.Count, bytesOf(e.TotalSize), bytesOf(e.AvgSize))
				}
			}
			if len(s.Timeline) > 0 {
				fmt.Println(titleStyle.Render("Timeline"))
				for _, d := range s.Timeline {
					fmt.Printf("  %s  %3d commit(s)  %s file change(s)\n", d.Date, d.Commits, humanize.Comma(int64(d.FilesChanged)))
				}
			}
			return nil
		})
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check objects and snapshots for corruption",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "verify", args, func(a *app.App) error {
			report, err := a.Verify()
			if err != nil {
				return err
			}
			if wantJSON(cmd, a) {
				if err := printJSON(report); err != nil {
					return err
				}
			} else {
				fmt.Printf("Checked %d object(s) and %d snapshot(s)\n", report.ObjectsChecked, report.SnapshotsChecked)
				for _, p := range report.CorruptObjects {
					fmt.Println(errorStyle.Render("  corrupt object: " + p))
				}
				for _, p := range report.BrokenSnapshots {
					fmt.Println(errorStyle.Render("  broken snapshot: " + p))
				}
				for _, p := range report.MissingObjects {
					fmt.Println(errorStyle.Render("  missing object: " + p))
				}
			}
			if !report.Healthy() {
				n := len(report.CorruptObjects) + len(report.BrokenSnapshots) + len(report.MissingObjects)
				return fmt.Errorf("repository has %d problem(s)", n)
			}
			fmt.Println(addedStyle.Render("Repository is healthy."))
			return nil
		})
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export REF FILE",
	Short: "Write a snapshot to a tar.gz archive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")
		recipient, _ := cmd.Flags().GetString("recipient")

		var enc export.Encryptor
		switch {
		case recipient != "":
			e, err := export.NewRecipientEncryptor(recipient)
			if err != nil {
				return err
			}
			enc = e
		case encrypt:
			passphrase, err := readPassphrase()
			if err != nil {
				return err
			}
			e, err := export.NewPassphraseEncryptor(passphrase)
			if err != nil {
				return err
			}
			enc = e
		}

		return withApp(cmd, "export", args, func(a *app.App) error {
			res, err := a.Export(args[0], args[1], enc)
			if err != nil {
				return err
			}
			kind := "archive"
			if res.Encrypted {
				kind = "encrypted archive"
			}
			fmt.Printf("Exported %s (%d file(s)) to %s %s, %s\n",
				idStyle.Render(res.SnapshotID), res.Files, kind, res.Path, bytesOf(res.Bytes))
			return nil
		})
	},
}

// readPassphrase prompts twice on the terminal without echo.
func readPassphrase() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--encrypt needs a terminal for the passphrase prompt; use --recipient instead")
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	fmt.Fprint(os.Stderr, "Confirm passphrase: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passphrases do not match")
	}
	return string(first), nil
}

// ops command
var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "View the operation journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		gcOnly, _ := cmd.Flags().GetBool("gc")

		return withApp(cmd, "ops", args, func(a *app.App) error {
			if gcOnly {
				runs, err := a.GCRuns(limit)
				if err != nil {
					return err
				}
				if wantJSON(cmd, a) {
					return printJSON(runs)
				}
				if len(runs) == 0 {
					fmt.Println("No garbage collections recorded.")
					return nil
				}
				for _, r := range runs {
					mode := "normal"
					switch {
					case r.DryRun:
						mode = "dry-run"
					case r.Aggressive:
						mode = "aggressive"
					}
					fmt.Printf("#%d  op #%d  %s  %-10s  removed %d, freed %s, pruned %d\n",
						r.ID, r.OperationID, displayTime(a, r.RanAt), mode,
						r.RemovedObjects, bytesOf(r.FreedBytes), r.PrunedSnapshots)
				}
				return nil
			}

			ops, err := a.Operations(limit)
			if err != nil {
				return err
			}
			if wantJSON(cmd, a) {
				return printJSON(ops)
			}
			if len(ops) == 0 {
				fmt.Println("No operations recorded.")
				return nil
			}
			for _, op := range ops {
				duration := ""
				if op.FinishedAt != nil {
					duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
				}
				status := op.Status
				if status == "error" {
					status = errorStyle.Render(status)
				}
				fmt.Printf("#%d  %-12s  %s  %-10s  %-8s  %s\n",
					op.ID,
					op.Operation,
					displayTime(a, op.StartedAt),
					status,
					duration,
					mutedStyle.Render(op.Parameters),
				)
			}
			return nil
		})
	},
}

// workflow command
var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Manage automation workflows",
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "workflow list", args, func(a *app.App) error {
			wfs, err := a.Workflows()
			if err != nil {
				return err
			}
			if len(wfs) == 0 {
				fmt.Println("No workflows defined.")
				return nil
			}
			for _, w := range wfs {
				triggers := make([]string, len(w.Triggers))
				for i, t := range w.Triggers {
					triggers[i] = t.Type
				}
				fmt.Printf("%s  [%s]  %d step(s)  %s\n",
					titleStyle.Render(w.Name), strings.Join(triggers, ", "), len(w.Steps), mutedStyle.Render(w.Description))
			}
			return nil
		})
	},
}

var workflowRunCmd = &cobra.Command{
	Use:   "run NAME",
	Short: "Run a workflow now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "workflow run", args, func(a *app.App) error {
			res, err := a.RunWorkflow(cmd.Context(), args[0])
			if res != nil {
				for _, s := range res.Steps {
					if s.Skipped {
						fmt.Println(mutedStyle.Render(fmt.Sprintf("  - %s (%s) skipped", s.Name, s.Action)))
						continue
					}
					fmt.Printf("  ✓ %s (%s) %s\n", s.Name, s.Action, mutedStyle.Render(s.Detail))
				}
			}
			return err
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Also write log output to stderr")

	rootCmd.AddCommand(initCmd)

	rootCmd.AddCommand(commitCmd)
	commitCmd.Flags().StringP("message", "m", "", "Snapshot message")
	commitCmd.MarkFlagRequired("message")
	commitCmd.Flags().Bool("json", false, "Print the result as JSON")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Bool("json", false, "Print history as JSON")
	historyCmd.Flags().Bool("all", false, "Include pruned snapshots")

	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("json", false, "Print changes as JSON")

	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().BoolP("patch", "p", false, "Show line-level patches")
	diffCmd.Flags().Bool("json", false, "Print the diff as JSON")

	rootCmd.AddCommand(rollbackCmd)
	rollbackCmd.Flags().Bool("restore", false, "Replace the working tree instead of exporting")
	rollbackCmd.Flags().Bool("keep-index", false, "Leave the index untouched after --restore")

	rootCmd.AddCommand(tagCmd)

	rootCmd.AddCommand(ignoreCmd)
	ignoreCmd.AddCommand(ignoreShowCmd)
	ignoreCmd.AddCommand(ignoreEditCmd)

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configEditCmd)

	rootCmd.AddCommand(gcCmd)
	gcCmd.Flags().Bool("dry-run", false, "Report what would be removed without removing it")
	gcCmd.Flags().Bool("aggressive", false, "Also recompress objects, clean fragments and report merge candidates")
	gcCmd.Flags().Bool("prune-expired", false, "Delete snapshots outside the retention policy")
	gcCmd.Flags().Bool("json", false, "Print the report as JSON")

	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Bool("json", false, "Print statistics as JSON")

	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().Bool("json", false, "Print the report as JSON")

	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().Bool("encrypt", false, "Encrypt with a passphrase (prompted)")
	exportCmd.Flags().String("recipient", "", "Encrypt to an age recipient or a recipients file")

	rootCmd.AddCommand(opsCmd)
	opsCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to show")
	opsCmd.Flags().Bool("gc", false, "Show garbage collection runs")
	opsCmd.Flags().Bool("json", false, "Print entries as JSON")

	rootCmd.AddCommand(workflowCmd)
	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowRunCmd)
}
