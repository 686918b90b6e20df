package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"lvc-go/internal/config"
	"lvc-go/internal/database"
	lvcfs "lvc-go/internal/fs"
	"lvc-go/internal/index"
	"lvc-go/internal/lvc"
	"lvc-go/internal/objects"
	"lvc-go/internal/snapshot"
	"lvc-go/internal/workflow"

	"github.com/google/uuid"
)

// Options controls how an App is opened.
type Options struct {
	// Operation names the CLI command being run (e.g. "commit", "gc").
	Operation string
	// Parameters is recorded with the operation in the journal.
	Parameters string
	// Verbose copies log output to stderr.
	Verbose bool
	// Out receives workflow command output and notifications. Defaults to os.Stdout.
	Out io.Writer
	// Clock overrides the wall clock. Defaults to lvc.RealClock.
	Clock lvc.Clock
}

// App is the application layer between the CLI and the Repository.
// It constructs all dependencies from the repository config, exposes the
// high-level operations the CLI needs, and manages the journal, lock and
// log lifecycle on Close.
type App struct {
	root    string
	metaDir string
	cfg     *config.Config
	repo    *lvc.Repository
	fsmgr   lvc.FilesystemManager
	journal lvc.Journal
	wfStore *workflow.Store
	runner  *workflow.Runner
	clock   lvc.Clock
	logger  lvc.Logger
	out     io.Writer
	op      *Operation
	lock    *lvcfs.Lock
	logFile *os.File
}

var _ workflow.Host = (*App)(nil)

// Init creates a new repository at path: the metadata layout, a default
// config and ignore file, and an "Initial commit" snapshot of whatever is
// already there. The returned App must be closed by the caller.
func Init(path string, opts Options) (*App, *lvc.CommitResult, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving path: %w", err)
	}
	meta := filepath.Join(root, lvc.MetadataDirName)
	if _, err := os.Stat(meta); err == nil {
		return nil, nil, fmt.Errorf("repository already initialized at %s", root)
	}

	for _, dir := range []string{meta, filepath.Join(meta, "objects"), filepath.Join(meta, "snapshots"),
		filepath.Join(meta, "logs"), filepath.Join(meta, "workflows")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	if err := config.Init(filepath.Join(meta, "config.toml"), config.NewConfig(uuid.New().String())); err != nil {
		return nil, nil, fmt.Errorf("writing config: %w", err)
	}
	if err := lvcfs.WriteFileAtomic(filepath.Join(meta, "ignore"), []byte(lvcfs.DefaultIgnoreContent), 0644); err != nil {
		return nil, nil, fmt.Errorf("writing ignore file: %w", err)
	}

	if opts.Operation == "" {
		opts.Operation = "init"
	}
	a, err := Open(root, opts)
	if err != nil {
		return nil, nil, err
	}
	res, err := a.Commit("Initial commit")
	if err != nil {
		a.Fail(err)
		a.Close()
		return nil, nil, err
	}
	return a, res, nil
}

// Open finds the repository containing start and wires an App for it.
// The caller must call Close when done.
func Open(start string, opts Options) (*App, error) {
	root, err := lvc.FindRoot(start)
	if err != nil {
		return nil, err
	}
	meta := filepath.Join(root, lvc.MetadataDirName)
	cfgPath := filepath.Join(meta, "config.toml")

	cfg, err := config.ReadFromFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	levelName := cfg.Log.Level
	if env := os.Getenv("LVC_LOG_LEVEL"); env != "" {
		levelName = env
	}
	level, err := parseLevel(levelName)
	if err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = lvc.RealClock{}
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	opID := clock.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(filepath.Join(meta, "logs"), opID, level, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a, err := build(root, cfg, logger, clock, out)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	a.logFile = logFile
	a.op = NewOperation(opts.Operation, opts.Parameters)
	return a, nil
}

func build(root string, cfg *config.Config, logger lvc.Logger, clock lvc.Clock, out io.Writer) (*App, error) {
	meta := filepath.Join(root, lvc.MetadataDirName)

	patterns, err := lvcfs.ParseIgnoreFile(filepath.Join(meta, "ignore"))
	if err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	if patterns == nil {
		patterns = lvcfs.DefaultPatterns()
	}
	fsmgr := lvcfs.NewOSFilesystemManager(patterns)

	store, err := objects.NewObjectStoreFromConfig(cfg.Compression, filepath.Join(meta, "objects"))
	if err != nil {
		return nil, fmt.Errorf("creating object store: %w", err)
	}

	snaps, err := snapshot.NewFileStore(filepath.Join(meta, "snapshots"))
	if err != nil {
		return nil, fmt.Errorf("creating snapshot store: %w", err)
	}

	journal, err := database.NewJournalFromConfig(cfg.Journal, meta)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if sj, ok := journal.(*database.SQLiteJournal); ok {
		if sc := sj.Schema(); sc != nil && sc.Applied {
			logger.Debug("journal migrated", "from", sc.From, "to", sc.To)
		}
	}

	policy := lvc.Policy{
		MaxFileSize:   cfg.MaxFileSizeBytes(),
		AutoGC:        cfg.GC.AutoEnabled,
		KeepDays:      cfg.GC.KeepDays,
		KeepSnapshots: cfg.GC.KeepSnapshots,
	}
	repo := lvc.NewRepository(root, store, fsmgr,
		index.NewFileStore(filepath.Join(meta, "index.json")),
		snaps,
		snapshot.NewHistoryFile(filepath.Join(meta, "history.log"), logger),
		policy, logger, clock, snapshot.HashIDGenerator{})

	a := &App{
		root:    root,
		metaDir: meta,
		cfg:     cfg,
		repo:    repo,
		fsmgr:   fsmgr,
		journal: journal,
		wfStore: workflow.NewStore(filepath.Join(meta, "workflows")),
		clock:   clock,
		logger:  logger,
		out:     out,
	}
	a.runner = workflow.NewRunner(a.wfStore, a, logger, out)
	return a, nil
}

// Root returns the repository root.
func (a *App) Root() string {
	return a.root
}

// Config returns the loaded repository config.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Repository returns the underlying repository.
func (a *App) Repository() *lvc.Repository {
	return a.repo
}

func (a *App) configPath() string {
	return filepath.Join(a.metaDir, "config.toml")
}

// begin takes the writer lock and persists the operation to the journal,
// giving it an ID. It is only called by mutating operations.
func (a *App) begin() error {
	if a.lock == nil {
		lock, err := lvcfs.AcquireLock(filepath.Join(a.metaDir, "lock"))
		if err != nil {
			return err
		}
		a.lock = lock
	}
	if a.op.Persisted() {
		return nil
	}
	rec, err := a.journal.CreateOperation(a.op.Name, a.op.Parameters, a.clock.Now())
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = rec.ID
	a.logger.Info("operation started", "operation", a.op.Name, "id", a.op.ID)
	return nil
}

// Fail marks the current operation as failed.
func (a *App) Fail(err error) {
	a.op.Status = "error"
	a.logger.Error("operation failed", "operation", a.op.Name, "error", err)
}

// Commit snapshots the working tree and fires on_commit workflows.
func (a *App) Commit(message string) (*lvc.CommitResult, error) {
	if err := a.begin(); err != nil {
		return nil, err
	}
	res, err := a.CreateSnapshot(message)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0, len(res.Changes.Added)+len(res.Changes.Modified)+len(res.Changes.Deleted))
	changed = append(changed, res.Changes.Added...)
	changed = append(changed, res.Changes.Modified...)
	changed = append(changed, res.Changes.Deleted...)
	a.dispatch(&workflow.Context{
		Event:        workflow.EventCommit,
		SnapshotID:   res.SnapshotID,
		Message:      message,
		ChangedFiles: changed,
	})
	return res, nil
}

// CreateSnapshot commits without firing workflows. Workflow steps call it.
func (a *App) CreateSnapshot(message string) (*lvc.CommitResult, error) {
	res, err := a.repo.CreateSnapshot(message)
	if err != nil {
		return nil, err
	}
	if res.AutoGC != nil {
		a.recordGC(res.AutoGC, false)
	}
	return res, nil
}

// dispatch runs triggered workflows. Workflow failures are logged and
// reported but do not fail the command that fired them.
func (a *App) dispatch(ev *workflow.Context) {
	if _, err := a.runner.Dispatch(context.Background(), ev); err != nil {
		a.logger.Warn("workflow failed", "event", ev.Event, "error", err)
		fmt.Fprintf(a.out, "warning: %v\n", err)
	}
}

// History returns history entries, newest first. Pruned entries are only
// included when all is set.
func (a *App) History(all bool) ([]*lvc.HistoryEntry, error) {
	if all {
		return a.repo.ListHistory()
	}
	return a.repo.LiveHistory()
}

// Status reports uncommitted changes against the index.
func (a *App) Status() (*lvc.Changes, error) {
	return a.repo.ScanAndDiff()
}

// ResolveRef turns a snapshot id, tag name or sequence number into a snapshot id.
func (a *App) ResolveRef(ref string) (string, error) {
	return a.repo.ResolveRef(ref, a.cfg.Tags)
}

// Rollback brings back the snapshot named by ref.
func (a *App) Rollback(ref string, opts lvc.RollbackOptions) (*lvc.RollbackResult, error) {
	if err := a.begin(); err != nil {
		return nil, err
	}
	id, err := a.ResolveRef(ref)
	if err != nil {
		return nil, err
	}
	return a.repo.Rollback(id, opts)
}

// Tag points name at the snapshot named by ref and fires on_tag workflows.
func (a *App) Tag(name, ref string) (string, error) {
	if err := a.begin(); err != nil {
		return "", err
	}
	id, err := a.ResolveRef(ref)
	if err != nil {
		return "", err
	}
	if err := a.cfg.SetTag(name, id); err != nil {
		return "", err
	}
	if err := config.Save(a.configPath(), a.cfg); err != nil {
		return "", fmt.Errorf("saving config: %w", err)
	}
	a.logger.Info("tagged snapshot", "tag", name, "snapshot", id)

	snap, err := a.repo.LoadSnapshot(id)
	if err != nil {
		return "", err
	}
	a.dispatch(&workflow.Context{
		Event:      workflow.EventTag,
		SnapshotID: id,
		Message:    snap.Message,
		Tag:        name,
	})
	return id, nil
}

// Tags returns a copy of the tag table.
func (a *App) Tags() map[string]string {
	tags := make(map[string]string, len(a.cfg.Tags))
	for k, v := range a.cfg.Tags {
		tags[k] = v
	}
	return tags
}

// IgnoreFile returns the path of the ignore file and the active patterns.
func (a *App) IgnoreFile() (string, []string, error) {
	p := filepath.Join(a.metaDir, "ignore")
	patterns, err := lvcfs.ParseIgnoreFile(p)
	if err != nil {
		return "", nil, err
	}
	if patterns == nil {
		patterns = lvcfs.DefaultPatterns()
	}
	return p, patterns, nil
}

// ConfigGet returns one config value.
func (a *App) ConfigGet(key string) (string, error) {
	return a.cfg.Get(key)
}

// ConfigSet validates and persists one config value.
func (a *App) ConfigSet(key, value string) error {
	if err := a.begin(); err != nil {
		return err
	}
	if err := a.cfg.Set(key, value); err != nil {
		return err
	}
	if err := config.Save(a.configPath(), a.cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	a.logger.Info("config updated", "key", key, "value", value)
	return nil
}

// ConfigPath returns the path of the repository config file.
func (a *App) ConfigPath() string {
	return a.configPath()
}

// GC runs a collection pass and records it in the journal.
func (a *App) GC(opts lvc.GCOptions) (*lvc.GCReport, error) {
	if err := a.begin(); err != nil {
		return nil, err
	}
	report, err := a.repo.RunGC(opts)
	if err != nil {
		return nil, err
	}
	a.recordGC(report, opts.Aggressive)
	return report, nil
}

// RunGC is the workflow entry point for run_gc steps.
func (a *App) RunGC(aggressive bool) (*lvc.GCReport, error) {
	return a.GC(lvc.GCOptions{Aggressive: aggressive})
}

func (a *App) recordGC(report *lvc.GCReport, aggressive bool) {
	if !a.op.Persisted() {
		return
	}
	if err := a.journal.RecordGC(a.op.ID, report, aggressive, a.clock.Now()); err != nil {
		a.logger.Warn("recording gc run", "error", err)
	}
}

// Stats gathers repository statistics. Timeline days use the local
// timezone when use_local_timezone is set, UTC otherwise.
func (a *App) Stats() (*lvc.Stats, error) {
	loc := time.UTC
	if a.cfg.UseLocalTimezone {
		loc = time.Local
	}
	return a.repo.Stats(loc)
}

// Verify checks objects and snapshots for corruption.
func (a *App) Verify() (*lvc.VerifyReport, error) {
	return a.repo.Verify()
}

// Operations returns the most recent journal entries, newest first.
func (a *App) Operations(limit int) ([]*lvc.OperationRecord, error) {
	return a.journal.ListOperations(limit)
}

// GCRuns returns the most recent recorded collections, newest first.
func (a *App) GCRuns(limit int) ([]*lvc.GCRunRecord, error) {
	return a.journal.ListGCRuns(limit)
}

// Workflows lists the defined workflows.
func (a *App) Workflows() ([]*workflow.Workflow, error) {
	return a.wfStore.List()
}

// RunWorkflow runs one workflow by name as a manual event against the newest snapshot.
func (a *App) RunWorkflow(ctx context.Context, name string) (*workflow.RunResult, error) {
	if err := a.begin(); err != nil {
		return nil, err
	}
	ev := &workflow.Context{Event: workflow.EventManual}
	latest, err := a.repo.Latest()
	if err != nil {
		return nil, err
	}
	if latest != nil {
		ev.SnapshotID = latest.SnapshotID
		ev.Message = latest.Message
	}
	return a.runner.Run(ctx, name, ev)
}

// Notify is the workflow entry point for notify steps.
func (a *App) Notify(message string) {
	a.logger.Info("notify", "message", message)
	fmt.Fprintln(a.out, message)
}

// Close finalizes the operation and releases all resources.
// For persisted operations the journal record is finished with the final status.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.journal.FinishOperation(a.op.ID, a.op.Status, a.clock.Now()); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
		a.logger.Info("operation finished", "operation", a.op.Name, "status", a.op.Status)
	}

	if err := a.journal.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing journal: %w", err)
	}

	if a.lock != nil {
		if err := a.lock.Release(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("releasing lock: %w", err)
		}
		a.lock = nil
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
