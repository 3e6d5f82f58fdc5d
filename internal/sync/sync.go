package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/klauern/typesync/internal/backup"
	"github.com/klauern/typesync/internal/logging"
	"github.com/klauern/typesync/internal/metadata"
	"github.com/klauern/typesync/internal/mirror"
	"github.com/klauern/typesync/internal/proxy"
	"github.com/klauern/typesync/internal/upstream"
)

// Step names used in errors, logs and progress events.
const (
	StepResolve = "resolve"
	StepFetch   = "fetch"
	StepBackup  = "backup"
	StepMirror  = "mirror"
	StepProxy   = "proxy"
	StepVersion = "version"
)

// VersionResolver picks the upstream ref to sync.
type VersionResolver interface {
	Resolve(ctx context.Context, repo, explicit string) (string, error)
}

// SnapshotFetcher materializes an upstream ref in a temporary directory.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, repo, ref string) (*upstream.Snapshot, error)
}

// Snapshotter archives the destination before it is rewritten.
type Snapshotter interface {
	Snapshot(sourceDir string, opts backup.Options) (string, error)
}

// Config wires the collaborators of a Syncer.
type Config struct {
	Resolver VersionResolver
	Fetcher  SnapshotFetcher
	Mirror   *mirror.Mirror
	Proxies  proxy.Generator
	// ProxyOptions are passed to Proxies.Generate.
	ProxyOptions proxy.Options
	// MetadataFile is the build metadata file whose version is rewritten.
	MetadataFile string
	// Backup is optional; nil disables pre-mirror snapshots.
	Backup Snapshotter
	// Progress is optional.
	Progress ProgressCallback
}

// Options configures one run.
type Options struct {
	// Repository is the upstream git location.
	Repository string
	// Ref is an explicit tag, branch or commit. Empty selects the newest
	// strict semantic-version tag.
	Ref string
	// DryRun resolves and fetches but does not modify the destination.
	DryRun bool
}

// Syncer runs the sync pipeline.
type Syncer struct {
	cfg Config
}

// New returns a Syncer for cfg.
func New(cfg Config) (*Syncer, error) {
	switch {
	case cfg.Resolver == nil:
		return nil, errors.New("sync: resolver is required")
	case cfg.Fetcher == nil:
		return nil, errors.New("sync: fetcher is required")
	case cfg.Mirror == nil:
		return nil, errors.New("sync: mirror is required")
	case cfg.Proxies == nil:
		return nil, errors.New("sync: proxy generator is required")
	case cfg.MetadataFile == "":
		return nil, errors.New("sync: metadata file is required")
	}
	return &Syncer{cfg: cfg}, nil
}

// Run executes the pipeline. The returned Result holds whatever was
// completed, even when err is non-nil.
func (s *Syncer) Run(ctx context.Context, opts Options) (result *Result, err error) {
	log := logging.FromContext(ctx).With(logging.Repo(opts.Repository))
	defer logging.Timer(log, "sync")()

	result = &Result{Repository: opts.Repository, DryRun: opts.DryRun}

	log.Debug("starting sync operation", logging.Operation("sync"), slog.Bool("dry_run", opts.DryRun))

	if err := s.emit(StepResolve, "Resolving upstream ref"); err != nil {
		return result, err
	}
	ref, err := s.cfg.Resolver.Resolve(ctx, opts.Repository, opts.Ref)
	if err != nil {
		return result, stepError(log, StepResolve, err)
	}
	result.Ref = ref
	log.Info("resolved upstream ref", logging.Ref(ref))

	if err := s.emit(StepFetch, "Fetching "+ref); err != nil {
		return result, err
	}
	snap, err := s.cfg.Fetcher.Fetch(ctx, opts.Repository, ref)
	if err != nil {
		return result, stepError(log, StepFetch, err)
	}
	defer func() {
		if cerr := snap.Cleanup(); cerr != nil {
			log.Warn("failed to remove snapshot", logging.Path(snap.Dir), logging.Err(cerr))
		}
	}()
	result.Commit = snap.Commit
	result.Version = snap.Version
	result.VersionSource = string(snap.VersionSource)
	log.Info("fetched upstream snapshot",
		logging.Ref(ref),
		logging.Version(snap.Version),
		slog.String("commit", snap.Commit),
	)

	result.PreviousVersion = s.previousVersion(log)

	if opts.DryRun {
		plan, err := s.cfg.Mirror.Plan(snap.Dir)
		if err != nil {
			return result, stepError(log, StepMirror, err)
		}
		result.Removed = plan.Removed
		result.Copied = plan.Copied
		return result, s.emit(StepMirror, "Dry run complete")
	}

	// Fail on an unusable snapshot before anything is archived or deleted.
	if err := s.cfg.Mirror.Check(snap.Dir); err != nil {
		return result, stepError(log, StepMirror, err)
	}

	if s.cfg.Backup != nil {
		id, err := s.backup(log, ref, snap.Version)
		if err != nil {
			return result, stepError(log, StepBackup, err)
		}
		result.Backup = id
	}

	if err := s.emit(StepMirror, "Mirroring types"); err != nil {
		return result, err
	}
	mirrored, err := s.cfg.Mirror.Run(snap.Dir)
	if err != nil {
		return result, stepError(log, StepMirror, err)
	}
	result.Removed = mirrored.Removed
	result.Copied = mirrored.Copied

	if err := s.emit(StepProxy, "Generating proxies"); err != nil {
		return result, err
	}
	generated, err := s.cfg.Proxies.Generate(s.cfg.ProxyOptions)
	if err != nil {
		return result, stepError(log, StepProxy, err)
	}
	result.Generated = generated.Files()
	log.Info("generated proxies",
		logging.Path(s.cfg.ProxyOptions.PackageDir),
		logging.Count(generated.Count()),
	)

	if err := s.emit(StepVersion, "Updating "+s.cfg.MetadataFile); err != nil {
		return result, err
	}
	updated, err := metadata.WriteVersion(s.cfg.MetadataFile, snap.Version)
	if err != nil {
		return result, stepError(log, StepVersion, err)
	}
	result.VersionUpdated = updated
	if updated {
		log.Info("updated package version", logging.Path(s.cfg.MetadataFile), logging.Version(snap.Version))
	} else {
		log.Warn("no version line found, metadata left unchanged", logging.Path(s.cfg.MetadataFile))
	}

	return result, s.emit(StepVersion, "Sync complete")
}

func (s *Syncer) backup(log *slog.Logger, ref, version string) (string, error) {
	pkg := s.cfg.ProxyOptions.PackageDir
	if _, err := os.Stat(pkg); os.IsNotExist(err) {
		log.Debug("nothing to back up", logging.Path(pkg))
		return "", nil
	}
	if err := s.emit(StepBackup, "Backing up "+pkg); err != nil {
		return "", err
	}
	return s.cfg.Backup.Snapshot(pkg, backup.Options{
		Description: "before sync to " + ref,
		Version:     version,
		Ref:         ref,
	})
}

func (s *Syncer) previousVersion(log *slog.Logger) string {
	v, err := metadata.CurrentVersion(s.cfg.MetadataFile)
	if err != nil {
		log.Debug("previous version unavailable", logging.Path(s.cfg.MetadataFile), logging.Err(err))
		return ""
	}
	return v
}

func (s *Syncer) emit(step, msg string) error {
	if s.cfg.Progress == nil {
		return nil
	}
	if err := s.cfg.Progress(ProgressEvent{Step: step, Message: msg}); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return nil
}

func stepError(log *slog.Logger, step string, err error) error {
	log.Error("sync step failed", logging.Operation(step), logging.Err(err))
	return &StepError{Step: step, Err: err}
}
