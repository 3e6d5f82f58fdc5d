package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/klauern/typesync/internal/logging"
)

// DefaultTempPrefix names the temporary workspace a snapshot is fetched into.
const DefaultTempPrefix = "openai-python-"

// Snapshot is a shallow, single-revision checkout of the upstream repo.
type Snapshot struct {
	// Dir is the root of the checked-out worktree.
	Dir string
	// Ref is the reference the snapshot was fetched from.
	Ref string
	// Kind is how Ref was interpreted on the remote.
	Kind RefKind
	// Commit is the checked-out commit.
	Commit string
	// Version is the resolved semantic version, without a leading marker.
	Version string
	// VersionSource records which detection method produced Version.
	VersionSource VersionSource
}

// Cleanup removes the snapshot workspace.
func (s *Snapshot) Cleanup() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("failed to remove snapshot %q: %w", s.Dir, err)
	}
	logging.Debug("removed snapshot workspace", logging.Path(s.Dir))
	return nil
}

// Fetcher takes snapshots of an upstream repository.
type Fetcher struct {
	// Lister lists remote refs for classification and tag lookup.
	Lister RefLister
	// TempPrefix is the prefix of the temporary workspace directory.
	TempPrefix string
	// VersionFile is the slash-separated path, relative to the snapshot
	// root, holding the upstream version declaration.
	VersionFile string
	// VersionPattern extracts the version from VersionFile; its first
	// capture group is the version.
	VersionPattern *regexp.Regexp
}

// NewFetcher returns a Fetcher backed by go-git.
func NewFetcher(versionFile string, pattern *regexp.Regexp) *Fetcher {
	return &Fetcher{
		Lister:         GitRemote{},
		TempPrefix:     DefaultTempPrefix,
		VersionFile:    versionFile,
		VersionPattern: pattern,
	}
}

// Fetch initialises a fresh repository in a temporary directory, fetches
// ref from repo with depth 1 and checks the fetched commit out detached.
// The workspace is removed again when Fetch fails.
func (f *Fetcher) Fetch(ctx context.Context, repo, ref string) (_ *Snapshot, err error) {
	refs, err := f.Lister.ListRefs(ctx, repo)
	if err != nil {
		return nil, err
	}
	target := Classify(refs, ref)

	dir, err := os.MkdirTemp("", f.tempPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot workspace: %w", err)
	}
	snap := &Snapshot{Dir: dir, Ref: ref, Kind: target.Kind}
	defer func() {
		if err != nil {
			_ = snap.Cleanup()
		}
	}()

	logging.Info("fetching upstream snapshot",
		logging.Repo(repo),
		logging.Ref(target.Remote),
		logging.Path(dir),
	)

	commit, err := checkoutShallow(ctx, dir, repo, target)
	if err != nil {
		return nil, err
	}
	snap.Commit = commit.String()

	version, source, err := DetectVersion(ref, dir, f.VersionFile, f.VersionPattern, refs, commit)
	if err != nil {
		return nil, err
	}
	snap.Version = version
	snap.VersionSource = source

	logging.Debug("detected upstream version",
		logging.Version(version),
		slog.String("source", string(source)),
	)
	return snap, nil
}

func (f *Fetcher) tempPrefix() string {
	if f.TempPrefix == "" {
		return DefaultTempPrefix
	}
	return f.TempPrefix
}

// checkoutShallow is the go-git equivalent of
//
//	git init && git remote add origin URL &&
//	git fetch --depth 1 origin REF && git checkout FETCH_HEAD
func checkoutShallow(ctx context.Context, dir, url string, target Target) (plumbing.Hash, error) {
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to initialise snapshot repo: %w", err)
	}

	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: DefaultRemoteName,
		URLs: []string{url},
	}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to add remote: %w", err)
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: DefaultRemoteName,
		RefSpecs:   []config.RefSpec{target.RefSpec()},
		Depth:      1,
		Tags:       git.NoTags,
		Auth:       AuthFor(url),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return plumbing.ZeroHash, wrapFetch(err, "fetch %s %s", url, target.Remote)
	}

	commit, err := peelToCommit(repo, target.Local)
	if err != nil {
		return plumbing.ZeroHash, wrapFetch(err, "resolve fetched %s", target.Local)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: commit, Force: true}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to checkout %s: %w", commit, err)
	}
	return commit, nil
}

// peelToCommit resolves name to a commit, dereferencing annotated tags.
func peelToCommit(repo *git.Repository, name plumbing.ReferenceName) (plumbing.Hash, error) {
	ref, err := repo.Reference(name, true)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	hash := ref.Hash()
	if tag, err := repo.TagObject(hash); err == nil {
		commit, err := tag.Commit()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return commit.Hash, nil
	}
	return hash, nil
}
