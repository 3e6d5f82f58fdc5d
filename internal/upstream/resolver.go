package upstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/klauern/typesync/internal/logging"
	"github.com/klauern/typesync/internal/semver"
)

// Resolver chooses the upstream reference to sync.
type Resolver struct {
	Lister RefLister
}

// NewResolver returns a Resolver backed by go-git remote listing.
func NewResolver() *Resolver {
	return &Resolver{Lister: GitRemote{}}
}

// Resolve returns explicit unchanged when it is set. Otherwise it lists the
// remote's tags and returns the numerically greatest strict version tag.
func (r *Resolver) Resolve(ctx context.Context, repo, explicit string) (string, error) {
	if explicit != "" {
		logging.Debug("using explicit ref", logging.Ref(explicit))
		return explicit, nil
	}
	return r.Latest(ctx, repo)
}

// Latest returns the greatest strict version tag advertised by repo.
func (r *Resolver) Latest(ctx context.Context, repo string) (string, error) {
	refs, err := r.Lister.ListRefs(ctx, repo)
	if err != nil {
		return "", err
	}

	tags := TagNames(refs)
	latest, err := semver.Max(tags)
	if err != nil {
		if errors.Is(err, semver.ErrNoVersions) {
			return "", fmt.Errorf("%w (%d tags inspected)", ErrNoVersionTags, len(tags))
		}
		return "", err
	}

	logging.Info("resolved latest upstream tag",
		logging.Repo(repo),
		logging.Ref(latest),
		logging.Count(len(tags)),
	)
	return latest, nil
}
