package upstream

import (
	"context"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/klauern/typesync/internal/logging"
)

// DefaultRemoteName is the remote name used for the fetched snapshot.
const DefaultRemoteName = "origin"

// peeledSuffix marks the peeled commit entry of an annotated tag.
const peeledSuffix = "^{}"

// RefLister lists the references advertised by a remote repository.
type RefLister interface {
	ListRefs(ctx context.Context, url string) ([]*plumbing.Reference, error)
}

// GitRemote lists references with go-git, without cloning.
type GitRemote struct{}

// ListRefs returns every advertised reference, including the peeled
// "^{}" entries of annotated tags.
func (GitRemote) ListRefs(ctx context.Context, url string) ([]*plumbing.Reference, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: DefaultRemoteName,
		URLs: []string{url},
	})

	refs, err := remote.ListContext(ctx, &git.ListOptions{
		Auth:          AuthFor(url),
		PeelingOption: git.AppendPeeled,
	})
	if err != nil {
		return nil, wrapFetch(err, "list remote refs of %s", url)
	}

	logging.Debug("listed remote refs", logging.Repo(url), logging.Count(len(refs)))
	return refs, nil
}

// TagNames returns the short names of all tag references. Peeled duplicates
// are dropped so every tag appears once, in advertisement order.
func TagNames(refs []*plumbing.Reference) []string {
	seen := make(map[string]bool)
	var names []string
	for _, ref := range refs {
		if !ref.Name().IsTag() {
			continue
		}
		name := strings.TrimSuffix(ref.Name().Short(), peeledSuffix)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// TagsAt returns the tags that point at commit, either directly
// (lightweight tags) or through their peeled entry (annotated tags).
func TagsAt(refs []*plumbing.Reference, commit plumbing.Hash) []string {
	seen := make(map[string]bool)
	var names []string
	for _, ref := range refs {
		if !ref.Name().IsTag() || ref.Type() != plumbing.HashReference || ref.Hash() != commit {
			continue
		}
		name := strings.TrimSuffix(ref.Name().Short(), peeledSuffix)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// RefKind classifies what a user-supplied reference names on the remote.
type RefKind int

const (
	// RefHead is the remote's default branch.
	RefHead RefKind = iota
	// RefTag is a tag.
	RefTag
	// RefBranch is a branch.
	RefBranch
	// RefCommit is anything else, treated as a commit id.
	RefCommit
)

// String returns a human-readable name for the kind.
func (k RefKind) String() string {
	switch k {
	case RefHead:
		return "head"
	case RefTag:
		return "tag"
	case RefBranch:
		return "branch"
	case RefCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// Target is a reference resolved against a remote listing.
type Target struct {
	Kind RefKind
	// Remote is the full reference name on the remote, or the raw commit
	// id for RefCommit.
	Remote string
	// Local is where the fetched object is stored in the snapshot repo.
	Local plumbing.ReferenceName
}

// RefSpec returns the fetch refspec that stores Remote at Local.
func (t Target) RefSpec() config.RefSpec {
	return config.RefSpec("+" + t.Remote + ":" + t.Local.String())
}

// Classify resolves ref against the advertised refs. An empty ref or
// "HEAD" selects the default branch; tags take precedence over branches of
// the same name, matching git's own lookup order for ambiguous names.
func Classify(refs []*plumbing.Reference, ref string) Target {
	if ref == "" || ref == plumbing.HEAD.String() {
		return headTarget(refs)
	}

	byName := make(map[plumbing.ReferenceName]bool, len(refs))
	for _, r := range refs {
		byName[r.Name()] = true
	}

	if name := plumbing.ReferenceName(ref); byName[name] {
		switch {
		case name.IsTag():
			return tagTarget(name)
		case name.IsBranch():
			return branchTarget(name)
		}
	}

	if tag := plumbing.NewTagReferenceName(ref); byName[tag] {
		return tagTarget(tag)
	}
	if branch := plumbing.NewBranchReferenceName(ref); byName[branch] {
		return branchTarget(branch)
	}
	return Target{
		Kind:   RefCommit,
		Remote: ref,
		Local:  plumbing.NewRemoteReferenceName(DefaultRemoteName, "snapshot"),
	}
}

func tagTarget(name plumbing.ReferenceName) Target {
	return Target{Kind: RefTag, Remote: name.String(), Local: name}
}

func branchTarget(name plumbing.ReferenceName) Target {
	return Target{
		Kind:   RefBranch,
		Remote: name.String(),
		Local:  plumbing.NewRemoteReferenceName(DefaultRemoteName, name.Short()),
	}
}

func headTarget(refs []*plumbing.Reference) Target {
	for _, r := range refs {
		if r.Name() != plumbing.HEAD {
			continue
		}
		if r.Type() == plumbing.SymbolicReference && r.Target().IsBranch() {
			return Target{
				Kind:   RefHead,
				Remote: r.Target().String(),
				Local:  plumbing.NewRemoteReferenceName(DefaultRemoteName, r.Target().Short()),
			}
		}
		return Target{
			Kind:   RefHead,
			Remote: r.Hash().String(),
			Local:  plumbing.NewRemoteReferenceName(DefaultRemoteName, "HEAD"),
		}
	}
	return Target{
		Kind:   RefHead,
		Remote: plumbing.HEAD.String(),
		Local:  plumbing.NewRemoteReferenceName(DefaultRemoteName, "HEAD"),
	}
}
