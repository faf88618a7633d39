// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/rebar/internal/domain/identity"
)

// HostGitHub is the only source host supported today.
const HostGitHub = "github"

// ErrUnknownHost is returned when a source record names an unsupported host.
var ErrUnknownHost = errors.New("host not supported")

// Source identifies where a submitted item lives. Each host is one variant.
type Source interface {
	// Host is the variant tag, e.g. "github".
	Host() string
	// Descriptor is the canonical "host:..." form used in canonical keys.
	Descriptor() string
}

// GitHubSource is a repository hosted on github.com.
type GitHubSource struct {
	Owner string
	Repo  string
}

// Host implements Source.
func (GitHubSource) Host() string { return HostGitHub }

// Descriptor implements Source.
func (g GitHubSource) Descriptor() string {
	return HostGitHub + ":" + g.Owner + ":" + g.Repo
}

// URL returns the browsable repository address.
func (g GitHubSource) URL() string {
	return "https://github.com/" + g.Owner + "/" + g.Repo
}

// SourceRecord is the flat, serialisable form of a Source.
type SourceRecord struct {
	Host  string `json:"host"`
	Owner string `json:"owner,omitempty"`
	Repo  string `json:"repo,omitempty"`
}

// EncodeSource flattens a Source into a SourceRecord.
func EncodeSource(s Source) SourceRecord {
	switch v := s.(type) {
	case GitHubSource:
		return SourceRecord{Host: HostGitHub, Owner: v.Owner, Repo: v.Repo}
	case *GitHubSource:
		return SourceRecord{Host: HostGitHub, Owner: v.Owner, Repo: v.Repo}
	case nil:
		return SourceRecord{}
	default:
		return SourceRecord{Host: s.Host()}
	}
}

// DecodeSource rebuilds a Source from its record.
func DecodeSource(r SourceRecord) (Source, error) {
	switch r.Host {
	case HostGitHub:
		return GitHubSource{Owner: r.Owner, Repo: r.Repo}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHost, r.Host)
	}
}

// Item is one submission plus its vote state. Everything except Votes and
// Voters is fixed at creation.
type Item struct {
	Description string
	Source      Source
	SubmittedAt float64 // seconds since epoch
	Submitter   identity.CallerID
	Votes       int
	Voters      map[identity.CallerID]struct{}
}

// CanonicalKey is the deduplication key: source descriptor plus description.
// Different descriptions of the same source are distinct keys.
func CanonicalKey(it Item) string {
	var desc string
	if it.Source != nil {
		desc = it.Source.Descriptor()
	}
	return desc + ":" + it.Description
}

// HasVoted reports whether caller already upvoted the item.
func (it *Item) HasVoted(caller identity.CallerID) bool {
	_, ok := it.Voters[caller]
	return ok
}

// Upvote records a vote from caller. It returns false for a repeat voter.
func (it *Item) Upvote(caller identity.CallerID) bool {
	if it.HasVoted(caller) {
		return false
	}
	if it.Voters == nil {
		it.Voters = make(map[identity.CallerID]struct{})
	}
	it.Voters[caller] = struct{}{}
	it.Votes++
	return true
}

// Clone returns a deep copy, including the voter set.
func (it Item) Clone() Item {
	out := it
	out.Voters = make(map[identity.CallerID]struct{}, len(it.Voters))
	for id := range it.Voters {
		out.Voters[id] = struct{}{}
	}
	return out
}

// String renders the legacy "host:owner:repo:description" form.
func (it Item) String() string {
	return CanonicalKey(it)
}

// ContainsSpace reports whether s holds any whitespace. Owners and repository
// names never do.
func ContainsSpace(s string) bool {
	return strings.ContainsAny(s, " \t\r\n")
}
