package model

import "strconv"

// Claim is a single-use authorization record binding an opaque publish token
// to the CI run that registered it. It is created out-of-band when the run
// starts and consumed exactly once by a successful publish; an absent claim
// means the request is unauthorized or a replay.
type Claim struct {
	Owner string
	Repo  string
	Ref   string
	SHA   string
}

// IsPullRequest reports whether the claim's ref denotes a pull request.
// Pull request refs are purely numeric (the PR number); branch refs are not.
func (c Claim) IsPullRequest() bool {
	_, ok := c.PullRequestNumber()
	return ok
}

// PullRequestNumber returns the pull request number encoded in the ref,
// or false when the ref is a branch name.
func (c Claim) PullRequestNumber() (int, bool) {
	if c.Ref == "" {
		return 0, false
	}
	n, err := strconv.Atoi(c.Ref)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// RepoFullName returns the owner/repo form used in logs and whitelist entries.
func (c Claim) RepoFullName() string {
	return c.Owner + "/" + c.Repo
}
