package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaim_PullRequestNumber(t *testing.T) {
	tests := []struct {
		name   string
		ref    string
		number int
		isPR   bool
	}{
		{name: "pr ref", ref: "12", number: 12, isPR: true},
		{name: "branch ref", ref: "main", isPR: false},
		{name: "branch ref with digits", ref: "release-2", isPR: false},
		{name: "empty ref", ref: "", isPR: false},
		{name: "zero", ref: "0", isPR: false},
		{name: "negative", ref: "-3", isPR: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Claim{Owner: "acme", Repo: "widgets", Ref: tt.ref}

			n, ok := c.PullRequestNumber()
			assert.Equal(t, tt.isPR, ok)
			assert.Equal(t, tt.isPR, c.IsPullRequest())
			if tt.isPR {
				assert.Equal(t, tt.number, n)
			}
		})
	}
}

func TestClaim_RepoFullName(t *testing.T) {
	c := Claim{Owner: "acme", Repo: "widgets"}
	assert.Equal(t, "acme/widgets", c.RepoFullName())
}

func TestParseCommentMode(t *testing.T) {
	mode, err := ParseCommentMode("")
	require.NoError(t, err)
	assert.Equal(t, CommentUpdate, mode)

	for _, valid := range []string{"update", "create", "off"} {
		mode, err := ParseCommentMode(valid)
		require.NoError(t, err)
		assert.Equal(t, CommentMode(valid), mode)
	}

	_, err = ParseCommentMode("always")
	assert.Error(t, err)
}

func TestParsePackageManager(t *testing.T) {
	pm, err := ParsePackageManager("")
	require.NoError(t, err)
	assert.Equal(t, PackageManagerNpm, pm)

	for _, valid := range []string{"npm", "pnpm", "yarn", "bun"} {
		pm, err := ParsePackageManager(valid)
		require.NoError(t, err)
		assert.Equal(t, PackageManager(valid), pm)
	}

	_, err = ParsePackageManager("cargo")
	assert.Error(t, err)
}
