package model

import "fmt"

// CommentMode controls how the publish reconciles the pull request comment.
type CommentMode string

// Valid comment modes. Update edits the existing bot comment in place,
// create always posts a new comment, off skips the comment track entirely.
const (
	CommentUpdate CommentMode = "update"
	CommentCreate CommentMode = "create"
	CommentOff    CommentMode = "off"
)

// ParseCommentMode parses the sb-comment header value. An empty value
// defaults to update.
func ParseCommentMode(s string) (CommentMode, error) {
	switch CommentMode(s) {
	case "":
		return CommentUpdate, nil
	case CommentUpdate, CommentCreate, CommentOff:
		return CommentMode(s), nil
	default:
		return "", fmt.Errorf("invalid comment mode %q", s)
	}
}

// PackageManager identifies the package manager used to format install
// commands in published messages.
type PackageManager string

// Supported package managers.
const (
	PackageManagerNpm  PackageManager = "npm"
	PackageManagerPnpm PackageManager = "pnpm"
	PackageManagerYarn PackageManager = "yarn"
	PackageManagerBun  PackageManager = "bun"
)

// ParsePackageManager parses the sb-package-manager header value. An empty
// value defaults to npm.
func ParsePackageManager(s string) (PackageManager, error) {
	switch PackageManager(s) {
	case "":
		return PackageManagerNpm, nil
	case PackageManagerNpm, PackageManagerPnpm, PackageManagerYarn, PackageManagerBun:
		return PackageManager(s), nil
	default:
		return "", fmt.Errorf("invalid package manager %q", s)
	}
}

// PublishRequest is the validated request schema, produced once at the HTTP
// boundary from the raw headers. Handlers never pass loosely-typed header
// maps further in.
type PublishRequest struct {
	Token          string
	RunNumber      int64
	Checksums      map[string]string
	Comment        CommentMode
	Compact        bool
	Bin            bool
	PackageManager PackageManager
	OnlyTemplates  bool
	ContentLength  int64
}

// PublishResult is the outcome of a successful publish: one installable URL
// per submitted package, in submission order, plus the check run URL when
// the check run track succeeded.
type PublishResult struct {
	URLs        []string
	CheckRunURL string
}
