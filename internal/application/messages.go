package application

import (
	"fmt"
	"sort"
	"strings"

	"github.com/previewpub/previewpub/internal/domain/model"
)

// LinkKind selects whether install URLs reference the immutable commit SHA
// or the mutable ref. Ref-based links stay valid as newer runs publish (they
// resolve through the cursor ledger at download time), which is why an
// updated comment uses them; a freshly created comment pins the SHA.
type LinkKind int

const (
	// LinkSHA pins install URLs to the published commit.
	LinkSHA LinkKind = iota
	// LinkRef points install URLs at the ref's latest authoritative commit.
	LinkRef
)

// InstallURL returns the public installable URL for a package published from
// the claim's commit.
func InstallURL(origin string, claim model.Claim, packageName string, kind LinkKind) string {
	version := claim.SHA
	if kind == LinkRef {
		version = claim.Ref
	}
	return fmt.Sprintf("%s/%s/%s/%s@%s", origin, claim.Owner, claim.Repo, packageName, version)
}

// TemplateURL returns the public URL for a stored template asset or bundle.
func TemplateURL(origin, id string) string {
	return origin + "/template/" + id
}

// MessageInput carries everything the status messages are generated from.
// The texts are computed once, before any network call, and shared between
// the check run and the comment.
type MessageInput struct {
	Origin      string
	Claim       model.Claim
	Packages    []string
	Templates   map[string]string
	Request     model.PublishRequest
	CheckRunURL string
	Kind        LinkKind
}

// CommitMessage is the check run body: every published package's install
// command plus the template bundle links.
func CommitMessage(in MessageInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Last Commit: %s\n", shortSHA(in.Claim.SHA))
	writePackagesSection(&b, in, LinkSHA)
	writeTemplatesSection(&b, in)

	return strings.TrimRight(b.String(), "\n")
}

// PullRequestMessage is the bot comment body. Its install links follow
// in.Kind; the commit reference line always names the exact commit the
// publish ran for.
func PullRequestMessage(in MessageInput) string {
	var b strings.Builder

	b.WriteString("## Continuous Releases\n\n")
	fmt.Fprintf(&b, "Last Commit: %s\n", commitLink(in.Claim))
	if in.CheckRunURL != "" {
		fmt.Fprintf(&b, "\n[View Check Run](%s)\n", in.CheckRunURL)
	}

	if !in.Request.OnlyTemplates {
		writePackagesSection(&b, in, in.Kind)
	}
	writeTemplatesSection(&b, in)

	return strings.TrimRight(b.String(), "\n")
}

func writePackagesSection(b *strings.Builder, in MessageInput, kind LinkKind) {
	if len(in.Packages) == 0 {
		return
	}

	b.WriteString("\n### Packages\n\n")

	if in.Request.Compact {
		for _, name := range in.Packages {
			fmt.Fprintf(b, "- `%s`\n", InstallURL(in.Origin, in.Claim, name, kind))
		}
		return
	}

	b.WriteString("```\n")
	for _, name := range in.Packages {
		url := InstallURL(in.Origin, in.Claim, name, kind)
		b.WriteString(installCommand(in.Request.PackageManager, in.Request.Bin, url))
		b.WriteByte('\n')
	}
	b.WriteString("```\n")
}

func writeTemplatesSection(b *strings.Builder, in MessageInput) {
	if len(in.Templates) == 0 {
		return
	}

	names := make([]string, 0, len(in.Templates))
	for name := range in.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("\n### Templates\n\n")
	for _, name := range names {
		fmt.Fprintf(b, "- [%s](%s)\n", name, in.Templates[name])
	}
}

// installCommand formats the package-manager invocation for one install URL.
// The bin flag switches to the runner form for packages meant to be executed
// rather than added as a dependency.
func installCommand(pm model.PackageManager, bin bool, url string) string {
	if bin {
		switch pm {
		case model.PackageManagerPnpm:
			return "pnpm dlx " + url
		case model.PackageManagerYarn:
			return "yarn dlx " + url
		case model.PackageManagerBun:
			return "bunx " + url
		default:
			return "npx " + url
		}
	}

	switch pm {
	case model.PackageManagerPnpm:
		return "pnpm add " + url
	case model.PackageManagerYarn:
		return "yarn add " + url
	case model.PackageManagerBun:
		return "bun add " + url
	default:
		return "npm i " + url
	}
}

// commitLink formats the published commit as a markdown link to the hosting
// platform.
func commitLink(claim model.Claim) string {
	return fmt.Sprintf("[%s/%s@%s](https://github.com/%s/%s/commit/%s)",
		claim.Owner, claim.Repo, shortSHA(claim.SHA),
		claim.Owner, claim.Repo, claim.SHA,
	)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
