package application

// CheckRunName is the fixed name of the commit status check this service
// maintains. One check run with this name exists per published commit.
const CheckRunName = "Continuous Releases"

// PackageBlobKey returns the blob store key for a package artifact. The key
// embeds owner, repo and commit, so re-publishing the same commit overwrites
// deterministically and racing publishes for different commits never collide.
func PackageBlobKey(owner, repo, sha, packageName string) string {
	return "pkg/" + owner + "/" + repo + "/" + sha + "/" + packageName
}

// TemplateBlobKey returns the blob store key for a template asset or
// rendered bundle, identified by a generated unique ID.
func TemplateBlobKey(id string) string {
	return "tpl/" + id
}
