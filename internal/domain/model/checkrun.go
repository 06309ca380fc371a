package model

// CheckRunSpec describes a check run to create on a commit.
type CheckRunSpec struct {
	Name       string
	HeadSHA    string
	Title      string
	Summary    string
	Text       string
	Conclusion string
}

// CheckRunRef identifies an existing check run on the hosting platform.
type CheckRunRef struct {
	ID      int64
	HTMLURL string
}

// CommentRef identifies an existing issue comment on the hosting platform.
type CommentRef struct {
	ID int64
}
