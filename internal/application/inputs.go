package application

import "io"

// PackageUpload is one submitted package archive. Open is called at upload
// time, from the upload goroutine, so multipart spool files are not held
// open longer than needed.
type PackageUpload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// TemplateAsset is one submitted preview-template asset. Inline text assets
// carry their content in Inline; binary assets carry an opener in Binary and
// are uploaded individually, their value in the rendered page becoming an
// absolute URL.
type TemplateAsset struct {
	Template string
	Name     string
	Inline   string
	Binary   func() (io.ReadCloser, error)
}

// IsBinary reports whether the asset is a binary stream rather than inline
// text.
func (a TemplateAsset) IsBinary() bool {
	return a.Binary != nil
}
