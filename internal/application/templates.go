package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/previewpub/previewpub/internal/domain/port/driven"
)

// TemplateAssembler groups per-template asset uploads, renders a static HTML
// bundle per template, stores it, and returns a stable URL per template.
// Bundles are stored under freshly generated keys on every publish, so they
// are independent of the triggering commit and of each other: a template URL
// always reflects the publish that produced it.
type TemplateAssembler struct {
	blobs    driven.BlobStore
	renderer driven.TemplateRenderer
	origin   string
	newID    func() string
}

// NewTemplateAssembler creates a TemplateAssembler publishing URLs under
// origin.
func NewTemplateAssembler(blobs driven.BlobStore, renderer driven.TemplateRenderer, origin string) *TemplateAssembler {
	return &TemplateAssembler{
		blobs:    blobs,
		renderer: renderer,
		origin:   origin,
		newID:    uuid.NewString,
	}
}

// Assemble uploads all binary assets concurrently, renders each template
// with its asset map (binary assets replaced by their URLs, inline assets
// verbatim), stores the rendered HTML, and returns templateName -> bundle
// URL. The upload join waits for every asset even when one fails, so the
// returned error carries the complete failure set.
func (a *TemplateAssembler) Assemble(ctx context.Context, assets []TemplateAsset) (map[string]string, error) {
	files := make(map[string]map[string]string)
	for _, asset := range assets {
		if files[asset.Template] == nil {
			files[asset.Template] = make(map[string]string)
		}
	}

	type binaryUpload struct {
		asset TemplateAsset
		id    string
	}

	var binaries []binaryUpload
	for _, asset := range assets {
		if asset.IsBinary() {
			id := a.newID()
			files[asset.Template][asset.Name] = TemplateURL(a.origin, id)
			binaries = append(binaries, binaryUpload{asset: asset, id: id})
		} else {
			files[asset.Template][asset.Name] = asset.Inline
		}
	}

	uploadErrs := make([]error, len(binaries))
	var wg sync.WaitGroup
	for i, bin := range binaries {
		wg.Add(1)
		go func(i int, bin binaryUpload) {
			defer wg.Done()
			uploadErrs[i] = a.uploadBinary(ctx, bin.asset, bin.id)
		}(i, bin)
	}
	wg.Wait()

	if err := errors.Join(uploadErrs...); err != nil {
		return nil, fmt.Errorf("template asset uploads: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	bundles := make(map[string]string, len(files))
	for _, name := range names {
		html, err := a.renderer.Render(name, files[name])
		if err != nil {
			return nil, fmt.Errorf("render template %s: %w", name, err)
		}

		id := a.newID()
		if err := a.blobs.PutBytes(ctx, TemplateBlobKey(id), []byte(html)); err != nil {
			return nil, fmt.Errorf("store template bundle %s: %w", name, err)
		}

		bundles[name] = TemplateURL(a.origin, id)
	}

	return bundles, nil
}

func (a *TemplateAssembler) uploadBinary(ctx context.Context, asset TemplateAsset, id string) error {
	rc, err := asset.Binary()
	if err != nil {
		return fmt.Errorf("open template asset %s:%s: %w", asset.Template, asset.Name, err)
	}
	defer rc.Close()

	if err := a.blobs.Put(ctx, TemplateBlobKey(id), rc, ""); err != nil {
		return fmt.Errorf("upload template asset %s:%s: %w", asset.Template, asset.Name, err)
	}

	return nil
}
