// Package application contains the publish orchestration: single-use
// authorization, concurrent checksum-verified uploads, the run-number
// cursor, and check-run/comment reconciliation.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/previewpub/previewpub/internal/domain/model"
	"github.com/previewpub/previewpub/internal/domain/port/driven"
)

// PublishService sequences a publish request: authorize -> size policy ->
// concurrent uploads -> render templates -> cursor compare-and-set ->
// consume claim -> compute URLs -> status reporting. Everything up to and
// including the cursor write aborts the request on failure; the claim is
// consumed only after that point, so the CI client can safely retry a failed
// publish with the same token (uploads are idempotent by content-addressed
// key). The reporting stage never fails the request.
type PublishService struct {
	claims    driven.ClaimStore
	cursors   driven.CursorStore
	blobs     driven.BlobStore
	assembler *TemplateAssembler
	reporter  *StatusReporter

	origin     string
	whitelist  map[string]struct{}
	maxPayload int64
	logger     *slog.Logger
}

// NewPublishService creates a PublishService. whitelist entries are
// owner/repo full names exempt from the payload size ceiling; maxPayload is
// the ceiling in bytes for everyone else.
func NewPublishService(
	claims driven.ClaimStore,
	cursors driven.CursorStore,
	blobs driven.BlobStore,
	assembler *TemplateAssembler,
	reporter *StatusReporter,
	origin string,
	whitelist []string,
	maxPayload int64,
	logger *slog.Logger,
) *PublishService {
	wl := make(map[string]struct{}, len(whitelist))
	for _, fullName := range whitelist {
		wl[fullName] = struct{}{}
	}

	return &PublishService{
		claims:     claims,
		cursors:    cursors,
		blobs:      blobs,
		assembler:  assembler,
		reporter:   reporter,
		origin:     origin,
		whitelist:  wl,
		maxPayload: maxPayload,
		logger:     logger,
	}
}

// Authorize resolves the request's claim and enforces the payload-size
// policy. It runs before the request body is read; the size check uses the
// declared content length. A missing claim is terminal (the token was never
// registered, or a previous publish consumed it).
func (s *PublishService) Authorize(ctx context.Context, req model.PublishRequest) (*model.Claim, error) {
	claim, err := s.claims.Resolve(ctx, req.Token)
	if err != nil {
		return nil, fmt.Errorf("resolve claim: %w", err)
	}
	if claim == nil {
		return nil, authorizationError(http.StatusNotFound,
			"no claim registered for this token; publish from a CI run with the app installed on the repository")
	}

	if _, ok := s.whitelist[claim.RepoFullName()]; !ok && req.ContentLength > s.maxPayload {
		return nil, policyError(fmt.Sprintf(
			"payload exceeds the %d MiB limit for non-whitelisted repositories", s.maxPayload/(1024*1024)))
	}

	return claim, nil
}

// Publish runs the publish sequence for an authorized claim. packages and
// templates come from the parsed multipart body; packages preserve
// submission order, which the response URL list mirrors.
func (s *PublishService) Publish(
	ctx context.Context,
	claim model.Claim,
	req model.PublishRequest,
	packages []PackageUpload,
	templates []TemplateAsset,
) (*model.PublishResult, error) {
	if len(packages) == 0 {
		return nil, clientError("no packages")
	}

	for _, pkg := range packages {
		if req.Checksums[pkg.Name] == "" {
			return nil, clientError(fmt.Sprintf("missing checksum for package %q", pkg.Name))
		}
	}

	// The claim may have been consumed by a racing publish between the
	// initial resolve and now.
	current, err := s.claims.Resolve(ctx, req.Token)
	if err != nil {
		return nil, fmt.Errorf("re-resolve claim: %w", err)
	}
	if current == nil {
		return nil, authorizationError(http.StatusUnauthorized,
			"claim is no longer valid; publish from a fresh CI run")
	}

	bundles, err := s.uploadAll(ctx, claim, req, packages, templates)
	if err != nil {
		return nil, err
	}

	if err := s.cursors.CompareAndSet(ctx, claim.Owner, claim.Repo, claim.Ref, model.Cursor{
		SHA:       claim.SHA,
		RunNumber: req.RunNumber,
	}); err != nil {
		return nil, fmt.Errorf("advance cursor: %w", err)
	}

	if err := s.claims.Consume(ctx, req.Token); err != nil {
		return nil, fmt.Errorf("consume claim: %w", err)
	}

	urls := make([]string, 0, len(packages))
	names := make([]string, 0, len(packages))
	for _, pkg := range packages {
		urls = append(urls, InstallURL(s.origin, claim, pkg.Name, LinkSHA))
		names = append(names, pkg.Name)
	}

	checkRunURL := s.reporter.Report(ctx, MessageInput{
		Origin:    s.origin,
		Claim:     claim,
		Packages:  names,
		Templates: bundles,
		Request:   req,
	})

	s.logger.Info("publish complete",
		"repo", claim.RepoFullName(),
		"ref", claim.Ref,
		"sha", claim.SHA,
		"run", req.RunNumber,
		"packages", len(packages),
		"templates", len(bundles),
	)

	return &model.PublishResult{URLs: urls, CheckRunURL: checkRunURL}, nil
}

// uploadAll fans out every package upload and the template assembly
// concurrently and joins at a single barrier. All uploads are awaited even
// when one fails, so the error carries the complete failure set; siblings
// that already completed stay in place, which is safe to retry because keys
// are content-addressed.
func (s *PublishService) uploadAll(
	ctx context.Context,
	claim model.Claim,
	req model.PublishRequest,
	packages []PackageUpload,
	templates []TemplateAsset,
) (map[string]string, error) {
	pkgErrs := make([]error, len(packages))
	var bundles map[string]string
	var assembleErr error

	var wg sync.WaitGroup
	for i, pkg := range packages {
		wg.Add(1)
		go func(i int, pkg PackageUpload) {
			defer wg.Done()
			pkgErrs[i] = s.uploadPackage(ctx, claim, pkg, req.Checksums[pkg.Name])
		}(i, pkg)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		bundles, assembleErr = s.assembler.Assemble(ctx, templates)
	}()

	wg.Wait()

	if err := errors.Join(append(pkgErrs, assembleErr)...); err != nil {
		return nil, uploadError(err)
	}

	return bundles, nil
}

func (s *PublishService) uploadPackage(ctx context.Context, claim model.Claim, pkg PackageUpload, checksum string) error {
	rc, err := pkg.Open()
	if err != nil {
		return fmt.Errorf("open package %s: %w", pkg.Name, err)
	}
	defer rc.Close()

	key := PackageBlobKey(claim.Owner, claim.Repo, claim.SHA, pkg.Name)
	if err := s.blobs.Put(ctx, key, rc, checksum); err != nil {
		return fmt.Errorf("upload package %s: %w", pkg.Name, err)
	}

	return nil
}
