// Package httphandler is the HTTP driving adapter: the publish endpoint the
// CI client posts to, plus the download routes the emitted URLs resolve
// through.
package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/previewpub/previewpub/internal/application"
	"github.com/previewpub/previewpub/internal/domain/model"
	"github.com/previewpub/previewpub/internal/domain/port/driven"
)

const (
	headerRunID          = "sb-run-id"
	headerKey            = "sb-key"
	headerShasums        = "sb-shasums"
	headerComment        = "sb-comment"
	headerCompact        = "sb-compact"
	headerBin            = "sb-bin"
	headerPackageManager = "sb-package-manager"
	headerOnlyTemplates  = "sb-only-templates"

	packageFieldPrefix  = "package:"
	templateFieldPrefix = "template:"
)

// Handler is the HTTP driving adapter that serves the publish API.
type Handler struct {
	publishSvc *application.PublishService
	cursors    driven.CursorStore
	blobs      driven.BlobStore
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(publishSvc *application.PublishService, cursors driven.CursorStore, blobs driven.BlobStore, logger *slog.Logger) *Handler {
	return &Handler{
		publishSvc: publishSvc,
		cursors:    cursors,
		blobs:      blobs,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /publish", h.Publish)
	mux.HandleFunc("GET /template/{key}", h.TemplateBundle)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /{owner}/{repo}/{pkgSpec...}", h.DownloadPackage)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Publish accepts a CI run's package archives and template assets and runs
// the publish sequence. The request schema is validated once here; the
// orchestrator only ever sees typed values.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	req, err := parsePublishRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claim, err := h.publishSvc.Authorize(r.Context(), *req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	packages, templates, cleanup, err := parseMultipartBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	result, err := h.publishSvc.Publish(r.Context(), *claim, *req, packages, templates)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PublishResponse{OK: true, URLs: result.URLs})
}

// DownloadPackage serves a published package archive. The version part of
// the path is either a full commit SHA (immutable links) or a ref, which
// resolves through the cursor ledger to the latest authoritative commit for
// that ref.
func (h *Handler) DownloadPackage(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")
	spec := r.PathValue("pkgSpec")

	at := strings.LastIndex(spec, "@")
	if at <= 0 || at == len(spec)-1 {
		writeError(w, http.StatusBadRequest, "expected package@version")
		return
	}
	name, version := spec[:at], spec[at+1:]

	sha := version
	if !isCommitSHA(version) {
		cursor, err := h.cursors.Get(r.Context(), owner, repo, version)
		if err != nil {
			h.logger.Error("failed to resolve ref", "repo", owner+"/"+repo, "ref", version, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if cursor == nil {
			writeError(w, http.StatusNotFound, "no release published for this ref")
			return
		}
		sha = cursor.SHA
	}

	rc, err := h.blobs.Get(r.Context(), application.PackageBlobKey(owner, repo, sha, name))
	if err != nil {
		h.writeBlobError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(name)+".tgz"+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("failed to stream package", "key", name, "error", err)
	}
}

// TemplateBundle serves a stored template asset or rendered bundle.
func (h *Handler) TemplateBundle(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	rc, err := h.blobs.Get(r.Context(), application.TemplateBlobKey(key))
	if err != nil {
		h.writeBlobError(w, err)
		return
	}
	defer rc.Close()

	// Sniff the content type from the first chunk; bundles are HTML, binary
	// assets are whatever the template shipped.
	head := make([]byte, 512)
	n, readErr := io.ReadFull(rc, head)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		h.logger.Error("failed to read template blob", "key", key, "error", readErr)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	head = head[:n]

	w.Header().Set("Content-Type", http.DetectContentType(head))
	if _, err := w.Write(head); err != nil {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("failed to stream template blob", "key", key, "error", err)
	}
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps application errors to their HTTP status; anything
// without a mapping is an internal error and logged in full.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var reqErr *application.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Status >= 500 {
			h.logger.Error("publish failed", "error", err)
		}
		writeError(w, reqErr.Status, reqErr.Message)
		return
	}

	h.logger.Error("publish failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) writeBlobError(w http.ResponseWriter, err error) {
	var notFound *driven.NotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	h.logger.Error("blob read failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// parsePublishRequest validates the publish headers and produces the typed
// request. All field errors are client errors.
func parsePublishRequest(r *http.Request) (*model.PublishRequest, error) {
	token := r.Header.Get(headerKey)
	runID := r.Header.Get(headerRunID)
	shasums := r.Header.Get(headerShasums)

	if token == "" || runID == "" || shasums == "" {
		return nil, errors.New(headerRunID + ", " + headerKey + " and " + headerShasums + " headers are required")
	}

	runNumber, err := strconv.ParseInt(runID, 10, 64)
	if err != nil || runNumber <= 0 {
		return nil, errors.New(headerRunID + " must be a positive integer")
	}

	checksums := make(map[string]string)
	if err := json.Unmarshal([]byte(shasums), &checksums); err != nil {
		return nil, errors.New(headerShasums + " must be a JSON object of package name to sha1")
	}

	comment, err := model.ParseCommentMode(r.Header.Get(headerComment))
	if err != nil {
		return nil, err
	}

	packageManager, err := model.ParsePackageManager(r.Header.Get(headerPackageManager))
	if err != nil {
		return nil, err
	}

	return &model.PublishRequest{
		Token:          token,
		RunNumber:      runNumber,
		Checksums:      checksums,
		Comment:        comment,
		Compact:        r.Header.Get(headerCompact) == "true",
		Bin:            r.Header.Get(headerBin) == "true",
		PackageManager: packageManager,
		OnlyTemplates:  r.Header.Get(headerOnlyTemplates) == "true",
		ContentLength:  r.ContentLength,
	}, nil
}

// parseMultipartBody streams the multipart form, spooling file parts to a
// temp directory so the uploads can later run concurrently. Submission order
// of package fields is preserved; the response URL list mirrors it. The
// returned cleanup removes the spool directory and must be called once the
// uploads are done.
func parseMultipartBody(r *http.Request) (packages []application.PackageUpload, templates []application.TemplateAsset, cleanup func(), err error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, nil, nil, errors.New("request body must be multipart/form-data")
	}

	spoolDir, err := os.MkdirTemp("", "publish-")
	if err != nil {
		return nil, nil, nil, errors.New("internal spool failure")
	}
	cleanup = func() { _ = os.RemoveAll(spoolDir) }

	fail := func(msg string) ([]application.PackageUpload, []application.TemplateAsset, func(), error) {
		cleanup()
		return nil, nil, nil, errors.New(msg)
	}

	var spooled int
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail("malformed multipart body")
		}

		fieldName := part.FormName()
		switch {
		case strings.HasPrefix(fieldName, packageFieldPrefix):
			spooled++
			path, err := spoolPart(spoolDir, spooled, part)
			if err != nil {
				part.Close()
				return fail("failed to read package " + fieldName)
			}
			packages = append(packages, application.PackageUpload{
				Name: strings.TrimPrefix(fieldName, packageFieldPrefix),
				Open: openSpooled(path),
			})

		case strings.HasPrefix(fieldName, templateFieldPrefix):
			templateName, assetName, ok := parseTemplateField(fieldName)
			if !ok {
				part.Close()
				return fail("invalid template field " + fieldName)
			}

			if part.FileName() != "" {
				spooled++
				path, err := spoolPart(spoolDir, spooled, part)
				if err != nil {
					part.Close()
					return fail("failed to read template asset " + fieldName)
				}
				templates = append(templates, application.TemplateAsset{
					Template: templateName,
					Name:     assetName,
					Binary:   openSpooled(path),
				})
			} else {
				content, err := io.ReadAll(part)
				if err != nil {
					part.Close()
					return fail("failed to read template asset " + fieldName)
				}
				templates = append(templates, application.TemplateAsset{
					Template: templateName,
					Name:     assetName,
					Inline:   string(content),
				})
			}
		}
		part.Close()
	}

	return packages, templates, cleanup, nil
}

// parseTemplateField splits "template:<name>:<urlEncodedAsset>" into its
// parts, decoding the asset name.
func parseTemplateField(fieldName string) (templateName, assetName string, ok bool) {
	rest := strings.TrimPrefix(fieldName, templateFieldPrefix)
	templateName, encoded, found := strings.Cut(rest, ":")
	if !found || templateName == "" || encoded == "" {
		return "", "", false
	}

	assetName, err := url.PathUnescape(encoded)
	if err != nil || assetName == "" {
		return "", "", false
	}

	return templateName, assetName, true
}

func spoolPart(dir string, seq int, part *multipart.Part) (string, error) {
	path := filepath.Join(dir, strconv.Itoa(seq))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, part); err != nil {
		return "", err
	}

	return path, nil
}

func openSpooled(path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// isCommitSHA reports whether version is a full 40-hex commit SHA.
func isCommitSHA(version string) bool {
	if len(version) != 40 {
		return false
	}
	for _, ch := range version {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') && (ch < 'A' || ch > 'F') {
			return false
		}
	}
	return true
}
