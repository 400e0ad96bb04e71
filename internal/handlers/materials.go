// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mediaportal/internal/access"
	"mediaportal/internal/middleware"
	"mediaportal/internal/models"
	"mediaportal/internal/storage"
	"mediaportal/internal/store"
)

// defaultPageSize caps material listings per request.
const defaultPageSize = 50

// Materials groups the material HTTP handlers. Routes addressed by
// material id carry no category id the middleware could check, so these
// handlers load the entity and run the category access check themselves.
type Materials struct {
	materials *store.MaterialStore
	resolver  *access.Resolver
	storage   *storage.Client
	audit     *store.AuditStore
}

// NewMaterials creates a new Materials handler group. storageClient may
// be nil when object storage is not configured; upload and download
// respond 503 in that case.
func NewMaterials(materials *store.MaterialStore, resolver *access.Resolver, storageClient *storage.Client, audit *store.AuditStore) *Materials {
	return &Materials{
		materials: materials,
		resolver:  resolver,
		storage:   storageClient,
		audit:     audit,
	}
}

// List returns the active materials inside the acting role's accessible
// categories, newest first.
func (h *Materials) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	scope := middleware.ScopeFromCtx(r.Context())
	if scope == nil {
		// AttachAccessibleCategories could not resolve the scope; fail
		// closed rather than listing everything.
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	var items []models.Material
	var err error
	if scope.All {
		items, err = h.materials.ListAll(limit, offset)
	} else {
		items, err = h.materials.ListByCategories(scope.IDs, limit, offset)
	}
	if err != nil {
		slog.Error("list materials failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if items == nil {
		items = []models.Material{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Get returns one material after checking category access.
func (h *Materials) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Upload stores a new material: the file goes to object storage, the
// metadata row to the database. The category scope was already checked
// by the middleware against the category_id form field.
func (h *Materials) Upload(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "File storage is not configured.")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload request.")
		return
	}

	name := r.FormValue("name")
	if msg := validateMaterialName(name); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	categoryID, ok := parseID(r.FormValue("category_id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid category id.")
		return
	}
	fileType := models.FileType(r.FormValue("file_type"))
	if !models.ValidFileType(fileType) {
		writeError(w, http.StatusBadRequest, "File type must be video, image, or document.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "A file is required.")
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "File is too large.")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Object keys are random so names never collide or leak structure.
	key := "materials/" + uuid.New().String() + filepath.Ext(header.Filename)

	if err := h.storage.Upload(r.Context(), key, contentType, file, header.Size); err != nil {
		slog.Error("material upload failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	created, err := h.materials.Create(&models.Material{
		CategoryID:  categoryID,
		Name:        name,
		FileType:    fileType,
		ObjectKey:   key,
		ContentType: contentType,
		SizeBytes:   header.Size,
		CreatedBy:   sess.UserID,
	})
	if err != nil {
		slog.Error("create material failed", "error", err)
		// The row failed but the object is already stored; remove it so
		// the bucket does not accumulate orphans.
		if delErr := h.storage.Delete(r.Context(), key); delErr != nil {
			slog.Error("orphaned object cleanup failed", "key", key, "error", delErr)
		}
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.recordAudit(r, "material.upload", created.ID, created.Name)
	writeJSON(w, http.StatusCreated, created)
}

// Download issues a short-lived pre-signed URL for a material file.
func (h *Materials) Download(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "File storage is not configured.")
		return
	}

	m, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}

	url, err := h.storage.PresignDownload(r.Context(), m.ObjectKey, storage.DefaultDownloadExpiry)
	if err != nil {
		slog.Error("presign download failed", "key", m.ObjectKey, "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.recordAudit(r, "material.download", m.ID, m.Name)
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Update renames a material or moves it to another category.
func (h *Materials) Update(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}

	name := r.FormValue("name")
	if msg := validateMaterialName(name); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	m.Name = name

	// Moving to another category needs access to the destination too.
	if raw := r.FormValue("category_id"); raw != "" {
		destID, ok := parseID(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid category id.")
			return
		}
		if destID != m.CategoryID {
			role := middleware.RoleFromCtx(r.Context())
			if role == nil {
				writeError(w, http.StatusForbidden, "Access denied.")
				return
			}
			allowed, err := h.resolver.HasCategoryAccess(role, destID)
			if err != nil {
				slog.Error("material move access check failed", "error", err)
				writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
				return
			}
			if !allowed {
				writeError(w, http.StatusForbidden, "No access to the destination category.")
				return
			}
			m.CategoryID = destID
		}
	}

	if err := h.materials.Update(m); err != nil {
		slog.Error("update material failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.recordAudit(r, "material.update", m.ID, m.Name)
	writeJSON(w, http.StatusOK, m)
}

// SetActive toggles the soft-delete flag on a material.
func (h *Materials) SetActive(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}
	active := r.FormValue("active") == "true"

	if err := h.materials.SetActive(m.ID, active); err != nil {
		slog.Error("set material active failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.recordAudit(r, "material.set_active", m.ID, strconv.FormatBool(active))
	writeJSON(w, http.StatusOK, map[string]any{"id": m.ID, "is_active": active})
}

// Delete removes a material row and its stored object.
func (h *Materials) Delete(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}

	if err := h.materials.Delete(m.ID); err != nil {
		slog.Error("delete material failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	// Best effort: a stranded object is logged, not surfaced, since the
	// row is already gone.
	if h.storage != nil {
		if err := h.storage.Delete(r.Context(), m.ObjectKey); err != nil {
			slog.Error("delete stored object failed", "key", m.ObjectKey, "error", err)
		}
	}

	h.recordAudit(r, "material.delete", m.ID, m.Name)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": m.ID})
}

// loadAccessible fetches the material from the id route parameter and
// verifies the acting role can reach its category. Writes the error
// response and returns false when the request must not proceed.
func (h *Materials) loadAccessible(w http.ResponseWriter, r *http.Request) (*models.Material, bool) {
	id, ok := parseID(chi.URLParam(r, "materialID"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid material id.")
		return nil, false
	}

	m, err := h.materials.FindByID(id)
	if err != nil {
		slog.Error("find material failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return nil, false
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "Material not found.")
		return nil, false
	}

	role := middleware.RoleFromCtx(r.Context())
	if role == nil {
		writeError(w, http.StatusForbidden, "Access denied.")
		return nil, false
	}
	allowed, err := h.resolver.HasCategoryAccess(role, m.CategoryID)
	if err != nil {
		slog.Error("material access check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return nil, false
	}
	if !allowed {
		// Hide the material's existence from roles outside its category.
		writeError(w, http.StatusNotFound, "Material not found.")
		return nil, false
	}
	return m, true
}

// pagination reads limit/offset query values with sane bounds.
func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if raw := r.FormValue("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if raw := r.FormValue("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// recordAudit writes a material audit entry attributed to the session user.
func (h *Materials) recordAudit(r *http.Request, action string, id int64, detail string) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess != nil {
		h.audit.Record(&sess.UserID, action, "material", strconv.FormatInt(id, 10), detail)
		return
	}
	h.audit.Record(nil, action, "material", strconv.FormatInt(id, 10), detail)
}
