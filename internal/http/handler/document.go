package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"dkn/internal/http/middleware"
	"dkn/internal/model"
	"dkn/internal/repository"
	"dkn/internal/service"
)

// UploadDocument handles multipart uploads (field "file" plus metadata fields).
//
// @Summary  Upload a document
// @Tags     documents
// @Accept   mpfd
// @Produce  json
// @Param    file         formData file   true  "Document file"
// @Param    title        formData string true  "Title"
// @Param    description  formData string false "Description"
// @Param    tags         formData string false "Comma separated tags"
// @Param    department   formData string false "Department"
// @Param    region       formData string false "Region"
// @Param    project_type formData string false "Project type"
// @Success  201 {object} map[string]any
// @Failure  400 {object} errorPayload
// @Security BearerAuth
// @Router   /api/documents/upload [post]
func UploadDocument(svc service.DocumentService, maxUploadBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := service.UploadInput{
			Title:       c.FormValue("title"),
			Description: c.FormValue("description"),
			Tags:        c.FormValue("tags"),
			Department:  c.FormValue("department"),
			Region:      c.FormValue("region"),
			ProjectType: c.FormValue("project_type"),
		}

		fh, err := c.FormFile("file")
		if err == nil {
			if maxUploadBytes > 0 && fh.Size > maxUploadBytes {
				return writeError(c, fiber.StatusBadRequest, "FILE_TOO_LARGE", fileTooLargeMessage(maxUploadBytes))
			}
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "Cannot open uploaded file")
			}
			defer f.Close()

			in.Reader = f
			in.OriginalName = fh.Filename
			in.Size = fh.Size
			in.ContentType = fh.Header.Get(fiber.HeaderContentType)
		}

		doc, err := svc.Upload(c.UserContext(), in, middleware.UserID(c))
		if err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusCreated, fiber.Map{
			"message":  "Document uploaded successfully",
			"document": doc,
		})
	}
}

// ListDocuments returns the filtered catalog.
//
// @Summary  List documents
// @Tags     documents
// @Produce  json
// @Param    search      query string false "Matches title, description or tags"
// @Param    department  query string false "Department"
// @Param    region      query string false "Region"
// @Param    tags        query string false "Tag substring"
// @Param    uploader_id query int    false "Uploader ID"
// @Param    status      query string false "Status (reviewers only)"
// @Param    limit       query int    false "Page size" default(50)
// @Param    offset      query int    false "Offset" default(0)
// @Success  200 {object} map[string]any
// @Security BearerAuth
// @Router   /api/documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, ok := queryInt(c, "limit")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "Invalid limit")
		}
		offset, ok := queryInt(c, "offset")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "Invalid offset")
		}

		f := repository.DocumentFilter{
			Search:     c.Query("search"),
			Department: c.Query("department"),
			Region:     c.Query("region"),
			Tags:       c.Query("tags"),
			Status:     model.DocumentStatus(c.Query("status")),
		}
		if raw := c.Query("uploader_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_UPLOADER_ID", "Invalid uploader_id")
			}
			f.UploaderID = id
		}

		res, err := svc.List(c.UserContext(), middleware.UserID(c), f, repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, fiber.Map{
			"count":       res.Count,
			"documents":   nonNil(res.Documents),
			"is_reviewer": res.IsReviewer,
		})
	}
}

// RecentDocuments returns the newest documents.
//
// @Summary  Recent documents
// @Tags     documents
// @Produce  json
// @Param    limit query int false "Number of documents" default(10)
// @Success  200 {object} map[string]any
// @Security BearerAuth
// @Router   /api/documents/recent [get]
func RecentDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, ok := queryInt(c, "limit")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "Invalid limit")
		}
		docs, err := svc.Recent(c.UserContext(), limit)
		if err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, fiber.Map{"documents": nonNil(docs)})
	}
}

// PendingDocuments returns the review queue.
//
// @Summary  Pending documents
// @Tags     review
// @Produce  json
// @Success  200 {object} map[string]any
// @Failure  403 {object} errorPayload
// @Security BearerAuth
// @Router   /api/documents/pending [get]
func PendingDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.Pending(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, fiber.Map{
			"count":     len(docs),
			"documents": nonNil(docs),
		})
	}
}

// GetDocument returns one document.
//
// @Summary  Get a document
// @Tags     documents
// @Produce  json
// @Param    id path int true "Document ID"
// @Success  200 {object} map[string]any
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "Invalid document id")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, fiber.Map{"document": doc})
	}
}

// DownloadDocument streams the file as an attachment and counts the download.
//
// @Summary  Download a document
// @Tags     documents
// @Produce  octet-stream
// @Param    id path int true "Document ID"
// @Success  200 {file} file
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/documents/{id}/download [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "Invalid document id")
		}
		res, err := svc.Download(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return handleError(c, err)
		}

		c.Attachment(res.FileName)
		if res.ContentType != "" {
			c.Set(fiber.HeaderContentType, res.ContentType)
		}
		size := int(res.Size)
		if size <= 0 {
			size = -1
		}
		// fasthttp closes the body once it has been written.
		return c.SendStream(res.Body, size)
	}
}

// ReviewDocument approves or rejects a document.
//
// @Summary  Review a document
// @Tags     review
// @Accept   json
// @Produce  json
// @Param    id   path int                 true "Document ID"
// @Param    body body service.ReviewInput true "Decision"
// @Success  200 {object} map[string]any
// @Failure  400 {object} errorPayload
// @Failure  403 {object} errorPayload
// @Security BearerAuth
// @Router   /api/documents/{id}/review [put]
func ReviewDocument(svc service.ReviewService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "Invalid document id")
		}
		var in service.ReviewInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		}
		if err := svc.Review(c.UserContext(), id, middleware.UserID(c), in); err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, fiber.Map{
			"message": "Document " + in.Status + " successfully",
		})
	}
}

// DeleteDocument removes a document owned by the caller.
//
// @Summary  Delete a document
// @Tags     documents
// @Produce  json
// @Param    id path int true "Document ID"
// @Success  200 {object} map[string]any
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "Invalid document id")
		}
		if err := svc.Delete(c.UserContext(), id, middleware.UserID(c)); err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, fiber.Map{"message": "Document deleted successfully"})
	}
}

// paramID parses the :id route parameter as a positive integer.
func paramID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt parses an optional non-negative integer query parameter.
// A missing parameter yields 0, which the services treat as "use the default".
func queryInt(c *fiber.Ctx, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
