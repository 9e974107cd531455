package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gautam3767/additive_registry_backend/events"
	"github.com/Gautam3767/additive_registry_backend/models"
	"github.com/Gautam3767/additive_registry_backend/services"
)

// Upload, parse and store can take a while.
const uploadTimeout = 30 * time.Second

// ProductHandler serves the registry API.
type ProductHandler struct {
	submitter  *services.Submitter
	pipeline   *services.BulkIngestionPipeline
	moderator  *services.Moderator
	limiter    *services.SubmissionLimiter
	reconciler *services.Reconciler
	extractor  services.TextExtractor
	bus        *events.Bus
	logger     *slog.Logger
}

// Deps lists the services a ProductHandler needs.
type Deps struct {
	Submitter  *services.Submitter
	Pipeline   *services.BulkIngestionPipeline
	Moderator  *services.Moderator
	Limiter    *services.SubmissionLimiter
	Reconciler *services.Reconciler
	Extractor  services.TextExtractor
	Bus        *events.Bus
	Logger     *slog.Logger
}

func NewProductHandler(d Deps) *ProductHandler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductHandler{
		submitter:  d.Submitter,
		pipeline:   d.Pipeline,
		moderator:  d.Moderator,
		limiter:    d.Limiter,
		reconciler: d.Reconciler,
		extractor:  d.Extractor,
		bus:        d.Bus,
		logger:     logger.With("component", "http"),
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, services.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *ProductHandler) fail(c *gin.Context, err error, extra gin.H) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	body := gin.H{"error": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(code, body)
}

// ListProducts godoc
// @Summary List products
// @Description Reconciled product view. Admins may pass view=admin to include unapproved records.
// @Tags products
// @Produce json
// @Param country query string false "Region filter; Global or empty shows everything"
// @Param view query string false "admin for the moderation view"
// @Success 200 {object} services.View
// @Router /products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	caller := callerFrom(c)
	view := h.reconciler.View(c.Request.Context(), services.ViewRequest{
		IsAdmin:     caller.IsAdmin,
		IsAdminView: strings.EqualFold(c.Query("view"), "admin"),
		Country:     c.Query("country"),
	})
	c.JSON(http.StatusOK, view)
}

// ListPending godoc
// @Summary List records awaiting moderation
// @Tags moderation
// @Produce json
// @Success 200 {array} models.ProductRecord
// @Failure 403 {object} map[string]string "Administrator access required"
// @Router /products/pending [get]
func (h *ProductHandler) ListPending(c *gin.Context) {
	caller := callerFrom(c)
	if !caller.IsAdmin {
		h.fail(c, services.ErrForbidden, nil)
		return
	}
	view := h.reconciler.View(c.Request.Context(), services.ViewRequest{IsAdmin: true, IsAdminView: true})
	c.JSON(http.StatusOK, gin.H{"pending": view.Pending, "stale": view.Stale})
}

// GetProduct godoc
// @Summary Get one product
// @Description Unapproved records are only visible to admins and to their submitter.
// @Tags products
// @Produce json
// @Param id path string true "Product id"
// @Success 200 {object} models.ProductRecord
// @Failure 404 {object} map[string]string "Product not found"
// @Router /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	caller := callerFrom(c)
	id := c.Param("id")
	rec, err := h.moderator.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	if !rec.Approved && !caller.IsAdmin && rec.SubmittedBy != caller.UserID {
		h.fail(c, fmt.Errorf("product %s: %w", id, models.ErrNotFound), nil)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CreateProduct godoc
// @Summary Submit a product
// @Description Classifies the supplied label text and stores the record for moderation.
// @Tags products
// @Accept json
// @Produce json
// @Param product body services.SubmissionInput true "Submission"
// @Success 201 {object} services.SubmissionResult
// @Success 202 {object} services.SubmissionResult "Stored offline; remote store unavailable"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 409 {object} map[string]string "Product already exists"
// @Failure 429 {object} map[string]string "Submission quota exceeded"
// @Router /products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var in services.SubmissionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	h.submit(c, in)
}

func (h *ProductHandler) submit(c *gin.Context, in services.SubmissionInput) {
	res, err := h.submitter.Submit(c.Request.Context(), callerFrom(c), in)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, res)
	case res.CachedOffline:
		c.JSON(http.StatusAccepted, gin.H{"warning": err.Error(), "result": res})
	default:
		h.fail(c, err, gin.H{"quota": res.Quota})
	}
}

// UploadProductPDF godoc
// @Summary Submit a product from a label PDF
// @Description Extracts the PDF text and classifies it. A PDF without extractable text yields status inconclusive.
// @Tags products
// @Accept multipart/form-data
// @Produce json
// @Param brand formData string true "Brand"
// @Param name formData string true "Product name"
// @Param type formData string true "Product type"
// @Param pdfFile formData file true "Label or ingredient sheet"
// @Success 201 {object} services.SubmissionResult
// @Failure 400 {object} map[string]string "Bad request"
// @Router /products/upload [post]
func (h *ProductHandler) UploadProductPDF(c *gin.Context) {
	fileHeader, err := c.FormFile("pdfFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'pdfFile' form field or invalid file upload"})
		return
	}
	in := services.SubmissionInput{
		Brand:       c.PostForm("brand"),
		Name:        c.PostForm("name"),
		Type:        c.PostForm("type"),
		Description: c.PostForm("description"),
		Country:     c.PostFormArray("country"),
		ImageURL:    c.PostForm("imageUrl"),
		VideoURL:    c.PostForm("videoUrl"),
		WebsiteURL:  c.PostForm("websiteUrl"),
	}
	if raw := strings.TrimSpace(c.PostForm("percentage")); raw != "" {
		v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("percentage %q is not a finite number", raw)})
			return
		}
		in.Percentage = &v
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), uploadTimeout)
	defer cancel()
	c.Request = c.Request.WithContext(ctx)

	if h.extractor == nil {
		in.ExtractionFailed = true
	} else {
		text, err := h.extractor.Extract(ctx, file)
		if err != nil {
			h.logger.Warn("pdf text extraction failed", "brand", in.Brand, "name", in.Name, "error", err)
			in.ExtractionFailed = true
		}
		in.Text = text
	}
	h.submit(c, in)
}

// UpdateProduct godoc
// @Summary Edit a product
// @Tags moderation
// @Accept json
// @Produce json
// @Param id path string true "Product id"
// @Param patch body services.ProductPatch true "Fields to change"
// @Success 200 {object} models.ProductRecord
// @Failure 403 {object} map[string]string "Administrator access required"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 409 {object} map[string]string "Conflicts with an existing product"
// @Router /products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var patch services.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	rec, err := h.moderator.Update(c.Request.Context(), callerFrom(c), c.Param("id"), patch)
	h.respondRecord(c, rec, err)
}

// ApproveProduct godoc
// @Summary Approve a pending product
// @Tags moderation
// @Produce json
// @Param id path string true "Product id"
// @Success 200 {object} models.ProductRecord
// @Router /products/{id}/approve [post]
func (h *ProductHandler) ApproveProduct(c *gin.Context) {
	rec, err := h.moderator.Approve(c.Request.Context(), callerFrom(c), c.Param("id"))
	h.respondRecord(c, rec, err)
}

// respondRecord answers 202 when a moderation change only reached the
// offline cache.
func (h *ProductHandler) respondRecord(c *gin.Context, rec models.ProductRecord, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, rec)
	case errors.Is(err, services.ErrRemoteUnavailable) && rec.ID != "":
		c.JSON(http.StatusAccepted, gin.H{"warning": err.Error(), "record": rec})
	default:
		h.fail(c, err, nil)
	}
}

// DeleteProduct godoc
// @Summary Delete a product
// @Tags moderation
// @Produce json
// @Param id path string true "Product id"
// @Success 200 {object} map[string]string "Success message"
// @Failure 404 {object} map[string]string "Product not found"
// @Router /products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if err := h.moderator.Delete(c.Request.Context(), callerFrom(c), id); err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Product '%s' deleted successfully", id)})
}

// ImportProducts godoc
// @Summary Bulk import products from CSV
// @Description Accepts a multipart 'file' field or a raw text/csv body. Every row ends up accepted, duplicate or rejected.
// @Tags import
// @Accept multipart/form-data
// @Accept text/csv
// @Produce json
// @Param country query []string false "Regions applied to every row"
// @Success 200 {object} services.IngestionResult
// @Failure 400 {object} map[string]string "Malformed file"
// @Failure 429 {object} map[string]string "Submission quota exhausted"
// @Router /products/import [post]
func (h *ProductHandler) ImportProducts(c *gin.Context) {
	var body io.Reader = c.Request.Body
	regions := c.QueryArray("country")
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'file' form field or invalid file upload"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
			return
		}
		defer file.Close()
		body = file
		regions = append(regions, c.PostFormArray("country")...)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), uploadTimeout)
	defer cancel()

	res, err := h.pipeline.IngestCSV(ctx, callerFrom(c), body, regions)
	if err != nil {
		h.fail(c, err, gin.H{"quota": res.Quota})
		return
	}
	c.JSON(http.StatusOK, res)
}

// ImportTemplate godoc
// @Summary Download the CSV import template
// @Tags import
// @Produce text/csv
// @Success 200 {string} string "CSV template"
// @Router /products/import/template [get]
func (h *ProductHandler) ImportTemplate(c *gin.Context) {
	data, err := services.TemplateCSV()
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="products_template.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// GetQuota godoc
// @Summary Current submission quota for the caller
// @Tags quota
// @Produce json
// @Success 200 {object} models.SubmissionQuota
// @Router /quota [get]
func (h *ProductHandler) GetQuota(c *gin.Context) {
	q, err := h.limiter.Check(c.Request.Context(), services.QuotaRequest{Caller: callerFrom(c), Count: 1})
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %v", services.ErrRemoteUnavailable, err), nil)
		return
	}
	c.JSON(http.StatusOK, q)
}

// InvalidateCache godoc
// @Summary Drop cached views and reload
// @Tags admin
// @Success 202 {object} map[string]string
// @Router /cache/invalidate [post]
func (h *ProductHandler) InvalidateCache(c *gin.Context) {
	if !callerFrom(c).IsAdmin {
		h.fail(c, services.ErrForbidden, nil)
		return
	}
	h.bus.InvalidateCache("api request")
	c.JSON(http.StatusAccepted, gin.H{"message": "cache invalidation requested"})
}

// Reload godoc
// @Summary Re-fetch products from both sources
// @Tags admin
// @Success 202 {object} map[string]string
// @Router /reload [post]
func (h *ProductHandler) Reload(c *gin.Context) {
	if !callerFrom(c).IsAdmin {
		h.fail(c, services.ErrForbidden, nil)
		return
	}
	h.bus.RequestReload("api request")
	c.JSON(http.StatusAccepted, gin.H{"message": "reload requested"})
}

type tierPayload struct {
	Tier string `json:"tier" binding:"required"`
}

// SetContributorTier godoc
// @Summary Change a contributor's trust tier
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Contributor id"
// @Success 200 {object} map[string]string
// @Router /contributors/{id}/tier [put]
func (h *ProductHandler) SetContributorTier(c *gin.Context) {
	var payload tierPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	tier, ok := models.ParseTrustTier(payload.Tier)
	if !ok || tier == models.TierAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown trust tier %q", payload.Tier)})
		return
	}
	id := c.Param("id")
	if err := h.moderator.SetTrustTier(c.Request.Context(), callerFrom(c), id, tier); err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contributor": id, "tier": tier})
}
