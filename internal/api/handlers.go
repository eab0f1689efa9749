package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/link-review/backend/internal/dataset"
	"github.com/link-review/backend/internal/models"
	"github.com/link-review/backend/internal/parser"
	"github.com/link-review/backend/internal/review"
	"github.com/link-review/backend/internal/session"
	"github.com/link-review/backend/internal/upload"
	"github.com/link-review/backend/internal/web"
	"go.uber.org/zap"
)

// Multipart field names accepted for the upload.
var uploadFields = []string{"file", "csv_file"}

// Handler handles page requests.
type Handler struct {
	uploads  Ingester
	reviews  Reviewer
	sweeper  Sweeper
	sessions *session.Manager
	logger   *zap.Logger
	version  string
}

// NewHandler creates a new page handler.
func NewHandler(deps *Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		uploads:  deps.Uploads,
		reviews:  deps.Reviews,
		sweeper:  deps.Sweeper,
		sessions: deps.Sessions,
		logger:   logger,
		version:  deps.Version,
	}
}

type indexData struct {
	Accept       string
	OriginalName string
}

// HandleIndex renders the upload form.
func (h *Handler) HandleIndex(c echo.Context) error {
	st := session.FromContext(c)
	data := indexData{Accept: strings.Join(parser.Extensions(), ",")}
	if st.Review != nil {
		data.OriginalName = st.Review.OriginalName
	}
	return h.render(c, web.PageIndex, "Upload", data)
}

// HandleUpload ingests the uploaded file and binds it to the session.
func (h *Handler) HandleUpload(c echo.Context) error {
	st := session.FromContext(c)

	fh := formFile(c)
	if fh == nil {
		st.AddFlash(session.LevelWarning, "Please choose a file to upload.")
		return h.redirect(c, st, "/")
	}

	src, err := fh.Open()
	if err != nil {
		return NewBadRequestError("failed to open uploaded file", err)
	}
	defer src.Close()

	partition := st.EnsurePartition()
	res, err := h.uploads.Ingest(c.Request().Context(), partition, fh.Filename, src)
	if err != nil {
		st.AddFlash(session.LevelWarning, h.uploadErrorMessage(err))
		return h.redirect(c, st, "/")
	}

	st.Bind(res.File.ReviewedPath, res.File.Name, res.Total)
	st.AddFlash(session.LevelSuccess,
		fmt.Sprintf("File uploaded successfully! %d unique links ready for review.", res.Total))
	if res.Duplicates > 0 {
		st.AddFlash(session.LevelInfo, fmt.Sprintf("Removed %d duplicate links.", res.Duplicates))
	}
	if res.ResetStatuses > 0 {
		st.AddFlash(session.LevelInfo,
			fmt.Sprintf("%d unrecognized status values were reset to Pending.", res.ResetStatuses))
	}
	return h.redirect(c, st, "/viewer")
}

func (h *Handler) uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, dataset.ErrMissingLinkColumn):
		return "'link' column not found in the uploaded file."
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return "Unsupported file format. Accepted: " + strings.Join(parser.Extensions(), ", ")
	case errors.Is(err, parser.ErrEmptyFile):
		return "The uploaded file is empty."
	case errors.Is(err, upload.ErrTooLarge):
		return "The uploaded file is too large once decompressed."
	}
	h.logger.Warn("upload failed", zap.Error(err))
	return "The uploaded file could not be read."
}

// HandleViewer shows the current link, or the completion page.
func (h *Handler) HandleViewer(c echo.Context) error {
	st := session.FromContext(c)
	r, err := st.RequireReview()
	if err != nil {
		return h.noReview(c, st, "Please upload a file first.")
	}

	view, err := h.reviews.Current(st.Partition, r)
	if err != nil {
		return h.reviewError(c, st, err)
	}
	if view.Done {
		return h.render(c, web.PageDone, "Done", view)
	}
	return h.render(c, web.PageViewer, view.Name, view)
}

// HandleViewerAction applies a review action and redirects back to the viewer.
func (h *Handler) HandleViewerAction(c echo.Context) error {
	st := session.FromContext(c)
	r, err := st.RequireReview()
	if err != nil {
		return h.noReview(c, st, "Please upload a file first.")
	}

	action, ok := models.ParseAction(c.FormValue("action"))
	if !ok {
		st.AddFlash(session.LevelWarning, "Unknown action.")
		return h.redirect(c, st, "/viewer")
	}

	outcome, err := h.reviews.Apply(st.Partition, r, action)
	if err != nil {
		return h.reviewError(c, st, err)
	}
	if outcome.Message != "" {
		level := session.LevelInfo
		if outcome.Mutated {
			level = session.LevelSuccess
		}
		st.AddFlash(level, outcome.Message)
	}
	return h.redirect(c, st, "/viewer")
}

// HandleViewSheet renders the whole dataset with counts.
func (h *Handler) HandleViewSheet(c echo.Context) error {
	st := session.FromContext(c)
	r, err := st.RequireReview()
	if err != nil {
		return h.noReview(c, st, "Please upload a file first.")
	}

	sheet, err := h.reviews.Sheet(st.Partition, r)
	if err != nil {
		return h.reviewError(c, st, err)
	}
	return h.render(c, web.PageSheet, sheet.OriginalName, sheet)
}

// HandleDownload streams the reviewed file as an attachment.
func (h *Handler) HandleDownload(c echo.Context) error {
	st := session.FromContext(c)
	r, err := st.RequireReview()
	if err != nil {
		return h.noReview(c, st, "No reviewed file available.")
	}

	path, name, err := h.reviews.Export(st.Partition, r)
	if err != nil {
		return h.reviewError(c, st, err)
	}
	return c.Attachment(path, name)
}

// HandleReset forgets the bound dataset. Files stay until the sweep.
func (h *Handler) HandleReset(c echo.Context) error {
	st := session.FromContext(c)
	st.ClearReview()
	st.AddFlash(session.LevelInfo, "Review reset. Upload a file to start again.")
	return h.redirect(c, st, "/")
}

func (h *Handler) noReview(c echo.Context, st *session.State, message string) error {
	st.ClearReview()
	st.AddFlash(session.LevelWarning, message)
	return h.redirect(c, st, "/")
}

// reviewError discards a session whose file is gone or foreign; anything
// else goes to the error handler.
func (h *Handler) reviewError(c echo.Context, st *session.State, err error) error {
	if !errors.Is(err, review.ErrStaleSession) {
		return NewInternalError("failed to process review", err)
	}
	h.logger.Info("discarding review session",
		zap.String("partition", st.Partition),
		zap.Error(err))
	return h.noReview(c, st, "Your review session is no longer valid. Please upload the file again.")
}

func (h *Handler) render(c echo.Context, page, title string, data any) error {
	st := session.FromContext(c)
	p := web.Page{
		Title:     title,
		Flashes:   st.PopFlashes(),
		HasReview: st.Review != nil,
		Data:      data,
	}
	if err := h.sessions.Save(c, st); err != nil {
		return NewInternalError("failed to save session", err)
	}
	return c.Render(http.StatusOK, page, p)
}

func (h *Handler) redirect(c echo.Context, st *session.State, to string) error {
	if err := h.sessions.Save(c, st); err != nil {
		return NewInternalError("failed to save session", err)
	}
	return c.Redirect(http.StatusSeeOther, to)
}

func formFile(c echo.Context) *multipart.FileHeader {
	for _, field := range uploadFields {
		if fh, err := c.FormFile(field); err == nil && fh.Filename != "" {
			return fh
		}
	}
	return nil
}
