// Package review implements the per-session cursor over a dataset file.
package review

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/link-review/backend/internal/dataset"
	"github.com/link-review/backend/internal/models"
	"go.uber.org/zap"
)

// ErrStaleSession wraps every failure to locate or read the session's file.
var ErrStaleSession = errors.New("review session is no longer valid")

// errAtEnd aborts an update when the cursor is already past the last row.
var errAtEnd = errors.New("cursor at end of dataset")

// Store defines the interface needed from the storage layer.
type Store interface {
	Resolve(partition, path string) (string, error)
	Load(path string) (*dataset.Dataset, error)
	Update(path string, fn func(*dataset.Dataset) error) (*dataset.Dataset, error)
}

// View is what the review page shows for the current cursor.
type View struct {
	OriginalName string
	Cursor       int
	Position     int // 1-based
	Total        int
	Done         bool
	Link         string
	Name         string
	Status       models.Status
	Counts       models.Counts
}

// Sheet is the whole dataset for the table page.
type Sheet struct {
	OriginalName string
	Columns      []string
	Rows         [][]string
	Cursor       int
	Counts       models.Counts
}

// Outcome describes the effect of an action.
type Outcome struct {
	Message string
	Mutated bool
}

// Engine applies review actions to a session's dataset.
type Engine struct {
	store  Store
	logger *zap.Logger
}

// NewEngine creates a review engine.
func NewEngine(store Store, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

func (e *Engine) resolve(partition string, r *models.ReviewState) (string, error) {
	path, err := e.store.Resolve(partition, r.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStaleSession, err)
	}
	return path, nil
}

func (e *Engine) load(partition string, r *models.ReviewState) (*dataset.Dataset, error) {
	path, err := e.resolve(partition, r)
	if err != nil {
		return nil, err
	}
	d, err := e.store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStaleSession, err)
	}
	r.Clamp(d.Len())
	return d, nil
}

// Current returns the view at the session cursor. The cursor is clamped to
// the dataset's current length.
func (e *Engine) Current(partition string, r *models.ReviewState) (*View, error) {
	d, err := e.load(partition, r)
	if err != nil {
		return nil, err
	}

	v := &View{
		OriginalName: r.OriginalName,
		Cursor:       r.Cursor,
		Position:     r.Cursor + 1,
		Total:        d.Len(),
		Done:         r.Done(),
		Counts:       d.Counts(),
	}
	if !v.Done {
		v.Link = d.Link(r.Cursor)
		v.Name = dataset.DisplayName(v.Link)
		v.Status = d.Status(r.Cursor)
	}
	return v, nil
}

// Apply performs an action. Accept and Reject persist the status of the
// current row and then advance; at the end of the dataset they change nothing.
func (e *Engine) Apply(partition string, r *models.ReviewState, action models.Action) (Outcome, error) {
	switch action {
	case models.ActionAccept, models.ActionReject:
		return e.annotate(partition, r, models.Status(action))
	case models.ActionNext:
		if _, err := e.load(partition, r); err != nil {
			return Outcome{}, err
		}
		r.Advance()
		return Outcome{}, nil
	case models.ActionPrevious:
		if _, err := e.load(partition, r); err != nil {
			return Outcome{}, err
		}
		r.Retreat()
		return Outcome{}, nil
	case models.ActionCheckStatus:
		if _, err := e.load(partition, r); err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: "Status refreshed from the latest file."}, nil
	}
	return Outcome{}, fmt.Errorf("unknown action %q", action)
}

func (e *Engine) annotate(partition string, r *models.ReviewState, st models.Status) (Outcome, error) {
	path, err := e.resolve(partition, r)
	if err != nil {
		return Outcome{}, err
	}

	row := -1
	_, err = e.store.Update(path, func(d *dataset.Dataset) error {
		r.Clamp(d.Len())
		if r.Done() {
			return errAtEnd
		}
		row = r.Cursor
		return d.SetStatus(row, st)
	})
	if errors.Is(err, errAtEnd) {
		return Outcome{}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrStaleSession, err)
	}

	e.logger.Debug("row annotated",
		zap.String("partition", partition),
		zap.Int("row", row),
		zap.String("status", string(st)))

	r.Advance()
	return Outcome{Message: "Marked as " + string(st), Mutated: true}, nil
}

// Sheet returns the full dataset for display.
func (e *Engine) Sheet(partition string, r *models.ReviewState) (*Sheet, error) {
	d, err := e.load(partition, r)
	if err != nil {
		return nil, err
	}
	return &Sheet{
		OriginalName: r.OriginalName,
		Columns:      d.Columns,
		Rows:         d.Rows,
		Cursor:       r.Cursor,
		Counts:       d.Counts(),
	}, nil
}

// Export returns the path of the reviewed file and its download name.
func (e *Engine) Export(partition string, r *models.ReviewState) (string, string, error) {
	path, err := e.resolve(partition, r)
	if err != nil {
		return "", "", err
	}
	return path, ExportName(r.OriginalName), nil
}

// ExportName derives the download name from the uploaded file name.
func ExportName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if strings.EqualFold(filepath.Ext(base), ".gz") {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		stem = "dataset"
	}
	return stem + "_reviewed.csv"
}
