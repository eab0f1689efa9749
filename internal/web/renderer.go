package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
	"github.com/link-review/backend/internal/session"
)

const layoutFile = "layout.html"

// Page names accepted by Renderer.
const (
	PageIndex  = "index"
	PageViewer = "viewer"
	PageDone   = "done"
	PageSheet  = "sheet"
)

// Page is the data every template receives.
type Page struct {
	Title   string
	Flashes []session.Flash
	// HasReview toggles the navigation links that need a bound dataset.
	HasReview bool
	Data      any
}

// Renderer implements echo.Renderer over the embedded templates. Each page
// is parsed together with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses all pages up front.
func NewRenderer() (*Renderer, error) {
	files, err := GetFileSystem()
	if err != nil {
		return nil, err
	}
	return newRenderer(files)
}

func newRenderer(files fs.FS) (*Renderer, error) {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageIndex, PageViewer, PageDone, PageSheet} {
		t, err := template.New(layoutFile).Funcs(funcs).ParseFS(files, layoutFile, name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the named page inside the layout.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, layoutFile, data)
}
