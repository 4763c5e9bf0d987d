package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
	"github.com/JakeFAU/podcast-digest/internal/submission"
)

// ProcessingNote is the static warning shown next to the submission form.
const ProcessingNote = "Podcast processing can take up to 5 mins, please be patient."

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Titles   []string
	Selected string
	Record   *recordView
	Note     string
	Error    string
	FeedURL  string
}

type recordView struct {
	PodcastTitle string
	EpisodeTitle string
	EpisodeImage string
	Summary      string
	Guest        string
	// Highlights may carry markup from the processor and are rendered unescaped.
	Highlights []template.HTML
}

func newRecordView(rec podcast.Record) *recordView {
	lines := rec.HighlightLines()
	highlights := make([]template.HTML, 0, len(lines))
	for _, line := range lines {
		highlights = append(highlights, template.HTML(line)) //nolint:gosec // highlights are trusted processor output
	}
	return &recordView{
		PodcastTitle: rec.Details.PodcastTitle,
		EpisodeTitle: rec.Details.EpisodeTitle,
		EpisodeImage: rec.Details.EpisodeImage,
		Summary:      rec.Summary,
		Guest:        rec.Guest,
		Highlights:   highlights,
	}
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := pageData{Note: ProcessingNote}

	if _, err := s.deps.Syncer.Sync(ctx); err != nil {
		s.logger.Error("sync record store", zap.Error(err))
		data.Error = "Could not refresh podcasts from the spreadsheet: " + err.Error()
		s.render(w, http.StatusInternalServerError, data)
		return
	}
	cat, err := s.deps.Catalog.Load(ctx)
	if err != nil {
		s.logger.Error("load catalog", zap.Error(err))
		data.Error = "Could not load podcasts: " + err.Error()
		s.render(w, http.StatusInternalServerError, data)
		return
	}

	data.Titles = cat.Titles()
	data.Selected = r.URL.Query().Get("podcast")
	if data.Selected == "" {
		data.Selected = cat.Default()
	}
	if data.Selected == "" {
		s.render(w, http.StatusOK, data)
		return
	}
	rec, ok := cat.Get(data.Selected)
	if !ok {
		data.Error = "Unknown podcast: " + data.Selected
		s.render(w, http.StatusNotFound, data)
		return
	}
	data.Record = newRecordView(rec)
	s.render(w, http.StatusOK, data)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	feedURL := r.FormValue("url")
	res, err := s.deps.Submitter.Submit(r.Context(), feedURL)
	if err != nil {
		status := submitStatus(err)
		s.logger.Error("submission failed",
			zap.String("feed_url", feedURL),
			zap.Int("status", status),
			zap.Error(err),
		)
		data := pageData{
			Note:    ProcessingNote,
			FeedURL: feedURL,
			Error:   "Submission failed: " + err.Error(),
		}
		s.fillCatalog(r, &data)
		s.render(w, status, data)
		return
	}
	s.logger.Info("submission complete", zap.String("filename", res.Filename))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// fillCatalog adds the selector and default record to an error page so the
// visitor can keep browsing. Failures leave the page as it was.
func (s *Server) fillCatalog(r *http.Request, data *pageData) {
	cat, err := s.deps.Catalog.Load(r.Context())
	if err != nil {
		s.logger.Warn("load catalog for error page", zap.Error(err))
		return
	}
	data.Titles = cat.Titles()
	data.Selected = cat.Default()
	if rec, ok := cat.Get(data.Selected); ok {
		data.Record = newRecordView(rec)
	}
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, podcast.ErrInvalidFeedURL):
		return http.StatusBadRequest
	case errors.Is(err, podcast.ErrFeedCheck):
		return http.StatusUnprocessableEntity
	case errors.Is(err, submission.ErrProcessing):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		s.logger.Error("render page", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("write page", zap.Error(err))
	}
}
