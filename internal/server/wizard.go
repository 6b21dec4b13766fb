// Package server exposes the report wizard over HTTP and report rendering over gRPC.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/inspection-reports/constants"
	"github.com/joseph-ayodele/inspection-reports/internal/common"
	"github.com/joseph-ayodele/inspection-reports/internal/entity"
	"github.com/joseph-ayodele/inspection-reports/internal/export"
	"github.com/joseph-ayodele/inspection-reports/internal/session"
	"github.com/joseph-ayodele/inspection-reports/internal/sites"
)

const (
	defaultMaxUpload = 64 << 20
	maxTextLength    = 2000
	normalizeWorkers = 4
)

// PhotoNormalizer prepares uploaded photo bytes for rendering.
type PhotoNormalizer interface {
	Normalize(ctx context.Context, data []byte) ([]byte, error)
}

type WizardConfig struct {
	// MaxUploadBytes bounds the whole step 3 request body.
	MaxUploadBytes int64
}

// Wizard serves the four report steps. State lives in the session store, never
// in the handler.
type Wizard struct {
	sessions  *session.Manager
	catalog   *sites.Catalog
	photos    PhotoNormalizer
	exporter  *export.Service
	logger    *slog.Logger
	maxUpload int64
}

func NewWizard(
	sessions *session.Manager,
	catalog *sites.Catalog,
	photos PhotoNormalizer,
	exporter *export.Service,
	cfg WizardConfig,
	logger *slog.Logger,
) *Wizard {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	return &Wizard{
		sessions:  sessions,
		catalog:   catalog,
		photos:    photos,
		exporter:  exporter,
		logger:    logger,
		maxUpload: cfg.MaxUploadBytes,
	}
}

// Routes returns the wizard router.
func (wz *Wizard) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(wz.requestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(wz.withSession)

		r.Get("/", wz.getGeneral)
		r.Post("/", wz.postGeneral)
		r.Post("/reset", wz.postReset)

		r.Group(func(r chi.Router) {
			r.Use(requireHeader)
			r.Get("/step2", wz.getItems)
			r.Post("/step2", wz.postItem)
			r.Get("/step3", wz.getPhotos)
			r.Post("/step3", wz.postPhotos)
			r.Get("/step4", wz.getSummary)
			r.Post("/step4", wz.postExport)
		})
	})
	return r
}

func (wz *Wizard) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := common.WithRequestID(r.Context(), id)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		wz.logger.Info("http.request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

type stateKey struct{}

func (wz *Wizard) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, err := wz.sessions.Load(w, r)
		if err != nil {
			wz.logger.Error("http.session.load_failed", "request_id", common.RequestIDFromContext(r.Context()), "error", err)
			writeErrors(w, http.StatusInternalServerError, "session unavailable")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), stateKey{}, st)))
	})
}

func stateFrom(r *http.Request) *session.State {
	st, _ := r.Context().Value(stateKey{}).(*session.State)
	return st
}

// requireHeader sends clients that skipped step 1 back to it.
func requireHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if st := stateFrom(r); st == nil || st.Header == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (wz *Wizard) save(w http.ResponseWriter, r *http.Request, st *session.State) bool {
	if err := wz.sessions.Save(r.Context(), st); err != nil {
		wz.logger.Error("http.session.save_failed",
			"request_id", common.RequestIDFromContext(r.Context()),
			"session_id", st.ID,
			"error", err,
		)
		writeErrors(w, http.StatusInternalServerError, "could not save session")
		return false
	}
	return true
}

// Step 1

func (wz *Wizard) getGeneral(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"sites":  wz.catalog.IDs(),
		"header": st.Header,
		"step":   st.Step,
	})
}

func (wz *Wizard) postGeneral(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErrors(w, http.StatusBadRequest, "malformed form")
		return
	}
	h := entity.ReportHeader{
		SiteID:       strings.TrimSpace(r.PostForm.Get("site_id")),
		Date:         strings.TrimSpace(r.PostForm.Get("date")),
		InitialNotes: strings.TrimSpace(r.PostForm.Get("initial_notes")),
	}

	v := common.NewValidator().
		Field("site_id", h.SiteID, common.Required, common.OneOf(wz.catalog.Contains)).
		Field("date", h.Date, common.Required, common.DateYMD).
		Field("initial_notes", h.InitialNotes, common.MaxLength(maxTextLength))
	if v.HasErrors() {
		writeErrors(w, http.StatusUnprocessableEntity, v.Messages()...)
		return
	}

	st := stateFrom(r)
	st.Start(h)
	if !wz.save(w, r, st) {
		return
	}
	wz.logger.Info("wizard.general.ok", "session_id", st.ID, "site_id", h.SiteID, "date", h.Date)
	http.Redirect(w, r, "/step2", http.StatusSeeOther)
}

// Step 2

type itemView struct {
	Index   int      `json:"index"`
	Type    string   `json:"type"`
	Depth   string   `json:"depth"`
	Status  string   `json:"status"`
	Comment string   `json:"comment,omitempty"`
	Photos  int      `json:"photos"`
	Labels  []string `json:"labels,omitempty"`
}

func itemViews(items []entity.InspectionItem) []itemView {
	out := make([]itemView, 0, len(items))
	for i, it := range items {
		v := itemView{
			Index:   i,
			Type:    it.Type,
			Depth:   it.Depth,
			Status:  it.Status,
			Comment: it.Comment,
			Photos:  len(it.Photos),
		}
		for _, p := range it.Photos {
			v.Labels = append(v.Labels, p.Label)
		}
		out = append(out, v)
	}
	return out
}

func (wz *Wizard) getItems(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"header":   st.Header,
		"items":    itemViews(st.Items),
		"statuses": constants.StatusesAsStringSlice(),
	})
}

func (wz *Wizard) postItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErrors(w, http.StatusBadRequest, "malformed form")
		return
	}
	it := entity.InspectionItem{
		Type:    strings.TrimSpace(r.PostForm.Get("type")),
		Depth:   strings.TrimSpace(r.PostForm.Get("depth")),
		Status:  strings.TrimSpace(r.PostForm.Get("status")),
		Comment: strings.TrimSpace(r.PostForm.Get("comment")),
	}

	v := common.NewValidator().
		Field("type", it.Type, common.Required, common.MaxLength(200)).
		Field("depth", it.Depth, common.Required, common.Numeric).
		Field("status", it.Status, common.Required, common.MaxLength(100)).
		Field("comment", it.Comment, common.MaxLength(maxTextLength))
	if v.HasErrors() {
		writeErrors(w, http.StatusUnprocessableEntity, v.Messages()...)
		return
	}
	if s, ok := constants.CanonicalStatus(it.Status); ok {
		it.Status = string(s)
	}

	st := stateFrom(r)
	st.AddItem(it)
	if !wz.save(w, r, st) {
		return
	}
	wz.logger.Info("wizard.item.ok", "session_id", st.ID, "item", len(st.Items), "type", it.Type)

	next := "/step2"
	if r.PostForm.Has("next") {
		next = "/step3"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// Step 3

func (wz *Wizard) getPhotos(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"items": itemViews(st.Items),
		"slots": constants.MaxPhotosPerItem,
	})
}

func (wz *Wizard) postPhotos(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, wz.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeErrors(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeErrors(w, http.StatusBadRequest, "malformed upload")
		return
	}

	st := stateFrom(r)
	var uploads []upload
	var problems []string
	for i := range st.Items {
		for j := 0; j < constants.MaxPhotosPerItem; j++ {
			data, ok, err := formFile(r, photoField(i, j))
			if err != nil {
				problems = append(problems, err.Error())
				continue
			}
			if ok {
				uploads = append(uploads, upload{item: i, slot: j, data: data})
			}
		}
	}
	problems = append(problems, wz.normalizeAll(r.Context(), uploads)...)

	all := make([][]entity.Photo, len(st.Items))
	for _, u := range uploads {
		all[u.item] = append(all[u.item], entity.Photo{
			Data:  u.data,
			Label: strings.TrimSpace(r.FormValue(labelField(u.item, u.slot))),
		})
	}
	if len(problems) > 0 {
		writeErrors(w, http.StatusUnprocessableEntity, problems...)
		return
	}

	if err := st.SetPhotos(all); err != nil {
		writeErrors(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !wz.save(w, r, st) {
		return
	}
	wz.logger.Info("wizard.photos.ok", "session_id", st.ID, "items", len(st.Items), "photos", st.Report("").PhotoCount())
	http.Redirect(w, r, "/step4", http.StatusSeeOther)
}

type upload struct {
	item, slot int
	data       []byte
}

// normalizeAll converts uploads in place, a few at a time. Photos whose
// conversion failed are kept as they are and render as placeholders; rejected
// input is reported back.
func (wz *Wizard) normalizeAll(ctx context.Context, uploads []upload) []string {
	if wz.photos == nil {
		return nil
	}
	problems := make([]string, len(uploads))
	var g errgroup.Group
	g.SetLimit(normalizeWorkers)
	for k := range uploads {
		k := k
		u := &uploads[k]
		g.Go(func() error {
			out, err := wz.photos.Normalize(ctx, u.data)
			switch {
			case err == nil:
				u.data = out
			case errors.Is(err, common.ErrInvalidInput):
				problems[k] = fmt.Sprintf("photo %d of item %d: %v", u.slot+1, u.item+1, err)
			default:
				wz.logger.Warn("wizard.photo.normalize_failed", "item", u.item+1, "photo", u.slot+1, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := problems[:0]
	for _, p := range problems {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func photoField(i, j int) string { return "photo_" + itoa(i) + "_" + itoa(j) }
func labelField(i, j int) string { return "label_" + itoa(i) + "_" + itoa(j) }

// formFile returns the contents of an uploaded file; ok is false when the field
// is absent or empty.
func formFile(r *http.Request, field string) ([]byte, bool, error) {
	if r.MultipartForm == nil {
		return nil, false, nil
	}
	fhs := r.MultipartForm.File[field]
	if len(fhs) == 0 || fhs[0].Size == 0 {
		return nil, false, nil
	}
	if ext := filepath.Ext(fhs[0].Filename); !constants.AllowedExt(ext) {
		return nil, false, fmt.Errorf("%s: unsupported file type %q", field, ext)
	}
	f, err := fhs[0].Open()
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Step 4

func (wz *Wizard) getSummary(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"header": st.Header,
		"items":  itemViews(st.Items),
		"photos": st.Report("").PhotoCount(),
	})
}

func (wz *Wizard) postExport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErrors(w, http.StatusBadRequest, "malformed form")
		return
	}
	notes := strings.TrimSpace(r.PostForm.Get("closing_notes"))
	if v := common.NewValidator().Field("closing_notes", notes, common.MaxLength(maxTextLength)); v.HasErrors() {
		writeErrors(w, http.StatusUnprocessableEntity, v.Messages()...)
		return
	}

	action := r.PostForm.Get("action")
	if action == "" && r.PostForm.Has("download") {
		action = "download"
	}

	st := stateFrom(r)
	st.Step = constants.StepExport
	report := st.Report(notes)
	ctx := r.Context()

	var (
		body        []byte
		contentType string
		filename    string
		err         error
	)
	switch action {
	case "download":
		body, err = wz.exporter.RenderPDF(ctx, report)
		contentType, filename = "application/pdf", export.Filename(report, "pdf")
	case "download_xlsx":
		body, err = wz.exporter.ExportItemsXLSX(ctx, report)
		contentType, filename = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.Filename(report, "xlsx")
	case "message":
		body, err = wz.exporter.BuildMessage(ctx, report, export.Message{To: splitRecipients(r.PostForm.Get("recipients"))})
		contentType, filename = "message/rfc822", export.Filename(report, "eml")
	default:
		writeErrors(w, http.StatusUnprocessableEntity, "action must be one of download, download_xlsx, message")
		return
	}
	if err != nil {
		wz.logger.Error("wizard.export.failed",
			"request_id", common.RequestIDFromContext(ctx),
			"session_id", st.ID,
			"action", action,
			"error", err,
		)
		if errors.Is(err, common.ErrInvalidInput) || errors.Is(err, common.ErrLayoutInvariant) {
			writeErrors(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeErrors(w, http.StatusInternalServerError, "export failed")
		return
	}
	if !wz.save(w, r, st) {
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func splitRecipients(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})
}

func (wz *Wizard) postReset(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	if err := wz.sessions.Reset(r.Context(), w, st); err != nil {
		wz.logger.Warn("wizard.reset.failed", "session_id", st.ID, "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
