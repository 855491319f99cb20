package server

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/goliatone/go-configadmin/internal/auth"
	"github.com/goliatone/go-configadmin/internal/metrics"
	"github.com/goliatone/go-configadmin/internal/submission"
	"github.com/goliatone/go-configadmin/pkg/configapi"
	"github.com/goliatone/go-configadmin/pkg/functional"
	"github.com/goliatone/go-configadmin/pkg/orchestrator"
	"github.com/goliatone/go-configadmin/pkg/render"
	"github.com/goliatone/go-configadmin/pkg/renderers/vanilla"
	"github.com/goliatone/go-configadmin/pkg/validation"
)

const (
	noticeFixFields     = "Please correct the highlighted fields."
	noticeHistoryFailed = "The history could not be loaded."
)

func (s *Server) page(r *http.Request, title, active string) vanilla.Page {
	p := vanilla.Page{Title: title, Active: active, Profile: s.api.Profile()}
	if session, ok := auth.SessionFromContext(r.Context()); ok {
		p.CSRF = session.CSRF
		if s.auth.Interactive() {
			p.User = session.DisplayName()
		}
	}
	return p
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, status int, name string, page vanilla.Page) {
	var buf bytes.Buffer
	if err := s.pages.RenderPage(&buf, name, page); err != nil {
		s.logger.Error("render page", zap.String("page", name), zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", s.pages.ContentType())
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	page := s.page(r, "Error", "")
	page.Data = map[string]any{
		"status":      status,
		"status_text": http.StatusText(status),
		"message":     message,
	}
	s.write(w, r, status, vanilla.PageError, page)
}

// upstream reports a failed call to the configuration API.
func (s *Server) upstream(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("configuration api call failed", zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
	if errors.Is(err, configapi.ErrUnauthorized) {
		s.fail(w, r, http.StatusBadGateway, "The configuration API refused the console credentials.")
		return
	}
	s.fail(w, r, http.StatusBadGateway, "The configuration API is unavailable.")
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.fail(w, r, http.StatusNotFound, "This page does not exist.")
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, http.StatusOK, vanilla.PageHome, s.page(r, "Home", "home"))
}

func (s *Server) about(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, http.StatusOK, vanilla.PageAbout, s.page(r, "About", "about"))
}

// loadHistory never fails the page: a broken history endpoint shows an empty
// list and a notice.
func (s *Server) loadHistory(r *http.Request, page *vanilla.Page) []vanilla.HistoryItem {
	entries, err := s.api.GetHistory(r.Context())
	if err != nil {
		s.logger.Warn("history unavailable", zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
		page.Notices = append(page.Notices, vanilla.Notice{Level: vanilla.NoticeError, Text: noticeHistoryFailed})
		return nil
	}
	return vanilla.HistoryView(entries)
}

func (s *Server) configuration(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.api.GetConfiguration(r.Context())
	if err != nil {
		s.upstream(w, r, err)
		return
	}
	values, err := functional.ToValues(cfg)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	formHTML, err := s.forms.Generate(r.Context(), orchestrator.Request{
		RenderOptions: render.RenderOptions{Values: values, ReadOnly: true},
	})
	if err != nil {
		s.logger.Error("render configuration", zap.Error(err))
		s.fail(w, r, http.StatusInternalServerError, "The configuration could not be displayed.")
		return
	}

	page := s.page(r, "Configuration", "configuration")
	history := s.loadHistory(r, &page)
	page.Data = map[string]any{"form_html": string(formHTML), "history": history}
	s.write(w, r, http.StatusOK, vanilla.PageConfiguration, page)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	page := s.page(r, "History", "configuration")
	page.Data = map[string]any{"history": s.loadHistory(r, &page)}
	s.write(w, r, http.StatusOK, vanilla.PageHistory, page)
}

type editState struct {
	status  int
	values  map[string]any
	errors  map[string][]string
	notices []vanilla.Notice
}

func (s *Server) renderEdit(w http.ResponseWriter, r *http.Request, state editState) {
	page := s.page(r, "Edit configuration", "configuration")
	page.Notices = append(page.Notices, state.notices...)
	formHTML, err := s.forms.Generate(r.Context(), orchestrator.Request{
		RenderOptions: render.RenderOptions{
			Action: "/configuration",
			Values: state.values,
			Errors: state.errors,
			Hidden: render.MergeHiddenFields(nil, render.CSRFToken(page.CSRF)),
		},
	})
	if err != nil {
		s.logger.Error("render edit form", zap.Error(err))
		s.fail(w, r, http.StatusInternalServerError, "The form could not be displayed.")
		return
	}
	page.Data = map[string]any{"form_html": string(formHTML)}
	status := state.status
	if status == 0 {
		status = http.StatusOK
	}
	s.write(w, r, status, vanilla.PageEdit, page)
}

// edit shows the form filled with the current configuration, or with the
// values of a failed submission when ?submission= names one.
func (s *Server) edit(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("submission"); id != "" {
		sub, err := s.submissions.Get(r.Context(), id)
		if err == nil && sub.State == submission.StateFailed && len(sub.Values) > 0 {
			state := editState{
				values:  sub.Values,
				notices: []vanilla.Notice{{Level: vanilla.NoticeError, Text: sub.Message}},
			}
			if len(sub.Errors) > 0 {
				if form, err := s.forms.Form(r.Context()); err == nil {
					mapped := render.MapErrorPayload(form, sub.Errors)
					state.errors = mapped.Fields
					for _, text := range mapped.Form {
						state.notices = append(state.notices, vanilla.Notice{Level: vanilla.NoticeError, Text: text})
					}
				}
			}
			s.renderEdit(w, r, state)
			return
		}
	}

	cfg, err := s.api.GetConfiguration(r.Context())
	if err != nil {
		s.upstream(w, r, err)
		return
	}
	values, err := functional.ToValues(cfg)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.renderEdit(w, r, editState{values: values})
}

// save validates the posted form, compares it with the configuration the API
// serves now and submits the difference.
func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := s.forms.Form(ctx)
	if err != nil {
		s.logger.Error("build form", zap.Error(err))
		s.fail(w, r, http.StatusInternalServerError, "The form could not be built.")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	values, decodeErrors := render.DecodeForm(form, r.PostForm)
	result := validation.Validate(form, values)
	fieldErrors := render.MergeFieldErrors(decodeErrors, result.FieldErrors())
	if len(fieldErrors) > 0 {
		s.metrics.CountSubmission(metrics.OutcomeInvalid)
		s.renderEdit(w, r, editState{
			status:  http.StatusUnprocessableEntity,
			values:  values,
			errors:  fieldErrors,
			notices: []vanilla.Notice{{Level: vanilla.NoticeError, Text: noticeFixFields}},
		})
		return
	}

	next, err := functional.FromValues(values)
	if err != nil {
		s.metrics.CountSubmission(metrics.OutcomeInvalid)
		s.renderEdit(w, r, editState{
			status:  http.StatusUnprocessableEntity,
			values:  values,
			notices: []vanilla.Notice{{Level: vanilla.NoticeError, Text: noticeFixFields}},
		})
		return
	}

	current, err := s.api.GetConfiguration(ctx)
	if err != nil {
		s.upstream(w, r, err)
		return
	}
	changes, err := functional.Diff(current, next)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if len(changes) == 0 {
		s.metrics.CountSubmission(metrics.OutcomeUnchanged)
		s.renderEdit(w, r, editState{
			values:  values,
			notices: []vanilla.Notice{{Level: vanilla.NoticeInfo, Text: functional.ResultNothingToUpdate}},
		})
		return
	}

	actor := ""
	if session, ok := auth.SessionFromContext(ctx); ok {
		actor = session.DisplayName()
	}
	sub, err := s.submissions.Submit(ctx, submission.Request{
		Configuration: next,
		Changes:       changes,
		Values:        values,
		Actor:         actor,
	})
	if err != nil {
		s.logger.Error("start submission", zap.Error(err))
		s.fail(w, r, http.StatusInternalServerError, "The update could not be started.")
		return
	}
	s.logger.Info("submission started", zap.String("submission", sub.ID), zap.Int("changes", len(changes)), zap.String("actor", actor))
	http.Redirect(w, r, "/configuration/submissions/"+url.PathEscape(sub.ID), http.StatusSeeOther)
}

// cancel drops the edits; the view reloads from the API.
func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/configuration", http.StatusSeeOther)
}

func (s *Server) submission(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sub, err := s.submissions.Get(r.Context(), id)
	if errors.Is(err, submission.ErrNotFound) {
		s.fail(w, r, http.StatusNotFound, "This request is unknown or expired.")
		return
	}
	if err != nil {
		s.logger.Error("load submission", zap.String("submission", id), zap.Error(err))
		s.fail(w, r, http.StatusInternalServerError, "The request status could not be loaded.")
		return
	}

	changes := make([]map[string]any, 0, len(sub.Changes))
	for _, change := range sub.Changes {
		changes = append(changes, map[string]any{
			"key":     change.Key,
			"current": render.FormatValue(change.CurrentValue),
			"new":     render.FormatValue(change.NewValue),
		})
	}
	page := s.page(r, "Request submitted", "configuration")
	page.Data = map[string]any{
		"submission": map[string]any{
			"state":   string(sub.State),
			"message": sub.Message,
			"changes": changes,
		},
		"refresh_seconds": int(math.Max(1, s.refresh.Seconds())),
		"close_url":       "/configuration/edit?submission=" + url.QueryEscape(sub.ID),
	}
	s.write(w, r, http.StatusOK, vanilla.PageSubmission, page)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.api.GetConfiguration(r.Context())
	if err != nil {
		s.upstream(w, r, err)
		return
	}
	data, err := functional.ToYAML(cfg)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="configuration-%s.yaml"`, s.api.Profile()))
	_, _ = w.Write(data)
}
