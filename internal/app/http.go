package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/agenda"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/auth"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/authpw"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/search"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

const maxUploadBytes = 25 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(s.corsOrigin, ","),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: s.corsOrigin != "*",
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Head("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)

		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/signin", s.handleSignIn)
		r.Post("/auth/confirm", s.handleConfirm)
		r.Get("/session", s.handleSession)
		r.Post("/session/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/session/logout", s.handleLogout)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/users", s.handleListUsers)
			r.Get("/agenda", s.handleAgenda)
			r.Get("/search", s.handleSearch)

			r.Get("/cases", s.handleListCases)
			r.Post("/cases", s.handleCreateCase)
			r.Patch("/cases/{id}", s.handleUpdateCase)
			r.Get("/cases/{id}/documents", s.handleListDocuments)
			r.Post("/cases/{id}/documents", s.handleAttachDocument)

			r.Get("/tasks", s.handleListTasks)
			r.Post("/tasks", s.handleCreateTask)
			r.Patch("/tasks/{id}", s.handleUpdateTask)
			r.Post("/tasks/{id}/move", s.handleMoveTask)
			r.Get("/tasks/{id}/comments", s.handleListComments)
			r.Post("/tasks/{id}/comments", s.handleAppendComment)

			r.Get("/contacts", s.handleListContacts)
			r.Post("/contacts", s.handleCreateContact)
			r.Patch("/contacts/{id}", s.handleUpdateContact)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			ww.Header().Set("X-Request-ID", requestID)
		}

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.WithFields(log.Fields{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      status,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("request")
	})
}

type sessionKey struct{}

func (s *HTTPServer) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			log.WithError(err).Error("session lookup failed")
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

func sessionFrom(r *http.Request) Session {
	session, _ := r.Context().Value(sessionKey{}).(Session)
	return session
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body RegisterInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := s.service.Register(r.Context(), body)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	response := map[string]any{
		"user":          result.Profile,
		"loginRequired": result.LoginRequired,
	}
	if result.Session != nil {
		for key, value := range sessionPayload(*result.Session) {
			response[key] = value
		}
	}
	if result.Reason != nil {
		_, code, message, _ := mapError(result.Reason)
		response["reason"] = map[string]any{"code": code, "error": message}
	}
	writeJSON(w, http.StatusCreated, response)
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	profile, err := s.service.Confirm(r.Context(), body.Token)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"confirmed": true, "user": profile})
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
		return
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "userName": session.UserName, "userId": session.UserID, "role": session.Role})
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.RefreshToken) == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}
	session, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	_ = s.service.Logout(r.Context(), sessionFrom(r), body.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	state := NewState(s.service)
	if err := state.Reload(r.Context(), sessionFrom(r).Identity()); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   state.Snapshot(),
		"canEdit": state.CanEdit(),
		"stats":   state.Stats(s.service.Now()),
	})
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListProfiles(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": orEmpty(users)})
}

func (s *HTTPServer) handleAgenda(w http.ResponseWriter, r *http.Request) {
	var weekOf time.Time
	if value := strings.TrimSpace(r.URL.Query().Get("week")); value != "" {
		parsed, err := parseDay(value, s.service.location())
		if err != nil {
			writeMappedError(w, validationError("week", "week must be a date in YYYY-MM-DD format"))
			return
		}
		weekOf = parsed
	}
	week, err := s.service.Agenda(r.Context(), sessionFrom(r).Identity(), weekOf)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekPayload(week))
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	resp := s.service.Search(r.Context(), search.Query{
		Text:       strings.TrimSpace(query.Get("q")),
		FilterType: search.ResultType(query.Get("type")),
		Limit:      limit,
		Offset:     offset,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := s.service.ListCases(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": orEmpty(cases)})
}

func (s *HTTPServer) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var body store.Case
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	created, err := s.service.CreateCase(r.Context(), sessionFrom(r).Identity(), body)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleUpdateCase(w http.ResponseWriter, r *http.Request) {
	var patch store.CasePatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	updated, err := s.service.UpdateCase(r.Context(), sessionFrom(r).Identity(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.ListCaseDocuments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": orEmpty(docs)})
}

func (s *HTTPServer) handleAttachDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMappedError(w, validationError("file", "file is required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "could not read file", nil)
		return
	}

	name := header.Filename
	if override := strings.TrimSpace(r.FormValue("name")); override != "" {
		name = override
	}
	doc, err := s.service.AttachDocument(r.Context(), sessionFrom(r).Identity(), chi.URLParam(r, "id"), data, name, header.Header.Get("Content-Type"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *HTTPServer) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.service.ListTasks(r.Context(), sessionFrom(r).Identity())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tasks})
}

// taskBody and taskPatchBody take dueDate as text so that zone-less local
// times are read in the office zone.
type taskBody struct {
	store.Task
	DueDate string `json:"dueDate"`
}

type taskPatchBody struct {
	store.TaskPatch
	DueDate *string `json:"dueDate"`
}

func (s *HTTPServer) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body taskBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	input := body.Task
	if strings.TrimSpace(body.DueDate) != "" {
		due, err := parseDay(body.DueDate, s.service.location())
		if err != nil {
			writeMappedError(w, validationError("dueDate", "dueDate "+dueDateFormat))
			return
		}
		input.DueDate = due
	}
	created, err := s.service.CreateTask(r.Context(), sessionFrom(r).Identity(), input)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var body taskPatchBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	patch := body.TaskPatch
	if body.DueDate != nil {
		due, err := parseDay(*body.DueDate, s.service.location())
		if err != nil {
			writeMappedError(w, validationError("dueDate", "dueDate "+dueDateFormat))
			return
		}
		patch.DueDate = &due
	}
	updated, err := s.service.UpdateTask(r.Context(), sessionFrom(r).Identity(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	target, err := parseDay(body.Date, s.service.location())
	if err != nil {
		writeMappedError(w, validationError("date", "date "+dueDateFormat))
		return
	}
	moved, err := s.service.MoveTask(r.Context(), sessionFrom(r).Identity(), chi.URLParam(r, "id"), target)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

func (s *HTTPServer) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.service.ListComments(r.Context(), sessionFrom(r).Identity(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": comments})
}

func (s *HTTPServer) handleAppendComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	comment, err := s.service.AppendComment(r.Context(), sessionFrom(r).Identity(), chi.URLParam(r, "id"), body.Content)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *HTTPServer) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.service.ListContacts(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": orEmpty(contacts)})
}

func (s *HTTPServer) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var body store.Contact
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	created, err := s.service.CreateContact(r.Context(), sessionFrom(r).Identity(), body)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var patch store.ContactPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	updated, err := s.service.UpdateContact(r.Context(), sessionFrom(r).Identity(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"expiresAt":    session.ExpiresAt,
		"userName":     session.UserName,
		"userId":       session.UserID,
		"role":         session.Role,
	}
}

func weekPayload(week agenda.Week[store.Task]) map[string]any {
	days := make([]map[string]any, 0, len(week.Days))
	for _, day := range week.Days {
		days = append(days, map[string]any{
			"date":  day.Date.Format("2006-01-02"),
			"tasks": day.Tasks,
		})
	}
	return map[string]any{
		"start":    week.Start.Format("2006-01-02"),
		"previous": agenda.Previous(week.Start).Format("2006-01-02"),
		"next":     agenda.Next(week.Start).Format("2006-01-02"),
		"days":     days,
	}
}

const dueDateFormat = "must be YYYY-MM-DD, YYYY-MM-DDTHH:MM[:SS] or RFC 3339"

var localLayouts = []string{"2006-01-02", "2006-01-02T15:04", "2006-01-02T15:04:05"}

// parseDay reads a calendar date or a local date-time in loc, or a full
// timestamp with its own offset.
func parseDay(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Parse(time.RFC3339, value)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.WithField("code", code).WithError(err).Error("request failed")
	}
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *authpw.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationErr.Message, map[string]any{"field": validationErr.Field}
	}
	switch {
	case errors.Is(err, ErrPolicyDenied):
		return http.StatusForbidden, "FORBIDDEN", "Forbidden", nil
	case errors.Is(err, ErrEmptyContent):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Comment cannot be empty.", map[string]any{"field": "content"}
	case errors.Is(err, ErrUpload):
		return http.StatusBadGateway, "UPLOAD_FAILED", "File upload failed.", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect email or password.", nil
	case errors.Is(err, authpw.ErrEmailNotConfirmed):
		return http.StatusForbidden, "EMAIL_NOT_CONFIRMED", "Email not confirmed. Check your inbox.", nil
	case errors.Is(err, authpw.ErrAlreadyRegistered):
		return http.StatusConflict, "ALREADY_REGISTERED", "Email already registered.", nil
	case errors.Is(err, authpw.ErrInvalidToken):
		return http.StatusBadRequest, "INVALID_CONFIRMATION", "Invalid or expired confirmation link.", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "CONFLICT", "Conflict", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
