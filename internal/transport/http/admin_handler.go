package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// AdminHandler exposes the operator surface: session lifecycle and question
// authoring. Mutating routes sit behind the passcode guard.
type AdminHandler struct {
	service  *app.Service
	passcode string
}

func NewAdminHandler(service *app.Service, passcode string) *AdminHandler {
	if passcode == "" {
		passcode = "12345" // dev fallback, override in config
	}
	return &AdminHandler{service: service, passcode: passcode}
}

// Register mounts all routes on the mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.guard(h.createSession))
	mux.HandleFunc("GET /api/sessions", h.listSessions)
	mux.HandleFunc("GET /api/sessions/{code}", h.getSession)
	mux.HandleFunc("DELETE /api/sessions/{code}", h.guard(h.deleteSession))
	mux.HandleFunc("POST /api/sessions/{code}/start", h.guard(h.startGame))
	mux.HandleFunc("POST /api/sessions/{code}/stop", h.guard(h.stopGame))
	mux.HandleFunc("POST /api/sessions/{code}/reset", h.guard(h.resetSession))
	mux.HandleFunc("POST /api/sessions/{code}/questions", h.guard(h.createQuestion))
	mux.HandleFunc("GET /api/sessions/{code}/questions", h.listQuestions)
	mux.HandleFunc("GET /api/sessions/{code}/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /api/sessions/{code}/responses", h.guard(h.listResponses))
	mux.HandleFunc("PUT /api/questions/{id}", h.guard(h.updateQuestion))
	mux.HandleFunc("DELETE /api/questions/{id}", h.guard(h.deleteQuestion))
	mux.HandleFunc("POST /api/questions/{id}/move", h.guard(h.moveQuestion))
}

// guard rejects requests whose X-Admin-Passcode header does not match.
func (h *AdminHandler) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Passcode") != h.passcode {
			writeError(w, http.StatusForbidden, "invalid admin passcode")
			return
		}
		next(w, r)
	}
}

type createSessionRequest struct {
	SessionCode string `json:"sessionCode"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *AdminHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	session, err := h.service.CreateSession(r.Context(), req.SessionCode, req.Title, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *AdminHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *AdminHandler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), r.PathValue("code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *AdminHandler) deleteSession(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var err error
	if r.URL.Query().Get("purge") == "true" {
		err = h.service.PurgeSession(r.Context(), code)
	} else {
		err = h.service.DeleteSession(r.Context(), code)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session deleted"})
}

func (h *AdminHandler) startGame(w http.ResponseWriter, r *http.Request) {
	if err := h.service.StartGame(r.Context(), r.PathValue("code")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "game started"})
}

func (h *AdminHandler) stopGame(w http.ResponseWriter, r *http.Request) {
	if err := h.service.StopGame(r.Context(), r.PathValue("code")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "game stopped"})
}

func (h *AdminHandler) resetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetSession(r.Context(), r.PathValue("code")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session reset"})
}

type questionRequest struct {
	QuestionText string          `json:"questionText"`
	Options      []domain.Option `json:"options"`
	Marks        int             `json:"marks"`
}

func (h *AdminHandler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	question, err := h.service.CreateQuestion(r.Context(), r.PathValue("code"), app.QuestionInput{
		QuestionText: req.QuestionText,
		Options:      req.Options,
		Marks:        req.Marks,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (h *AdminHandler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.ListQuestions(r.Context(), r.PathValue("code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Participants read this route too, so correctness flags stay server-side.
	public := make([]domain.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		public = append(public, q.Public())
	}
	writeJSON(w, http.StatusOK, public)
}

func (h *AdminHandler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	question, err := h.service.UpdateQuestion(r.Context(), r.PathValue("id"), app.QuestionInput{
		QuestionText: req.QuestionText,
		Options:      req.Options,
		Marks:        req.Marks,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *AdminHandler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuestion(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "question deleted"})
}

type moveQuestionRequest struct {
	ToIndex int `json:"toIndex"`
}

func (h *AdminHandler) moveQuestion(w http.ResponseWriter, r *http.Request) {
	var req moveQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.service.MoveQuestion(r.Context(), r.PathValue("id"), req.ToIndex); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "question moved"})
}

func (h *AdminHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.Context(), r.PathValue("code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AdminHandler) listResponses(w http.ResponseWriter, r *http.Request) {
	responses, err := h.service.Responses(r.Context(), r.PathValue("code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses: not-found,
// benign conflicts, and validation each get their own class.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSessionCodeTaken),
		errors.Is(err, domain.ErrSessionLocked),
		errors.Is(err, domain.ErrGameRunning),
		errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidQuestion),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrNoQuestions),
		errors.Is(err, domain.ErrQuestionClosed),
		errors.Is(err, domain.ErrSessionNotActive):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
