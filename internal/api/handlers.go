package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/assessment"
	"github.com/abhisek/adaptiq/internal/engine"
	"github.com/abhisek/adaptiq/internal/events"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/questiongen"
	"github.com/abhisek/adaptiq/internal/session"
	"github.com/abhisek/adaptiq/internal/store"
)

// DefaultAbandonReason is recorded when a caller abandons without a reason.
const DefaultAbandonReason = "abandoned by caller"

type addQuestionsRequest struct {
	Questions []assessment.QuestionSpec `json:"questions" validate:"required,min=1,dive"`
}

type generateRequest struct {
	Subject    string          `json:"subject" validate:"required,max=64"`
	Difficulty question.Tier   `json:"difficulty"`
	Count      int             `json:"count" validate:"gte=1,lte=100"`
	Types      []question.Type `json:"types"`
}

type startRequest struct {
	AssessmentID string `json:"assessment_id" validate:"required"`
	StudentID    string `json:"student_id" validate:"required,max=128"`
	Randomize    *bool  `json:"randomize"`
}

type submitRequest struct {
	QuestionID  string `json:"question_id" validate:"required"`
	Answer      any    `json:"answer"`
	TimeSpentMS int64  `json:"time_spent_ms" validate:"gte=0"`
}

type abandonRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

type endResponse struct {
	Session   *session.Session   `json:"session"`
	Analytics *session.Analytics `json:"analytics"`
}

func (s *Server) createAssessment(w http.ResponseWriter, r *http.Request) {
	var spec assessment.Spec
	if err := decode(w, r, &spec); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.engine.CreateAssessment(r.Context(), spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) listAssessments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.engine.ListAssessments(r.Context(), assessment.Filter{
		Subject:   q.Get("subject"),
		Status:    assessment.Status(q.Get("status")),
		CreatedBy: q.Get("created_by"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*assessment.Assessment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getAssessment(w http.ResponseWriter, r *http.Request) {
	a, err := s.engine.GetAssessment(r.Context(), chi.URLParam(r, "assessmentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) updateAssessment(w http.ResponseWriter, r *http.Request) {
	var p assessment.Patch
	if err := decode(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.engine.UpdateAssessment(r.Context(), chi.URLParam(r, "assessmentID"), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) addQuestions(w http.ResponseWriter, r *http.Request) {
	var req addQuestionsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.engine.AddQuestions(r.Context(), chi.URLParam(r, "assessmentID"), req.Questions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) publishAssessment(w http.ResponseWriter, r *http.Request) {
	a, err := s.engine.PublishAssessment(r.Context(), chi.URLParam(r, "assessmentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) archiveAssessment(w http.ResponseWriter, r *http.Request) {
	a, err := s.engine.ArchiveAssessment(r.Context(), chi.URLParam(r, "assessmentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) assessmentReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.engine.GenerateAssessmentReport(r.Context(), chi.URLParam(r, "assessmentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) generateQuestions(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tier := req.Difficulty
	if tier == 0 {
		tier = question.TierBeginner
	}
	qs, err := s.engine.GenerateQuestions(r.Context(), questiongen.Request{
		Subject: req.Subject,
		Tier:    tier,
		Count:   req.Count,
		Types:   req.Types,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.engine.StartSession(r.Context(), req.AssessmentID, req.StudentID, engine.StartOptions{Randomize: req.Randomize})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, studentView(sess))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, studentView(sess))
}

func (s *Server) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Answer == nil {
		s.writeError(w, r, apperr.Invalid("answer", "answer is required"))
		return
	}
	res, err := s.engine.SubmitAnswer(r.Context(), chi.URLParam(r, "sessionID"), req.QuestionID, req.Answer,
		time.Duration(req.TimeSpentMS)*time.Millisecond)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.ShowFeedback {
		res.Feedback = nil
		res.Response.Feedback = nil
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	sess, an, err := s.engine.EndSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, endResponse{Session: studentView(sess), Analytics: an})
}

func (s *Server) abandonSession(w http.ResponseWriter, r *http.Request) {
	var req abandonRequest
	if r.ContentLength > 0 {
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.Reason == "" {
		req.Reason = DefaultAbandonReason
	}
	sess, err := s.engine.AbandonSession(r.Context(), chi.URLParam(r, "sessionID"), req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, studentView(sess))
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	eq := store.EventQuery{
		Limit:     100,
		Kind:      events.Kind(q.Get("kind")),
		SessionID: q.Get("session_id"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			s.writeError(w, r, apperr.Invalid("limit", "limit must be between 1 and 1000"))
			return
		}
		eq.Limit = n
	}
	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			s.writeError(w, r, apperr.Invalid("after", "after must be a non-negative sequence number"))
			return
		}
		eq.After = n
	}
	list, err := s.opts.Events.Query(r.Context(), eq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []store.LoggedEvent{}
	}
	writeJSON(w, http.StatusOK, list)
}

// studentView hides answer keys of unanswered questions while the session
// is active, and stored feedback when the assessment does not show it.
func studentView(s *session.Session) *session.Session {
	if s == nil {
		return nil
	}
	v := s.Clone()
	if v.Status == session.StatusActive {
		answered := v.AnsweredSet()
		for i := range v.Questions {
			if answered[v.Questions[i].ID] {
				continue
			}
			q := &v.Questions[i]
			q.CorrectAnswer = ""
			q.AcceptableAnswers = nil
			q.Explanation = ""
			q.Feedback = question.FeedbackTemplates{}
		}
	}
	if !v.ShowFeedback {
		for i := range v.Responses {
			v.Responses[i].Feedback = nil
		}
	}
	return v
}
