package http

import (
	"net/http"

	"pinledger/internal/core"
)

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	inbox, err := s.ledger.Notifications(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.MarkRead(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.MarkAllRead(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// handleOpenNotification marks the notification read and tells the client
// what to show next.
func (s *Server) handleOpenNotification(w http.ResponseWriter, r *http.Request) {
	target, err := s.ledger.OpenNotification(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, target)
}

func (s *Server) handleMemos(w http.ResponseWriter, r *http.Request) {
	memos, err := s.ledger.Memos(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memos)
}

// handleAddMemo answers 204 for blank text, which is ignored.
func (s *Server) handleAddMemo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := DecodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	memo, err := s.ledger.AddMemo(r.Context(), sanitizeInput(body.Text))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if memo == nil {
		writeNoContent(w)
		return
	}
	writeJSON(w, http.StatusCreated, memo)
}

func (s *Server) handleToggleMemo(w http.ResponseWriter, r *http.Request) {
	memo, err := s.ledger.ToggleMemo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memo)
}

func (s *Server) handleDeleteMemo(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteMemo(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleClearMemos(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.ClearMemos(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.ledger.Cards(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	var c core.Card
	if err := DecodeJSON(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.ledger.AddCard(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.ledger.Budget(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleSetBudget stores the budget and returns any alert the new limit
// raises right away.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var cfg core.BudgetConfig
	if err := DecodeJSON(w, r, &cfg); err != nil {
		writeError(w, r, err)
		return
	}
	if err := cfg.Validate(); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	alert, err := s.ledger.SetBudget(r.Context(), cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Budget core.BudgetConfig      `json:"budget"`
		Alert  *core.NotificationItem `json:"alert,omitempty"`
	}{cfg, alert})
}

type personaBody struct {
	Persona core.Persona `json:"persona"`
}

func (s *Server) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Persona(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, personaBody{Persona: p})
}

func (s *Server) handleSetPersona(w http.ResponseWriter, r *http.Request) {
	var body personaBody
	if err := DecodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.SetPersona(r.Context(), body.Persona); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}
