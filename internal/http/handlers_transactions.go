package http

import (
	"net/http"
	"strconv"

	"pinledger/internal/core"
	applog "pinledger/internal/log"
	"pinledger/internal/services"
	"pinledger/internal/social"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.ledger.Transactions(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.Transaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handleCreateTransaction records a manual entry. Incomplete entries are
// ignored and answered with 204.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var e services.ManualEntry
	if err := DecodeJSON(w, r, &e); err != nil {
		writeError(w, r, err)
		return
	}
	e.MerchantName = sanitizeInput(e.MerchantName)
	e.Category = sanitizeInput(e.Category)
	e.Memo = sanitizeInput(e.Memo)

	out, err := s.ledger.AddManual(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		writeNoContent(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Manual transaction recorded",
		applog.FieldTransactionID, out.Transaction.ID,
		applog.FieldMerchant, out.Transaction.MerchantName,
		applog.FieldAmountCents, out.Transaction.Amount.Cents)
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := DecodeJSON(w, r, &tx); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.ledger.SimulateWebhook(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleSaveMemory(w http.ResponseWriter, r *http.Request) {
	var m services.MemoryUpdate
	if err := DecodeJSON(w, r, &m); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.ledger.SaveMemory(r.Context(), r.PathValue("id"), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Category string `json:"category"`
	}
	if err := DecodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.ledger.UpdateCategory(r.Context(), r.PathValue("id"), sanitizeInput(body.Category))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handleDeleteTransaction requires ?confirm=true; without it the answer is 409.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := s.ledger.Delete(r.Context(), r.PathValue("id"), confirmed); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := DecodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.ledger.AddComment(r.Context(), r.PathValue("id"), sanitizeInput(body.Text))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.ledger.Reviews(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []social.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	liked := s.ledger.ToggleLike(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (s *Server) handleVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := s.ledger.Visits(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if visits.Visits == nil {
		visits.Visits = []social.Visit{}
	}
	writeJSON(w, http.StatusOK, visits)
}
