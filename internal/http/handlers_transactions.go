package http

import (
	"net/http"

	"moneydrain/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := ParsePage(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), limit, offset)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(s.transactionViews(txs, s.now())).Write(w)
}

func (s *Server) handleMonthTransactions(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	params, err := ParseMonthParams(r.URL.Query(), now)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	txs, err := s.ledger.ListTransactionsByMonth(r.Context(), params.Year, params.Month)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(s.transactionViews(txs, now)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.fail(w, r, log.OpCreate, bodyErr(err))
		return
	}
	n, err := parseNewTransaction(parser)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	tx, err := s.ledger.AddTransaction(r.Context(), n)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(s.transactionView(tx, s.now())).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.ClearTransactions(r.Context())
	if err != nil {
		s.fail(w, r, log.OpClear, err)
		return
	}
	NewJSONResponse().Body(map[string]int64{"deleted": n}).Write(w)
}
