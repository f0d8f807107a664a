package http

import (
	"net/http"

	"moneydrain/internal/log"
)

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	b, err := s.ledger.Balance(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(s.balanceView(b)).Write(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	stats, err := s.ledger.MonthlyStats(r.Context(), params.Year, params.Month)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(s.statsView(stats)).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.ledger.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(dashboardView{
		Balance: s.balanceView(d.Balance),
		Recent:  s.transactionViews(d.Recent, s.now()),
		Month:   s.statsView(d.Month),
	}).Write(w)
}
