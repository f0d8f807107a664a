package http

import (
	"net/http"
	"strings"

	"moneydrain/internal/core"
	"moneydrain/internal/log"
)

// handleListCategories lists every category, or only one type when
// ?type=income|expense is given.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var (
		cats []core.Category
		err  error
	)
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		var typ core.TransactionType
		if typ, err = core.ParseTransactionType(raw); err == nil {
			cats, err = s.ledger.CategoriesOfType(r.Context(), typ)
		}
	} else {
		cats, err = s.ledger.ListCategories(r.Context())
	}
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.fail(w, r, log.OpCreate, bodyErr(err))
		return
	}
	n, err := parseNewCategory(parser)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	c, err := s.ledger.AddCategory(r.Context(), n)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
