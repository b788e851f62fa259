package http

import (
	"errors"
	"net/http"
	"strings"

	"folio/internal/core"
)

// decode reads the body into v and writes 400/413 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := decodeJSON(r, v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
		return false
	}
	writeBadRequest(w, err.Error())
	return false
}

func accountFilter(r *http.Request) core.Filter {
	return core.Filter{AccountID: strings.TrimSpace(r.URL.Query().Get("accountId"))}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	accounts, err := s.portfolio.Accounts(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := req.toAccount()
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	created, err := s.portfolio.AddAccount(ctx, a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !decode(w, r, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	updated, err := s.portfolio.UpdateAccount(ctx, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	if err := s.portfolio.DeleteAccount(ctx, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	txs, err := s.portfolio.Transactions(ctx, accountFilter(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	created, err := s.portfolio.AddTransaction(ctx, t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	if err := s.portfolio.DeleteTransaction(ctx, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

func (s *Server) handleListValuations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	vals, err := s.portfolio.Valuations(ctx, accountFilter(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vals)
}

func (s *Server) handleCreateValuation(w http.ResponseWriter, r *http.Request) {
	var req valuationRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := req.toValuation()
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	created, err := s.portfolio.AddValuation(ctx, v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateValuation(w http.ResponseWriter, r *http.Request) {
	var req valuationRequest
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	updated, err := s.portfolio.UpdateValuation(ctx, r.PathValue("id"), req.toPatch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	cfg, err := s.portfolio.Config(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	entry, err := s.portfolio.SetConfig(ctx, req.Key, configValue(req.Value))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleAccountTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, core.AccountTypes)
}

func (s *Server) handlePlatforms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, core.Platforms)
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		writeJSON(w, http.StatusOK, map[string]any{"backend": "unknown", "exists": false})
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	info, err := s.storage.Describe(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	if err := s.portfolio.Reset(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}
