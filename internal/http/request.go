package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"folio/internal/core"
)

// Request bodies. Numeric fields are decoded as any so that numbers and
// strings with comma decimals are both accepted; see core.CoerceAmount.
type (
	accountRequest struct {
		Type       *string `json:"type"`
		Name       *string `json:"name"`
		Platform   *string `json:"platform"`
		OpenedDate *string `json:"openedDate"`
		Notes      *string `json:"notes"`
	}

	transactionRequest struct {
		AccountID   string `json:"accountId"`
		Date        string `json:"date"`
		Kind        string `json:"kind"`
		Type        string `json:"type"`
		Amount      any    `json:"amount"`
		Recurrence  string `json:"recurrence"`
		Description string `json:"description"`
	}

	valuationRequest struct {
		AccountID string  `json:"accountId"`
		Date      string  `json:"date"`
		Value     any     `json:"value"`
		Notes     *string `json:"notes"`
	}

	configRequest struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}
)

// decodeJSON reads a JSON object from the request body. An empty body
// decodes to the zero value.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	return nil
}

func parseOptionalDate(s *string) (*core.Date, error) {
	if s == nil {
		return nil, nil
	}
	d, err := core.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (req accountRequest) toAccount() (core.Account, error) {
	var a core.Account
	if req.Type != nil {
		a.Type = core.AccountType(*req.Type)
	}
	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Platform != nil {
		a.Platform = *req.Platform
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	opened, err := parseOptionalDate(req.OpenedDate)
	if err != nil {
		return core.Account{}, err
	}
	if opened != nil {
		a.OpenedDate = *opened
	}
	return a, nil
}

// toPatch keeps only the keys present in the body.
func (req accountRequest) toPatch() (core.AccountPatch, error) {
	patch := core.AccountPatch{
		Name:     req.Name,
		Platform: req.Platform,
		Notes:    req.Notes,
	}
	if req.Type != nil {
		t := core.AccountType(*req.Type)
		patch.Type = &t
	}
	opened, err := parseOptionalDate(req.OpenedDate)
	if err != nil {
		return core.AccountPatch{}, err
	}
	patch.OpenedDate = opened
	return patch, nil
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	kind := req.Kind
	if kind == "" {
		kind = req.Type
	}
	return core.Transaction{
		AccountID:   strings.TrimSpace(req.AccountID),
		Date:        date,
		Kind:        core.TransactionKind(kind),
		Amount:      core.CoerceAmount(req.Amount),
		Recurrence:  core.Recurrence(req.Recurrence),
		Description: strings.TrimSpace(req.Description),
	}, nil
}

func (req valuationRequest) toValuation() (core.Valuation, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Valuation{}, err
	}
	v := core.Valuation{
		AccountID: strings.TrimSpace(req.AccountID),
		Date:      date,
		Value:     core.CoerceAmount(req.Value),
	}
	if req.Notes != nil {
		v.Notes = *req.Notes
	}
	return v, nil
}

func (req valuationRequest) toPatch() core.ValuationPatch {
	patch := core.ValuationPatch{Notes: req.Notes}
	if req.Value != nil {
		d := core.CoerceAmount(req.Value)
		patch.Value = &d
	}
	return patch
}

// configValue renders scalar JSON values as the stored string.
func configValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
