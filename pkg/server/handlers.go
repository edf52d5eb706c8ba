package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mercator-hq/lendrules/pkg/eligibility"
	"mercator-hq/lendrules/pkg/rule"
	"mercator-hq/lendrules/pkg/rule/conflict"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
	"mercator-hq/lendrules/pkg/rule/evaluator"
	"mercator-hq/lendrules/pkg/rule/region"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string                    `json:"error"`
	Message string                    `json:"message,omitempty"`
	Errors  []*ruleerrors.SchemaError `json:"errors,omitempty"`
	// Conflict is set on 409 responses.
	Conflict *conflict.Report `json:"conflict,omitempty"`
}

type createRuleResponse struct {
	Rule     *rule.Rule                       `json:"rule"`
	Warnings []region.DegenerateClauseWarning `json:"warnings"`
}

type listRulesResponse struct {
	Rules []*rule.Rule `json:"rules"`
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	res, err := s.deps.Rules.Submit(r.Context(), body)
	if err != nil {
		s.writeRuleError(w, r, err)
		return
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []region.DegenerateClauseWarning{}
	}
	writeJSON(w, http.StatusCreated, createRuleResponse{Rule: res.Rule, Warnings: warnings})
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.deps.Rules.List(r.Context())
	if err != nil {
		s.writeInternal(w, r, "list rules", err)
		return
	}
	if rules == nil {
		rules = []*rule.Rule{}
	}
	writeJSON(w, http.StatusOK, listRulesResponse{Rules: rules})
}

func (s *Server) previewRule(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	p, err := s.deps.Rules.Preview(r.Context(), body)
	if err != nil {
		s.writeRuleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	record, err := decodeRecord(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_record", err.Error())
		return
	}

	res, err := s.deps.Eligibility.Evaluate(r.Context(), record)
	if err != nil {
		s.writeInternal(w, r, "evaluate record", err)
		return
	}

	s.logger.DebugContext(r.Context(), "record evaluated",
		"record", s.deps.Redactor.Record(record),
		"eligible_lenders", res.EligibleLenders,
	)
	writeJSON(w, http.StatusOK, evaluateResponse(record, res))
}

// evaluateResponse echoes the record's fields next to the result. The
// result keys win over record fields of the same name.
func evaluateResponse(record evaluator.Record, res *eligibility.Result) map[string]any {
	out := make(map[string]any, len(record)+2)
	for k, v := range record {
		out[k] = v
	}
	out["eligibleLenders"] = res.EligibleLenders
	if len(res.Failures) > 0 {
		out["ruleErrors"] = res.Failures
	}
	return out
}

// decodeRecord accepts a single JSON object. Numbers keep their literal
// form so large integers are echoed unchanged.
func decodeRecord(body []byte) (evaluator.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("record must be a JSON object: %w", err)
	}
	if record == nil {
		return nil, errors.New("record must be a JSON object")
	}
	if dec.More() {
		return nil, errors.New("record must be a single JSON object")
	}
	return record, nil
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "unreadable_body", err.Error())
		return nil, false
	}
	return body, true
}

// writeRuleError maps create and preview errors to responses.
func (s *Server) writeRuleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		el  *ruleerrors.ErrorList
		dup *conflict.DuplicateRuleError
		ce  *conflict.ConflictError
	)
	switch {
	case errors.As(err, &el):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_rule", Message: el.Error(), Errors: el.Errors})
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "duplicate_rule", Message: dup.Error(), Conflict: dup.Report})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "overlapping_rule", Message: ce.Error(), Conflict: ce.Report})
	default:
		s.writeInternal(w, r, "store rule", err)
	}
}

func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.ErrorContext(r.Context(), op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", op+" failed")
}

func writeError(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, errorResponse{Error: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
