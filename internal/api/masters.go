package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

// masterTable exposes CRUD over one master data table. Permissions are
// <prefix>.view for reads, <prefix>.update for create and update, and
// <prefix>.delete for deletes.
type masterTable[T any] struct {
	key  string
	list func(context.Context) ([]*T, error)
	get  func(context.Context, int64) (*T, error)
	save func(context.Context, *T) error
	del  func(context.Context, int64) error
	id   func(*T) *int64
}

func (m masterTable[T]) routes(prefix string) func(chi.Router) {
	return func(r chi.Router) {
		r.With(RequirePermission(prefix+".view")).Get("/", m.handleList)
		r.With(RequirePermission(prefix+".update")).Post("/", m.handleCreate)
		r.With(RequirePermission(prefix+".view")).Get("/{id}", m.handleGet)
		r.With(RequirePermission(prefix+".update")).Put("/{id}", m.handleUpdate)
		r.With(RequirePermission(prefix+".delete")).Delete("/{id}", m.handleDelete)
	}
}

func (m masterTable[T]) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := m.list(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		m.key:   items,
		"count": len(items),
	})
}

func (m masterTable[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := m.get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (m masterTable[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	item, ok := m.decode(w, r)
	if !ok {
		return
	}
	*m.id(item) = 0

	if err := m.save(r.Context(), item); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("master record created", "table", m.key, "id", *m.id(item), "user_id", GetIdentity(r.Context()).UserID)
	writeJSON(w, http.StatusCreated, item)
}

func (m masterTable[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, ok := m.decode(w, r)
	if !ok {
		return
	}
	*m.id(item) = id

	if err := m.save(r.Context(), item); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("master record updated", "table", m.key, "id", id, "user_id", GetIdentity(r.Context()).UserID)
	writeJSON(w, http.StatusOK, item)
}

func (m masterTable[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := m.del(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("master record deleted", "table", m.key, "id", id, "user_id", GetIdentity(r.Context()).UserID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "deleted",
		"id":      id,
	})
}

func (m masterTable[T]) decode(w http.ResponseWriter, r *http.Request) (*T, bool) {
	item := new(T)
	if err := json.NewDecoder(r.Body).Decode(item); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return nil, false
	}
	return item, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func (h *Handler) ruleMasters() masterTable[domain.RuleDefinition] {
	return masterTable[domain.RuleDefinition]{
		key:  "rules",
		list: h.svc.ListRules,
		get:  h.svc.GetRule,
		save: h.svc.SaveRule,
		del:  h.svc.DeleteRule,
		id:   func(v *domain.RuleDefinition) *int64 { return &v.ID },
	}
}

func (h *Handler) damageMasters() masterTable[domain.DamageTypeSeverity] {
	return masterTable[domain.DamageTypeSeverity]{
		key:  "damage_codes",
		list: h.svc.ListDamageTypes,
		get:  h.svc.GetDamageType,
		save: h.svc.SaveDamageType,
		del:  h.svc.DeleteDamageType,
		id:   func(v *domain.DamageTypeSeverity) *int64 { return &v.ID },
	}
}

func (h *Handler) claimTypeMasters() masterTable[domain.ClaimTypeThreshold] {
	return masterTable[domain.ClaimTypeThreshold]{
		key:  "claim_types",
		list: h.svc.ListClaimTypes,
		get:  h.svc.GetClaimType,
		save: h.svc.SaveClaimType,
		del:  h.svc.DeleteClaimType,
		id:   func(v *domain.ClaimTypeThreshold) *int64 { return &v.ID },
	}
}

func (h *Handler) pricingMasters() masterTable[domain.PricingParameter] {
	return masterTable[domain.PricingParameter]{
		key:  "pricing",
		list: h.svc.ListPricing,
		get:  h.svc.GetPricing,
		save: h.svc.SavePricing,
		del:  h.svc.DeletePricing,
		id:   func(v *domain.PricingParameter) *int64 { return &v.ID },
	}
}
