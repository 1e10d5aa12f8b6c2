package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uidkeeper/uidkeeper/internal/expiry"
	"github.com/uidkeeper/uidkeeper/internal/registrar"
	"github.com/uidkeeper/uidkeeper/internal/store"
)

// Error messages returned to clients. They are part of the public contract.
const (
	msgMissingUID   = "Missing parameter: uid"
	msgMissingTime  = "Missing parameters: time or type"
	msgInvalidTime  = "Invalid time value"
	msgInvalidType  = `Invalid type. Use "days", "months", "years", or "seconds".`
	msgNotFound     = "UID not found"
	msgExpired      = "UID has expired"
	msgPermanent    = "This UID will never expire."
	msgNoRoute      = "not found"
	msgNotAllowed   = "method not allowed"
	expiresAtNever  = "never"
	statusPermanent = "permanent"
)

// Listener is told about every UID written through the API.
type Listener interface {
	UIDAdded(uid string, exp expiry.Expiration)
}

// Handler serves the UID endpoints.
type Handler struct {
	store     *store.Store
	registrar registrar.Registrar
	listeners []Listener
	now       func() time.Time // injectable for deterministic tests

	routerOnce sync.Once
	router     chi.Router // built on first ServeHTTP
}

// New creates a Handler wired to the given store and registrar.
func New(st *store.Store, reg registrar.Registrar, listeners ...Listener) *Handler {
	return &Handler{
		store:     st,
		registrar: reg,
		listeners: listeners,
		now:       time.Now,
	}
}

// Routes registers the API endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, msgNoRoute)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, msgNotAllowed)
	})

	r.Get("/add_uid", h.addUID)
	r.Get("/get_time/{uid}", h.getTime)
	r.Get("/healthz", h.health)
}

// ServeHTTP serves the endpoints on a private router, for use without a parent
// router. Handlers mounted with Routes never build it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.routerOnce.Do(func() {
		h.router = chi.NewRouter()
		h.Routes(h.router)
	})
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// addUID handles GET /add_uid?uid=&time=&type=&permanent=.
func (h *Handler) addUID(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	uid := q.Get("uid")
	if uid == "" {
		jsonErr(w, http.StatusBadRequest, msgMissingUID)
		return
	}

	exp := expiry.Never()
	if !strings.EqualFold(q.Get("permanent"), "true") {
		rawTime, rawUnit := q.Get("time"), q.Get("type")
		if rawTime == "" || rawUnit == "" {
			jsonErr(w, http.StatusBadRequest, msgMissingTime)
			return
		}
		n, err := strconv.ParseInt(strings.TrimSpace(rawTime), 10, 64)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, msgInvalidTime)
			return
		}
		unit, err := expiry.ParseUnit(rawUnit)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, msgInvalidType)
			return
		}
		exp, err = expiry.After(h.now(), n, unit)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, msgInvalidTime)
			return
		}
	}

	// The remote call and the store write must finish even if the client
	// goes away.
	ctx := context.WithoutCancel(r.Context())
	h.registrar.Add(ctx, uid)
	h.store.Update(ctx, func(recs store.Records) {
		recs[uid] = exp
	})
	for _, l := range h.listeners {
		l.UIDAdded(uid, exp)
	}

	resp := AddResponse{UID: uid, ExpiresAt: exp.String()}
	if exp.Permanent {
		resp.ExpiresAt = expiresAtNever
	}
	jsonResp(w, http.StatusOK, resp)
}

// getTime handles GET /get_time/{uid}.
func (h *Handler) getTime(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath when it is set, leaving the parameter escaped;
	// otherwise the parameter is already decoded and must not be decoded again.
	uid := chi.URLParam(r, "uid")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(uid); err == nil {
			uid = unescaped
		}
	}

	var (
		exp   expiry.Expiration
		found bool
	)
	h.store.View(r.Context(), func(recs store.Records) {
		exp, found = recs[uid]
	})

	if !found {
		jsonErr(w, http.StatusNotFound, msgNotFound)
		return
	}
	if exp.Permanent {
		jsonResp(w, http.StatusOK, PermanentResponse{
			UID:     uid,
			Status:  statusPermanent,
			Message: msgPermanent,
		})
		return
	}

	now := h.now()
	if exp.ExpiredAt(now) {
		jsonErr(w, http.StatusBadRequest, msgExpired)
		return
	}
	jsonResp(w, http.StatusOK, RemainingResponse{
		UID:           uid,
		RemainingTime: expiry.RemainingUntil(exp.At, now),
	})
}

// health handles GET /healthz.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{Status: "ok", Backend: h.store.Backend()})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
