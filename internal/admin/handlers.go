// ABOUTME: HTTP API for the admin console
// ABOUTME: chi routes for login, tenant/bot management, audit, and widget config

package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/botdesk/botdesk/internal/auth"
	"github.com/botdesk/botdesk/internal/store"
)

// sessionTTL is how long a console login stays valid.
const sessionTTL = 12 * time.Hour

// API bundles the console's HTTP handlers.
type API struct {
	store    store.Store
	tenants  *TenantService
	bots     *BotService
	verifier *auth.JWTVerifier
	mw       *auth.Middleware
	logger   *slog.Logger
}

// NewAPI creates the console API.
func NewAPI(st store.Store, verifier *auth.JWTVerifier, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		store:    st,
		tenants:  NewTenantService(st, logger),
		bots:     NewBotService(st, logger),
		verifier: verifier,
		mw:       auth.NewMiddleware(verifier, logger),
		logger:   logger.With("component", "admin.api"),
	}
}

// Tenants exposes the tenant service for CLI use.
func (a *API) Tenants() *TenantService { return a.tenants }

// Bots exposes the bot service for CLI use.
func (a *API) Bots() *BotService { return a.bots }

// Routes mounts the console API onto a chi router.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)
	r.Post("/api/auth/login", a.handleLogin)
	r.Get("/api/widget/config", a.handleWidgetConfig)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(a.mw.Require, a.mw.RequireAdmin)
		r.Post("/tenants", a.handleCreateTenant)
		r.Get("/tenants", a.handleListTenants)
		r.Get("/tenants/{id}", a.handleGetTenant)
		r.Put("/tenants/{id}", a.handleRenameTenant)
		r.Post("/tenants/{id}/suspend", a.handleSuspendTenant)
		r.Get("/audit", a.handleListAudit)
	})

	r.Route("/api/bots", func(r chi.Router) {
		r.Use(a.mw.Require)
		r.Get("/", a.handleListBots)
		r.Post("/", a.handleCreateBot)
		r.Get("/{id}", a.handleGetBot)
		r.Put("/{id}", a.handleUpdateBot)
		r.Delete("/{id}", a.handleDeleteBot)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.store.GetConsoleUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		// Same response for unknown email and wrong password.
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		a.logger.Error("login lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := a.verifier.Generate(user.ID, user.Role, user.TenantID, sessionTTL)
	if err != nil {
		a.logger.Error("token generation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := a.store.AppendAudit(r.Context(), &store.AuditEntry{
		ID:         uuid.NewString(),
		ActorID:    user.ID,
		Action:     store.AuditUserLoggedIn,
		TargetType: "user",
		TargetID:   user.ID,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		a.logger.Error("audit append failed", "action", store.AuditUserLoggedIn, "error", err)
	}

	respondJSON(w, http.StatusOK, loginResponse{Token: token, Role: user.Role, TenantID: user.TenantID})
}

func (a *API) handleWidgetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.bots.WidgetConfigFor(r.Context(), r.URL.Query().Get("bot_id"))
	if err != nil {
		a.logger.Error("widget config lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

type tenantRequest struct {
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
}

func (a *API) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ac := auth.MustFromContext(r.Context())
	tenant, err := a.tenants.CreateTenant(r.Context(), ac.UserID, req.DisplayName, req.Kind)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tenant)
}

func (a *API) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := a.tenants.ListTenants(r.Context())
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	if tenants == nil {
		tenants = []*store.Tenant{}
	}
	respondJSON(w, http.StatusOK, tenants)
}

func (a *API) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := a.tenants.GetTenant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tenant)
}

func (a *API) handleRenameTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ac := auth.MustFromContext(r.Context())
	tenant, err := a.tenants.RenameTenant(r.Context(), ac.UserID, chi.URLParam(r, "id"), req.DisplayName)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tenant)
}

func (a *API) handleSuspendTenant(w http.ResponseWriter, r *http.Request) {
	ac := auth.MustFromContext(r.Context())
	tenant, err := a.tenants.SuspendTenant(r.Context(), ac.UserID, chi.URLParam(r, "id"))
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tenant)
}

func (a *API) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.store.ListAudit(r.Context(), limit)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*store.AuditEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

type botRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	WelcomeMessage string `json:"welcome_message"`
	Status         string `json:"status"`
}

func (r botRequest) input() BotInput {
	return BotInput{
		Name:           r.Name,
		Description:    r.Description,
		WelcomeMessage: r.WelcomeMessage,
		Status:         r.Status,
	}
}

func (a *API) handleListBots(w http.ResponseWriter, r *http.Request) {
	ac := auth.MustFromContext(r.Context())
	bots, err := a.bots.ListBots(r.Context(), ac.EffectiveTenantID())
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	if bots == nil {
		bots = []*store.Bot{}
	}
	respondJSON(w, http.StatusOK, bots)
}

func (a *API) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	var req botRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ac := auth.MustFromContext(r.Context())
	bot, err := a.bots.CreateBot(r.Context(), ac.UserID, ac.EffectiveTenantID(), req.input())
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, bot)
}

func (a *API) handleGetBot(w http.ResponseWriter, r *http.Request) {
	ac := auth.MustFromContext(r.Context())
	bot, err := a.bots.GetBot(r.Context(), ac.EffectiveTenantID(), chi.URLParam(r, "id"))
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bot)
}

func (a *API) handleUpdateBot(w http.ResponseWriter, r *http.Request) {
	var req botRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ac := auth.MustFromContext(r.Context())
	bot, err := a.bots.UpdateBot(r.Context(), ac.UserID, ac.EffectiveTenantID(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bot)
}

func (a *API) handleDeleteBot(w http.ResponseWriter, r *http.Request) {
	ac := auth.MustFromContext(r.Context())
	if err := a.bots.DeleteBot(r.Context(), ac.UserID, ac.EffectiveTenantID(), chi.URLParam(r, "id")); err != nil {
		a.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondServiceError maps service errors onto HTTP statuses.
func (a *API) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDuplicateTenant),
		errors.Is(err, store.ErrDuplicateBot),
		errors.Is(err, store.ErrDuplicateEmail):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrTenantNameRequired),
		errors.Is(err, ErrInvalidTenantKind),
		errors.Is(err, ErrBotNameRequired),
		errors.Is(err, ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTenantRequired),
		errors.Is(err, ErrTenantSuspended):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		a.logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
