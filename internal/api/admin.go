package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/api/helpers"
	"github.com/Islamawad132/Authme-sub001/internal/crypto"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
)

// mountAdmin wires the narrow collaborator surface an administrative
// client needs for realm/client/user provisioning, all behind
// AdminKeyMiddleware. Roles and groups have no corresponding write
// methods on RoleStore (it only resolves a user's effective roles), so
// there is no admin endpoint for them here; provisioning those is left to
// direct store seeding until a RoleStore write path exists.
func (s *Server) mountAdmin(r chi.Router) {
	r.Route("/realms", func(r chi.Router) {
		r.Post("/", s.adminCreateRealm)
		r.Get("/{realmID}", s.adminGetRealm)
	})
	r.Route("/clients", func(r chi.Router) {
		r.Post("/", s.adminCreateClient)
		r.Get("/{clientRowID}", s.adminGetClient)
	})
	r.Route("/users", func(r chi.Router) {
		r.Post("/", s.adminCreateUser)
		r.Get("/{userID}", s.adminGetUser)
	})
}

type realmRequest struct {
	Name                 string `json:"name"`
	DisplayName          string `json:"display_name"`
	Enabled              bool   `json:"enabled"`
	AccessTokenLifespan  int64  `json:"access_token_lifespan_seconds"`
	RefreshTokenLifespan int64  `json:"refresh_token_lifespan_seconds"`
	OfflineTokenLifespan int64  `json:"offline_token_lifespan_seconds"`
	MFARequired          bool   `json:"mfa_required"`
}

func (s *Server) adminCreateRealm(w http.ResponseWriter, r *http.Request) {
	var req realmRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Name == "" {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	realm := domain.Realm{
		ID:                   uuid.New(),
		Name:                 req.Name,
		DisplayName:          req.DisplayName,
		Enabled:              req.Enabled,
		AccessTokenLifespan:  time.Duration(req.AccessTokenLifespan) * time.Second,
		RefreshTokenLifespan: time.Duration(req.RefreshTokenLifespan) * time.Second,
		OfflineTokenLifespan: time.Duration(req.OfflineTokenLifespan) * time.Second,
		MFARequired:          req.MFARequired,
		CreatedAt:            time.Now(),
	}
	if existing, found, err := s.deps.Realms.GetByName(req.Name); err == nil && found {
		realm.ID = existing.ID
		realm.CreatedAt = existing.CreatedAt
	}
	if err := s.deps.Realms.PutRealm(realm); err != nil {
		renderError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, realm)
}

func (s *Server) adminGetRealm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "realmID"))
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "realmID must be a uuid")
		return
	}
	realm, found, err := s.deps.Realms.GetRealmByID(id)
	if err != nil {
		renderError(w, err)
		return
	}
	if !found {
		helpers.RespondError(w, http.StatusNotFound, "not_found", "realm not found")
		return
	}
	helpers.RespondJSON(w, http.StatusOK, realm)
}

type clientRequest struct {
	RealmID        string   `json:"realm_id"`
	ClientID       string   `json:"client_id"`
	ClientType     string   `json:"client_type"`
	ClientSecret   string   `json:"client_secret"`
	Enabled        bool     `json:"enabled"`
	GrantTypes     []string `json:"grant_types"`
	RedirectURIs   []string `json:"redirect_uris"`
	WebOrigins     []string `json:"web_origins"`
	DefaultScopes  []string `json:"default_scopes"`
	OptionalScopes []string `json:"optional_scopes"`
}

func (s *Server) adminCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	realmID, err := uuid.Parse(req.RealmID)
	if err != nil || req.ClientID == "" {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "realm_id and client_id are required")
		return
	}

	client := domain.Client{
		ID:             uuid.New(),
		RealmID:        realmID,
		ClientID:       req.ClientID,
		ClientType:     domain.ClientType(req.ClientType),
		Enabled:        req.Enabled,
		GrantTypes:     toGrantTypes(req.GrantTypes),
		RedirectURIs:   req.RedirectURIs,
		WebOrigins:     req.WebOrigins,
		DefaultScopes:  req.DefaultScopes,
		OptionalScopes: req.OptionalScopes,
		CreatedAt:      time.Now(),
	}
	if existing, found, err := s.deps.Clients.GetByClientID(realmID, req.ClientID); err == nil && found {
		client.ID = existing.ID
		client.CreatedAt = existing.CreatedAt
		client.ClientSecretHash = existing.ClientSecretHash
	}
	if req.ClientSecret != "" {
		hash, err := crypto.HashPassword(req.ClientSecret)
		if err != nil {
			renderError(w, err)
			return
		}
		client.ClientSecretHash = &hash
	}

	if err := s.deps.Clients.PutClient(client); err != nil {
		renderError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, client)
}

func toGrantTypes(ss []string) []domain.GrantType {
	out := make([]domain.GrantType, len(ss))
	for i, v := range ss {
		out[i] = domain.GrantType(v)
	}
	return out
}

func (s *Server) adminGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "clientRowID"))
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "clientRowID must be a uuid")
		return
	}
	client, found, err := s.deps.Clients.GetClientByRowID(id)
	if err != nil {
		renderError(w, err)
		return
	}
	if !found {
		helpers.RespondError(w, http.StatusNotFound, "not_found", "client not found")
		return
	}
	helpers.RespondJSON(w, http.StatusOK, client)
}

type userRequest struct {
	RealmID   string `json:"realm_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Enabled   bool   `json:"enabled"`
}

func (s *Server) adminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	realmID, err := uuid.Parse(req.RealmID)
	if err != nil || req.Username == "" {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "realm_id and username are required")
		return
	}

	now := time.Now()
	user := domain.User{
		ID:        uuid.New(),
		RealmID:   realmID,
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Enabled:   req.Enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, found, err := s.deps.Users.GetByUsername(realmID, req.Username); err == nil && found {
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
		user.PasswordHash = existing.PasswordHash
	}
	if req.Password != "" {
		hash, err := crypto.HashPassword(req.Password)
		if err != nil {
			renderError(w, err)
			return
		}
		user.PasswordHash = &hash
		user.PasswordChangedAt = &now
	}

	if err := s.deps.Users.PutUser(user); err != nil {
		renderError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, user)
}

func (s *Server) adminGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid_request", "userID must be a uuid")
		return
	}
	user, found, err := s.deps.Users.GetUserByID(id)
	if err != nil {
		renderError(w, err)
		return
	}
	if !found {
		helpers.RespondError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	helpers.RespondJSON(w, http.StatusOK, user)
}
