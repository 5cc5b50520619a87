package handler

import (
	"errors"
	"net"
	"net/http"

	"github.com/mzbr/illustbox/internal/domain"
	"github.com/mzbr/illustbox/internal/report"
	"github.com/mzbr/illustbox/internal/service"
)

// UserHandler serves the account, auth, and collection routes. Every
// response uses the {success, ...} envelope; failures answer HTTP 200 with
// {success:false, err} and are forwarded to the error reporter.
type UserHandler struct {
	auth         *service.AuthService
	collection   *service.CollectionService
	reporter     *report.Reporter
	limiter      *service.TokenBucket
	cookieSecure bool
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(auth *service.AuthService, collection *service.CollectionService, reporter *report.Reporter, limiter *service.TokenBucket, cookieSecure bool) *UserHandler {
	return &UserHandler{
		auth:         auth,
		collection:   collection,
		reporter:     reporter,
		limiter:      limiter,
		cookieSecure: cookieSecure,
	}
}

// fail reports the error and answers the failure envelope.
func (h *UserHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.reporter.Report(r.Context(), r.URL.Path, err)
	writeFailure(w, err)
}

type idRequest struct {
	ID int64 `json:"_id"`
}

// HandleInfo returns the raw user record.
// POST /info {"_id": ...} -> {"success":true, "user": {...}|null}
func (h *UserHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := readJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.collection.Info(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// A missing id is a pass-through query result, not an error.
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": nil})
			return
		}
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    toUserDTO(user),
	})
}

// HandleCollection returns the full user document with both relation lists
// resolved.
// POST /collection {"_id": ...} -> {"success":true, "collection": {...}|null}
func (h *UserHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := readJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	col, err := h.collection.Collection(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "collection": nil})
			return
		}
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"collection": toCollectionDTO(col),
	})
}

// HandleIllustList returns the user's direct illustration references, each
// resolved to its name.
// POST /illustList {"_id": ...} -> {"success":true, "illustList": [...]|null}
func (h *UserHandler) HandleIllustList(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := readJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	refs, err := h.collection.IllustList(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "illustList": nil})
			return
		}
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"illustList": toIllustRefDTOs(refs),
	})
}

// HandleItemList returns the user's items resolved through illustration to
// stage, restricted to the stage's item name.
// POST /itemList {"_id": ...} -> {"success":true, "itemList": [...]|null}
func (h *UserHandler) HandleItemList(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := readJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	items, err := h.collection.ItemList(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "itemList": nil})
			return
		}
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"itemList": toResolvedItemDTOs(items),
	})
}

// HandleAuth reports the authenticated identity resolved by RequireAuth.
// GET /auth -> {"_id", "isAuth":true, "email", "name", "image", "favorites"}
func (h *UserHandler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"_id":       user.ID,
		"isAuth":    true,
		"email":     user.Email,
		"name":      user.Name,
		"image":     user.Image,
		"favorites": emptyIfNil(user.Favorites),
	})
}

// HandleRegister creates a new account. No token is issued; the user logs in
// separately.
// POST /register {"email","password","name","image"} -> {"success":true}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(clientIP(r)) {
		writeFailure(w, errors.New("too many requests"))
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Image    string `json:"image"`
	}
	if err := readJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if _, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name, req.Image); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrInvalidInput) {
			writeFailure(w, err)
			return
		}
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleLogin verifies credentials, stores a fresh session token on the user
// row, and sets it as the x_auth cookie. Missing accounts and wrong
// passwords are soft failures with distinct messages.
// POST /login {"email","password"} -> {"loginSuccess", ...}
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(clientIP(r)) {
		writeFailure(w, errors.New("too many requests"))
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	token, userID, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusOK, map[string]any{
				"loginSuccess": false,
				"message":      "no user found for the given email",
			})
		case errors.Is(err, domain.ErrUnauthorized):
			writeJSON(w, http.StatusOK, map[string]any{
				"loginSuccess": false,
				"message":      "wrong password",
			})
		default:
			h.fail(w, r, err)
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"loginSuccess": true,
		"userId":       userID,
	})
}

// HandleLogout clears the stored token, revoking the session, and expires
// the cookie.
// GET /logout -> {"success":true}
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	if err := h.auth.Logout(r.Context(), user.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// clientIP extracts the remote host for rate-limit keying.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
