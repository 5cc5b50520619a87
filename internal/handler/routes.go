package handler

import (
	"net/http"

	"github.com/mzbr/illustbox/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux. The /auth and
// /logout routes require a valid session token.
func RegisterRoutes(mux *http.ServeMux, users *UserHandler, auth *service.AuthService) {
	mux.HandleFunc("POST /info", users.HandleInfo)
	mux.HandleFunc("POST /collection", users.HandleCollection)
	mux.HandleFunc("POST /illustList", users.HandleIllustList)
	mux.HandleFunc("POST /itemList", users.HandleItemList)
	mux.HandleFunc("POST /register", users.HandleRegister)
	mux.HandleFunc("POST /login", users.HandleLogin)
	mux.Handle("GET /auth", RequireAuth(auth, http.HandlerFunc(users.HandleAuth)))
	mux.Handle("GET /logout", RequireAuth(auth, http.HandlerFunc(users.HandleLogout)))
	mux.HandleFunc("GET /healthz", HandleHealthz)
}
