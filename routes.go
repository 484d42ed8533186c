package main

import (
	"net/http"
	"strings"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"taskboard/handlers"
	"taskboard/utilities"
)

// NewRouter wires every route. Only /login, /register and /static/ are open
// without a logged-in session.
func NewRouter(h *handlers.Handler, staticDir string, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(handlers.LoggingMiddleware)

	// --- Public ---
	r.HandleFunc("/login", h.LoginPageHandler).Methods("GET")
	r.HandleFunc("/login", h.LoginHandler).Methods("POST")
	r.HandleFunc("/register", h.RegisterHandler).Methods("POST")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir)))).Methods("GET")

	// --- Session ---
	r.HandleFunc("/logout", h.AuthMiddleware(h.LogoutHandler)).Methods("POST")

	// --- Tasks ---
	r.HandleFunc("/", h.AuthMiddleware(h.ListTasksHandler)).Methods("GET")
	r.HandleFunc("/tasks", h.AuthMiddleware(h.ListTasksHandler)).Methods("GET")
	r.HandleFunc("/tasks", h.AuthMiddleware(h.CreateTaskHandler)).Methods("POST")
	r.HandleFunc("/tasks/{id:[0-9]+}", h.AuthMiddleware(h.GetTaskHandler)).Methods("GET")
	r.HandleFunc("/tasks/{id:[0-9]+}", h.AuthMiddleware(h.UpdateTaskHandler)).Methods("PUT", "POST")
	r.HandleFunc("/tasks/{id:[0-9]+}", h.AuthMiddleware(h.DeleteTaskHandler)).Methods("DELETE")
	r.HandleFunc("/tasks/{id:[0-9]+}/status", h.AuthMiddleware(h.UpdateStatusHandler)).Methods("POST")
	r.HandleFunc("/tasks/{id:[0-9]+}/delete", h.AuthMiddleware(h.DeleteTaskHandler)).Methods("POST")

	// --- Chart ---
	r.HandleFunc("/gantt", h.AuthMiddleware(h.GanttHandler)).Methods("GET")

	headers := gorillahandlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type"})
	methods := gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})

	var origins []string
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
		utilities.LogWarn("CORS_ALLOWED_ORIGINS not set, allowing every origin ('*')")
	}
	utilities.LogInfo("CORS allowed origins: %v", origins)

	cors := []gorillahandlers.CORSOption{headers, methods, gorillahandlers.AllowedOrigins(origins)}
	if origins[0] != "*" {
		cors = append(cors, gorillahandlers.AllowCredentials())
	}
	return gorillahandlers.CORS(cors...)(r)
}
