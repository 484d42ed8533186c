package handlers

import (
	"net/http"

	"taskboard/utilities"
)

type credentialsInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Confirm   string `json:"confirm"`
	Password2 string `json:"password2"`
}

func bindCredentials(r *http.Request) (credentialsInput, error) {
	var in credentialsInput
	err := bind(r, &in, func(get func(string) string) {
		in.Email = get("email")
		in.Password = get("password")
		in.Confirm = get("confirm")
		in.Password2 = get("password2")
	})
	if in.Confirm == "" {
		in.Confirm = in.Password2
	}
	return in, err
}

// LoginPageHandler marks the caller's session as logged out.
func (h *Handler) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Load(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.LoggedIn = false
	if err := h.Sessions.Save(r.Context(), w, &s); err != nil {
		utilities.LogError(err, "Saving session on login page")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"logged_in": false})
}

// LoginHandler checks the credentials and logs the session in.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	in, err := bindCredentials(r)
	if err != nil {
		writeError(w, err)
		return
	}

	u, err := h.Gate.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		utilities.LogWarn("Failed login from %s", r.RemoteAddr)
		writeError(w, err)
		return
	}

	s, err := h.Sessions.Load(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Sessions.Login(r.Context(), w, &s, u.ID); err != nil {
		utilities.LogError(err, "Saving session after login")
		writeError(w, err)
		return
	}

	utilities.LogInfo("User %d logged in", u.ID)
	writeJSON(w, http.StatusOK, map[string]int64{"user_id": u.ID})
}

// RegisterHandler creates an account. It does not log the new user in.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	in, err := bindCredentials(r)
	if err != nil {
		writeError(w, err)
		return
	}

	u, err := h.Gate.Register(r.Context(), in.Email, in.Password, in.Confirm)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user_id": u.ID, "email": u.Email})
}

// LogoutHandler destroys the session.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if err := h.Sessions.Destroy(r.Context(), w, &s); err != nil {
		utilities.LogError(err, "Destroying session")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"logged_in": false})
}
