package response

import (
	"encoding/json"
	"net/http"
)

// Envelope wraps every successful JSON body as {"data": ...}.
type Envelope struct {
	Data any `json:"data"`
}

// Auth responses carry session ids and reset outcomes; none of them may be
// cached by the browser or an intermediary.
func noStore(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
}

// WriteJSON keeps a Content-Type the handler already set.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	noStore(w)
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, data any) { WriteJSON(w, http.StatusOK, Envelope{Data: data}) }

func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Envelope{Data: data})
}

// NoContent is what forget-password, reset-password and sign-out answer with.
func NoContent(w http.ResponseWriter) {
	noStore(w)
	w.WriteHeader(http.StatusNoContent)
}
