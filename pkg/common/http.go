package common

import (
	"log"
	"net/http"

	"github.com/matst80/slask-docs/pkg/common/jsoncompat"
)

// WriteJson writes v as a JSON response body.
func WriteJson(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return jsoncompat.Encode(w, v)
}

// JsonHandler wraps a handler with OPTIONS handling and session cookie
// bookkeeping. Handler errors are logged, the handler itself decides what
// status to write.
func JsonHandler(fn func(w http.ResponseWriter, r *http.Request, sessionId int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			RespondToOptions(w, r)
			return
		}
		sessionId := HandleSessionCookie(w, r)

		if err := fn(w, r, sessionId); err != nil {
			log.Printf("Error handling request: %v", err)
		}
	}
}

func RespondToOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Age", "0")
	w.WriteHeader(http.StatusAccepted)
}

// JsonError writes a JSON error payload with the given status. The message
// is shown to the user as the transient failure notification.
func JsonError(w http.ResponseWriter, status int, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return jsoncompat.Encode(w, map[string]string{"error": message})
}
