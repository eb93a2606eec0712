// Package httpkit holds the HTTP helpers shared by the API handlers.
package httpkit

import (
	"encoding/json"
	"net/http"
)

// SuccessMessage is the message of every successful envelope.
const SuccessMessage = "Success"

// SuccessEnvelope wraps every successful response body.
type SuccessEnvelope struct {
	Message string `json:"message"`
	Result  any    `json:"result"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteSuccess writes {message:"Success", result}.
func WriteSuccess(w http.ResponseWriter, status int, result any) {
	WriteJSON(w, status, SuccessEnvelope{Message: SuccessMessage, Result: result})
}
