package handlers

import (
	"encoding/json"
	"net/http"
)

// PlainPing is the net/http counterpart of Ping, mounted outside huma to
// exercise the plain HTTP limiter.
func PlainPing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "pong"})
}
