package handler

import (
	"net/http"

	"github.com/garrettladley/settle/internal/xhttp"
)

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth handles GET /health requests.
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	xhttp.WriteOK(w, healthResponse{Status: "ok"})
}
