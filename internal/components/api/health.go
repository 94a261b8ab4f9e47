package api

import (
	"net/http"
)

// Application is reported by the version endpoint.
const Application = "pizzabot-go"

// Version is set at build time with -ldflags "-X ...api.Version=...".
var Version = "dev"

// HealthResponse is the body of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// VersionResponse is the body of GET /api.
type VersionResponse struct {
	Application string `json:"application"`
	Version     string `json:"version"`
}

// HealthHandler handles GET /health.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// VersionHandler handles GET /api.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, VersionResponse{Application: Application, Version: Version})
}
