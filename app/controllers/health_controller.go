package controllers

import (
	"net/http"
	"time"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// HealthController serves the liveness probe
type HealthController struct {
	now func() time.Time
}

func NewHealthController() *HealthController {
	return &HealthController{now: time.Now}
}

// Check reports that the process is up.
func (hc *HealthController) Check(w http.ResponseWriter, r *http.Request) error {
	sendJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: hc.now().UTC().Format(timestampFormat),
	})
	return nil
}
