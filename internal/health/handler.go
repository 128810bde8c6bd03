// Package health reports whether the service's backing stores answer.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/utils"
)

// Check is one dependency probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Handler struct {
	Checks  []Check
	Timeout time.Duration
	Logger  *logger.Logger
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServeHTTP answers 200 when every check passes and 503 otherwise.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	res := report{Status: "UP", Checks: make(map[string]string, len(h.Checks))}
	status := http.StatusOK
	for _, c := range h.Checks {
		if err := c.Ping(ctx); err != nil {
			h.Logger.Error("HEALTH", fmt.Sprintf("%s check failed: %v", c.Name, err))
			res.Checks[c.Name] = "DOWN"
			res.Status = "DOWN"
			status = http.StatusServiceUnavailable
			continue
		}
		res.Checks[c.Name] = "UP"
	}
	utils.WriteJSON(w, status, res)
}
