package handler

import (
	"context"
	"net/http"
	"time"

	"delivery-portal/pkg/apierror"
)

// HealthHandler reports the portal as up and, when asked, whether the
// backend answers.
type HealthHandler struct {
	backendURL string
	client     *http.Client
}

func NewHealthHandler(backendURL string) *HealthHandler {
	return &HealthHandler{backendURL: backendURL, client: &http.Client{Timeout: 3 * time.Second}}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("deep") != "1" {
		writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if err := h.pingBackend(r.Context()); err != nil {
		writeError(w, apierror.Upstream(err))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok", "backend": "ok"})
}

// pingBackend treats any HTTP answer as reachable; only transport failures
// count.
func (h *HealthHandler) pingBackend(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.backendURL, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
