package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/internal/telemetry"
	"github.com/marmos91/excelsior/pkg/api/response"
)

// maxUpstreamBody caps how much of the upstream reply is echoed.
const maxUpstreamBody = 4 << 10

// UpstreamReply is the payload of GET /external/ping.
type UpstreamReply struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// ExternalPing handles GET /external/ping by calling EXTERNAL_SERVICE_URL/ping.
// Trace context is propagated through the instrumented client.
func ExternalPing(w http.ResponseWriter, r *http.Request) {
	s, ok := stateOrError(w, r)
	if !ok {
		return
	}

	base := s.Routes().ExternalURL
	if base == "" {
		response.ServiceUnavailable(w, "external service not configured")
		return
	}
	url := strings.TrimRight(base, "/") + "/ping"

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		response.InternalServerError(w, "invalid external service URL")
		return
	}
	telemetry.SetAttributes(r.Context(), telemetry.PeerService(req.URL.Host))

	resp, err := s.Client().Do(req)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		logger.WarnCtx(r.Context(), "External service call failed", "url", url, logger.Err(err))
		response.BadGateway(w, "external service unreachable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		response.BadGateway(w, fmt.Sprintf("reading external response: %v", err))
		return
	}

	response.OK(w, UpstreamReply{
		URL:    url,
		Status: resp.StatusCode,
		Body:   string(body),
	})
}
