package gateway

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medcore/hospital-gateway/internal/api/metrics"
	"github.com/medcore/hospital-gateway/internal/api/middleware"
	"github.com/medcore/hospital-gateway/internal/core/domain"
	"github.com/medcore/hospital-gateway/internal/core/ports"
)

// Dispatcher runs identify, authorize, resolve and forward for every inbound
// request. Identity is passed explicitly from step to step.
type Dispatcher struct {
	identifier middleware.Identifier
	policy     ports.AccessPolicy
	routes     *RouteTable
	forwarder  *Forwarder
	log        zerolog.Logger
}

func NewDispatcher(identifier middleware.Identifier, policy ports.AccessPolicy, routes *RouteTable, forwarder *Forwarder, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		identifier: identifier,
		policy:     policy,
		routes:     routes,
		forwarder:  forwarder,
		log:        log,
	}
}

// Handle is the catch-all echo handler. A denied request is never forwarded.
func (d *Dispatcher) Handle(c echo.Context) error {
	req := c.Request()
	p := cleanPath(req.URL.Path)

	identity := d.identifier.Identify(middleware.BearerToken(req))
	op := ClassifyOperation(req.Method, p)

	decision := d.policy.Evaluate(identity, op, "")
	metrics.AccessDecisionsTotal.WithLabelValues(string(op), decisionLabel(decision)).Inc()
	if !decision.Allowed {
		d.log.Debug().
			Str("method", req.Method).
			Str("path", p).
			Str("operation", string(op)).
			Str("username", identity.Username).
			Str("reason", string(decision.Reason)).
			Msg("request denied")
		return decision.Err()
	}

	route, ok := d.routes.Resolve(p)
	if !ok {
		metrics.UnroutedRequestsTotal.Inc()
		return domain.ErrNoRoute
	}

	req.URL.Path = p
	req.URL.RawPath = ""
	d.forwarder.Forward(c.Response(), req, route)
	return nil
}

func decisionLabel(d domain.Decision) string {
	if d.Allowed {
		return "allow"
	}
	return string(d.Reason)
}
