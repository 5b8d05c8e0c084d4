package llm

import (
	"context"
	"log/slog"
)

// FallbackTransport decorates a Transport with fallback-chain retry: when an
// invocation fails as model-unavailable, it retries the same request against
// each candidate in the chain until one succeeds or the chain is exhausted.
// All other failure classes (auth, timeout, generic) propagate immediately —
// retrying them on a different model would not help.
//
// Composition is explicit: the wrapper holds the wrapped capability plus the
// chain resolver, nothing more.
type FallbackTransport struct {
	inner    Transport
	selector *Selector
	logger   *slog.Logger
}

// NewFallbackTransport wraps a transport with fallback-chain retry.
func NewFallbackTransport(inner Transport, selector *Selector, logger *slog.Logger) *FallbackTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackTransport{
		inner:    inner,
		selector: selector,
		logger:   logger,
	}
}

// Invoke implements Transport.
func (t *FallbackTransport) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	chain := t.selector.ChainForModel(req.Model)

	var attempted []string
	var lastErr error

	for _, model := range chain {
		attempt := req
		attempt.Model = model

		resp, err := t.inner.Invoke(ctx, attempt)
		if err == nil {
			if len(attempted) > 0 {
				t.logger.Info("Invocation succeeded on fallback model",
					"requested", req.Model,
					"model", model,
					"attempts", len(attempted)+1)
			}
			return resp, nil
		}

		if !IsUnavailable(err) {
			return nil, err
		}

		attempted = append(attempted, model)
		lastErr = err
		t.logger.Warn("Model unavailable, trying fallback",
			"model", model,
			"error", err)
	}

	return nil, &ExhaustedError{Models: attempted, Last: lastErr}
}
