package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// BackendSelector decides which backend runs a request
type BackendSelector struct {
	accelerator domain.CapabilityProbe
	logger      *zap.Logger
}

// NewBackendSelector creates a selector backed by an accelerator probe
func NewBackendSelector(accelerator domain.CapabilityProbe, logger *zap.Logger) *BackendSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackendSelector{accelerator: accelerator, logger: logger}
}

// Select resolves the backend for req.
//
// An accelerator request whose probe fails is downgraded to the embedded backend.
// A passthrough accelerator request runs directly through the accelerator; a
// re-encoded one runs on the embedded backend with the accelerator as its
// transfer helper, which only yields start and finish events.
func (s *BackendSelector) Select(ctx context.Context, req *domain.DownloadRequest) domain.Selection {
	sel := domain.Selection{
		Backend: req.Backend,
		Mode:    req.Mode(),
	}

	if req.Backend != domain.BackendAccelerator {
		return sel
	}

	if res := s.accelerator.Probe(ctx); !res.Available {
		s.logger.Warn("Accelerator unavailable, falling back to embedded backend",
			zap.String("session_id", req.SessionID),
			zap.String("reason", res.Message))
		sel.Backend = domain.BackendEmbedded
		sel.Downgraded = true
		return sel
	}

	sel.Direct = sel.Mode == domain.ModePassthrough
	return sel
}
