package extract

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/interfaces"
	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

// DefaultBackend is used when a request names no backend or an unknown one.
const DefaultBackend = "text"

// Service dispatches extraction requests to named backends.
type Service struct {
	backends map[string]interfaces.Extractor
	logger   arbor.ILogger
}

// NewService creates the dispatcher with both built-in backends registered.
func NewService(logger arbor.ILogger) *Service {
	s := &Service{
		backends: make(map[string]interfaces.Extractor),
		logger:   logger,
	}
	s.Register(NewTextExtractor(logger))
	s.Register(NewMarkdownExtractor(logger))
	return s
}

// Register adds a backend under its own name.
func (s *Service) Register(extractor interfaces.Extractor) {
	s.backends[extractor.Name()] = extractor
}

// Backend resolves a backend by name, falling back to the default for
// unknown or empty names. Unknown names degrade rather than fail so that a
// queued request never becomes unprocessable over a label.
func (s *Service) Backend(name string) interfaces.Extractor {
	if backend, ok := s.backends[name]; ok {
		return backend
	}
	if name != "" {
		s.logger.Warn().Str("extractor", name).Str("fallback", DefaultBackend).Msg("Unknown extractor requested")
	}
	return s.backends[DefaultBackend]
}

// Extract runs the named backend and reports which one was used.
func (s *Service) Extract(ctx context.Context, name string, data []byte, pages string) (*models.ExtractedContent, string, error) {
	backend := s.Backend(name)
	content, err := backend.Extract(ctx, data, pages)
	if err != nil {
		return nil, backend.Name(), err
	}
	return content, backend.Name(), nil
}
