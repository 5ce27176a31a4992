package clinics

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/klinikai/internal/observability/metrics"
	"github.com/wolfman30/klinikai/internal/triage"
	"github.com/wolfman30/klinikai/pkg/logging"
)

var clinicsTracer = otel.Tracer("klinikai.internal.clinics")

const (
	candidateLimit        = 10
	defaultRecommendCount = 5
)

// ErrSpecialtyRequired is returned when a recommendation has no specialty.
var ErrSpecialtyRequired = errors.New("specialty is required")

// Service recommends clinics for a triaged patient.
type Service struct {
	repo    Repository
	cache   Cache
	catalog *triage.Catalog
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
	max     int
}

// Option customizes a Service.
type Option func(*Service)

// WithCache enables result caching.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithCatalog canonicalizes incoming specialty names before querying.
func WithCatalog(c *triage.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithMetrics records recommendation outcomes.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMaxResults caps how many ranked clinics are returned.
func WithMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.max = n
		}
	}
}

// NewService constructs a recommendation service.
func NewService(repo Repository, logger *logging.Logger, opts ...Option) *Service {
	if repo == nil {
		panic("clinics: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:   repo,
		logger: logger,
		max:    defaultRecommendCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend returns the best clinics offering specialty, ranked for urgency.
// An empty urgency ranks by priority alone.
func (s *Service) Recommend(ctx context.Context, specialty string, urgency triage.Urgency) (*RecommendationResult, error) {
	ctx, span := clinicsTracer.Start(ctx, "clinics.recommend")
	defer span.End()

	specialty = s.catalog.Canonical(specialty)
	if specialty == "" {
		return nil, ErrSpecialtyRequired
	}
	span.SetAttributes(
		attribute.String("klinikai.specialty", specialty),
		attribute.String("klinikai.urgency", string(urgency)),
	)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, specialty, urgency)
		if err != nil {
			s.logger.Warn("recommendation cache read failed", "specialty", specialty, "error", err)
		} else if ok {
			s.metrics.ObserveRecommendation("cache_hit")
			return cached, nil
		}
	}

	s.logger.Info("finding clinics", "specialty", specialty, "urgency", urgency)
	rows, err := s.repo.FindBySpecialty(ctx, specialty, candidateLimit)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveRecommendation("error")
		return nil, err
	}

	result := &RecommendationResult{
		Clinics:   []Recommendation{},
		Urgency:   urgency,
		Specialty: specialty,
	}
	if len(rows) == 0 {
		s.logger.Info("no clinics found for specialty", "specialty", specialty)
		result.Message = noClinicsMessage(specialty)
		s.metrics.ObserveRecommendation("empty")
		return result, nil
	}

	recs := Annotate(rows, specialty, urgency)
	Rank(recs, urgency)
	if len(recs) > s.max {
		recs = recs[:s.max]
	}
	result.Clinics = recs
	result.Total = len(recs)

	if s.cache != nil {
		if err := s.cache.Set(ctx, specialty, urgency, result); err != nil {
			s.logger.Warn("recommendation cache write failed", "specialty", specialty, "error", err)
		}
	}

	s.logger.Info("returning prioritized clinics", "count", result.Total, "specialty", specialty)
	s.metrics.ObserveRecommendation("ok")
	return result, nil
}

// GetClinic loads a clinic by id.
func (s *Service) GetClinic(ctx context.Context, id string) (*Clinic, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrClinicNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// OwnerContact returns the clinic owner's contact details.
func (s *Service) OwnerContact(ctx context.Context, clinicID string) (*OwnerContact, error) {
	return s.repo.OwnerContact(ctx, clinicID)
}
