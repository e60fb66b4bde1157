// Package service runs the question answering pipeline: retrieve the nearest
// documents, assemble them into a bounded context and ask the generator.
package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"docqa/internal/assemble"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/generation"
	"docqa/internal/logging"
	"docqa/internal/retrieval"
	"docqa/internal/vectorindex"
)

// State is a step of one query's lifecycle.
type State string

const (
	StateReceived  State = "received"
	StateEncoded   State = "encoded"
	StateRetrieved State = "retrieved"
	StateAssembled State = "assembled"
	StateGenerated State = "generated"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Failure describes why a query stopped. Stage is the last state it reached.
type Failure struct {
	Kind    domain.Kind
	Message string
	Stage   State
}

// Outcome is the result of one Ask call. On generation failure Sources and
// Hits are kept so the caller can see what was attempted.
type Outcome struct {
	State    State
	Question string
	Answer   string
	Sources  []string
	Hits     []domain.Hit
	Failure  *Failure
}

// Resources are the shared read-only components loaded at startup.
type Resources struct {
	Encoder embedding.Encoder
	Catalog *vectorindex.Catalog
	Store   domain.CorpusStore
	// Close releases the store, if it holds anything.
	Close func() error
}

// Loader produces the shared resources. It runs at most once per Service.
type Loader func(ctx context.Context) (*Resources, error)

// Service answers questions against one loaded index. It is safe for
// concurrent use once constructed.
type Service struct {
	load     Loader
	once     sync.Once
	res      *Resources
	retr     domain.Retriever
	startErr error

	generator domain.Generator
	template  generation.Template
	strategy  string
	topK      int
	budget    int
	log       *zap.SugaredLogger
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator sets the generation gateway used by Ask.
func WithGenerator(g domain.Generator) Option { return func(s *Service) { s.generator = g } }

// WithTemplate overrides the prompt template.
func WithTemplate(t generation.Template) Option { return func(s *Service) { s.template = t } }

// WithStrategy selects the retrieval strategy by name.
func WithStrategy(name string) Option { return func(s *Service) { s.strategy = name } }

// WithTopK sets how many documents Ask retrieves.
func WithTopK(k int) Option { return func(s *Service) { s.topK = k } }

// WithBudget sets the context size in characters.
func WithBudget(n int) Option { return func(s *Service) { s.budget = n } }

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option { return func(s *Service) { s.log = l } }

// New returns a Service that loads its resources on first use.
func New(load Loader, opts ...Option) *Service {
	s := &Service{
		load:     load,
		strategy: retrieval.StrategyVector,
		topK:     2,
		budget:   8000,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the shared resources. Every caller, concurrent or later, sees
// the result of the single load, including its error. The load ignores the
// caller's cancellation so one abandoned query cannot fail the service.
func (s *Service) Init(ctx context.Context) error {
	s.once.Do(func() {
		s.log.Infow("loading retrieval resources", "strategy", s.strategy)
		res, err := s.load(context.WithoutCancel(ctx))
		if err != nil {
			s.startErr = err
			s.log.Errorw("startup failed", "kind", domain.KindOf(err), "error", err)
			return
		}
		retr, err := retrieval.New(s.strategy, res.Encoder, res.Catalog)
		if err != nil {
			s.startErr = err
			s.log.Errorw("startup failed", "kind", domain.KindOf(err), "error", err)
			if res.Close != nil {
				_ = res.Close()
			}
			return
		}
		s.res, s.retr = res, retr
		s.log.Infow("retrieval ready",
			"documents", res.Catalog.Len(),
			"dimension", res.Catalog.Index().Dimension(),
			"model", res.Catalog.Index().Model(),
		)
	})
	return s.startErr
}

// Close releases the loaded resources.
func (s *Service) Close() error {
	if s.res == nil || s.res.Close == nil {
		return nil
	}
	return s.res.Close()
}

// Retrieve returns the k documents nearest to question without generating.
func (s *Service) Retrieve(ctx context.Context, question string, k int) ([]domain.Hit, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s.retr.Retrieve(ctx, question, k)
}

// Ask runs the full pipeline. Per-query failures come back as an Outcome in
// StateFailed together with the error; the shared resources are not touched.
func (s *Service) Ask(ctx context.Context, question string) (*Outcome, error) {
	out := &Outcome{State: StateReceived, Question: question}
	log := s.log.With("question", question)

	if err := s.Init(ctx); err != nil {
		return s.fail(log, out, err), err
	}
	if s.generator == nil {
		err := domain.Errorf(domain.KindGeneration, "service.Ask", "no generation gateway configured")
		return s.fail(log, out, err), err
	}

	hits, err := s.retrieve(ctx, out, question)
	if err != nil {
		return s.fail(log, out, err), err
	}
	out.Hits = hits
	out.State = StateRetrieved
	log.Debugw("retrieved", "hits", len(hits))

	block, err := assemble.Assemble(ctx, hits, s.res.Store, s.budget)
	if err != nil {
		return s.fail(log, out, err), err
	}
	out.Sources = block.Sources
	out.State = StateAssembled
	log.Debugw("assembled", "sources", block.Sources, "chars", len([]rune(block.Text)))

	answer, err := s.generator.Generate(ctx, s.template.Render(block.Text, question))
	if err != nil {
		if domain.KindOf(err) == "" {
			err = domain.Wrap(domain.KindGeneration, "service.Ask", err)
		}
		return s.fail(log, out, err), err
	}
	out.Answer = answer
	out.State = StateGenerated
	log.Debugw("generated", "chars", len(answer))

	out.State = StateCompleted
	log.Infow("answered", "sources", out.Sources)
	return out, nil
}

// retrieve moves out through Encoded. Only the vector strategy has a
// separate encoding step.
func (s *Service) retrieve(ctx context.Context, out *Outcome, question string) ([]domain.Hit, error) {
	v, ok := s.retr.(*retrieval.Vector)
	if !ok {
		out.State = StateEncoded
		return s.retr.Retrieve(ctx, question, s.topK)
	}
	vec, err := v.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	out.State = StateEncoded
	return v.Nearest(vec, s.topK)
}

func (s *Service) fail(log *zap.SugaredLogger, out *Outcome, err error) *Outcome {
	f := &Failure{Kind: domain.KindOf(err), Message: err.Error(), Stage: out.State}
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		f.Message = de.Message
	}
	out.Failure = f
	out.State = StateFailed
	log.Warnw("query failed", "stage", f.Stage, "kind", f.Kind, "error", err)
	return out
}
