package incident

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"cyberguard/internal/classifier"
	reportrepo "cyberguard/internal/repository/report"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

var ErrSessionNotFound = errors.New("incident: session not found")

// Recorder receives outcome counters. metrics.Metrics implements it.
type Recorder interface {
	Classification(outcome string)
	StepOutcome(completed bool)
	ReportExported()
}

type nopRecorder struct{}

func (nopRecorder) Classification(string) {}
func (nopRecorder) StepOutcome(bool)      {}
func (nopRecorder) ReportExported()       {}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeStale   = "stale"
)

type Options struct {
	Classifier classifier.Classifier
	Catalog    Resolver
	// Reports receives exported reports. Export fails when nil.
	Reports reportrepo.Store
	Metrics Recorder
	Logger  *logrus.Entry

	// TTL and MaxSessions bound the live session registry. An evicted
	// session counts as navigated away from.
	TTL         time.Duration
	MaxSessions int
	// ClassifyTimeout bounds each classification call when > 0.
	ClassifyTimeout time.Duration

	Now func() time.Time
}

// Service owns live sessions. Every transition runs under one mutex, so a
// session sees one transition at a time.
type Service struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *sessionState]

	classifier      classifier.Classifier
	catalog         Resolver
	reports         reportrepo.Store
	metrics         Recorder
	log             *logrus.Entry
	classifyTimeout time.Duration
	now             func() time.Time
}

type sessionState struct {
	id string

	// Guarded by Service.mu.
	snap       Session
	generation uint64
	inflight   context.CancelFunc
	changed    chan struct{}

	// Closed once when the session is closed or evicted.
	ctx      context.Context
	shutdown context.CancelFunc
}

func New(opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 256
	}
	s := &Service{
		classifier:      opts.Classifier,
		catalog:         opts.Catalog,
		reports:         opts.Reports,
		metrics:         opts.Metrics,
		log:             opts.Logger,
		classifyTimeout: opts.ClassifyTimeout,
		now:             opts.Now,
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if s.now == nil {
		s.now = time.Now
	}
	// The eviction callback may run on the LRU's janitor goroutine, so it
	// only touches fields that are safe without s.mu.
	s.sessions = expirable.NewLRU[string, *sessionState](opts.MaxSessions, func(id string, st *sessionState) {
		st.shutdown()
		s.log.WithField("session", id).Debug("incident session closed")
	}, opts.TTL)
	return s
}

// Open starts a new session holding only the greeting.
func (s *Service) Open() (string, Session) {
	ctx, cancel := context.WithCancel(context.Background())
	st := &sessionState{
		id:       uuid.NewString(),
		snap:     NewSession(),
		changed:  make(chan struct{}),
		ctx:      ctx,
		shutdown: cancel,
	}
	s.mu.Lock()
	s.sessions.Add(st.id, st)
	s.mu.Unlock()
	s.log.WithField("session", st.id).Debug("incident session opened")
	return st.id, st.snap
}

func (s *Service) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.lookupLocked(id)
	if err != nil {
		return Session{}, err
	}
	return st.snap, nil
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	return s.sessions.Len()
}

// Submit accepts the incident description and starts classification in the
// background. It returns the Classifying snapshot immediately.
func (s *Service) Submit(id, text string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.lookupLocked(id)
	if err != nil {
		return Session{}, err
	}
	next, err := st.snap.Submit(text)
	if err != nil {
		return st.snap, err
	}
	st.generation++
	gen := st.generation
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.classifyTimeout > 0 {
		ctx, cancel = context.WithTimeout(st.ctx, s.classifyTimeout)
	} else {
		ctx, cancel = context.WithCancel(st.ctx)
	}
	st.inflight = cancel
	s.commitLocked(st, next)

	go s.classify(ctx, cancel, st, gen, text)
	return next, nil
}

func (s *Service) classify(ctx context.Context, cancel context.CancelFunc, st *sessionState, gen uint64, text string) {
	res, cerr := s.classifier.Classify(ctx, text)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.log.WithField("session", st.id)
	if !s.currentLocked(st, gen) {
		s.metrics.Classification(OutcomeStale)
		log.WithField("generation", gen).Debug("discarding stale classification result")
		return
	}
	st.inflight = nil

	var (
		next Session
		err  error
	)
	if cerr != nil {
		log.WithError(cerr).Warn("incident classification failed")
		s.metrics.Classification(OutcomeFailure)
		next, err = st.snap.FailClassification()
	} else {
		log.WithFields(logrus.Fields{
			"category": res.Category,
			"severity": res.Severity,
		}).Info("incident classified")
		s.metrics.Classification(OutcomeSuccess)
		next, err = st.snap.ApplyClassification(res, s.catalog)
		if err != nil {
			log.WithError(err).Error("applying classification")
			next, err = st.snap.FailClassification()
		}
	}
	if err != nil {
		return
	}
	s.commitLocked(st, next)
}

// Confirm records the user's answer for the current step.
func (s *Service) Confirm(id string, completed bool) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.lookupLocked(id)
	if err != nil {
		return Session{}, err
	}
	next, err := st.snap.Confirm(completed)
	if err != nil {
		return st.snap, err
	}
	s.metrics.StepOutcome(completed)
	s.commitLocked(st, next)
	return next, nil
}

// Report renders the report for a finished session without storing it.
func (s *Service) Report(id string) (name, content string, err error) {
	snap, err := s.Get(id)
	if err != nil {
		return "", "", err
	}
	return snap.Report(s.now())
}

// Export renders the report and writes it to the report store.
func (s *Service) Export(ctx context.Context, id string) (string, error) {
	if s.reports == nil {
		return "", errors.New("incident: no report store configured")
	}
	name, content, err := s.Report(id)
	if err != nil {
		return "", err
	}
	if err := s.reports.Put(ctx, name, []byte(content)); err != nil {
		return "", err
	}
	s.metrics.ReportExported()
	s.log.WithFields(logrus.Fields{"session": id, "report": name}).Info("incident report exported")
	return name, nil
}

// Reset starts the conversation over. A classification still in flight is
// cancelled and its result discarded.
func (s *Service) Reset(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.lookupLocked(id)
	if err != nil {
		return Session{}, err
	}
	st.generation++
	if st.inflight != nil {
		st.inflight()
		st.inflight = nil
	}
	next := NewSession()
	s.commitLocked(st, next)
	return next, nil
}

// Close discards a session. Pending results for it become stale.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookupLocked(id); err != nil {
		return err
	}
	s.sessions.Remove(strings.TrimSpace(id))
	return nil
}

// Subscribe emits the current snapshot and then every change until ctx is
// done or the session goes away. Slow readers only see the latest snapshot.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Session, error) {
	s.mu.Lock()
	st, err := s.lookupLocked(id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make(chan Session, 8)

	go func() {
		defer close(out)
		for {
			s.mu.Lock()
			snap := st.snap
			ch := st.changed
			s.mu.Unlock()

			pushSnapshot(out, snap)

			select {
			case <-ctx.Done():
				return
			case <-st.ctx.Done():
				return
			case <-ch:
			}
		}
	}()
	return out, nil
}

func (s *Service) lookupLocked(id string) (*sessionState, error) {
	st, ok := s.sessions.Get(strings.TrimSpace(id))
	if !ok || st.ctx.Err() != nil {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

// currentLocked reports whether a result for generation gen may still be
// applied to st.
func (s *Service) currentLocked(st *sessionState, gen uint64) bool {
	cur, ok := s.sessions.Peek(st.id)
	return ok && cur == st && st.ctx.Err() == nil &&
		st.generation == gen && st.snap.State == Classifying
}

// commitLocked stores next, refreshes the session TTL and wakes subscribers.
func (s *Service) commitLocked(st *sessionState, next Session) {
	st.snap = next
	s.sessions.Add(st.id, st)
	close(st.changed)
	st.changed = make(chan struct{})
}

func pushSnapshot(out chan Session, snap Session) {
	select {
	case out <- snap:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- snap:
	default:
	}
}
