package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/leads-prospector/internal/driver"
	"github.com/octobees/leads-prospector/internal/entity"
	"github.com/octobees/leads-prospector/internal/ledger"
	"github.com/octobees/leads-prospector/internal/repository"
	"github.com/octobees/leads-prospector/internal/selectors"
)

const defaultMaxResults = 50

// DelayRange is a randomized pause between Min and Max.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

func (r DelayRange) pick() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.N(r.Max-r.Min)
}

// DiscoveryDelays are the pauses taken between browser actions.
type DiscoveryDelays struct {
	AfterLoad      DelayRange
	AfterActivate  DelayRange
	BetweenResults DelayRange
	BetweenTerms   DelayRange
}

// HumanDelays paces the browser like a person browsing the results.
func HumanDelays() DiscoveryDelays {
	return DiscoveryDelays{
		AfterLoad:      DelayRange{Min: 5 * time.Second, Max: 5 * time.Second},
		AfterActivate:  DelayRange{Min: 2 * time.Second, Max: 4 * time.Second},
		BetweenResults: DelayRange{Min: 1 * time.Second, Max: 2 * time.Second},
		BetweenTerms:   DelayRange{Min: 5 * time.Second, Max: 10 * time.Second},
	}
}

// DiscoveryOptions are the process-wide settings of the discovery campaign.
type DiscoveryOptions struct {
	LocaleSuffix   string
	ResultsTimeout time.Duration
	Delays         DiscoveryDelays
}

// DiscoveryRequest configures one discovery run.
type DiscoveryRequest struct {
	SearchTerms       []string
	MaxResultsPerTerm int
	Progress          ProgressFunc
}

// Validate rejects requests that cannot run.
func (r DiscoveryRequest) Validate() error {
	if len(cleanTerms(r.SearchTerms)) == 0 {
		return errors.New("nenhuma palavra-chave fornecida")
	}
	if r.MaxResultsPerTerm < 0 {
		return errors.New("max_results must be positive")
	}
	return nil
}

// TermResult is the outcome of one search term.
type TermResult struct {
	Term       string               `json:"term"`
	SessionID  int64                `json:"session_id"`
	Status     entity.SessionStatus `json:"status"`
	Found      int                  `json:"found"`
	Saved      int                  `json:"saved"`
	Duplicates int                  `json:"duplicates"`
	Skipped    int                  `json:"skipped"`
	Failed     int                  `json:"failed"`
	Error      string               `json:"error,omitempty"`
}

// DiscoveryResult summarises one discovery run.
type DiscoveryResult struct {
	RunID           uuid.UUID    `json:"run_id"`
	TotalDiscovered int          `json:"total_discovered"`
	TotalSaved      int          `json:"total_saved"`
	Terms           []TermResult `json:"terms"`
	ExportPath      string       `json:"export_path,omitempty"`
	Success         bool         `json:"success"`
	Error           string       `json:"error,omitempty"`
}

type extractionKind int

const (
	extractionOK extractionKind = iota
	extractionSkip
	extractionFailed
)

type extraction struct {
	kind     extractionKind
	business entity.Business
	err      error
}

// DiscoveryService searches the map listing for each term and stores new businesses.
type DiscoveryService struct {
	ledger   *ledger.Ledger
	sessions repository.SessionsRepository
	drivers  driver.Factory
	sel      *selectors.Selectors
	exporter *Exporter
	opts     DiscoveryOptions
	logger   *zap.Logger
	now      func() time.Time
}

// NewDiscoveryService constructs a DiscoveryService.
func NewDiscoveryService(
	l *ledger.Ledger,
	sessions repository.SessionsRepository,
	drivers driver.Factory,
	sel *selectors.Selectors,
	exporter *Exporter,
	opts DiscoveryOptions,
	logger *zap.Logger,
) *DiscoveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ResultsTimeout <= 0 {
		opts.ResultsTimeout = 30 * time.Second
	}
	return &DiscoveryService{
		ledger:   l,
		sessions: sessions,
		drivers:  drivers,
		sel:      sel,
		exporter: exporter,
		opts:     opts,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run processes every term in order. A term whose result list cannot be
// loaded is marked failed and the run moves on; only a browser start failure
// makes the whole run unsuccessful.
func (s *DiscoveryService) Run(ctx context.Context, req DiscoveryRequest) DiscoveryResult {
	result := DiscoveryResult{RunID: uuid.New(), Terms: []TermResult{}}
	logger := s.logger.With(zap.String("run_id", result.RunID.String()))

	if err := req.Validate(); err != nil {
		result.Error = err.Error()
		return result
	}
	terms := cleanTerms(req.SearchTerms)
	if req.MaxResultsPerTerm == 0 {
		req.MaxResultsPerTerm = defaultMaxResults
	}

	drv, err := s.drivers(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("start browser: %v", err)
		logger.Error("discovery aborted", zap.Error(err))
		return result
	}
	defer func() {
		if err := drv.Close(); err != nil {
			logger.Warn("close browser", zap.Error(err))
		}
	}()

	for i, term := range terms {
		if ctx.Err() != nil {
			result.Error = fmt.Sprintf("discovery interrupted: %v", ctx.Err())
			break
		}
		req.Progress.report("Buscando: %s (%d/%d)", term, i+1, len(terms))

		tr := s.runTerm(ctx, drv, result.RunID, term, req.MaxResultsPerTerm, logger)
		result.Terms = append(result.Terms, tr)
		result.TotalDiscovered += tr.Found
		result.TotalSaved += tr.Saved

		if i < len(terms)-1 {
			_ = sleepCtx(ctx, s.opts.Delays.BetweenTerms.pick())
		}
	}

	if ctx.Err() != nil && result.Error == "" {
		result.Error = fmt.Sprintf("discovery interrupted: %v", ctx.Err())
	}

	if s.exporter != nil {
		req.Progress.report("Exportando resultados...")
		exportCtx := context.WithoutCancel(ctx)
		path, err := s.exporter.Export(exportCtx)
		if err != nil {
			logger.Error("export businesses", zap.Error(err))
		} else {
			result.ExportPath = path
		}
	}

	result.Success = result.Error == ""
	logger.Info("discovery finished",
		zap.Int("terms", len(result.Terms)),
		zap.Int("discovered", result.TotalDiscovered),
		zap.Int("saved", result.TotalSaved),
		zap.String("export", result.ExportPath),
	)
	return result
}

func (s *DiscoveryService) runTerm(ctx context.Context, drv driver.Driver, runID uuid.UUID, term string, max int, logger *zap.Logger) TermResult {
	tr := TermResult{Term: term}
	logger = logger.With(zap.String("term", term))

	session := &entity.CampaignSession{RunID: runID, SearchTerm: term, StartedAt: s.now()}
	if err := s.sessions.Open(ctx, session); err != nil {
		tr.Status = entity.SessionFailed
		tr.Error = err.Error()
		logger.Error("open campaign session", zap.Error(err))
		return tr
	}
	tr.SessionID = session.ID

	handles, err := s.loadResults(ctx, drv, term, max)
	if err != nil {
		tr.Error = err.Error()
		logger.Error("load results", zap.Error(err))
		s.closeSession(ctx, session, entity.SessionFailed, &tr, logger)
		return tr
	}
	logger.Info("results loaded", zap.Int("results", len(handles)))

	seen := make(map[string]struct{}, len(handles))
	for i, h := range handles {
		item := s.extract(ctx, drv, h)
		switch item.kind {
		case extractionSkip:
			tr.Skipped++
		case extractionFailed:
			tr.Failed++
			logger.Warn("extract result", zap.Int("index", i), zap.Error(item.err))
		case extractionOK:
			if _, dup := seen[item.business.Name]; dup {
				tr.Duplicates++
				break
			}
			seen[item.business.Name] = struct{}{}
			tr.Found++

			item.business.SearchTerm = term
			s.admit(ctx, &item.business, &tr, logger)
		}

		if i < len(handles)-1 {
			_ = sleepCtx(ctx, s.opts.Delays.BetweenResults.pick())
		}
	}

	s.closeSession(ctx, session, entity.SessionCompleted, &tr, logger)
	logger.Info("term finished", zap.Int("found", tr.Found), zap.Int("saved", tr.Saved), zap.Int("duplicates", tr.Duplicates))
	return tr
}

func (s *DiscoveryService) admit(ctx context.Context, business *entity.Business, tr *TermResult, logger *zap.Logger) {
	outcome, err := s.ledger.AdmitBusiness(ctx, business)
	if err != nil {
		tr.Failed++
		logger.Error("admit business", zap.String("business", business.Name), zap.Error(err))
		return
	}
	switch outcome {
	case ledger.AdmitSaved:
		tr.Saved++
		logger.Info("business saved", zap.String("business", business.Name))
	case ledger.AdmitDuplicate:
		tr.Duplicates++
	}
}

func (s *DiscoveryService) closeSession(ctx context.Context, session *entity.CampaignSession, status entity.SessionStatus, tr *TermResult, logger *zap.Logger) {
	session.Finish(status, tr.Found, tr.Saved, s.now())
	tr.Status = status
	if err := s.sessions.Close(context.WithoutCancel(ctx), session); err != nil {
		logger.Error("close campaign session", zap.Int64("session_id", session.ID), zap.Error(err))
	}
}

func (s *DiscoveryService) loadResults(ctx context.Context, drv driver.Driver, term string, max int) ([]driver.Handle, error) {
	query := strings.TrimSpace(term + " " + s.opts.LocaleSuffix)
	if err := drv.Open(ctx, s.sel.SearchURL(query)); err != nil {
		return nil, fmt.Errorf("open search: %w", err)
	}
	if err := sleepCtx(ctx, s.opts.Delays.AfterLoad.pick()); err != nil {
		return nil, err
	}
	if _, err := drv.WaitFor(ctx, s.opts.ResultsTimeout, s.sel.Maps.ResultItem); err != nil {
		return nil, fmt.Errorf("result list not loaded: %w", err)
	}

	for attempt := 0; attempt < max/10; attempt++ {
		grew, err := drv.Scroll(ctx, s.sel.Maps.ResultsPanel)
		if err != nil {
			s.logger.Warn("scroll results", zap.String("term", term), zap.Error(err))
			break
		}
		if !grew {
			break
		}
	}

	handles, err := drv.FindAll(ctx, s.sel.Maps.ResultItem)
	if err != nil {
		return nil, fmt.Errorf("collect results: %w", err)
	}
	if len(handles) > max {
		handles = handles[:max]
	}
	return handles, nil
}

// extract activates one result and reads its detail panel. Optional fields
// that cannot be read keep their zero value.
func (s *DiscoveryService) extract(ctx context.Context, drv driver.Driver, h driver.Handle) extraction {
	if err := drv.Activate(ctx, h); err != nil {
		return extraction{kind: extractionFailed, err: fmt.Errorf("activate result: %w", err)}
	}
	if err := sleepCtx(ctx, s.opts.Delays.AfterActivate.pick()); err != nil {
		return extraction{kind: extractionFailed, err: err}
	}

	m := s.sel.Maps
	var b entity.Business
	for _, selector := range m.Name {
		if b.Name = s.text(ctx, drv, selector); b.Name != "" {
			break
		}
	}
	if b.Name == "" {
		return extraction{kind: extractionSkip}
	}

	b.Phone = s.phone(ctx, drv)
	b.Address = s.text(ctx, drv, m.Address)
	b.Category = s.text(ctx, drv, m.Category)
	b.Rating, b.ReviewCount = parseRating(s.text(ctx, drv, m.Rating))
	if el, err := drv.Find(ctx, m.Website); err == nil {
		if href, err := drv.ReadAttribute(ctx, el, "href"); err == nil && href != "" {
			b.Website = normalizeWebsite(href)
		}
	}
	return extraction{kind: extractionOK, business: b}
}

func (s *DiscoveryService) text(ctx context.Context, drv driver.Driver, selector string) string {
	if selector == "" {
		return ""
	}
	el, err := drv.Find(ctx, selector)
	if err != nil {
		return ""
	}
	text, err := drv.ReadText(ctx, el)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (s *DiscoveryService) phone(ctx context.Context, drv driver.Driver) string {
	handles, err := drv.FindAll(ctx, s.sel.Maps.Phone)
	if err != nil {
		return ""
	}
	for _, h := range handles {
		value, err := drv.ReadAttribute(ctx, h, "data-item-id")
		if err != nil {
			continue
		}
		if phone, ok := phoneFromItemID(value); ok {
			return phone
		}
	}
	return ""
}

func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = strings.TrimSpace(term); term != "" {
			out = append(out, term)
		}
	}
	return out
}
