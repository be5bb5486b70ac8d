package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// CampaignKind names one of the two campaign types.
type CampaignKind string

const (
	KindDiscovery CampaignKind = "discovery"
	KindOutreach  CampaignKind = "outreach"
)

// ErrAlreadyRunning is returned when a campaign of the same kind is active.
var ErrAlreadyRunning = errors.New("campaign already running")

// CampaignStatus is the externally visible state of one campaign kind.
type CampaignStatus struct {
	Running  bool   `json:"running"`
	Progress string `json:"progress"`
}

// StatusSnapshot reports both campaign kinds.
type StatusSnapshot struct {
	Discovery CampaignStatus `json:"discovery"`
	Outreach  CampaignStatus `json:"outreach"`
}

// DiscoveryRunner runs a discovery campaign to completion.
type DiscoveryRunner interface {
	Run(ctx context.Context, req DiscoveryRequest) DiscoveryResult
}

// OutreachRunner runs an outreach campaign to completion.
type OutreachRunner interface {
	Run(ctx context.Context, req OutreachRequest) OutreachResult
}

// Coordinator allows at most one running campaign per kind and tracks progress.
// Discovery and outreach may run at the same time.
type Coordinator struct {
	ctx       context.Context
	discovery DiscoveryRunner
	outreach  OutreachRunner
	logger    *zap.Logger

	mu    sync.Mutex
	state map[CampaignKind]*CampaignStatus
	wg    sync.WaitGroup
}

// NewCoordinator binds campaign goroutines to ctx, which is cancelled on shutdown.
func NewCoordinator(ctx context.Context, discovery DiscoveryRunner, outreach OutreachRunner, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		ctx:       ctx,
		discovery: discovery,
		outreach:  outreach,
		logger:    logger,
		state: map[CampaignKind]*CampaignStatus{
			KindDiscovery: {},
			KindOutreach:  {},
		},
	}
}

// StartDiscovery launches a discovery run in the background.
func (c *Coordinator) StartDiscovery(req DiscoveryRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return c.start(KindDiscovery, "Iniciando scraping...", func(ctx context.Context, progress ProgressFunc) string {
		req.Progress = progress
		res := c.discovery.Run(ctx, req)
		if !res.Success {
			return "Erro: " + res.Error
		}
		return fmt.Sprintf("Concluído: %d negócios encontrados, %d novos salvos", res.TotalDiscovered, res.TotalSaved)
	})
}

// StartOutreach launches an outreach run in the background.
func (c *Coordinator) StartOutreach(req OutreachRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return c.start(KindOutreach, "Iniciando campanha...", func(ctx context.Context, progress ProgressFunc) string {
		req.Progress = progress
		res := c.outreach.Run(ctx, req)
		if !res.Success {
			return "Erro: " + res.Error
		}
		return fmt.Sprintf("Concluído: %d mensagens enviadas", res.SuccessfulSends)
	})
}

// Status returns a copy of both campaign states.
func (c *Coordinator) Status() StatusSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return StatusSnapshot{
		Discovery: *c.state[KindDiscovery],
		Outreach:  *c.state[KindOutreach],
	}
}

// Wait blocks until every launched campaign has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) start(kind CampaignKind, initial string, run func(context.Context, ProgressFunc) string) error {
	c.mu.Lock()
	st := c.state[kind]
	if st.Running {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", kind, ErrAlreadyRunning)
	}
	st.Running = true
	st.Progress = initial
	c.wg.Add(1)
	c.mu.Unlock()

	logger := c.logger.With(zap.String("campaign", string(kind)))
	logger.Info("campaign started")

	go func() {
		defer c.wg.Done()

		final := "Erro: campanha interrompida"
		defer func() {
			if r := recover(); r != nil {
				final = fmt.Sprintf("Erro: %v", r)
				logger.Error("campaign panicked", zap.Any("panic", r), zap.Stack("stack"))
			}
			c.finish(kind, final)
			logger.Info("campaign finished", zap.String("progress", final))
		}()

		final = run(c.ctx, func(message string) { c.setProgress(kind, message) })
	}()
	return nil
}

func (c *Coordinator) setProgress(kind CampaignKind, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.state[kind]; st.Running {
		st.Progress = message
	}
}

func (c *Coordinator) finish(kind CampaignKind, progress string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state[kind]
	st.Running = false
	st.Progress = progress
}
