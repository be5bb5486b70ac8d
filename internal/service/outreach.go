package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/leads-prospector/internal/driver"
	"github.com/octobees/leads-prospector/internal/entity"
	"github.com/octobees/leads-prospector/internal/ledger"
	"github.com/octobees/leads-prospector/internal/selectors"
)

// ErrNoEligibleTargets is returned when every business was already contacted or has no phone.
var ErrNoEligibleTargets = errors.New("nenhum negócio encontrado para envio de mensagens")

const defaultMaxMessages = 50

// ProgressFunc receives human-readable progress updates from a running campaign.
type ProgressFunc func(message string)

func (f ProgressFunc) report(format string, args ...any) {
	if f != nil {
		f(fmt.Sprintf(format, args...))
	}
}

// OutreachRequest configures one outreach run.
type OutreachRequest struct {
	MaxMessages     int
	MessagesPerHour int
	CategoryFilter  string
	TestMode        bool
	Progress        ProgressFunc
}

// OutreachResult summarises one outreach run.
type OutreachResult struct {
	RunID           uuid.UUID `json:"run_id"`
	TotalAttempted  int       `json:"total_attempted"`
	SuccessfulSends int       `json:"successful_sends"`
	FailedSends     int       `json:"failed_sends"`
	Skipped         int       `json:"skipped"`
	Errors          []string  `json:"errors"`
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
}

// OutreachOptions are the process-wide settings of the outreach campaign.
type OutreachOptions struct {
	Template        string
	CountryPrefix   string
	MessagesPerHour int
	Channel         ChannelOptions
}

// OutreachService contacts eligible businesses one at a time.
type OutreachService struct {
	ledger   *ledger.Ledger
	drivers  driver.Factory
	sel      *selectors.Selectors
	opts     OutreachOptions
	logger   *zap.Logger
	newPacer func(messagesPerHour int) Pacer
	now      func() time.Time
}

// NewOutreachService constructs an OutreachService.
func NewOutreachService(l *ledger.Ledger, drivers driver.Factory, sel *selectors.Selectors, opts OutreachOptions, logger *zap.Logger) *OutreachService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Template == "" {
		opts.Template = DefaultMessageTemplate()
	}
	if opts.MessagesPerHour <= 0 {
		opts.MessagesPerHour = 10
	}
	return &OutreachService{
		ledger:   l,
		drivers:  drivers,
		sel:      sel,
		opts:     opts,
		logger:   logger,
		newPacer: func(mph int) Pacer { return NewPacer(mph) },
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Validate rejects requests that cannot run.
func (r OutreachRequest) Validate() error {
	if r.MaxMessages < 0 {
		return errors.New("max_messages must be positive")
	}
	if r.MessagesPerHour < 0 {
		return errors.New("messages_per_hour must be positive")
	}
	return nil
}

// Run executes the campaign. Per-target failures are recorded and never stop
// the loop; only an authorization failure aborts the run.
func (s *OutreachService) Run(ctx context.Context, req OutreachRequest) OutreachResult {
	result := OutreachResult{RunID: uuid.New(), Errors: []string{}}
	logger := s.logger.With(zap.String("run_id", result.RunID.String()), zap.Bool("test_mode", req.TestMode))

	if err := req.Validate(); err != nil {
		result.Error = err.Error()
		return result
	}
	if req.MaxMessages == 0 {
		req.MaxMessages = defaultMaxMessages
	}
	if req.MessagesPerHour == 0 {
		req.MessagesPerHour = s.opts.MessagesPerHour
	}

	targets, err := s.ledger.Eligible(ctx, req.CategoryFilter, req.MaxMessages)
	if err != nil {
		result.Error = err.Error()
		logger.Error("select outreach targets", zap.Error(err))
		return result
	}
	if len(targets) == 0 {
		result.Error = ErrNoEligibleTargets.Error()
		logger.Info("no eligible targets", zap.String("category", req.CategoryFilter))
		return result
	}
	logger.Info("outreach started", zap.Int("targets", len(targets)), zap.Int("messages_per_hour", req.MessagesPerHour))

	var (
		channel *Channel
		pacer   Pacer
	)
	if !req.TestMode {
		req.Progress.report("Conectando ao WhatsApp...")
		channel, err = s.openChannel(ctx, logger)
		if err != nil {
			result.Error = err.Error()
			logger.Error("outreach aborted", zap.Error(err))
			return result
		}
		defer func() {
			if err := channel.Close(); err != nil {
				logger.Warn("close messaging channel", zap.Error(err))
			}
		}()
		pacer = s.newPacer(req.MessagesPerHour)
	}

	for i, target := range targets {
		req.Progress.report("Enviando %d/%d: %s", i+1, len(targets), target.Name)

		sent, err := s.ledger.AlreadySent(ctx, target.ID)
		if err != nil {
			result.TotalAttempted++
			result.FailedSends++
			result.Errors = append(result.Errors, fmt.Sprintf("Falha ao verificar %s: %v", target.Name, err))
			logger.Error("check already sent", zap.Int64("business_id", target.ID), zap.Error(err))
			continue
		}
		if sent {
			result.Skipped++
			logger.Info("message already sent", zap.Int64("business_id", target.ID))
			continue
		}
		result.TotalAttempted++

		attempt := &entity.MessageLog{
			RunID:        result.RunID,
			BusinessID:   target.ID,
			BusinessName: target.Name,
			Phone:        target.Phone,
		}

		if req.TestMode {
			attempt.MarkSent(s.now())
			logger.Info("test mode send", zap.String("business", target.Name), zap.String("phone", target.Phone))
		} else {
			if err := pacer.Wait(ctx); err != nil {
				result.Error = fmt.Sprintf("outreach interrupted: %v", err)
				logger.Warn("outreach interrupted", zap.Error(err))
				result.TotalAttempted--
				break
			}
			if err := s.deliver(ctx, channel, target, Personalize(s.opts.Template, target.Name)); err != nil {
				attempt.MarkFailed(err.Error())
			} else {
				attempt.MarkSent(s.now())
			}
		}

		if err := s.ledger.RecordAttempt(ctx, attempt); err != nil {
			result.FailedSends++
			result.Errors = append(result.Errors, fmt.Sprintf("Falha ao registrar envio para %s: %v", target.Name, err))
			logger.Error("record attempt", zap.Int64("business_id", target.ID), zap.Error(err))
			continue
		}

		if attempt.Sent {
			result.SuccessfulSends++
			logger.Info("message sent", zap.Int64("business_id", target.ID), zap.String("business", target.Name))
		} else {
			result.FailedSends++
			result.Errors = append(result.Errors, fmt.Sprintf("Falha ao enviar para %s: %s", target.Name, *attempt.ErrorMessage))
			logger.Warn("message failed", zap.Int64("business_id", target.ID), zap.String("error", *attempt.ErrorMessage))
		}
	}

	result.Success = result.Error == ""
	logger.Info("outreach finished",
		zap.Int("attempted", result.TotalAttempted),
		zap.Int("sent", result.SuccessfulSends),
		zap.Int("failed", result.FailedSends),
		zap.Int("skipped", result.Skipped),
	)
	return result
}

func (s *OutreachService) openChannel(ctx context.Context, logger *zap.Logger) (*Channel, error) {
	drv, err := s.drivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	channel := NewChannel(drv, s.sel, s.opts.Channel, logger)
	if err := channel.Authorize(ctx); err != nil {
		if closeErr := channel.Close(); closeErr != nil {
			logger.Warn("close messaging channel", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("falha no login do WhatsApp: %w", err)
	}
	return channel, nil
}

func (s *OutreachService) deliver(ctx context.Context, channel *Channel, target entity.Business, message string) error {
	phone := DialablePhone(target.Phone, s.opts.CountryPrefix)
	if phone == "" {
		return fmt.Errorf("invalid phone %q", target.Phone)
	}
	if err := channel.Send(ctx, phone, message); err != nil {
		return err
	}
	return nil
}
