package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/leads-prospector/internal/driver"
	"github.com/octobees/leads-prospector/internal/driver/drivertest"
	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/entity"
	"github.com/octobees/leads-prospector/internal/ledger"
	"github.com/octobees/leads-prospector/internal/repository"
	"github.com/octobees/leads-prospector/internal/selectors"
)

type countingPacer struct {
	mu    sync.Mutex
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	return ctx.Err()
}

func noDriver(t *testing.T) driver.Factory {
	return func(context.Context) (driver.Driver, error) {
		t.Fatalf("driver must not be started")
		return nil, nil
	}
}

func newOutreach(store repository.Store, factory driver.Factory, sel *selectors.Selectors) *OutreachService {
	svc := NewOutreachService(ledger.New(store), factory, sel, OutreachOptions{
		Template:      "Olá {name}!",
		CountryPrefix: "55",
		Channel:       quickChannelOptions(),
	}, nil)
	return svc
}

func sentLogs(t *testing.T, store repository.Store) []entity.MessageLog {
	t.Helper()
	yes := true
	logs, err := store.MessageLogs.List(context.Background(), dto.MessageLogFilter{Sent: &yes})
	require.NoError(t, err)
	return logs
}

func allLogs(t *testing.T, store repository.Store) []entity.MessageLog {
	t.Helper()
	logs, err := store.MessageLogs.List(context.Background(), dto.MessageLogFilter{})
	require.NoError(t, err)
	return logs
}

func TestOutreach_TestModeScenario(t *testing.T) {
	store := newTestStore(t)
	seeded := seedBusinesses(t, store, numberedBusinesses(5)...)
	svc := newOutreach(store, noDriver(t), selectors.Default())

	var progress []string
	started := time.Now()
	res := svc.Run(context.Background(), OutreachRequest{
		MaxMessages: 3,
		TestMode:    true,
		Progress:    func(msg string) { progress = append(progress, msg) },
	})

	assert.Less(t, time.Since(started), time.Second, "test mode never paces")
	assert.True(t, res.Success, res.Error)
	assert.Equal(t, 3, res.TotalAttempted)
	assert.Equal(t, 3, res.SuccessfulSends)
	assert.Zero(t, res.FailedSends)
	assert.Empty(t, res.Errors)

	logs := allLogs(t, store)
	require.Len(t, logs, 3)
	for i, log := range logs {
		assert.True(t, log.Sent)
		assert.NotNil(t, log.SentAt)
		assert.Equal(t, res.RunID, log.RunID)
		assert.Equal(t, seeded[i].ID, log.BusinessID, "targets follow discovery order")
		assert.Equal(t, seeded[i].Name, log.BusinessName)
	}
	assert.Equal(t, "Enviando 1/3: Negócio 1 Ltda", progress[0])
}

func TestOutreach_ExactlyOnceAcrossRuns(t *testing.T) {
	store := newTestStore(t)
	seedBusinesses(t, store, numberedBusinesses(3)...)
	svc := newOutreach(store, noDriver(t), selectors.Default())

	first := svc.Run(context.Background(), OutreachRequest{MaxMessages: 10, TestMode: true})
	require.True(t, first.Success)
	assert.Equal(t, 3, first.SuccessfulSends)

	second := svc.Run(context.Background(), OutreachRequest{MaxMessages: 10, TestMode: true})
	assert.False(t, second.Success)
	assert.Equal(t, ErrNoEligibleTargets.Error(), second.Error)
	assert.Zero(t, second.TotalAttempted)

	assert.Len(t, sentLogs(t, store), 3)
}

func TestOutreach_SkipsPhonelessAndFiltersCategory(t *testing.T) {
	store := newTestStore(t)
	seedBusinesses(t, store,
		entity.Business{Name: "Sem Telefone", Category: "Padaria"},
		entity.Business{Name: "Oficina do Zé", Phone: "41 3333-0001", Category: "Oficina mecânica"},
		entity.Business{Name: "Padaria Central", Phone: "41 3333-0002", Category: "Padaria"},
	)
	svc := newOutreach(store, noDriver(t), selectors.Default())

	res := svc.Run(context.Background(), OutreachRequest{MaxMessages: 10, TestMode: true, CategoryFilter: "padaria"})
	require.True(t, res.Success)
	assert.Equal(t, 1, res.SuccessfulSends)

	logs := sentLogs(t, store)
	require.Len(t, logs, 1)
	assert.Equal(t, "Padaria Central", logs[0].BusinessName)
}

func TestOutreach_RealSendsArePacedAndPersonalized(t *testing.T) {
	store := newTestStore(t)
	seedBusinesses(t, store, numberedBusinesses(3)...)
	sel := selectors.Default()
	fake := authorizedDriver(sel)

	svc := newOutreach(store, fake.Factory(), sel)
	pacer := &countingPacer{}
	svc.newPacer = func(int) Pacer { return pacer }

	res := svc.Run(context.Background(), OutreachRequest{MaxMessages: 3, MessagesPerHour: 12})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, res.SuccessfulSends)
	assert.Equal(t, 3, pacer.waits, "one wait per send, none after the last")
	assert.True(t, fake.Closed)

	opened := fake.OpenedURLs()
	require.Len(t, opened, 4)
	assert.Equal(t, sel.WhatsApp.HomeURL, opened[0])
	assert.Equal(t, "https://web.whatsapp.com/send?phone=5541999990001", opened[1])

	composer := fake.Default.Elements[sel.WhatsApp.Composer][0]
	assert.Equal(t, "Olá Negócio!", composer.Typed)
	assert.Len(t, sentLogs(t, store), 3)
}

func TestOutreach_RateBound(t *testing.T) {
	store := newTestStore(t)
	seedBusinesses(t, store, numberedBusinesses(3)...)
	sel := selectors.Default()
	fake := authorizedDriver(sel)
	svc := newOutreach(store, fake.Factory(), sel)

	// 36000 per hour is one send every 100ms.
	const perHour = 36000
	interval := SendInterval(perHour)
	require.Equal(t, 100*time.Millisecond, interval)

	started := time.Now()
	res := svc.Run(context.Background(), OutreachRequest{MaxMessages: 3, MessagesPerHour: perHour})
	elapsed := time.Since(started)
	require.True(t, res.Success, res.Error)

	submits := fake.SubmitTimes()
	require.Len(t, submits, 3)
	for i := 1; i < len(submits); i++ {
		gap := submits[i].Sub(submits[i-1])
		assert.GreaterOrEqual(t, gap, interval-10*time.Millisecond, "gap %d was %s", i, gap)
	}
	assert.Less(t, elapsed, 3*interval, "no wait follows the final send")
}

func TestOutreach_AuthTimeoutAbortsWithoutLogs(t *testing.T) {
	store := newTestStore(t)
	seedBusinesses(t, store, numberedBusinesses(2)...)
	sel := selectors.Default()
	fake := drivertest.New()
	fake.Pages[sel.WhatsApp.HomeURL] = &drivertest.Page{Elements: map[string][]*drivertest.Element{
		sel.WhatsApp.QRCode: {{}},
	}}

	res := newOutreach(store, fake.Factory(), sel).Run(context.Background(), OutreachRequest{MaxMessages: 2})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, ErrAuthTimeout.Error())
	assert.Zero(t, res.TotalAttempted)
	assert.Empty(t, allLogs(t, store))
	assert.True(t, fake.Closed)
}

func TestOutreach_DriverStartFailure(t *testing.T) {
	store := newTestStore(t)
	seedBusinesses(t, store, numberedBusinesses(1)...)

	res := newOutreach(store, drivertest.FailingFactory(errors.New("chrome not found")), selectors.Default()).
		Run(context.Background(), OutreachRequest{MaxMessages: 1})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "chrome not found")
	assert.Empty(t, allLogs(t, store))
}

func TestOutreach_PerTargetFailureDoesNotStopLoop(t *testing.T) {
	store := newTestStore(t)
	seeded := seedBusinesses(t, store, numberedBusinesses(3)...)
	sel := selectors.Default()
	fake := authorizedDriver(sel)
	// The second business never shows a composer.
	fake.Pages[sel.SendURL("5541999990002")] = &drivertest.Page{}

	svc := newOutreach(store, fake.Factory(), sel)
	svc.newPacer = func(int) Pacer { return &countingPacer{} }

	res := svc.Run(context.Background(), OutreachRequest{MaxMessages: 3})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, res.TotalAttempted)
	assert.Equal(t, 2, res.SuccessfulSends)
	assert.Equal(t, 1, res.FailedSends)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], seeded[1].Name)

	logs := allLogs(t, store)
	require.Len(t, logs, 3)
	assert.False(t, logs[1].Sent)
	require.NotNil(t, logs[1].ErrorMessage)
	assert.Contains(t, *logs[1].ErrorMessage, "composer not found")

	again := svc.Run(context.Background(), OutreachRequest{MaxMessages: 3})
	assert.Equal(t, 1, again.TotalAttempted, "only the failed business stays eligible")
}

func TestOutreach_InvalidPhoneIsRecordedAsFailure(t *testing.T) {
	store := newTestStore(t)
	seedBusinesses(t, store, entity.Business{Name: "Sem Dígitos", Phone: "n/d"})
	sel := selectors.Default()
	fake := authorizedDriver(sel)
	svc := newOutreach(store, fake.Factory(), sel)
	svc.newPacer = func(int) Pacer { return &countingPacer{} }

	res := svc.Run(context.Background(), OutreachRequest{MaxMessages: 1})
	require.True(t, res.Success)
	assert.Equal(t, 1, res.FailedSends)
	assert.Empty(t, fake.SubmitTimes())
}

// sentElsewhere reports a delivery made by another run between selection and dispatch.
type sentElsewhere struct {
	repository.MessageLogsRepository
	ids map[int64]bool
}

func (s sentElsewhere) HasSent(ctx context.Context, businessID int64) (bool, error) {
	if s.ids[businessID] {
		return true, nil
	}
	return s.MessageLogsRepository.HasSent(ctx, businessID)
}

func TestOutreach_RechecksBeforeEachAttempt(t *testing.T) {
	store := newTestStore(t)
	seeded := seedBusinesses(t, store, numberedBusinesses(3)...)

	wrapped := store
	wrapped.MessageLogs = sentElsewhere{MessageLogsRepository: store.MessageLogs, ids: map[int64]bool{seeded[1].ID: true}}
	svc := newOutreach(wrapped, noDriver(t), selectors.Default())

	res := svc.Run(context.Background(), OutreachRequest{MaxMessages: 3, TestMode: true})
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.SuccessfulSends)
	assert.Equal(t, 2, res.TotalAttempted)
	assert.Len(t, allLogs(t, store), 2)
}

// brokenLogs fails every insert.
type brokenLogs struct {
	repository.MessageLogsRepository
}

func (brokenLogs) Insert(context.Context, *entity.MessageLog) error {
	return &repository.StoreError{Op: "insert message log", Err: errors.New("disk I/O error")}
}

func TestOutreach_FailedPersistCountsAsFailedSend(t *testing.T) {
	store := newTestStore(t)
	seedBusinesses(t, store, numberedBusinesses(2)...)

	wrapped := store
	wrapped.MessageLogs = brokenLogs{MessageLogsRepository: store.MessageLogs}
	res := newOutreach(wrapped, noDriver(t), selectors.Default()).
		Run(context.Background(), OutreachRequest{MaxMessages: 2, TestMode: true})

	require.True(t, res.Success)
	assert.Zero(t, res.SuccessfulSends)
	assert.Equal(t, 2, res.FailedSends)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "disk I/O error")
}

func TestOutreachRequest_Validate(t *testing.T) {
	assert.NoError(t, OutreachRequest{}.Validate())
	assert.Error(t, OutreachRequest{MaxMessages: -1}.Validate())
	assert.Error(t, OutreachRequest{MessagesPerHour: -5}.Validate())
}
