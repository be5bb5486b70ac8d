package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/leads-prospector/internal/database"
	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/entity"
	"github.com/octobees/leads-prospector/internal/repository"
)

func newLedger(t *testing.T) (*Ledger, repository.Store) {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := repository.NewSQLiteStore(db)
	return New(store), store
}

func TestAdmitBusiness_Idempotent(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)

	outcome, err := l.AdmitBusiness(ctx, &entity.Business{Name: " Padaria Central ", Phone: "4133330000"})
	require.NoError(t, err)
	assert.Equal(t, AdmitSaved, outcome)

	for i := 0; i < 3; i++ {
		outcome, err = l.AdmitBusiness(ctx, &entity.Business{Name: "Padaria Central", Phone: "4133330000"})
		require.NoError(t, err)
		assert.Equal(t, AdmitDuplicate, outcome)
	}

	total, err := store.Businesses.Count(ctx, filterAll())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestAdmitBusiness_RequiresName(t *testing.T) {
	l, _ := newLedger(t)
	_, err := l.AdmitBusiness(context.Background(), &entity.Business{Name: "   ", Phone: "1"})
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestAdmitBusiness_ConcurrentAdmitsStoreOnce(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		saved int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := l.AdmitBusiness(ctx, &entity.Business{Name: "Oficina", Phone: "41999990000"})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if outcome == AdmitSaved {
				mu.Lock()
				saved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, saved)
	total, err := store.Businesses.Count(ctx, filterAll())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestEligible_ExcludesSentAndPhoneless(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	seed := []*entity.Business{
		{Name: "A", Phone: "1", Category: "Padaria"},
		{Name: "B", Category: "Padaria"},
		{Name: "C", Phone: "3", Category: "Restaurante"},
		{Name: "D", Phone: "4", Category: "Padaria"},
	}
	for _, b := range seed {
		_, err := l.AdmitBusiness(ctx, b)
		require.NoError(t, err)
	}

	sent := &entity.MessageLog{RunID: uuid.New(), BusinessID: seed[0].ID}
	sent.MarkSent(time.Now().UTC())
	require.NoError(t, l.RecordAttempt(ctx, sent))

	failed := &entity.MessageLog{RunID: uuid.New(), BusinessID: seed[2].ID}
	failed.MarkFailed("timeout")
	require.NoError(t, l.RecordAttempt(ctx, failed))

	eligible, err := l.Eligible(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, "C", eligible[0].Name, "failed attempts stay eligible")
	assert.Equal(t, "D", eligible[1].Name)

	padarias, err := l.Eligible(ctx, "padaria", 10)
	require.NoError(t, err)
	require.Len(t, padarias, 1)
	assert.Equal(t, "D", padarias[0].Name)

	capped, err := l.Eligible(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, "C", capped[0].Name)
}

func TestRecordAttempt_ExactlyOnce(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	business := &entity.Business{Name: "A", Phone: "1"}
	_, err := l.AdmitBusiness(ctx, business)
	require.NoError(t, err)

	already, err := l.AlreadySent(ctx, business.ID)
	require.NoError(t, err)
	assert.False(t, already)

	first := &entity.MessageLog{RunID: uuid.New(), BusinessID: business.ID}
	first.MarkSent(time.Now().UTC())
	require.NoError(t, l.RecordAttempt(ctx, first))

	second := &entity.MessageLog{RunID: uuid.New(), BusinessID: business.ID}
	second.MarkSent(time.Now().UTC())
	err = l.RecordAttempt(ctx, second)
	assert.True(t, errors.Is(err, ErrAlreadySent), "got %v", err)

	already, err = l.AlreadySent(ctx, business.ID)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestAdmitOutcome_String(t *testing.T) {
	assert.Equal(t, "saved", AdmitSaved.String())
	assert.Equal(t, "duplicate", AdmitDuplicate.String())
	assert.Equal(t, "unknown", AdmitOutcome(0).String())
}

func filterAll() dto.BusinessFilter {
	return dto.BusinessFilter{}
}
