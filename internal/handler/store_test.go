package handler

import (
	"context"
	"database/sql"
	"testing"

	"github.com/octobees/leads-prospector/internal/database"
	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/entity"
	"github.com/octobees/leads-prospector/internal/repository"
)

func newTestStore(t *testing.T) (repository.Store, *sql.DB) {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), database.MemoryPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repository.NewSQLiteStore(db), db
}

func seed(t *testing.T, store repository.Store, businesses ...entity.Business) {
	t.Helper()
	for i := range businesses {
		if _, err := store.Businesses.InsertIfAbsent(context.Background(), &businesses[i]); err != nil {
			t.Fatalf("seed business: %v", err)
		}
	}
}

func dtoAll() dto.BusinessFilter {
	return dto.BusinessFilter{}
}
