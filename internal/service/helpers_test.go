package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/octobees/leads-prospector/internal/database"
	"github.com/octobees/leads-prospector/internal/driver/drivertest"
	"github.com/octobees/leads-prospector/internal/entity"
	"github.com/octobees/leads-prospector/internal/repository"
	"github.com/octobees/leads-prospector/internal/selectors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewSQLiteStore(db)
}

func seedBusinesses(t *testing.T, store repository.Store, businesses ...entity.Business) []entity.Business {
	t.Helper()
	out := make([]entity.Business, 0, len(businesses))
	for _, b := range businesses {
		b := b
		inserted, err := store.Businesses.InsertIfAbsent(context.Background(), &b)
		require.NoError(t, err)
		require.True(t, inserted)
		out = append(out, b)
	}
	return out
}

func numberedBusinesses(n int) []entity.Business {
	out := make([]entity.Business, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, entity.Business{
			Name:     fmt.Sprintf("Negócio %d Ltda", i),
			Phone:    fmt.Sprintf("(41) 99999-%04d", i),
			Category: "Padaria",
		})
	}
	return out
}

// listing is one search result in a fake results page.
type listing struct {
	Name     string
	Phone    string
	Address  string
	Category string
	Rating   string
	Website  string
}

func resultElement(sel *selectors.Selectors, l listing) *drivertest.Element {
	m := sel.Maps
	reveals := map[string][]*drivertest.Element{}
	if l.Name != "" {
		reveals[m.Name[0]] = []*drivertest.Element{{Text: l.Name}}
	}
	if l.Phone != "" {
		reveals[m.Phone] = []*drivertest.Element{
			{Attrs: map[string]string{"data-item-id": "phone:share"}},
			{Attrs: map[string]string{"data-item-id": "phone:tel:" + l.Phone}},
		}
	}
	if l.Address != "" {
		reveals[m.Address] = []*drivertest.Element{{Text: l.Address}}
	}
	if l.Category != "" {
		reveals[m.Category] = []*drivertest.Element{{Text: l.Category}}
	}
	if l.Rating != "" {
		reveals[m.Rating] = []*drivertest.Element{{Text: l.Rating}}
	}
	if l.Website != "" {
		reveals[m.Website] = []*drivertest.Element{{Attrs: map[string]string{"href": l.Website}}}
	}
	return &drivertest.Element{Reveals: reveals}
}

func resultsPage(sel *selectors.Selectors, listings ...listing) *drivertest.Page {
	items := make([]*drivertest.Element, 0, len(listings))
	for _, l := range listings {
		items = append(items, resultElement(sel, l))
	}
	return &drivertest.Page{Elements: map[string][]*drivertest.Element{
		sel.Maps.ResultsPanel: {{}},
		sel.Maps.ResultItem:   items,
	}}
}

func named(names ...string) []listing {
	out := make([]listing, 0, len(names))
	for i, name := range names {
		out = append(out, listing{Name: name, Phone: fmt.Sprintf("+55 41 3333-%04d", i)})
	}
	return out
}
