package shop

import (
	"context"
	"fmt"
	"strings"

	"nexo_bot/internal/sheets"

	"go.uber.org/zap"
)

type ClientRepo struct {
	store  sheets.Store
	cache  *TTLCache[[]Client]
	clock  Clock
	logger *zap.Logger
}

func NewClientRepo(store sheets.Store, cache *TTLCache[[]Client], clock Clock, logger *zap.Logger) *ClientRepo {
	return &ClientRepo{store: store, cache: cache, clock: clock, logger: logger.Named("clients")}
}

func (r *ClientRepo) All(ctx context.Context) ([]Client, error) {
	if cached, ok := r.cache.Get(); ok {
		return cached, nil
	}
	rows, err := r.store.GetRows(ctx, sheets.SheetClients)
	if err != nil {
		return nil, fmt.Errorf("loading clients: %w", err)
	}
	records := sheets.RowsToObjects(rows)
	clients := make([]Client, 0, len(records))
	for _, rec := range records {
		if rec.Get("ID") == "" {
			continue
		}
		clients = append(clients, Client{
			ID:        rec.Get("ID"),
			Name:      rec.Get("Nombre"),
			Phone:     rec.Get("Teléfono"),
			Address:   rec.Get("Dirección"),
			Notes:     rec.Get("Notas"),
			CreatedAt: rec.Get("Fecha Alta"),
		})
	}
	r.cache.Set(clients)
	return clients, nil
}

// Search returns fuzzy name matches, an exact match first.
func (r *ClientRepo) Search(ctx context.Context, name string) ([]Client, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	var exact, fuzzy []Client
	for _, c := range all {
		switch {
		case sheets.Normalize(c.Name) == sheets.Normalize(name):
			exact = append(exact, c)
		case sheets.FuzzyMatch(name, c.Name):
			fuzzy = append(fuzzy, c)
		}
	}
	return append(exact, fuzzy...), nil
}

// Find returns the best match for name: the exact one, else the first fuzzy one.
func (r *ClientRepo) Find(ctx context.Context, name string) (Client, error) {
	matches, err := r.Search(ctx, name)
	if err != nil {
		return Client{}, err
	}
	if len(matches) == 0 {
		return Client{}, fmt.Errorf("%w: %q", ErrClientNotFound, name)
	}
	return matches[0], nil
}

func (r *ClientRepo) FindByID(ctx context.Context, id string) (Client, error) {
	all, err := r.All(ctx)
	if err != nil {
		return Client{}, err
	}
	for _, c := range all {
		if strings.EqualFold(c.ID, strings.TrimSpace(id)) {
			return c, nil
		}
	}
	return Client{}, fmt.Errorf("%w: %s", ErrClientNotFound, id)
}

type NewClient struct {
	Name    string
	Phone   string
	Address string
	Notes   string
}

// Add fails with ErrDuplicateClient when any client already matches the name.
func (r *ClientRepo) Add(ctx context.Context, in NewClient) (Client, ValidationResult, error) {
	validation := ValidatePhoneNumber(in.Phone)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		validation.Errors = append(validation.Errors, "Nombre del cliente es requerido")
		return Client{}, validation, &ValidationError{Kind: ErrMissingName, Result: validation}
	}

	existing, err := r.Search(ctx, name)
	if err != nil {
		return Client{}, validation, err
	}
	if len(existing) > 0 {
		return existing[0], validation, fmt.Errorf("%w: %q", ErrDuplicateClient, existing[0].Name)
	}

	c := Client{
		ID:        NewID(prefixClient),
		Name:      name,
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		Notes:     strings.TrimSpace(in.Notes),
		CreatedAt: r.clock.Today(),
	}
	row := []string{c.ID, c.Name, c.Phone, c.Address, c.Notes, c.CreatedAt}
	if err := r.store.AppendRow(ctx, sheets.SheetClients, row); err != nil {
		return Client{}, validation, fmt.Errorf("appending client: %w", err)
	}
	r.cache.Invalidate()
	r.logger.Info("client added", zap.String("id", c.ID))
	return c, validation, nil
}

type ClientUpdate struct {
	Name    *string
	Phone   *string
	Address *string
	Notes   *string
}

func (r *ClientRepo) Update(ctx context.Context, id string, u ClientUpdate) error {
	defer r.cache.Invalidate()
	set := func(column string, v *string) error {
		if v == nil {
			return nil
		}
		return updateColumn(ctx, r.store, sheets.SheetClients, id, column, *v, ErrClientNotFound)
	}
	for _, f := range []struct {
		column string
		value  *string
	}{
		{"Nombre", u.Name},
		{"Teléfono", u.Phone},
		{"Dirección", u.Address},
		{"Notas", u.Notes},
	} {
		if err := set(f.column, f.value); err != nil {
			return err
		}
	}
	return nil
}

func (r *ClientRepo) Invalidate() {
	r.cache.Invalidate()
}
