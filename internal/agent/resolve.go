package agent

import (
	"context"
	"fmt"
	"strings"

	"nexo_bot/internal/sheets"
	"nexo_bot/internal/shop"
	"nexo_bot/internal/state"
)

const (
	maxCandidates = 5
	idRefPrefix   = "id:"
)

// IDRef is how a replayed tool call names an entity the user picked.
func IDRef(id string) string {
	return idRefPrefix + id
}

func parseIDRef(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(strings.ToLower(ref), idRefPrefix) {
		return "", false
	}
	return strings.TrimSpace(ref[len(idRefPrefix):]), true
}

// findProduct resolves a product reference. It returns the product when the
// reference is unambiguous, the candidates when several match, and neither
// when nothing matches.
func (d *Dispatcher) findProduct(ctx context.Context, ref, color, size string) (shop.Product, []shop.Product, error) {
	if id, ok := parseIDRef(ref); ok {
		p, err := d.shop.Products.FindByID(ctx, id)
		return p, nil, err
	}
	q := shop.Query{Text: ref, Color: color, Size: size}
	matches, err := d.shop.Products.Search(ctx, q)
	if err != nil {
		return shop.Product{}, nil, err
	}
	switch len(matches) {
	case 0:
		return shop.Product{}, nil, nil
	case 1:
		return matches[0], nil, nil
	}
	var exact []shop.Product
	for _, p := range matches {
		if shop.IsExactMatch(p, q) {
			exact = append(exact, p)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil, nil
	}
	return shop.Product{}, matches, nil
}

// findClient resolves a client reference the same way. A single exact name
// match wins over fuzzy ones.
func (d *Dispatcher) findClient(ctx context.Context, ref string) (shop.Client, []shop.Client, error) {
	if id, ok := parseIDRef(ref); ok {
		c, err := d.shop.Clients.FindByID(ctx, id)
		return c, nil, err
	}
	matches, err := d.shop.Clients.Search(ctx, ref)
	if err != nil {
		return shop.Client{}, nil, err
	}
	switch len(matches) {
	case 0:
		return shop.Client{}, nil, nil
	case 1:
		return matches[0], nil, nil
	}
	var exact []shop.Client
	for _, c := range matches {
		if sheets.Normalize(c.Name) == sheets.Normalize(ref) {
			exact = append(exact, c)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil, nil
	}
	return shop.Client{}, matches, nil
}

func productSelection(products []shop.Product, action string, args map[string]any, slot, ref string) NeedsSelection {
	candidates := make([]state.Candidate, 0, maxCandidates)
	for i, p := range products {
		if i == maxCandidates {
			break
		}
		label := p.Label()
		if p.SKU != "" {
			label += " (" + p.SKU + ")"
		}
		candidates = append(candidates, state.Candidate{ID: p.ID, Label: label})
	}
	return NeedsSelection{
		Type:       state.SelectProduct,
		Prompt:     fmt.Sprintf("🔍 Encontré %d productos para \"%s\". ¿Cuál es?", len(products), ref),
		Candidates: candidates,
		Action:     action,
		Args:       args,
		Slot:       slot,
	}
}

func clientSelection(clients []shop.Client, action string, args map[string]any, slot, ref string) NeedsSelection {
	candidates := make([]state.Candidate, 0, maxCandidates)
	for i, c := range clients {
		if i == maxCandidates {
			break
		}
		label := c.Name
		if c.Phone != "" {
			label += " (" + c.Phone + ")"
		}
		candidates = append(candidates, state.Candidate{ID: c.ID, Label: label})
	}
	return NeedsSelection{
		Type:       state.SelectClient,
		Prompt:     fmt.Sprintf("👥 Hay %d clientes que coinciden con \"%s\". ¿Cuál es?", len(clients), ref),
		Candidates: candidates,
		Action:     action,
		Args:       args,
		Slot:       slot,
	}
}

func productNotFound(ref, color, size string) string {
	desc := strings.Join(strings.Fields(ref+" "+color+" "+size), " ")
	return fmt.Sprintf("❌ No se encontró el producto \"%s\".", desc)
}

func clientNotFound(ref string) string {
	return fmt.Sprintf("❌ No se encontró el cliente \"%s\".", ref)
}
