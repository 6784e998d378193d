package shop

import (
	"context"
	"testing"

	"nexo_bot/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertPreferenceBumpsFrequency(t *testing.T) {
	ctx := context.Background()
	s, store := newTestShop(t)

	first, err := s.Learning.UpsertPreference(ctx, PreferenceProductAlias, "remeritas", "Remera", false, "")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Frequency)

	_, err = s.Learning.UpsertPreference(ctx, PreferenceProductAlias, "Remeritas", "Remera", true, "")
	require.NoError(t, err)
	second, err := s.Learning.UpsertPreference(ctx, PreferenceProductAlias, "remeritas", "Remera", false, "")
	require.NoError(t, err)
	assert.Equal(t, 3, second.Frequency)
	assert.True(t, second.Approved)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.Len(sheets.SheetPreferences))

	rows, err := store.GetRows(ctx, sheets.SheetPreferences)
	require.NoError(t, err)
	rec := sheets.RowsToObjects(rows)[0]
	assert.Equal(t, "sí", rec.Get("Aprobado"))
	assert.Equal(t, "3", rec.Get("Frecuencia"))
	assert.Equal(t, "2026-10-18", rec.Get("Última Vez"))

	other, err := s.Learning.UpsertPreference(ctx, PreferenceClientAlias, "remeritas", "Juan", false, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestApprovedPreferencesOnly(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestShop(t)
	_, err := s.Learning.UpsertPreference(ctx, PreferenceClientAlias, "la flaca", "Ana López", true, "")
	require.NoError(t, err)
	_, err = s.Learning.UpsertPreference(ctx, PreferenceAbbreviation, "rem", "remera", false, "")
	require.NoError(t, err)

	approved, err := s.Learning.ApprovedPreferences(ctx)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "Ana López", approved[0].Mapping)

	p, ok, err := s.Learning.FindPreference(ctx, "La Flaca")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, PreferenceClientAlias, p.Type)

	_, ok, err = s.Learning.FindPreference(ctx, "rem")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := s.Learning.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPreferences)
	assert.Contains(t, FormatLearningStats(stats), "- cliente_alias: 1")
}

func TestObservations(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestShop(t)

	o, err := s.Learning.AddObservation(ctx, ObservationNewTerm, "stock_check", "agregar alias", "tenés musculosas?")
	require.NoError(t, err)

	pending, err := s.Learning.PendingObservations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "tenés musculosas?", pending[0].UserMessage)

	require.NoError(t, s.Learning.SetObservationStatus(ctx, o.ID, ObservationReviewed))
	pending, err = s.Learning.PendingObservations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.ErrorIs(t, s.Learning.SetObservationStatus(ctx, "OBS-NOPE", ObservationReviewed), ErrObservationNotFound)
}

func TestAnalyzeMessage(t *testing.T) {
	f, ok := AnalyzeMessage("vendí una remera", "ok", 3)
	require.True(t, ok)
	assert.Equal(t, ObservationRepeatedAttempt, f.Type)

	f, ok = AnalyzeMessage("No, quise decir la negra", "ok", 1)
	require.True(t, ok)
	assert.Equal(t, ObservationCorrection, f.Type)

	f, ok = AnalyzeMessage("tenés musculosas?", "❌ No se encontró el producto", 1)
	require.True(t, ok)
	assert.Equal(t, ObservationNewTerm, f.Type)

	_, ok = AnalyzeMessage("cuánto stock hay", "📦 Resumen de stock", 1)
	assert.False(t, ok)
}
