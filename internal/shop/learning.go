package shop

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"nexo_bot/internal/sheets"

	"go.uber.org/zap"
)

type LearningRepo struct {
	store  sheets.Store
	clock  Clock
	logger *zap.Logger
}

func NewLearningRepo(store sheets.Store, clock Clock, logger *zap.Logger) *LearningRepo {
	return &LearningRepo{store: store, clock: clock, logger: logger.Named("learning")}
}

func (r *LearningRepo) AddObservation(ctx context.Context, kind ObservationType, detail, suggestion, userMessage string) (Observation, error) {
	o := Observation{
		ID:              NewID(prefixObservation),
		Date:            r.clock.Today(),
		Type:            kind,
		Context:         detail,
		SuggestedAction: suggestion,
		Status:          ObservationPending,
		UserMessage:     userMessage,
	}
	row := []string{o.ID, o.Date, string(o.Type), o.Context, o.SuggestedAction, string(o.Status), o.UserMessage}
	if err := r.store.AppendRow(ctx, sheets.SheetObservations, row); err != nil {
		return Observation{}, fmt.Errorf("appending observation: %w", err)
	}
	return o, nil
}

func (r *LearningRepo) Observations(ctx context.Context) ([]Observation, error) {
	rows, err := r.store.GetRows(ctx, sheets.SheetObservations)
	if err != nil {
		return nil, fmt.Errorf("loading observations: %w", err)
	}
	var out []Observation
	for _, rec := range sheets.RowsToObjects(rows) {
		if rec.Get("ID") == "" {
			continue
		}
		out = append(out, Observation{
			ID:              rec.Get("ID"),
			Date:            rec.Get("Fecha"),
			Type:            ObservationType(rec.Get("Tipo")),
			Context:         rec.Get("Contexto"),
			SuggestedAction: rec.Get("Acción Sugerida"),
			Status:          ObservationStatus(rec.Get("Estado")),
			UserMessage:     rec.Get("Mensaje Usuario"),
		})
	}
	return out, nil
}

func (r *LearningRepo) PendingObservations(ctx context.Context) ([]Observation, error) {
	all, err := r.Observations(ctx)
	if err != nil {
		return nil, err
	}
	var out []Observation
	for _, o := range all {
		if o.Status == ObservationPending {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *LearningRepo) SetObservationStatus(ctx context.Context, id string, status ObservationStatus) error {
	return updateColumn(ctx, r.store, sheets.SheetObservations, id, "Estado", string(status), ErrObservationNotFound)
}

func (r *LearningRepo) Preferences(ctx context.Context) ([]Preference, error) {
	rows, err := r.store.GetRows(ctx, sheets.SheetPreferences)
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	var out []Preference
	for _, rec := range sheets.RowsToObjects(rows) {
		if rec.Get("ID") == "" {
			continue
		}
		freq := parseIntOrZero(rec.Get("Frecuencia"))
		if freq < 1 {
			freq = 1
		}
		out = append(out, Preference{
			ID:        rec.Get("ID"),
			Type:      PreferenceType(rec.Get("Tipo")),
			Term:      rec.Get("Término Usuario"),
			Mapping:   rec.Get("Mapeo"),
			Frequency: freq,
			LastSeen:  rec.Get("Última Vez"),
			Approved:  isApproved(rec.Get("Aprobado")),
			Extra:     rec.Get("Contexto Adicional"),
		})
	}
	return out, nil
}

func (r *LearningRepo) ApprovedPreferences(ctx context.Context) ([]Preference, error) {
	all, err := r.Preferences(ctx)
	if err != nil {
		return nil, err
	}
	var out []Preference
	for _, p := range all {
		if p.Approved {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindPreference looks up an approved preference by the user's term.
func (r *LearningRepo) FindPreference(ctx context.Context, term string) (Preference, bool, error) {
	approved, err := r.ApprovedPreferences(ctx)
	if err != nil {
		return Preference{}, false, err
	}
	for _, p := range approved {
		if strings.EqualFold(p.Term, strings.TrimSpace(term)) {
			return p, true, nil
		}
	}
	return Preference{}, false, nil
}

// UpsertPreference records a mapping. Repeating a (type, term) pair bumps
// its frequency and last-seen date instead of adding a row; approval is sticky.
func (r *LearningRepo) UpsertPreference(ctx context.Context, kind PreferenceType, term, mapping string, approved bool, extra string) (Preference, error) {
	all, err := r.Preferences(ctx)
	if err != nil {
		return Preference{}, err
	}
	today := r.clock.Today()

	for _, p := range all {
		if p.Type != kind || !strings.EqualFold(p.Term, strings.TrimSpace(term)) {
			continue
		}
		p.Frequency++
		p.LastSeen = today
		p.Mapping = mapping
		p.Approved = p.Approved || approved
		if extra != "" {
			p.Extra = extra
		}
		rows, err := r.store.GetRows(ctx, sheets.SheetPreferences)
		if err != nil {
			return Preference{}, fmt.Errorf("loading preferences: %w", err)
		}
		rec, ok := sheets.FindByID(sheets.RowsToObjects(rows), p.ID)
		if !ok {
			break
		}
		if err := r.store.UpdateRow(ctx, sheets.SheetPreferences, rec.Row, preferenceRow(p)); err != nil {
			return Preference{}, fmt.Errorf("updating preference: %w", err)
		}
		return p, nil
	}

	p := Preference{
		ID:        NewID(prefixPreference),
		Type:      kind,
		Term:      strings.TrimSpace(term),
		Mapping:   strings.TrimSpace(mapping),
		Frequency: 1,
		LastSeen:  today,
		Approved:  approved,
		Extra:     extra,
	}
	if err := r.store.AppendRow(ctx, sheets.SheetPreferences, preferenceRow(p)); err != nil {
		return Preference{}, fmt.Errorf("appending preference: %w", err)
	}
	r.logger.Info("preference learned", zap.String("type", string(kind)), zap.String("term", p.Term))
	return p, nil
}

type LearningStats struct {
	TotalObservations   int
	PendingObservations int
	TotalPreferences    int
	ByType              map[PreferenceType]int
}

func (r *LearningRepo) Stats(ctx context.Context) (LearningStats, error) {
	obs, err := r.Observations(ctx)
	if err != nil {
		return LearningStats{}, err
	}
	prefs, err := r.ApprovedPreferences(ctx)
	if err != nil {
		return LearningStats{}, err
	}
	stats := LearningStats{
		TotalObservations: len(obs),
		TotalPreferences:  len(prefs),
		ByType:            make(map[PreferenceType]int),
	}
	for _, o := range obs {
		if o.Status == ObservationPending {
			stats.PendingObservations++
		}
	}
	for _, p := range prefs {
		stats.ByType[p.Type]++
	}
	return stats, nil
}

func FormatLearningStats(s LearningStats) string {
	var b strings.Builder
	b.WriteString("🧠 Aprendizaje:\n\n")
	fmt.Fprintf(&b, "Observaciones: %d (%d pendientes)\n", s.TotalObservations, s.PendingObservations)
	fmt.Fprintf(&b, "Preferencias aprobadas: %d", s.TotalPreferences)
	for _, t := range PreferenceTypes {
		if n := s.ByType[t]; n > 0 {
			fmt.Fprintf(&b, "\n- %s: %d", t, n)
		}
	}
	return b.String()
}

// Finding is a learnable pattern detected in one exchange.
type Finding struct {
	Type       ObservationType
	Suggestion string
}

var correctionMarkers = []string{"no,", "quise decir", "me refería", "me referia", "en realidad", "mejor dicho"}

// AnalyzeMessage inspects a user message, the tool output it produced and the
// number of consecutive attempts, and reports whether it is worth recording.
func AnalyzeMessage(userMessage, toolResult string, attempts int) (Finding, bool) {
	if attempts > 2 {
		return Finding{
			Type:       ObservationRepeatedAttempt,
			Suggestion: fmt.Sprintf("Usuario intentó %d veces la misma acción. Posible confusión o falta de claridad.", attempts),
		}, true
	}
	lower := strings.ToLower(userMessage)
	for _, marker := range correctionMarkers {
		if strings.Contains(lower, marker) {
			return Finding{
				Type:       ObservationCorrection,
				Suggestion: "Usuario corrigió la interpretación. Considerar agregar esta variante como preferencia.",
			}, true
		}
	}
	if strings.Contains(toolResult, "❌") || strings.Contains(strings.ToLower(toolResult), "no se encontró") {
		return Finding{
			Type:       ObservationNewTerm,
			Suggestion: fmt.Sprintf("Término %q no reconocido. Preguntar si es un alias personalizado.", userMessage),
		}, true
	}
	return Finding{}, false
}

func preferenceRow(p Preference) []string {
	approved := "no"
	if p.Approved {
		approved = "sí"
	}
	return []string{
		p.ID, string(p.Type), p.Term, p.Mapping, strconv.Itoa(p.Frequency), p.LastSeen, approved, p.Extra,
	}
}

func isApproved(s string) bool {
	return sheets.Normalize(s) == "si"
}
