package telegram

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"nexo_bot/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultRateLimit  = 30
	DefaultRateWindow = time.Minute

	msgUnauthorized = "⛔ No estás autorizado para usar este bot.\nTu ID de Telegram es %d."
	msgRateLimited  = "⏳ Estás enviando muchos mensajes. Esperá un momento y probá de nuevo."
	msgUnexpected   = "❌ Ocurrió un error inesperado. Intentá de nuevo."
)

// HandlerFunc processes one update.
type HandlerFunc func(ctx context.Context, u *Update) error

type Middleware func(HandlerFunc) HandlerFunc

func chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Authorizer admits the configured owner ids. With no owners configured
// nobody is admitted.
type Authorizer struct {
	owners map[int64]struct{}
}

func NewAuthorizer(ids []int64) *Authorizer {
	owners := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		owners[id] = struct{}{}
	}
	return &Authorizer{owners: owners}
}

func (a *Authorizer) Allowed(userID int64) bool {
	_, ok := a.owners[userID]
	return ok
}

func (a *Authorizer) Owners() []int64 {
	ids := make([]int64, 0, len(a.owners))
	for id := range a.owners {
		ids = append(ids, id)
	}
	return ids
}

// RateLimiter keeps one token bucket per user: limit events per window,
// refilled continuously.
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[int64]*rate.Limiter
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(limit) / window.Seconds()),
		burst:   limit,
		buckets: make(map[int64]*rate.Limiter),
	}
}

func (r *RateLimiter) Allow(userID int64) bool {
	return r.AllowAt(userID, time.Now())
}

func (r *RateLimiter) AllowAt(userID int64, now time.Time) bool {
	r.mu.Lock()
	bucket, ok := r.buckets[userID]
	if !ok {
		bucket = rate.NewLimiter(r.limit, r.burst)
		r.buckets[userID] = bucket
	}
	r.mu.Unlock()
	return bucket.AllowN(now, 1)
}

// recoverer turns a panic or an error from the handler into a generic reply.
func (b *Bot) recoverer(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, u *Update) (err error) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("panic handling update",
					zap.Int64("update_id", u.UpdateID),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				b.notifyFailure(ctx, u)
				err = nil
			}
		}()
		if err := next(ctx, u); err != nil {
			b.logger.Error("handling update", zap.Int64("update_id", u.UpdateID), zap.Error(err))
			b.notifyFailure(ctx, u)
		}
		return nil
	}
}

func (b *Bot) logUpdate(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, u *Update) error {
		start := time.Now()
		userID, chatID := sender(u)
		err := next(ctx, u)
		fields := []zap.Field{
			zap.Int64("update_id", u.UpdateID),
			zap.String("kind", updateKind(u)),
			zap.Duration("took", time.Since(start)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		logging.ForUser(b.logger, userID, chatID).Info("update handled", fields...)
		return err
	}
}

// authorize rejects senders that are not owners. /whoami stays open so an
// operator can learn the id to configure.
func (b *Bot) authorize(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, u *Update) error {
		userID, chatID := sender(u)
		if b.auth.Allowed(userID) {
			return next(ctx, u)
		}
		if u.Message != nil {
			if cmd, _ := parseCommand(u.Message.Text); cmd == "whoami" {
				return next(ctx, u)
			}
		}
		b.logger.Warn("unauthorized sender", zap.Int64("user_id", userID))
		if u.CallbackQuery != nil {
			return b.client.AnswerCallbackQuery(ctx, u.CallbackQuery.ID, "No autorizado")
		}
		_, err := b.client.SendMessage(ctx, chatID, fmt.Sprintf(msgUnauthorized, userID), nil)
		return err
	}
}

func (b *Bot) rateLimit(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, u *Update) error {
		userID, chatID := sender(u)
		if b.limiter.Allow(userID) {
			return next(ctx, u)
		}
		b.logger.Warn("rate limited", zap.Int64("user_id", userID))
		if u.CallbackQuery != nil {
			return b.client.AnswerCallbackQuery(ctx, u.CallbackQuery.ID, msgRateLimited)
		}
		_, err := b.client.SendMessage(ctx, chatID, msgRateLimited, nil)
		return err
	}
}

func (b *Bot) notifyFailure(ctx context.Context, u *Update) {
	_, chatID := sender(u)
	if chatID == 0 {
		return
	}
	if _, err := b.client.SendMessage(context.WithoutCancel(ctx), chatID, msgUnexpected, nil); err != nil {
		b.logger.Warn("sending failure notice", zap.Error(err))
	}
}

// sender returns the user and chat an update came from.
func sender(u *Update) (userID, chatID int64) {
	switch {
	case u.Message != nil:
		chatID = u.Message.Chat.ID
		if u.Message.From != nil {
			userID = u.Message.From.ID
		}
	case u.CallbackQuery != nil:
		userID = u.CallbackQuery.From.ID
		if u.CallbackQuery.Message != nil {
			chatID = u.CallbackQuery.Message.Chat.ID
		}
	}
	return userID, chatID
}

func updateKind(u *Update) string {
	switch {
	case u.CallbackQuery != nil:
		return "callback"
	case u.Message == nil:
		return "other"
	case len(u.Message.Photo) > 0:
		return "photo"
	case u.Message.Contact != nil:
		return "contact"
	case u.Message.Voice != nil:
		return "voice"
	default:
		return "text"
	}
}
