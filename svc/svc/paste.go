package svc

import (
	"context"
	"strconv"
	"strings"
	"time"

	"pastebin/cfg"
	"pastebin/metrics"
	"pastebin/pkg/domain"
	"pastebin/svc/auth"
	"pastebin/svc/util"

	"github.com/pkg/errors"
)

const maxInsertAttempts = 3

type Store interface {
	Create(ctx context.Context, p *domain.Paste) error
	Get(ctx context.Context, id string) (*domain.Paste, error)
	ListRecent(ctx context.Context, now time.Time, limit int) ([]domain.Summary, error)
}

type Paste struct {
	store       Store
	gate        *auth.Gate
	variant     domain.Variant
	maxSize     int64
	recentLimit int
	genID       func() (string, error)
	now         func() time.Time
}

func NewPaste(store Store, gate *auth.Gate, c *cfg.Cfg) *Paste {
	if store == nil || gate == nil || c == nil {
		panic("paste service: nil dependency (store, gate, or cfg)")
	}
	limit := c.RecentLimit
	if limit <= 0 || limit > domain.MaxRecent {
		limit = domain.MaxRecent
	}
	return &Paste{
		store:       store,
		gate:        gate,
		variant:     c.Variant,
		maxSize:     c.MaxPasteSize,
		recentLimit: limit,
		genID:       util.GenID,
		now:         time.Now,
	}
}
func (p *Paste) Variant() domain.Variant {
	return p.variant
}

// Create validates params and stores a new paste. The returned paste carries
// the generated ID. Expiry is never set here.
func (p *Paste) Create(ctx context.Context, params domain.CreateParams) (*domain.Paste, error) {
	if params.Content == "" {
		metrics.ValidationRejects.Inc()
		return nil, domain.ErrContentRequired
	}
	if p.maxSize > 0 && int64(len(params.Content)) > p.maxSize {
		return nil, domain.ErrPasteTooLarge
	}
	title := util.CleanTitle(params.Title)
	if title == "" {
		title = domain.DefaultTitle
	}
	var language string
	if p.variant.HasLanguage() {
		language = strings.TrimSpace(params.Language)
		if language == "" {
			language = domain.DefaultLanguage
		}
	}
	password, err := p.gate.Seal(params.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, errors.Wrap(domain.ErrInvalidRequest, err.Error())
		}
		return nil, errors.Wrap(err, "seal password")
	}
	paste := &domain.Paste{
		Content:  params.Content,
		Title:    title,
		Language: language,
		Password: password,
	}
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		id, err := p.genID()
		if err != nil {
			return nil, errors.Wrap(domain.ErrIDGenerationFailed, err.Error())
		}
		paste.ID = id
		paste.CreatedAt = p.now()
		err = p.store.Create(ctx, paste)
		if err == nil {
			metrics.PasteCreated.WithLabelValues(strconv.FormatBool(paste.Protected())).Inc()
			return paste, nil
		}
		if !errors.Is(err, domain.ErrIDCollision) {
			return nil, errors.Wrap(err, "create paste")
		}
		metrics.IDCollisions.Inc()
		util.Warn().Int("attempt", attempt).Msg("paste id collision, drawing a new id")
	}
	return nil, errors.Wrapf(domain.ErrIDGenerationFailed, "%d consecutive id collisions", maxInsertAttempts)
}

// Get returns the paste with id if password unlocks it. Protected pastes
// yield domain.ErrPasswordRequired for a missing or wrong password. Expiry is
// not enforced here; only listings filter on it.
func (p *Paste) Get(ctx context.Context, id, password string) (*domain.Paste, error) {
	if !util.ValidID(id) {
		metrics.PasteNotFound.Inc()
		return nil, domain.ErrPasteNotFound
	}
	paste, err := p.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPasteNotFound) {
			metrics.PasteNotFound.Inc()
			return nil, domain.ErrPasteNotFound
		}
		return nil, errors.Wrap(err, "get paste")
	}
	if !p.gate.Check(paste.Password, password) {
		metrics.PasswordPrompts.Inc()
		return nil, domain.ErrPasswordRequired
	}
	metrics.PasteRetrieved.Inc()
	return paste, nil
}

// ListRecent returns the newest pastes that are not expired.
func (p *Paste) ListRecent(ctx context.Context) ([]domain.Summary, error) {
	recent, err := p.store.ListRecent(ctx, p.now(), p.recentLimit)
	if err != nil {
		return nil, errors.Wrap(err, "list recent")
	}
	return recent, nil
}

// Languages lists the tags a client may offer; the simple variant has none
// beyond plaintext.
func (p *Paste) Languages() []domain.Language {
	if !p.variant.HasLanguage() {
		return domain.Languages[:1]
	}
	return domain.Languages
}
