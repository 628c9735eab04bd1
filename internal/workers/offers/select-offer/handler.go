// internal/workers/offers/select-offer/handler.go
package selectoffer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loan-portal/internal/backend"
	"loan-portal/internal/common/camunda"
	"loan-portal/internal/common/database"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/finance"
	"loan-portal/internal/journal"
	"loan-portal/internal/models"
	"loan-portal/internal/session"
	"loan-portal/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "select-offer"
)

var (
	ErrOfferNotFound = errors.New("OFFER_NOT_FOUND")
)

type Backend interface {
	FetchOffers(ctx context.Context, token, transactionID string) ([]models.LoanOffer, error)
	SubmitAmount(ctx context.Context, token string, req *backend.SubmitAmountRequest) error
}

type Handler struct {
	config   *Config
	backend  Backend
	sessions session.Manager
	cache    *database.RedisClient
	journal  journal.Recorder
	flow     *registry.FlowRegistry
	logger   logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

type HandlerOptions struct {
	Cache   *database.RedisClient
	Journal journal.Recorder
	Flow    *registry.FlowRegistry
}

func NewHandler(config *Config, backend Backend, sessions session.Manager, opts HandlerOptions, log logger.Logger) *Handler {
	flow := opts.Flow
	if flow == nil {
		flow = registry.Default()
	}
	return &Handler{
		config:   config,
		backend:  backend,
		sessions: sessions,
		cache:    opts.Cache,
		journal:  opts.Journal,
		flow:     flow,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, h.logger, h.config.Timeout, h.execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Fetch loads the offers of the session's transaction, retrying a failed
// fetch on a fixed delay before asking the borrower to retry by hand.
func (h *Handler) Fetch(ctx context.Context, input *FetchInput) (*FetchOutput, error) {
	sess, err := h.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	transactionID, err := session.RequireTransaction(sess)
	if err != nil {
		return nil, err
	}

	out := &FetchOutput{TransactionID: transactionID}
	offers, cached := h.cached(ctx, transactionID)
	if cached && !input.Refresh {
		out.Cached = true
	} else {
		offers, out.Attempts, err = h.fetchWithRetry(ctx, sess.Token, transactionID)
		if err != nil {
			return nil, err
		}
		h.store(ctx, transactionID, offers)
	}

	out.Offers = make([]OfferView, 0, len(offers))
	for _, o := range offers {
		view := OfferView{LoanOffer: o, Bounds: finance.SliderBounds(o.LoanAmount)}
		view.Positions = view.Bounds.Positions()
		if q, err := finance.QuoteOffer(o, o.LoanAmount); err == nil {
			view.Quote = q
		}
		out.Offers = append(out.Offers, view)
	}
	return out, nil
}

func (h *Handler) fetchWithRetry(ctx context.Context, token, transactionID string) ([]models.LoanOffer, int, error) {
	attempts := h.config.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		offers, err := h.backend.FetchOffers(ctx, token, transactionID)
		if err == nil {
			return offers, attempt, nil
		}
		lastErr = err
		h.logger.Warn("offer fetch failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
		if attempt == attempts {
			break
		}
		if err := h.sleep(ctx, h.config.RetryDelay); err != nil {
			return nil, attempt, apperrors.NewOffersUnavailableError(attempt, err)
		}
	}
	return nil, attempts, apperrors.NewOffersUnavailableError(attempts, lastErr)
}

// Quote recomputes the EMI for a slider position under one offer.
func (h *Handler) Quote(ctx context.Context, input *QuoteInput) (*finance.Quote, error) {
	_, offer, err := h.offer(ctx, input.SessionID, input.LenderID)
	if err != nil {
		return nil, err
	}
	return finance.QuoteOffer(*offer, finance.SliderBounds(offer.LoanAmount).Snap(input.Amount))
}

// execute submits the chosen amount unrounded and records the provider.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	sess, offer, err := h.offer(ctx, input.SessionID, input.LenderID)
	if err != nil {
		return nil, err
	}
	quote, err := finance.QuoteOffer(*offer, input.Amount)
	if err != nil {
		return nil, err
	}

	err = h.backend.SubmitAmount(ctx, sess.Token, &backend.SubmitAmountRequest{
		Amount:        input.Amount,
		UserID:        sess.UserID,
		TransactionID: sess.TransactionID,
		ProviderID:    offer.LenderID,
	})
	if err == nil {
		_, err = h.sessions.SetProviderID(ctx, sess.ID, offer.LenderID)
	}
	h.record(ctx, sess, input, err)
	if err != nil {
		return nil, err
	}

	h.logger.Info("offer selected", map[string]interface{}{
		"transactionId": sess.TransactionID,
		"providerId":    offer.LenderID,
		"amount":        input.Amount,
	})
	return &Output{
		ProviderID:    offer.LenderID,
		TransactionID: sess.TransactionID,
		Quote:         quote,
		Next:          h.flow.MustNext(registry.StepOffers),
	}, nil
}

func (h *Handler) offer(ctx context.Context, sessionID, lenderID string) (*models.Session, *models.LoanOffer, error) {
	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	transactionID, err := session.RequireTransaction(sess)
	if err != nil {
		return nil, nil, err
	}

	offers, ok := h.cached(ctx, transactionID)
	if !ok {
		offers, _, err = h.fetchWithRetry(ctx, sess.Token, transactionID)
		if err != nil {
			return nil, nil, err
		}
		h.store(ctx, transactionID, offers)
	}
	for i := range offers {
		if offers[i].LenderID == lenderID {
			return sess, &offers[i], nil
		}
	}
	return nil, nil, apperrors.NewValidationFailedError(fmt.Sprintf("%v: %s", ErrOfferNotFound, lenderID))
}

func (h *Handler) cacheKey(transactionID string) string {
	return h.config.CachePrefix + ":" + transactionID
}

func (h *Handler) cached(ctx context.Context, transactionID string) ([]models.LoanOffer, bool) {
	if h.cache == nil {
		return nil, false
	}
	var offers []models.LoanOffer
	found, err := h.cache.GetJSON(ctx, h.cacheKey(transactionID), &offers)
	if err != nil {
		h.logger.Warn("offer cache read failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	return offers, found
}

func (h *Handler) store(ctx context.Context, transactionID string, offers []models.LoanOffer) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetJSON(ctx, h.cacheKey(transactionID), offers, h.config.CacheTTL); err != nil {
		h.logger.Warn("offer cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) record(ctx context.Context, sess *models.Session, input *Input, err error) {
	e := journal.Event{
		SessionID:     sess.ID,
		UserID:        sess.UserID,
		TransactionID: sess.TransactionID,
		Step:          registry.StepOffers,
		Outcome:       journal.OutcomeSuccess,
		Details:       map[string]interface{}{"lenderId": input.LenderID, "amount": input.Amount},
	}
	if err != nil {
		e.Outcome, e.ErrorCode = journal.OutcomeFailed, string(apperrors.CodeOf(err))
	}
	journal.Safe(ctx, h.journal, h.logger, e)
}
