package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"party_radar/internal/bill"
	"party_radar/internal/domain"
)

var ErrEmptyReceipt = errors.New("receipt has no line items")

// ReceiptService stores analysed receipts, applies corrections and drives the
// per-item split. Split sessions live in the cache until they expire.
type ReceiptService struct {
	repo       domain.ReceiptRepository
	cache      domain.Cache
	extractor  domain.ReceiptExtractor
	sessionTTL time.Duration
	now        func() time.Time
}

func NewReceiptService(r domain.ReceiptRepository, c domain.Cache, x domain.ReceiptExtractor, sessionTTL time.Duration) *ReceiptService {
	return &ReceiptService{repo: r, cache: c, extractor: x, sessionTTL: sessionTTL, now: time.Now}
}

func splitKey(receiptID string) string { return "split:" + receiptID }

// Import maps an extraction payload, normalises it and stores a new receipt.
func (s *ReceiptService) Import(ctx context.Context, partyID string, payload map[string]any) (domain.Receipt, error) {
	a := bill.Normalize(mapReceipt(payload))
	if len(a.Items) == 0 {
		return domain.Receipt{}, ErrEmptyReceipt
	}
	now := s.now().UTC()
	rc := domain.Receipt{
		ID:        uuid.NewString(),
		PartyID:   partyID,
		Analysis:  a,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateReceipt(ctx, rc); err != nil {
		return domain.Receipt{}, err
	}
	log.Info().Str("receipt_id", rc.ID).Str("party_id", partyID).Int("items", len(a.Items)).Msg("receipt imported")
	return rc, nil
}

// Scan extracts a receipt from a photo and imports it.
func (s *ReceiptService) Scan(ctx context.Context, partyID string, image []byte, mimeType string) (domain.Receipt, error) {
	if s.extractor == nil {
		return domain.Receipt{}, fmt.Errorf("%w: receipt extraction not configured", domain.ErrExternalServiceUnavailable)
	}
	payload, err := s.extractor.ExtractReceipt(ctx, image, mimeType)
	if err != nil {
		return domain.Receipt{}, err
	}
	return s.Import(ctx, partyID, payload)
}

func (s *ReceiptService) Get(ctx context.Context, id string) (domain.Receipt, error) {
	return s.repo.GetReceipt(ctx, id)
}

// editable loads a receipt that has not been split yet.
func (s *ReceiptService) editable(ctx context.Context, id string) (domain.Receipt, error) {
	rc, err := s.repo.GetReceipt(ctx, id)
	if err != nil {
		return domain.Receipt{}, err
	}
	if rc.IsAssigned {
		return domain.Receipt{}, fmt.Errorf("%w: receipt %s is already split", domain.ErrInvalidAssignmentState, id)
	}
	return rc, nil
}

func (s *ReceiptService) saveAnalysis(ctx context.Context, rc domain.Receipt, a domain.ReceiptAnalysis) (domain.Receipt, error) {
	if err := s.repo.UpdateAnalysis(ctx, rc.ID, a); err != nil {
		return domain.Receipt{}, err
	}
	rc.Analysis = a
	rc.UpdatedAt = s.now().UTC()
	return rc, nil
}

func (s *ReceiptService) EditItem(ctx context.Context, id string, index int, field bill.Field, value string) (domain.Receipt, error) {
	rc, err := s.editable(ctx, id)
	if err != nil {
		return domain.Receipt{}, err
	}
	if cerr := bill.CheckValue(field, value); cerr != nil {
		log.Warn().Err(cerr).Str("receipt_id", id).Int("index", index).Msg("edit value unreadable, using default")
	}
	a, err := bill.EditItem(rc.Analysis, index, field, value)
	if err != nil {
		return domain.Receipt{}, err
	}
	return s.saveAnalysis(ctx, rc, a)
}

func (s *ReceiptService) SetTaxRate(ctx context.Context, id string, rate float64) (domain.Receipt, error) {
	rc, err := s.editable(ctx, id)
	if err != nil {
		return domain.Receipt{}, err
	}
	return s.saveAnalysis(ctx, rc, bill.SetTaxRate(rc.Analysis, rate))
}

func (s *ReceiptService) SetGratuityRate(ctx context.Context, id string, rate float64) (domain.Receipt, error) {
	rc, err := s.editable(ctx, id)
	if err != nil {
		return domain.Receipt{}, err
	}
	return s.saveAnalysis(ctx, rc, bill.SetGratuityRate(rc.Analysis, rate))
}

/********** split session **********/

// StartSplit opens a fresh session for the receipt, replacing any previous one.
func (s *ReceiptService) StartSplit(ctx context.Context, id string, members []string) (*bill.Session, error) {
	rc, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	sess, err := bill.NewSession(rc.ID, members, len(rc.Analysis.Items))
	if err != nil {
		return nil, err
	}
	if err := s.putSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *ReceiptService) Split(ctx context.Context, id string) (*bill.Session, error) {
	return s.getSession(ctx, id)
}

func (s *ReceiptService) SelectPayer(ctx context.Context, id, memberID string) (*bill.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.SelectPayer(memberID); err != nil {
		return nil, err
	}
	return sess, s.putSession(ctx, sess)
}

func (s *ReceiptService) GoTo(ctx context.Context, id string, index int) (*bill.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.GoTo(index); err != nil {
		return nil, err
	}
	return sess, s.putSession(ctx, sess)
}

func (s *ReceiptService) Toggle(ctx context.Context, id string, index int, memberID string) (bill.ItemAssignment, error) {
	rc, err := s.repo.GetReceipt(ctx, id)
	if err != nil {
		return bill.ItemAssignment{}, err
	}
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return bill.ItemAssignment{}, err
	}
	ia, err := sess.Toggle(rc.Analysis, index, memberID)
	if err != nil {
		return bill.ItemAssignment{}, err
	}
	return ia, s.putSession(ctx, sess)
}

// Finalize computes what every member owes and stores it on the receipt.
func (s *ReceiptService) Finalize(ctx context.Context, id string) (domain.SplitResult, error) {
	rc, err := s.editable(ctx, id)
	if err != nil {
		return domain.SplitResult{}, err
	}
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return domain.SplitResult{}, err
	}
	res, err := sess.Finalize(rc.Analysis)
	if err != nil {
		return domain.SplitResult{}, err
	}
	if err := s.repo.SaveSplit(ctx, id, res); err != nil {
		return domain.SplitResult{}, fmt.Errorf("save split for %s: %w", id, err)
	}
	if err := s.cache.Del(ctx, splitKey(id)); err != nil {
		log.Warn().Err(err).Str("receipt_id", id).Msg("could not drop finished session")
	}
	log.Info().Str("receipt_id", id).Str("paid_by", res.PaidBy).Int("members", len(res.MemberAmounts)).Msg("receipt split")
	return res, nil
}

func (s *ReceiptService) getSession(ctx context.Context, id string) (*bill.Session, error) {
	if s.cache == nil {
		return nil, errors.New("split session store not configured")
	}
	var sess bill.Session
	ok, err := s.cache.Get(ctx, splitKey(id), &sess)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("split session for %s: %w", id, domain.ErrNotFound)
	}
	return &sess, nil
}

func (s *ReceiptService) putSession(ctx context.Context, sess *bill.Session) error {
	if s.cache == nil {
		return errors.New("split session store not configured")
	}
	return s.cache.Set(ctx, splitKey(sess.ReceiptID), sess, int(s.sessionTTL.Seconds()))
}
