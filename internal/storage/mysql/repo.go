package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"party_radar/internal/domain"
	"party_radar/internal/money"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- parties ----

// UpsertMember stores or replaces a member's address within a party.
func (r *Repo) UpsertMember(ctx context.Context, partyID string, m domain.MemberAddress) error {
	_, err := r.db.ExecContext(ctx, upsertMemberSQL,
		partyID,
		m.MemberID,
		valStr(m.Street),
		valStr(m.City),
		valStr(m.State),
		valStr(m.ZipCode),
		valStr(m.Country),
		valStr(m.Location),
	)
	return err
}

func (r *Repo) ListPartyIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listPartyIDsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListMemberAddresses returns domain.ErrNotFound for a party without members.
func (r *Repo) ListMemberAddresses(ctx context.Context, partyID string) ([]domain.MemberAddress, error) {
	rows, err := r.db.QueryContext(ctx, listMembersSQL, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MemberAddress
	for rows.Next() {
		var m domain.MemberAddress
		var street, city, state, zip, country, location sql.NullString
		if err := rows.Scan(&m.MemberID, &street, &city, &state, &zip, &country, &location); err != nil {
			return nil, err
		}
		m.Street, m.City, m.State = street.String, city.String, state.String
		m.ZipCode, m.Country, m.Location = zip.String, country.String, location.String
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("party %s: %w", partyID, domain.ErrNotFound)
	}
	return out, nil
}

func (r *Repo) SaveResolution(ctx context.Context, res domain.Resolution) error {
	_, err := r.db.ExecContext(ctx, upsertResolutionSQL, res.PartyID, res.Kind, valJSON(res.Payload), res.ResolvedAt)
	return err
}

func (r *Repo) LogGeocodeMiss(ctx context.Context, partyID, memberID, reason string) error {
	_, err := r.db.ExecContext(ctx, insertGeocodeMissSQL, partyID, memberID, reason)
	return err
}

// ---- receipts ----

func (r *Repo) CreateReceipt(ctx context.Context, rc domain.Receipt) error {
	analysis, err := json.Marshal(rc.Analysis)
	if err != nil {
		return err
	}
	var amounts []byte
	if rc.MemberAmounts != nil {
		if amounts, err = json.Marshal(rc.MemberAmounts); err != nil {
			return err
		}
	}
	_, err = r.db.ExecContext(ctx, insertReceiptSQL,
		rc.ID,
		rc.PartyID,
		string(analysis),
		rc.IsAssigned,
		valJSON(amounts),
		valStr(rc.PaidBy),
		rc.CreatedAt,
		rc.UpdatedAt,
	)
	return err
}

func (r *Repo) GetReceipt(ctx context.Context, id string) (domain.Receipt, error) {
	var (
		rc       domain.Receipt
		analysis []byte
		amounts  []byte
		paidBy   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, getReceiptSQL, id).Scan(
		&rc.ID,
		&rc.PartyID,
		&analysis,
		&rc.IsAssigned,
		&amounts,
		&paidBy,
		&rc.CreatedAt,
		&rc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Receipt{}, fmt.Errorf("receipt %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Receipt{}, err
	}
	if err := json.Unmarshal(analysis, &rc.Analysis); err != nil {
		return domain.Receipt{}, fmt.Errorf("receipt %s: decode analysis: %w", id, err)
	}
	if len(amounts) > 0 {
		rc.MemberAmounts = map[string]money.Cents{}
		if err := json.Unmarshal(amounts, &rc.MemberAmounts); err != nil {
			return domain.Receipt{}, fmt.Errorf("receipt %s: decode member amounts: %w", id, err)
		}
	}
	rc.PaidBy = paidBy.String
	return rc, nil
}

func (r *Repo) UpdateAnalysis(ctx context.Context, id string, a domain.ReceiptAnalysis) error {
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, updateAnalysisSQL, string(b), id)
	return err
}

// SaveSplit stores the assignment result. The row is locked while its
// analysis is rewritten with the assigned items.
func (r *Repo) SaveSplit(ctx context.Context, id string, s domain.SplitResult) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var raw []byte
	if err = tx.QueryRowContext(ctx, lockAnalysisSQL, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("receipt %s: %w", id, domain.ErrNotFound)
		}
		return err
	}
	var a domain.ReceiptAnalysis
	if err = json.Unmarshal(raw, &a); err != nil {
		return err
	}
	a.Items = s.Items

	analysis, err := json.Marshal(a)
	if err != nil {
		return err
	}
	amounts, err := json.Marshal(s.MemberAmounts)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, saveSplitSQL, string(analysis), s.IsAssigned, string(amounts), valStr(s.PaidBy), id); err != nil {
		return err
	}
	return tx.Commit()
}
