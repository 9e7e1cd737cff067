package mysql

const upsertMemberSQL = `
INSERT INTO party_members
  (party_id, member_id, street, city, state, zip_code, country, location)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  street     = VALUES(street),
  city       = VALUES(city),
  state      = VALUES(state),
  zip_code   = VALUES(zip_code),
  country    = VALUES(country),
  location   = VALUES(location),
  updated_at = CURRENT_TIMESTAMP
`

const upsertResolutionSQL = `
INSERT INTO party_resolutions (party_id, kind, payload, resolved_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  kind        = VALUES(kind),
  payload     = VALUES(payload),
  resolved_at = VALUES(resolved_at)
`

const insertGeocodeMissSQL = `
INSERT INTO geocode_misses (party_id, member_id, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE reason = VALUES(reason), seen_at = CURRENT_TIMESTAMP
`

const insertReceiptSQL = `
INSERT INTO receipts (id, party_id, analysis, is_assigned, member_amounts, paid_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const updateAnalysisSQL = `
UPDATE receipts SET analysis = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
`

// The analysis is rewritten too: split items carry their assignments.
const saveSplitSQL = `
UPDATE receipts
SET analysis       = ?,
    is_assigned    = ?,
    member_amounts = ?,
    paid_by        = ?,
    updated_at     = CURRENT_TIMESTAMP
WHERE id = ?
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const listPartyIDsSQL = `SELECT DISTINCT party_id FROM party_members ORDER BY party_id`

// Members in the order they joined the party.
const listMembersSQL = `
SELECT member_id, street, city, state, zip_code, country, location
FROM party_members
WHERE party_id = ?
ORDER BY created_at, member_id
`

const getReceiptSQL = `
SELECT id, party_id, analysis, is_assigned, member_amounts, paid_by, created_at, updated_at
FROM receipts
WHERE id = ?
`

const lockAnalysisSQL = `SELECT analysis FROM receipts WHERE id = ? FOR UPDATE`
