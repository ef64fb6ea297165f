// Package ledger implements the append-only, hash-chained log registrations
// are anchored on. Each entry's transaction id is the Keccak-256 digest of
// the entry's fields and the previous entry's transaction id, so editing or
// removing any entry breaks every id after it.
package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/content-guardian/pkg/guardian"
	"golang.org/x/crypto/sha3"
)

// GenesisTxID is the previous-id of the first entry.
const GenesisTxID = "0x0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one anchored registration.
type Entry struct {
	Seq         int64                `json:"seq"`
	TxID        string               `json:"tx_id"`
	PrevTxID    string               `json:"prev_tx_id"`
	Fingerprint string               `json:"fingerprint"`
	Locator     string               `json:"locator"`
	Title       string               `json:"title"`
	Type        guardian.ContentType `json:"type"`
	From        string               `json:"from"`
	AnchoredAt  time.Time            `json:"anchored_at"`
}

// NewEntry builds the entry that follows prevTxID and computes its id. The
// timestamp is truncated to microseconds so it survives a database round trip.
func NewEntry(seq int64, prevTxID string, req guardian.AnchorRequest, at time.Time) Entry {
	e := Entry{
		Seq:         seq,
		PrevTxID:    prevTxID,
		Fingerprint: req.Fingerprint,
		Locator:     req.Locator,
		Title:       req.Title,
		Type:        req.Type,
		From:        req.From,
		AnchoredAt:  at.UTC().Truncate(time.Microsecond),
	}
	e.TxID = TxID(e)
	return e
}

// TxID computes the transaction id of e from its content and PrevTxID.
func TxID(e Entry) string {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(e.Seq))
	h.Write(buf[:])
	for _, field := range []string{
		e.PrevTxID,
		e.Fingerprint,
		e.Locator,
		e.Title,
		string(e.Type),
		e.From,
	} {
		// Length-prefix every field so adjacent values cannot be shifted.
		binary.BigEndian.PutUint64(buf[:], uint64(len(field)))
		h.Write(buf[:])
		h.Write([]byte(field))
	}
	binary.BigEndian.PutUint64(buf[:], uint64(e.AnchoredAt.UnixNano()))
	h.Write(buf[:])
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// VerifyChain checks that entries, in sequence order, form an unbroken chain
// starting at GenesisTxID.
func VerifyChain(entries []Entry) error {
	prev := GenesisTxID
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			return fmt.Errorf("entry %d: expected seq %d, got %d", i, i+1, e.Seq)
		}
		if e.PrevTxID != prev {
			return fmt.Errorf("entry %d: previous id %s does not match %s", e.Seq, e.PrevTxID, prev)
		}
		if got := TxID(e); got != e.TxID {
			return fmt.Errorf("entry %d: recorded id %s does not match computed %s", e.Seq, e.TxID, got)
		}
		prev = e.TxID
	}
	return nil
}

// accountNamespace scopes generated account ids.
var accountNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tendant/content-guardian/accounts"))

// DefaultAccount returns the deterministic account id used when a ledger is
// configured without accounts.
func DefaultAccount() string {
	return GeneratedAccount(0)
}

// GeneratedAccount returns the i-th deterministic account id.
func GeneratedAccount(i int) string {
	return uuid.NewSHA1(accountNamespace, []byte(fmt.Sprintf("account-%d", i))).String()
}
