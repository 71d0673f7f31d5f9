package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// SelfParticipant is the canonical identifier for the submitting user.
	// The upstream parse refers to them as "me"; display code always sees "You".
	SelfParticipant = "You"

	TypePersonal = "personal"
	TypeShared   = "shared"

	// Tolerance is the maximum accepted drift between a declared total and the
	// sum of its parts, in currency units.
	Tolerance = 0.01

	// DefaultVendor is returned when no vendor can be recovered from the text.
	DefaultVendor = "Expense"

	// CategoryOther is the fallback spending category.
	CategoryOther = "Other"
)

var (
	ErrMissingLineItems = errors.New("raw parse has no line_items")
	ErrBadTotal         = errors.New("total_amount is missing or not a finite number")
	ErrZeroTotal        = errors.New("percentage undefined for zero expense total")
)

type (
	// Split is one participant's monetary share of a single line item.
	Split struct {
		Participant string  `json:"participant"`
		Amount      float64 `json:"amount"`
	}

	// LineItem is one priced entry of an expense. Order is display-relevant
	// but carries no meaning beyond that.
	LineItem struct {
		Description    string  `json:"description"`
		Price          float64 `json:"amount"`
		Category       string  `json:"category,omitempty"`
		AllocationText string  `json:"allocation_text,omitempty"`
		Splits         []Split `json:"splits,omitempty"`
	}

	// SharedDetails records who participates in a shared expense and who paid.
	SharedDetails struct {
		Members []string `json:"members"`
		PaidBy  string   `json:"paid_by"`
	}

	// Expense is the canonical, display-ready record produced once per
	// submitted description. It is never mutated after canonicalization.
	Expense struct {
		ID              string         `json:"id"`
		UserID          string         `json:"user_id,omitempty"`
		VendorName      string         `json:"vendor_name"`
		TransactionDate time.Time      `json:"transaction_date"`
		TotalAmount     float64        `json:"total_amount"`
		Category        string         `json:"category"`
		Type            string         `json:"type"`
		LineItems       []LineItem     `json:"line_items"`
		Members         []string       `json:"members,omitempty"`
		SharedSpaceID   string         `json:"shared_space_id,omitempty"`
		SharedDetails   *SharedDetails `json:"shared_details,omitempty"`
		OriginalText    string         `json:"original_text,omitempty"`
		CreatedAt       time.Time      `json:"created_at"`
	}

	// SharedSpace groups expenses that share an identical participant set.
	SharedSpace struct {
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}

	// RawParse is the loosely-structured output of the upstream AI parser.
	// Pointer fields distinguish "absent" from zero values.
	RawParse struct {
		Participants      []string      `json:"participants"`
		CleanParticipants []string      `json:"clean_participants,omitempty"`
		IsShared          *bool         `json:"is_shared,omitempty"`
		ExpenseType       string        `json:"expense_type,omitempty"`
		ExpenseDate       string        `json:"expense_date,omitempty"`
		LineItems         []RawLineItem `json:"line_items"`
		TotalAmount       *float64      `json:"total_amount"`
	}

	// RawLineItem mirrors one line_items entry of the upstream parse.
	RawLineItem struct {
		Description    string  `json:"description"`
		Amount         float64 `json:"amount"`
		Category       string  `json:"category,omitempty"`
		AllocationText string  `json:"allocation_text,omitempty"`
		Splits         []Split `json:"splits,omitempty"`
	}
)

// ParseError marks a raw parse result the canonicalizer refuses to process.
// It is fail-fast: the caller reports it to the user, nothing is stored.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed parse result: %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CanonicalParticipant maps upstream participant tokens to their canonical
// form: any case variant of "me" becomes SelfParticipant, everything else is
// returned trimmed but otherwise untouched.
func CanonicalParticipant(name string) string {
	trimmed := strings.TrimSpace(name)
	if strings.EqualFold(trimmed, "me") {
		return SelfParticipant
	}
	return trimmed
}

// isSelfToken reports whether a raw participant token refers to the
// submitting user. Used when deriving clean participants.
func isSelfToken(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "me", "myself", "i", strings.ToLower(SelfParticipant):
		return true
	}
	return false
}

// WordCapitalize upper-cases the first letter of each whitespace-separated
// token and lower-cases the remainder, e.g. "big BAZAAR" -> "Big Bazaar".
func WordCapitalize(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		runes := []rune(f)
		head := strings.ToUpper(string(runes[0]))
		tail := strings.ToLower(string(runes[1:]))
		fields[i] = head + tail
	}
	return strings.Join(fields, " ")
}
