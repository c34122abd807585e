package entities

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// LoanStatus is the availability state of a BookInstance. It is persisted as
// a single-letter code.
type LoanStatus string

const (
	LoanStatusMaintenance LoanStatus = "m"
	LoanStatusOnLoan      LoanStatus = "o"
	LoanStatusAvailable   LoanStatus = "a"
	LoanStatusReserved    LoanStatus = "r"
)

var ErrUnknownLoanStatus = errors.New("unknown loan status")

var loanStatusNames = map[LoanStatus]string{
	LoanStatusMaintenance: "maintenance",
	LoanStatusOnLoan:      "on_loan",
	LoanStatusAvailable:   "available",
	LoanStatusReserved:    "reserved",
}

// LoanStatuses lists every status in display order.
func LoanStatuses() []LoanStatus {
	return []LoanStatus{LoanStatusMaintenance, LoanStatusOnLoan, LoanStatusAvailable, LoanStatusReserved}
}

// ParseLoanStatus accepts either the stored code ("o") or the name ("on_loan").
func ParseLoanStatus(s string) (LoanStatus, error) {
	if _, ok := loanStatusNames[LoanStatus(s)]; ok {
		return LoanStatus(s), nil
	}
	for code, name := range loanStatusNames {
		if name == s {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLoanStatus, s)
}

func (s LoanStatus) Valid() bool {
	_, ok := loanStatusNames[s]
	return ok
}

func (s LoanStatus) String() string {
	if name, ok := loanStatusNames[s]; ok {
		return name
	}
	return string(s)
}

func (s LoanStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLoanStatus, string(s))
	}
	return string(s), nil
}

func (s *LoanStatus) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrUnknownLoanStatus, value)
	}
	parsed, err := ParseLoanStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s LoanStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLoanStatus, string(s))
	}
	return json.Marshal(s.String())
}

func (s *LoanStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("loan status must be a string: %w", err)
	}
	parsed, err := ParseLoanStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
