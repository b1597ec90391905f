package orchestrator

import "strings"

// Lead is one fetched prospect record.
type Lead struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Valid reports whether the lead is contactable. A lead without an email
// and without a phone number cannot be acted on and is dropped.
func (l Lead) Valid() bool {
	return strings.TrimSpace(l.Email) != "" || strings.TrimSpace(l.Phone) != ""
}

// keyOf returns the lead's identity for duplicate detection: the phone
// number when present, else the email, else the name. A lead that shares
// its strongest identifier with an earlier one is a duplicate even when
// the weaker fields differ; two leads sharing only a weaker identifier
// stay distinct. The field prefix keeps identifiers from colliding across
// fields. Values are compared exactly, with no case folding or trimming,
// so "Bob@x.com" and "bob@x.com" are distinct.
func keyOf(l Lead) string {
	switch {
	case l.Phone != "":
		return "phone:" + l.Phone
	case l.Email != "":
		return "email:" + l.Email
	default:
		return "name:" + l.Name
	}
}
