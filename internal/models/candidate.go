package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// qaSortSentinel orders Q&A entries without sort_order after the numbered ones.
const qaSortSentinel = 999

// CandidateID is a candidate key as the edge service issued it. It remembers
// whether it arrived as a JSON number or a JSON string and is sent back the
// same way. Two ids are the same candidate when their text matches.
type CandidateID struct {
	value   string
	numeric bool
}

// TextID is an id carried as a JSON string.
func TextID(value string) CandidateID {
	return CandidateID{value: value}
}

// NumericID is an id carried as a JSON number. Text that is not a valid JSON
// number falls back to a string id.
func NumericID(value string) CandidateID {
	return CandidateID{value: value, numeric: isJSONNumber(value)}
}

func (id CandidateID) String() string {
	return id.value
}

func (id CandidateID) Numeric() bool {
	return id.numeric
}

func (id CandidateID) IsZero() bool {
	return strings.TrimSpace(id.value) == ""
}

// Same compares by text, so a typed id matches whatever form the slate uses.
func (id CandidateID) Same(other CandidateID) bool {
	return id.value == other.value
}

func (id *CandidateID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TextID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = CandidateID{value: n.String(), numeric: true}
	return nil
}

func (id CandidateID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}

type QA struct {
	Label     string `json:"label"`
	Answer    string `json:"answer"`
	SortOrder *int   `json:"sort_order,omitempty"`
}

func (q QA) Order() int {
	if q.SortOrder == nil {
		return qaSortSentinel
	}
	return *q.SortOrder
}

type Candidate struct {
	ID   CandidateID `json:"id"`
	Name string      `json:"name"`
	Bio  string      `json:"bio,omitempty"`
	QA   []QA        `json:"qa,omitempty"`
}

// SortedQA returns the Q&A entries in display order without touching c.QA.
func (c Candidate) SortedQA() []QA {
	qa := make([]QA, len(c.QA))
	copy(qa, c.QA)
	sort.SliceStable(qa, func(i, j int) bool {
		return qa[i].Order() < qa[j].Order()
	})
	return qa
}
