package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotAuthenticated    = errors.New("validate first to begin voting")
	ErrSelectionCount      = errors.New("please select exactly 3 candidates before submitting")
	ErrEmptyIdentifier     = errors.New("please enter your ACP number")
	ErrInvalidResumeCode   = errors.New("resume code must be 1 to 12 characters")
	ErrEmptyCandidateID    = errors.New("candidate id is empty")
	ErrUnknownRegion       = errors.New("unknown region")
	ErrAlreadyVoted        = errors.New(ReasonAlreadyVoted)
	ErrNotEligible         = errors.New(ReasonNotEligible)
	ErrEdgeUnavailable     = errors.New("could not complete the request")
	ErrFailedToProcessData = errors.New("failed to process data")
)

// MaxSelections is the exact number of candidates a ballot must carry.
const MaxSelections = 3

const (
	ReasonAlreadyVoted     = "already_voted"
	ReasonNotEligible      = "not_eligible"
	ReasonValidationFailed = "validation_failed"
	ReasonResumeFailed     = "resume_failed"
)

// ReasonError is a business-rule refusal reported by the edge service.
type ReasonError struct {
	Op     string
	Reason string
}

func (e *ReasonError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return e.Reason
}

func (e *ReasonError) Is(target error) bool {
	switch target {
	case ErrAlreadyVoted:
		return e.Code() == ReasonAlreadyVoted
	case ErrNotEligible:
		return e.Code() == ReasonNotEligible
	}
	return false
}

// Code is Reason normalized for comparison; Reason keeps the server's text.
func (e *ReasonError) Code() string {
	return strings.ToLower(strings.TrimSpace(e.Reason))
}

type ValidateRequest struct {
	ACP    string `json:"acp"`
	Region Region `json:"region"`
}

type ResumeRequest struct {
	ACP        string `json:"acp"`
	ResumeCode string `json:"resume_code"`
	Region     Region `json:"region"`
}

// BallotRequest is the body of both save_draft and submit_vote.
type BallotRequest struct {
	Token        string        `json:"token"`
	CandidateIDs []CandidateID `json:"candidate_ids"`
}

// SessionGrant is what validate_acp and resume_with_code answer with.
type SessionGrant struct {
	OK         bool          `json:"ok"`
	Token      string        `json:"token"`
	Draft      []CandidateID `json:"draft"`
	ResumeCode string        `json:"resume_code"`
	Region     Region        `json:"region"`
}
