package models

// VoterSession is the per-voter progress through validate, draft and submit.
// The zero value is the unauthenticated session.
type VoterSession struct {
	Token      string        `json:"token,omitempty"`
	Region     Region        `json:"region,omitempty"`
	ResumeCode string        `json:"resume_code,omitempty"`
	Draft      []CandidateID `json:"draft,omitempty"`
}

func NewVoterSession() VoterSession {
	return VoterSession{}
}

func (s VoterSession) Authenticated() bool {
	return s.Token != "" && s.Region != ""
}

// Authenticate replaces the whole session with a freshly granted one.
func (s *VoterSession) Authenticate(token string, region Region, draft []CandidateID, resumeCode string) {
	*s = VoterSession{
		Token:      token,
		Region:     region,
		ResumeCode: resumeCode,
		Draft:      uniqueIDs(draft),
	}
}

// Toggle adds id to the draft or removes it when already present, and
// reports whether id is selected afterwards.
func (s *VoterSession) Toggle(id CandidateID) bool {
	for i, existing := range s.Draft {
		if existing.Same(id) {
			s.Draft = append(s.Draft[:i:i], s.Draft[i+1:]...)
			return false
		}
	}
	s.Draft = append(s.Draft, id)
	return true
}

func (s VoterSession) Selected(id CandidateID) bool {
	for _, existing := range s.Draft {
		if existing.Same(id) {
			return true
		}
	}
	return false
}

func (s VoterSession) OverLimit() bool {
	return len(s.Draft) > MaxSelections
}

func (s VoterSession) ReadyToSubmit() bool {
	return len(s.Draft) == MaxSelections
}

// DraftIDs is a copy of the draft that is never nil, so it encodes as [].
func (s VoterSession) DraftIDs() []CandidateID {
	ids := make([]CandidateID, len(s.Draft))
	copy(ids, s.Draft)
	return ids
}

// Reset returns the session to its initial unauthenticated state.
func (s *VoterSession) Reset() {
	*s = NewVoterSession()
}

func uniqueIDs(ids []CandidateID) []CandidateID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]CandidateID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id.String()]; ok {
			continue
		}
		seen[id.String()] = struct{}{}
		out = append(out, id)
	}
	return out
}
