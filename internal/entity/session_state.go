package entity

// SessionState is the record persisted between runs.
type SessionState struct {
	Processed    []string `json:"processed" yaml:"processed"`
	ImageHostKey string   `json:"image_host_key,omitempty" yaml:"image_host_key,omitempty"`
	Username     string   `json:"username,omitempty" yaml:"username,omitempty"`

	index map[string]struct{}
}

// NewSessionState returns an empty state.
func NewSessionState() *SessionState {
	return &SessionState{Processed: []string{}}
}

// BuildIndex prepares the lookup index. Call it before sharing the state
// between goroutines: lookups on a fresh state build the index lazily.
func (s *SessionState) BuildIndex() {
	s.ensureIndex()
}

func (s *SessionState) ensureIndex() {
	if s.index != nil {
		return
	}
	s.index = make(map[string]struct{}, len(s.Processed))
	for _, u := range s.Processed {
		s.index[u] = struct{}{}
	}
}

// IsProcessed reports whether url has already gone through the pipeline.
func (s *SessionState) IsProcessed(url string) bool {
	s.ensureIndex()
	_, ok := s.index[url]
	return ok
}

// MarkProcessed appends url to the processed set. It returns false if the
// url was already present.
func (s *SessionState) MarkProcessed(url string) bool {
	s.ensureIndex()
	if _, ok := s.index[url]; ok {
		return false
	}
	s.Processed = append(s.Processed, url)
	s.index[url] = struct{}{}
	return true
}

// ProcessedCount returns the number of processed URLs.
func (s *SessionState) ProcessedCount() int {
	return len(s.Processed)
}

// Clone returns a deep copy suitable for handing to a store.
func (s *SessionState) Clone() *SessionState {
	out := &SessionState{
		Processed:    make([]string, len(s.Processed)),
		ImageHostKey: s.ImageHostKey,
		Username:     s.Username,
	}
	copy(out.Processed, s.Processed)
	return out
}
