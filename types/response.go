package types

// RunResponse is the body returned for a run request.
type RunResponse struct {
	Message *string   `json:"message"`
	Run     bool      `json:"run"`
	Passed  bool      `json:"passed"`
	State   TestState `json:"state"`
	Log     *string   `json:"log"`
	Title   string    `json:"title,omitempty"`
}

// NewRunResponse returns a response for a test that has not been run.
func NewRunResponse() RunResponse {
	return RunResponse{State: TestStateError}
}

// SetMessage records why the test was not run.
func (r *RunResponse) SetMessage(msg string) {
	r.Message = &msg
}

// CheckResponse is the body returned by the environment checks.
type CheckResponse struct {
	Resource *string `json:"resource"`
	Config   string  `json:"config"`
	Error    string  `json:"error,omitempty"`
	Ready    bool    `json:"ready"`
}

// TestSummary is the listing view of a discovered test.
type TestSummary struct {
	Hash     string    `json:"hash"`
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	Filename string    `json:"filename"`
	State    TestState `json:"state"`
}

// Summary returns the listing view of t. Tests that have never been run are
// reported as ready.
func (t *Test) Summary() TestSummary {
	t.mu.RLock()
	state := TestStateReady
	if len(t.log) > 0 {
		state = t.stateLocked()
	}
	t.mu.RUnlock()
	return TestSummary{
		Hash:     t.hash,
		Type:     t.typ,
		Title:    t.title,
		Filename: t.filename,
		State:    state,
	}
}
