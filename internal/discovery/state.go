package discovery

// State is the retry-state snapshot of a job: status, attempt count, and the
// error text of the most recent failed run. A completed state never carries
// an error.
type State struct {
	Status    JobStatus
	Attempts  int
	LastError string
}

// StateOf extracts the state snapshot from a job record.
func StateOf(job Job) State {
	return State{Status: job.Status, Attempts: job.Attempts, LastError: job.LastError}
}

// Next computes the single legal transition for one finished run attempt.
// The attempt increment and the resulting status always travel together, so
// callers persist them as one update.
//
//	pending -> completed  when the run succeeded
//	pending -> pending    when the run errored and attempts remain
//	pending -> failed     when the run errored on the final attempt
func Next(cur State, maxAttempts int, runErr error) State {
	attempts := cur.Attempts + 1
	if runErr == nil {
		return State{Status: StatusCompleted, Attempts: attempts}
	}
	if attempts >= maxAttempts {
		return State{Status: StatusFailed, Attempts: attempts, LastError: runErr.Error()}
	}
	return State{Status: StatusPending, Attempts: attempts, LastError: runErr.Error()}
}
