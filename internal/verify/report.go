package verify

// StatusRow is one line of the per-feature status report.
type StatusRow struct {
	ID        string
	Status    string
	Completed int
	Total     int
	Percent   int
}

// StatusTable builds one row per registered feature, in document order.
func (e *Engine) StatusTable() ([]StatusRow, error) {
	ids, err := e.IDs()
	if err != nil {
		return nil, err
	}

	rows := make([]StatusRow, 0, len(ids))

	for _, id := range ids {
		f, err := loadFeature(e.st, id)
		if err != nil {
			return nil, err
		}

		rows = append(rows, StatusRow{
			ID:        id,
			Status:    DisplayStatus(f),
			Completed: completedCount(f.Checklist),
			Total:     len(f.Checklist),
			Percent:   CompletionPercent(f),
		})
	}

	return rows, nil
}

// Summary aggregates feature counts by display status.
type Summary struct {
	Total      int
	Verified   int
	Partial    int
	Unverified int
}

// Summarize counts features per display status.
func (e *Engine) Summarize() (Summary, error) {
	rows, err := e.StatusTable()
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Total: len(rows)}

	for _, row := range rows {
		switch row.Status {
		case string(StatusVerified):
			s.Verified++
		case StatusPartial:
			s.Partial++
		default:
			s.Unverified++
		}
	}

	return s, nil
}

// Details is the full report for one feature: its stored state plus the
// current fingerprint comparison.
type Details struct {
	Feature       Feature
	DisplayStatus string
	Percent       int

	// CurrentHash is the fingerprint of the tracked files as they are
	// now. Empty if hashing failed; HashErr carries the failure.
	CurrentHash string
	HashErr     error

	// Drifted reports that the feature is verified but its tracked files
	// no longer match the fingerprint stored at verification time.
	// ChangedFiles names the drifted paths.
	Drifted      bool
	ChangedFiles []string
}

// Inspect assembles the full details for one feature. A hashing failure
// does not fail the report; it is carried in HashErr so the stored state
// is still viewable when a tracked file is unreadable.
func (e *Engine) Inspect(id string) (Details, error) {
	f, err := loadFeature(e.st, id)
	if err != nil {
		return Details{}, err
	}

	d := Details{
		Feature:       f,
		DisplayStatus: DisplayStatus(f),
		Percent:       CompletionPercent(f),
	}

	combined, perFile, err := fingerprint(e.fsys, e.root, f.TrackedFiles)
	if err != nil {
		d.HashErr = err

		return d, nil
	}

	d.CurrentHash = combined

	if f.Status == StatusVerified && combined != f.FileHash {
		d.Drifted = true
		d.ChangedFiles = changedFiles(f.FileHashes, perFile)
	}

	return d, nil
}
