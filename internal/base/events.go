package base

// EventListener holds optional callbacks components use to report
// non-fatal anomalies to a host, instead of logging directly or
// panicking. Every field is optional; a nil field means "don't report".
// Mirrors the shape of the teacher's public EventListener struct (a bag
// of function fields rather than an interface, so a host can populate
// only the events it cares about).
type EventListener struct {
	// CorruptionReported fires when the WAL reader drops a bad physical
	// record and resynchronizes (spec.md §4.3, §7). reason is a short
	// human-readable description; offset is the approximate byte offset
	// within the log where the corruption was detected.
	CorruptionReported func(offset int64, reason string)

	// FilterLoadFailed fires when sstable.Open cannot read or decode the
	// filter block it found in the meta-index (spec.md §4.4 step 3: this is
	// non-fatal, the table opens with no filter).
	FilterLoadFailed func(reason error)
}

func (e *EventListener) reportCorruption(offset int64, reason string) {
	if e != nil && e.CorruptionReported != nil {
		e.CorruptionReported(offset, reason)
	}
}

func (e *EventListener) reportFilterLoadFailed(reason error) {
	if e != nil && e.FilterLoadFailed != nil {
		e.FilterLoadFailed(reason)
	}
}

// ReportCorruption reports a WAL resync corruption through e, which may
// be nil (no-op).
func (e *EventListener) ReportCorruption(offset int64, reason string) {
	e.reportCorruption(offset, reason)
}

// ReportFilterLoadFailed reports a filter-block load failure through e,
// which may be nil (no-op).
func (e *EventListener) ReportFilterLoadFailed(reason error) {
	e.reportFilterLoadFailed(reason)
}
