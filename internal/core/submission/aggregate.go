package submission

import "time"

// AggregateStatus recomputes the submission status from its file statuses.
// Rules:
// - Every file converted -> READY_FOR_FES
// - At least one failed and every file terminal -> REJECTED_BY_DOCUMENT_CONVERTER
// - Otherwise the current status is kept
func AggregateStatus(current Status, files []FileStatus) Status {
	if len(files) == 0 {
		return current
	}

	converted, failed := 0, 0
	for _, f := range files {
		switch f {
		case FileStatusConverted:
			converted++
		case FileStatusFailed:
			failed++
		}
	}

	switch {
	case converted == len(files):
		return StatusReadyForFes
	case failed > 0 && converted+failed == len(files):
		return StatusRejectedByDocumentConverter
	}
	return current
}

// AllDispatched reports whether no file is still waiting to be sent for conversion.
func AllDispatched(files []FileStatus) bool {
	for _, f := range files {
		if f == FileStatusPending {
			return false
		}
	}
	return true
}

// IsDelayed reports whether a submission last modified at lastModified has
// waited at least threshold. The boundary is inclusive.
func IsDelayed(now, lastModified time.Time, threshold time.Duration) bool {
	return now.Sub(lastModified) >= threshold
}

// DelayedCutoff returns the newest last-modified instant still counted as delayed.
func DelayedCutoff(now time.Time, threshold time.Duration) time.Time {
	return now.Add(-threshold)
}
