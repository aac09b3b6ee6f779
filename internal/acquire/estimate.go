package acquire

import (
	"strconv"

	"github.com/Themolx/Privateer/internal/config"
	"github.com/Themolx/Privateer/internal/model"
)

// queueSizeEstimator approximates how many bytes the whole queue represents
// so the dashboard can show overall progress and an ETA. Per job it prefers
// the measured size, then the declared size from the wanted list or a
// resolution, then the kind's ideal target as a last-resort guess.
type queueSizeEstimator struct {
	bytesByJobID map[string]int64
	totalBytes   int64
}

func newQueueSizeEstimator(q *model.Queue, kinds config.KindPolicies) queueSizeEstimator {
	byID := make(map[string]int64, len(q.Jobs))
	var total int64
	for i := range q.Jobs {
		job := &q.Jobs[i]
		size := job.SizeBytes
		if size <= 0 {
			size = job.DeclaredSizeBytes
		}
		if size <= 0 {
			size = kinds.For(job.Kind).TargetIdeal.Int64()
		}
		if size <= 0 {
			continue
		}
		byID[job.ID] = size
		total += size
	}
	if total <= 0 {
		return queueSizeEstimator{}
	}
	return queueSizeEstimator{bytesByJobID: byID, totalBytes: total}
}

func (e queueSizeEstimator) hasEstimate() bool {
	return e.totalBytes > 0
}

func (e queueSizeEstimator) completedBytes(jobs []model.Job) int64 {
	if e.totalBytes <= 0 {
		return 0
	}
	var done int64
	for i := range jobs {
		if jobs[i].Status != model.StatusCompleted {
			continue
		}
		done += e.bytesByJobID[jobs[i].ID]
	}
	if done < 0 {
		return 0
	}
	if done > e.totalBytes {
		return e.totalBytes
	}
	return done
}

func formatBytesIEC(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for q := n / unit; q >= unit; q /= unit {
		div *= unit
		exp++
	}
	value := float64(n) / float64(div)
	suffix := "KMGTPE"[exp]
	return strconv.FormatFloat(value, 'f', 1, 64) + " " + string(suffix) + "iB"
}
