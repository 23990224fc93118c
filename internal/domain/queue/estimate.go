package queue

// DefaultAverageConsultMinutes is used when neither the doctor nor the
// clinic configures an average consultation duration.
const DefaultAverageConsultMinutes = 15

// EstimateWait returns the estimated wait in minutes for an entry with
// waitingAhead waiting entries strictly ahead of it. The in-progress
// consultation's remaining time is not modelled; only the waiting-ahead
// count feeds the estimate.
func EstimateWait(waitingAhead, averageConsultMinutes int) int {
	if averageConsultMinutes <= 0 {
		averageConsultMinutes = DefaultAverageConsultMinutes
	}
	wait := waitingAhead * averageConsultMinutes
	if wait < 0 {
		return 0
	}
	return wait
}
