package seqdecode

// Hypotheses reconstructs the symbol sequence of every
// final lane from a decode's beam search status, by
// walking the parent beam indices backwards through time.
//
// Each resulting sequence is truncated to the lane's
// recorded length.
func Hypotheses(status []*SearchStep) [][]int {
	if len(status) == 0 {
		return nil
	}
	last := status[len(status)-1]
	res := make([][]int, len(last.PredictedIDs))
	for lane := range res {
		seq := make([]int, len(status))
		idx := lane
		for t := len(status) - 1; t >= 0; t-- {
			seq[t] = status[t].PredictedIDs[idx]
			idx = status[t].BeamIDs[idx]
		}
		length := last.Lengths[lane]
		if length > len(seq) {
			length = len(seq)
		}
		res[lane] = seq[:length]
	}
	return res
}
