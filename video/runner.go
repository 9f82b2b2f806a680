package video

// RowRunner executes per-row pixel work. Implementations call fn with disjoint
// half-open bands [y0, y1) that together cover every row exactly once, and
// return only after every band has completed.
//
// Every output pixel in this package is computed independently from its inputs,
// so the split never changes the result.
type RowRunner interface {
	RunRows(rows int, fn func(y0, y1 int))
}

// SerialRunner runs all rows as one band on the calling goroutine.
type SerialRunner struct{}

// RunRows implements RowRunner.
func (SerialRunner) RunRows(rows int, fn func(y0, y1 int)) {
	if rows > 0 {
		fn(0, rows)
	}
}

func runnerOrSerial(r RowRunner) RowRunner {
	if r == nil {
		return SerialRunner{}
	}
	return r
}
