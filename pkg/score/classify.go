package score

// Label is the severity classification of a scored item
type Label string

// Labels ordered by severity, RED most severe
const (
	LabelRed   Label = "RED"
	LabelWatch Label = "WATCH"
	LabelGreen Label = "GREEN"
)

// Rank returns the sort rank of the label, lower is more severe.
// Unknown labels sort after GREEN.
func (l Label) Rank() int {
	switch l {
	case LabelRed:
		return 0
	case LabelWatch:
		return 1
	case LabelGreen:
		return 2
	}
	return 3
}

// Classify maps a score to a label using the two thresholds. The function is
// total and does not check that red >= watch, config validation owns that.
func Classify(scoreVal, watchThreshold, redThreshold int) Label {
	if scoreVal >= redThreshold {
		return LabelRed
	}
	if scoreVal >= watchThreshold {
		return LabelWatch
	}
	return LabelGreen
}
