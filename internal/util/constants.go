package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	DefaultPointsPerCorrect = 10
	DefaultMasteryThreshold = 3
	XPPerLevel              = 1000

	DefaultLeaderboardLimit = 100
	MaxLeaderboardLimit     = 500
)
