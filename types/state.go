package types

// State is pushed to every UI client whenever something changes.
type State struct {
	IsActive                    bool   `json:"isActive"`
	ActionCount                 int    `json:"actionCount"`
	RunningTimeFormatted        string `json:"runningTimeFormatted"`
	NextActionFormatted         string `json:"nextActionFormatted"`
	Interval                    int    `json:"interval"`
	PixelDistance               int    `json:"pixelDistance"`
	KeyButton                   string `json:"keyButton"`
	TotalSessions               int    `json:"totalSessions"`
	TotalTimeFormatted          string `json:"totalTimeFormatted"`
	TotalActions                int    `json:"totalActions"`
	AvgSessionDurationFormatted string `json:"avgSessionDurationFormatted"`
}
