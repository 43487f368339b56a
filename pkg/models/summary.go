package models

// Summary counts the acquisition outcomes of one collection run.
type Summary struct {
	Attempted  int `json:"attempted"`
	Downloaded int `json:"downloaded"`
	Failed     int `json:"failed"`
}

// Record adds one acquisition outcome.
func (s *Summary) Record(r FetchResult) {
	s.Attempted++
	if r.OK() {
		s.Downloaded++
	} else {
		s.Failed++
	}
}
