package dataprocessing

// Record is one person-month row of the income survey
type Record struct {
	SSUID     string  `json:"ssuid"`
	SHHADID   string  `json:"shhadid"`
	SPanel    int     `json:"spanel"`
	SWave     int     `json:"swave"`
	Year      int     `json:"year"`
	MonthCode int     `json:"monthcode"`
	Income    float64 `json:"thtotinc"`
}

// HouseholdKey identifies the household a record belongs to
func (r Record) HouseholdKey() string {
	return r.SSUID + "-" + r.SHHADID
}

// CleaningStatistics summarizes one cleaning pass
type CleaningStatistics struct {
	InputRecords       int `json:"input_records"`
	DroppedOtherPanels int `json:"dropped_other_panels"`
	DroppedDuplicates  int `json:"dropped_duplicates"`
	OutputRecords      int `json:"output_records"`
	Households         int `json:"households"`
}
