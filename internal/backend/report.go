package backend

// ReportResponse is the /report payload as sent. Optional members are
// pointers so absence survives decoding.
type ReportResponse struct {
	Layer         string         `json:"layer"`
	EntitiesCount int            `json:"entities_count"`
	CombinedCSV   *string        `json:"combined_csv,omitempty"`
	CombinedHTML  *string        `json:"combined_html,omitempty"`
	CombinedXLSX  *string        `json:"combined_xlsx,omitempty"`
	CombinedDOCX  *string        `json:"combined_docx,omitempty"`
	Reports       []ReportRecord `json:"reports"`
}

type ReportRecord struct {
	Group      string   `json:"group"`
	GroupLabel *string  `json:"group_label,omitempty"`
	Total      *float64 `json:"total,omitempty"`
	RowsCount  int      `json:"rows_count"`
	CSVPath    *string  `json:"csv_path,omitempty"`
}
