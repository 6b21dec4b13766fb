package entity

import "strings"

// ReportHeader is the general information captured in the first wizard step.
type ReportHeader struct {
	SiteID       string `json:"site_id"`
	Date         string `json:"date"`
	InitialNotes string `json:"initial_notes,omitempty"`
}

// InspectionItem is one inspected element of a site.
type InspectionItem struct {
	Type    string  `json:"type"`
	Depth   string  `json:"depth"`
	Status  string  `json:"status"`
	Comment string  `json:"comment,omitempty"`
	Photos  []Photo `json:"photos"`
}

// Photo is a labelled image owned by a single item.
type Photo struct {
	Data  []byte `json:"data"`
	Label string `json:"label"`
}

// Report is the finished record handed to the layout engine.
type Report struct {
	Header       ReportHeader     `json:"header"`
	Items        []InspectionItem `json:"items"`
	ClosingNotes string           `json:"closing_notes,omitempty"`
}

// HasText reports whether an optional text field carries content.
func HasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// PhotoCount returns the total number of photos across all items.
func (r *Report) PhotoCount() int {
	n := 0
	for _, it := range r.Items {
		n += len(it.Photos)
	}
	return n
}

// Clone returns a deep copy so callers can hand the report to the engine
// while the session keeps mutating its own state.
func (r *Report) Clone() *Report {
	out := &Report{Header: r.Header, ClosingNotes: r.ClosingNotes}
	out.Items = make([]InspectionItem, len(r.Items))
	for i, it := range r.Items {
		out.Items[i] = it.Clone()
	}
	return out
}

// Clone returns a deep copy of the item including photo bytes.
func (it InspectionItem) Clone() InspectionItem {
	cp := it
	cp.Photos = make([]Photo, len(it.Photos))
	for j, p := range it.Photos {
		cp.Photos[j] = Photo{Label: p.Label, Data: append([]byte(nil), p.Data...)}
	}
	return cp
}
