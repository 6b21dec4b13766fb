package layout

import "strings"

// Config holds page geometry and typography for rendered reports. Lengths are in Unit.
type Config struct {
	Orientation string
	Unit        string
	PageSize    string
	FontFamily  string

	MarginLeft  float64
	MarginTop   float64
	MarginRight float64
	BreakMargin float64

	// Spacing separates photos of the same row.
	Spacing float64
	// LabelGap separates the tallest photo of a row from its labels.
	LabelGap        float64
	LabelLineHeight float64
	LabelFontSize   float64
	// BlockPadding is added below the lowest label before the next item.
	BlockPadding float64
	// EmptyItemSpacing is the advance after an item without photos.
	EmptyItemSpacing float64
	// PlaceholderAspect is height/width of the box drawn for an undecodable photo.
	PlaceholderAspect float64

	Labels Labels
}

// DefaultConfig is A4 portrait in millimetres with 10 mm side margins,
// giving a usable width of 190 mm.
func DefaultConfig() Config {
	return Config{
		Orientation:       "P",
		Unit:              "mm",
		PageSize:          "A4",
		FontFamily:        "Helvetica",
		MarginLeft:        10,
		MarginTop:         10,
		MarginRight:       10,
		BreakMargin:       15,
		Spacing:           5,
		LabelGap:          1,
		LabelLineHeight:   5,
		LabelFontSize:     9,
		BlockPadding:      4,
		EmptyItemSpacing:  3,
		PlaceholderAspect: 0.75,
		Labels:            EnglishLabels,
	}
}

// Labels are the fixed captions written around user content.
type Labels struct {
	Title            string
	Site             string
	Date             string
	InitialNotes     string
	Item             string
	Comment          string
	ClosingNotes     string
	Page             string
	ImageUnavailable string
	DepthUnit        string
}

var EnglishLabels = Labels{
	Title:            "Inspection report",
	Site:             "Site",
	Date:             "Date",
	InitialNotes:     "Initial notes",
	Item:             "Item",
	Comment:          "Comment",
	ClosingNotes:     "Closing notes",
	Page:             "Page",
	ImageUnavailable: "image unavailable",
	DepthUnit:        "m",
}

var SpanishLabels = Labels{
	Title:            "Informe",
	Site:             "Pozo",
	Date:             "Fecha",
	InitialNotes:     "Obs. iniciales",
	Item:             "Ítem",
	Comment:          "Comentario",
	ClosingNotes:     "Obs. finales",
	Page:             "Página",
	ImageUnavailable: "imagen no disponible",
	DepthUnit:        "m",
}

// LabelsFor picks a caption set by language code, defaulting to English.
func LabelsFor(lang string) Labels {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "es", "es-ar", "es-es", "spanish":
		return SpanishLabels
	default:
		return EnglishLabels
	}
}
