package constants

// WizardStep is the furthest step a session has completed.
type WizardStep int

const (
	StepGeneral WizardStep = 1 // site, date, initial notes
	StepItems   WizardStep = 2 // items recorded one at a time
	StepPhotos  WizardStep = 3 // photos attached in bulk
	StepExport  WizardStep = 4 // closing notes and export
)
