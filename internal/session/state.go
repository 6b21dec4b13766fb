// Package session holds the in-progress wizard state of each client between requests.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/joseph-ayodele/inspection-reports/constants"
	"github.com/joseph-ayodele/inspection-reports/internal/common"
	"github.com/joseph-ayodele/inspection-reports/internal/entity"
)

// State is one client's accumulated report.
type State struct {
	ID        string                  `json:"id"`
	Header    *entity.ReportHeader    `json:"header,omitempty"`
	Items     []entity.InspectionItem `json:"items"`
	Step      constants.WizardStep    `json:"step"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Store persists states between requests.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, st *State) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Start begins a new report: the header is replaced and previous items dropped.
func (s *State) Start(h entity.ReportHeader) {
	s.Header = &h
	s.Items = nil
	s.Step = constants.StepGeneral
}

// AddItem appends an item without photos.
func (s *State) AddItem(it entity.InspectionItem) {
	it.Photos = nil
	s.Items = append(s.Items, it)
	s.Step = constants.StepItems
}

// SetPhotos replaces the photos of every item at once; photos[i] belongs to item i.
func (s *State) SetPhotos(photos [][]entity.Photo) error {
	if len(photos) != len(s.Items) {
		return fmt.Errorf("%w: got photos for %d items, have %d", common.ErrInvalidInput, len(photos), len(s.Items))
	}
	for i, ps := range photos {
		if len(ps) > constants.MaxPhotosPerItem {
			return fmt.Errorf("%w: item %d has %d photos", common.ErrInvalidInput, i+1, len(ps))
		}
	}
	for i := range s.Items {
		s.Items[i].Photos = photos[i]
	}
	s.Step = constants.StepPhotos
	return nil
}

// Report builds a fresh report value that shares nothing with the state.
func (s *State) Report(closingNotes string) *entity.Report {
	r := &entity.Report{Items: s.Items, ClosingNotes: closingNotes}
	if s.Header != nil {
		r.Header = *s.Header
	}
	return r.Clone()
}
