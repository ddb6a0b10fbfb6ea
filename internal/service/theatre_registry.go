package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/showtime-booking/internal/apperr"
	"github.com/iliyamo/showtime-booking/internal/logging"
	"github.com/iliyamo/showtime-booking/internal/model"
)

// TheatreInput is what a partner submits for a new theatre.
type TheatreInput struct {
	Name         string           `json:"name" validate:"required,max=120"`
	Address      string           `json:"address" validate:"required,max=255"`
	City         string           `json:"city" validate:"required,max=80"`
	State        string           `json:"state" validate:"max=80"`
	Country      string           `json:"country" validate:"max=80"`
	Pincode      string           `json:"pincode" validate:"max=16"`
	TotalScreens int              `json:"total_screens" validate:"required,min=1,max=64"`
	Facilities   model.Facilities `json:"facilities"`
	Phone        string           `json:"phone" validate:"required,max=32"`
	Email        string           `json:"email" validate:"required,email,max=120"`
}

// TheatrePatch holds the fields a partner may edit.  Nil fields are
// left alone.
type TheatrePatch struct {
	Name         *string           `json:"name"`
	Address      *string           `json:"address"`
	City         *string           `json:"city"`
	State        *string           `json:"state"`
	Country      *string           `json:"country"`
	Pincode      *string           `json:"pincode"`
	TotalScreens *int              `json:"total_screens"`
	Facilities   *model.Facilities `json:"facilities"`
	Phone        *string           `json:"phone"`
	Email        *string           `json:"email"`
}

// TheatreRegistry manages theatre submission and approval.  Only
// approved theatres can host shows.
type TheatreRegistry struct {
	store TheatreStore
	locks *keyedMutex
	now   func() time.Time
}

// NewTheatreRegistry builds a registry over store.  A nil clock means time.Now.
func NewTheatreRegistry(store TheatreStore, clock func() time.Time) *TheatreRegistry {
	if clock == nil {
		clock = time.Now
	}
	return &TheatreRegistry{store: store, locks: newKeyedMutex(), now: clock}
}

// Submit records a new theatre in status pending.
func (r *TheatreRegistry) Submit(ctx context.Context, ownerID string, in TheatreInput) (*model.Theatre, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperr.Validation("owner is required")
	}
	in = trimInput(in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	now := r.now().UTC()
	t := &model.Theatre{OwnerID: ownerID, Status: model.TheatrePending, CreatedAt: now, UpdatedAt: now}
	applyInput(t, in)
	if err := r.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create theatre: %w", err)
	}
	logging.FromContext(ctx).WithField("theatre_id", t.ID).Info("theatre submitted")
	return t, nil
}

// Get returns a theatre unless it is absent or logically deleted.
func (r *TheatreRegistry) Get(ctx context.Context, id uint64) (*model.Theatre, error) {
	t, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.DeletedAt != nil {
		return nil, apperr.NotFound("theatre")
	}
	return t, nil
}

// Approve moves a pending or rejected theatre to approved.
func (r *TheatreRegistry) Approve(ctx context.Context, id uint64, approverID string) (*model.Theatre, error) {
	return r.mutate(ctx, id, func(t *model.Theatre, now time.Time) error {
		if !t.Status.CanApprove() {
			return fmt.Errorf("%w: theatre is %s", apperr.ErrInvalidTransition, t.Status)
		}
		t.Status = model.TheatreApproved
		t.RejectionReason = ""
		t.ApprovedBy = approverID
		t.ApprovedAt = &now
		t.RejectedBy = ""
		t.RejectedAt = nil
		return nil
	})
}

// Reject moves a pending or approved theatre to rejected.  Rejecting an
// approved theatre revokes its approval; shows already scheduled stay.
func (r *TheatreRegistry) Reject(ctx context.Context, id uint64, reviewerID, reason string) (*model.Theatre, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}
	return r.mutate(ctx, id, func(t *model.Theatre, now time.Time) error {
		if !t.Status.CanReject() {
			return fmt.Errorf("%w: theatre is %s", apperr.ErrInvalidTransition, t.Status)
		}
		t.Status = model.TheatreRejected
		t.RejectionReason = reason
		t.RejectedBy = reviewerID
		t.RejectedAt = &now
		t.ApprovedBy = ""
		t.ApprovedAt = nil
		return nil
	})
}

// Edit applies p on behalf of ownerID.  An approved theatre goes back to
// pending and must be reviewed again.
func (r *TheatreRegistry) Edit(ctx context.Context, id uint64, ownerID string, p TheatrePatch) (*model.Theatre, error) {
	return r.mutate(ctx, id, func(t *model.Theatre, _ time.Time) error {
		if t.OwnerID != ownerID {
			return apperr.ErrForbidden
		}
		in := inputOf(t)
		applyPatch(&in, p)
		in = trimInput(in)
		if err := validateStruct(in); err != nil {
			return err
		}
		applyInput(t, in)
		if t.Status == model.TheatreApproved {
			t.Status = model.TheatrePending
			t.ApprovedBy = ""
			t.ApprovedAt = nil
		}
		return nil
	})
}

// Delete logically deletes a theatre owned by ownerID.
func (r *TheatreRegistry) Delete(ctx context.Context, id uint64, ownerID string) error {
	_, err := r.mutate(ctx, id, func(t *model.Theatre, now time.Time) error {
		if t.OwnerID != ownerID {
			return apperr.ErrForbidden
		}
		t.DeletedAt = &now
		return nil
	})
	return err
}

// ListApproved returns the theatres customers can browse.
func (r *TheatreRegistry) ListApproved(ctx context.Context) ([]model.Theatre, error) {
	return r.store.List(ctx, TheatreFilter{Status: model.TheatreApproved})
}

// ListByStatus returns theatres in status; an empty status lists all.
func (r *TheatreRegistry) ListByStatus(ctx context.Context, status model.TheatreStatus) ([]model.Theatre, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("unknown theatre status %q", status)
	}
	return r.store.List(ctx, TheatreFilter{Status: status})
}

// ListByOwner returns a partner's theatres in any status.
func (r *TheatreRegistry) ListByOwner(ctx context.Context, ownerID string) ([]model.Theatre, error) {
	return r.store.List(ctx, TheatreFilter{OwnerID: ownerID})
}

// mutate runs fn on a fresh copy of the theatre under its lock and
// writes it back.  A write that loses to another process is retried
// once on fresh state.
func (r *TheatreRegistry) mutate(ctx context.Context, id uint64, fn func(*model.Theatre, time.Time) error) (*model.Theatre, error) {
	unlock := r.locks.Lock(fmt.Sprintf("theatre:%d", id))
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		t, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		now := r.now().UTC()
		if err := fn(t, now); err != nil {
			return nil, err
		}
		t.UpdatedAt = now
		lastErr = r.store.Update(ctx, t)
		if lastErr == nil {
			return t, nil
		}
		if !errors.Is(lastErr, apperr.ErrStaleWrite) {
			return nil, fmt.Errorf("update theatre: %w", lastErr)
		}
	}
	return nil, lastErr
}

func inputOf(t *model.Theatre) TheatreInput {
	return TheatreInput{
		Name:         t.Name,
		Address:      t.Location.Address,
		City:         t.Location.City,
		State:        t.Location.State,
		Country:      t.Location.Country,
		Pincode:      t.Location.Pincode,
		TotalScreens: t.TotalScreens,
		Facilities:   t.Facilities,
		Phone:        t.Contact.Phone,
		Email:        t.Contact.Email,
	}
}

func applyInput(t *model.Theatre, in TheatreInput) {
	t.Name = in.Name
	t.Location = model.Location{Address: in.Address, City: in.City, State: in.State, Country: in.Country, Pincode: in.Pincode}
	t.TotalScreens = in.TotalScreens
	t.Facilities = in.Facilities
	t.Contact = model.Contact{Phone: in.Phone, Email: in.Email}
}

func applyPatch(in *TheatreInput, p TheatrePatch) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&in.Name, p.Name)
	setStr(&in.Address, p.Address)
	setStr(&in.City, p.City)
	setStr(&in.State, p.State)
	setStr(&in.Country, p.Country)
	setStr(&in.Pincode, p.Pincode)
	setStr(&in.Phone, p.Phone)
	setStr(&in.Email, p.Email)
	if p.TotalScreens != nil {
		in.TotalScreens = *p.TotalScreens
	}
	if p.Facilities != nil {
		in.Facilities = *p.Facilities
	}
}

func trimInput(in TheatreInput) TheatreInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.Country = strings.TrimSpace(in.Country)
	in.Pincode = strings.TrimSpace(in.Pincode)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	return in
}
