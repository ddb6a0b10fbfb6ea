package model

import "time"

// TheatreStatus is the approval state of a theatre.  Only approved
// theatres may have shows scheduled against them.
type TheatreStatus string

const (
    TheatrePending  TheatreStatus = "pending"
    TheatreApproved TheatreStatus = "approved"
    TheatreRejected TheatreStatus = "rejected"
)

// Valid reports whether s is one of the known theatre statuses.
func (s TheatreStatus) Valid() bool {
    switch s {
    case TheatrePending, TheatreApproved, TheatreRejected:
        return true
    }
    return false
}

// CanApprove reports whether a theatre in status s may be approved.
func (s TheatreStatus) CanApprove() bool {
    switch s {
    case TheatrePending, TheatreRejected:
        return true
    case TheatreApproved:
        return false
    }
    return false
}

// CanReject reports whether a theatre in status s may be rejected.  An
// approved theatre can be rejected to revoke its approval.
func (s TheatreStatus) CanReject() bool {
    switch s {
    case TheatrePending, TheatreApproved:
        return true
    case TheatreRejected:
        return false
    }
    return false
}

// Location is the postal address of a theatre.
type Location struct {
    Address string `json:"address"`
    City    string `json:"city"`
    State   string `json:"state,omitempty"`
    Country string `json:"country,omitempty"`
    Pincode string `json:"pincode,omitempty"`
}

// Facilities lists optional amenities offered by a theatre.
type Facilities struct {
    Parking          bool `json:"parking"`
    FoodCourt        bool `json:"food_court"`
    WheelchairAccess bool `json:"wheelchair_access"`
    ThreeDScreen     bool `json:"three_d_screen"`
    ReclinerSeats    bool `json:"recliner_seats"`
}

// Contact holds the public contact details of a theatre.
type Contact struct {
    Phone string `json:"phone"`
    Email string `json:"email"`
}

// Theatre represents a partner venue.  It corresponds to a row in the
// `theatres` table.  Theatres are never physically deleted; DeletedAt
// marks a logical delete.
//
// Fields:
//  OwnerID         – identity of the partner who submitted the theatre.
//  TotalScreens    – number of screens; shows must use 1..TotalScreens.
//  Status          – approval state (pending, approved, rejected).
//  RejectionReason – set when Status is rejected.
//  ApprovedBy      – reviewer who approved the theatre; cleared on reject.
//  ApprovedAt      – time of that approval.
//  RejectedBy      – reviewer who rejected or revoked it; cleared on approve.
//  RejectedAt      – time of that rejection.
//  Version         – optimistic concurrency counter.
type Theatre struct {
    ID              uint64        `json:"id"`
    OwnerID         string        `json:"owner_id"`
    Name            string        `json:"name"`
    Location        Location      `json:"location"`
    TotalScreens    int           `json:"total_screens"`
    Facilities      Facilities    `json:"facilities"`
    Contact         Contact       `json:"contact"`
    Status          TheatreStatus `json:"status"`
    RejectionReason string        `json:"rejection_reason,omitempty"`
    ApprovedBy      string        `json:"approved_by,omitempty"`
    ApprovedAt      *time.Time    `json:"approved_at,omitempty"`
    RejectedBy      string        `json:"rejected_by,omitempty"`
    RejectedAt      *time.Time    `json:"rejected_at,omitempty"`
    DeletedAt       *time.Time    `json:"-"`
    Version         uint32        `json:"-"`
    CreatedAt       time.Time     `json:"created_at"`
    UpdatedAt       time.Time     `json:"updated_at"`
}

// Schedulable reports whether shows may be placed in this theatre.
func (t *Theatre) Schedulable() bool {
    return t.DeletedAt == nil && t.Status == TheatreApproved
}
