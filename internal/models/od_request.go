package models

import (
	"strings"
	"time"
)

// ODStatus is the review state of an on-duty request.
type ODStatus string

const (
	ODStatusPending  ODStatus = "pending"
	ODStatusApproved ODStatus = "approved"
	ODStatusRejected ODStatus = "rejected"
)

// ODStatuses lists every status an OD request may hold.
var ODStatuses = []ODStatus{ODStatusPending, ODStatusApproved, ODStatusRejected}

// JoinODStatuses renders ODStatuses in order, separated by sep.
func JoinODStatuses(sep string) string {
	names := make([]string, 0, len(ODStatuses))
	for _, status := range ODStatuses {
		names = append(names, status.String())
	}
	return strings.Join(names, sep)
}

// ParseODStatus normalises raw input into a known status.
func ParseODStatus(raw string) (ODStatus, bool) {
	status := ODStatus(strings.ToLower(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// Valid reports whether the status belongs to the fixed status set.
func (s ODStatus) Valid() bool {
	switch s {
	case ODStatusPending, ODStatusApproved, ODStatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed.
func (s ODStatus) Terminal() bool {
	return s == ODStatusApproved || s == ODStatusRejected
}

// CanTransitionTo reports whether a reviewer may move a request from s to next.
func (s ODStatus) CanTransitionTo(next ODStatus) bool {
	return s == ODStatusPending && next.Terminal()
}

func (s ODStatus) String() string {
	return string(s)
}

// ODRequest is a student's on-duty application. ID is assigned by the store.
type ODRequest struct {
	ID           string
	StudentEmail string
	Name         string
	DeptName     string
	RollNo       string
	Section      string
	Reason       string
	Venue        string
	Description  string
	Status       ODStatus
	AppliedAt    time.Time
}
