package management

import (
	"context"
	"strings"

	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/backend"
)

func ownsLeave(snap session.Snapshot, lr backend.LeaveRequest) bool {
	return snap.Profile != nil && lr.Employee != nil && lr.Employee.DocumentID == snap.Profile.DocumentID
}

func isDecided(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved", "declined":
		return true
	}
	return false
}

// LeaveRequests lists leave requests. A linked-profile identity only gets
// the requests filed for its own employee record.
func (s *Service) LeaveRequests(ctx context.Context, snap session.Snapshot) ([]backend.LeaveRequest, error) {
	if err := identityKnown(snap); err != nil {
		return nil, err
	}
	all, err := s.leaveRequests(ctx, snap.Token)
	if err != nil || !isLinked(snap) {
		return all, err
	}
	own := all[:0]
	for _, lr := range all {
		if ownsLeave(snap, lr) {
			own = append(own, lr)
		}
	}
	return own, nil
}

// LeaveRequest returns one leave request.
func (s *Service) LeaveRequest(ctx context.Context, snap session.Snapshot, id string) (backend.LeaveRequest, error) {
	if err := identityKnown(snap); err != nil {
		return backend.LeaveRequest{}, err
	}
	lr, err := s.api.LeaveRequests.Get(ctx, snap.Token, id)
	if err != nil {
		return backend.LeaveRequest{}, err
	}
	if isLinked(snap) && !ownsLeave(snap, lr) {
		return backend.LeaveRequest{}, ErrRestricted
	}
	return lr, nil
}

// SaveLeaveRequest creates a leave request, or updates it when id is set.
// Linked-profile identities always file for themselves, always as Pending,
// and may only change requests that are still pending.
func (s *Service) SaveLeaveRequest(ctx context.Context, snap session.Snapshot, id string, in backend.LeaveRequestInput) (backend.LeaveRequest, error) {
	if err := identityKnown(snap); err != nil {
		return backend.LeaveRequest{}, err
	}
	linked := isLinked(snap)
	if linked {
		in.Employee = snap.Profile.DocumentID
		in.LeaveStatus = backend.LeavePending
	}
	if err := s.check(in); err != nil {
		return backend.LeaveRequest{}, err
	}
	if err := s.checkRange("endDate", in.StartDate, in.EndDate); err != nil {
		return backend.LeaveRequest{}, err
	}

	if id != "" && linked {
		if err := s.editableByProfile(ctx, snap, id); err != nil {
			return backend.LeaveRequest{}, err
		}
	}

	var (
		lr  backend.LeaveRequest
		err error
	)
	if id == "" {
		lr, err = s.api.LeaveRequests.Create(ctx, snap.Token, in)
	} else {
		lr, err = s.api.LeaveRequests.Update(ctx, snap.Token, id, in)
	}
	if err != nil {
		return backend.LeaveRequest{}, err
	}
	s.cache.invalidate(collLeave)
	return lr, nil
}

// DeleteLeaveRequest removes a leave request under the same ownership rules
// as SaveLeaveRequest.
func (s *Service) DeleteLeaveRequest(ctx context.Context, snap session.Snapshot, id string) error {
	if err := identityKnown(snap); err != nil {
		return err
	}
	if isLinked(snap) {
		if err := s.editableByProfile(ctx, snap, id); err != nil {
			return err
		}
	}
	if err := s.api.LeaveRequests.Delete(ctx, snap.Token, id); err != nil {
		return err
	}
	s.cache.invalidate(collLeave)
	return nil
}

func (s *Service) editableByProfile(ctx context.Context, snap session.Snapshot, id string) error {
	cur, err := s.LeaveRequest(ctx, snap, id)
	if err != nil {
		return err
	}
	if isDecided(cur.LeaveStatus) {
		return ErrDecided
	}
	return nil
}
