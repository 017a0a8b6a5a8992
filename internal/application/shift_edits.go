package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/scheduler"
	"github.com/example/shift-roster/internal/stage"
)

// stageForEdit returns the stored stage, or a fresh branch of live (or an
// empty week) when no stage has been written yet.
func (s *RosterService) stageForEdit(ctx context.Context, key persistence.Key) (persistence.Document, error) {
	if err := validateKey(key); err != nil {
		return persistence.Document{}, err
	}
	current, err := s.load(ctx, persistence.KindStage, key)
	if err != nil {
		return persistence.Document{}, err
	}
	if current != nil {
		return *current, nil
	}
	live, err := s.load(ctx, persistence.KindLive, key)
	if err != nil {
		return persistence.Document{}, err
	}
	if live != nil {
		return stage.CloneFromLive(*live), nil
	}
	return stage.Empty(key), nil
}

func shiftIndex(shifts []roster.Shift, id string) int {
	for i, sh := range shifts {
		if sh.ID == id {
			return i
		}
	}
	return -1
}

func normalizeEditedShift(shift roster.Shift) (roster.Shift, error) {
	normalized, err := roster.NormalizeShiftEndDay(shift)
	if err == nil {
		return normalized, nil
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		prefixed := &ValidationError{}
		prefixed.Merge("shift.", vErr)
		return roster.Shift{}, prefixed
	}
	return roster.Shift{}, err
}

func (s *RosterService) commitEdit(ctx context.Context, doc persistence.Document, expected string, touched []roster.Shift, conflicts []scheduler.Conflict) (EditResult, error) {
	written, err := s.writeStage(ctx, doc, persistence.WriteCondition{ExpectedUpdatedAt: expected})
	if err != nil {
		return EditResult{}, err
	}
	if conflicts == nil {
		conflicts = []scheduler.Conflict{}
	}
	return EditResult{WriteResult: written, Shifts: touched, Conflicts: conflicts}, nil
}

func (s *RosterService) blocked(touched []roster.Shift, conflicts []scheduler.Conflict) EditResult {
	s.metrics.IncOverlapRejects()
	return EditResult{
		WriteResult: WriteResult{Warnings: []Warning{}},
		Shifts:      touched,
		Conflicts:   conflicts,
		Blocked:     true,
	}
}

func logEdit(ctx context.Context, logger *slog.Logger, result EditResult, err error) {
	switch {
	case err != nil:
		logger.ErrorContext(ctx, "failed to edit stage", "error", err, "error_kind", ErrorKind(err))
	case result.Blocked:
		logger.InfoContext(ctx, "stage edit blocked by overlap", "conflicts", len(result.Conflicts))
	case result.Conflict:
		logger.WarnContext(ctx, "stage edit rejected by stale token")
	default:
		logger.InfoContext(ctx, "stage edited", "updated_at", result.UpdatedAt)
	}
}

// AddShift appends a shift to the stage. A missing id is generated.
func (s *RosterService) AddShift(ctx context.Context, edit ShiftEdit) (result EditResult, err error) {
	if err := s.ready(); err != nil {
		return EditResult{}, err
	}
	logger := s.loggerWith(ctx, "AddShift", "week", edit.Key.String())
	defer func() { logEdit(ctx, logger, result, err) }()

	doc, err := s.stageForEdit(ctx, edit.Key)
	if err != nil {
		return EditResult{}, err
	}
	shift := edit.Shift
	if shift.ID == "" {
		shift.ID = s.idGenerator()
	}
	if shiftIndex(doc.Shifts, shift.ID) >= 0 {
		return EditResult{}, invalid("shift.id", fmt.Sprintf("shift %q already exists", shift.ID))
	}
	shift, err = normalizeEditedShift(shift)
	if err != nil {
		return EditResult{}, err
	}

	touched := []roster.Shift{shift}
	conflicts := scheduler.Conflicts(shift, doc.Shifts)
	if len(conflicts) > 0 && !edit.AllowOverlap {
		return s.blocked(touched, conflicts), nil
	}
	doc.Shifts = append(doc.Shifts, shift)
	return s.commitEdit(ctx, doc, edit.ExpectedUpdatedAt, touched, conflicts)
}

// UpdateShift replaces the stage shift carrying edit.Shift.ID.
func (s *RosterService) UpdateShift(ctx context.Context, edit ShiftEdit) (result EditResult, err error) {
	if err := s.ready(); err != nil {
		return EditResult{}, err
	}
	logger := s.loggerWith(ctx, "UpdateShift", "week", edit.Key.String(), "shift_id", edit.Shift.ID)
	defer func() { logEdit(ctx, logger, result, err) }()

	if edit.Shift.ID == "" {
		return EditResult{}, invalid("shift.id", "shift id is required")
	}
	doc, err := s.stageForEdit(ctx, edit.Key)
	if err != nil {
		return EditResult{}, err
	}
	idx := shiftIndex(doc.Shifts, edit.Shift.ID)
	if idx < 0 {
		return EditResult{}, fmt.Errorf("%w: shift %s", ErrNotFound, edit.Shift.ID)
	}
	shift, err := normalizeEditedShift(edit.Shift)
	if err != nil {
		return EditResult{}, err
	}

	touched := []roster.Shift{shift}
	conflicts := scheduler.Conflicts(shift, doc.Shifts)
	if len(conflicts) > 0 && !edit.AllowOverlap {
		return s.blocked(touched, conflicts), nil
	}
	doc.Shifts[idx] = shift
	return s.commitEdit(ctx, doc, edit.ExpectedUpdatedAt, touched, conflicts)
}

// MoveShift drags the listed shifts together by move.DeltaMin minutes around
// the circular week. The result carries the drag bounds measured before the
// move.
func (s *RosterService) MoveShift(ctx context.Context, move ShiftMove) (result EditResult, err error) {
	if err := s.ready(); err != nil {
		return EditResult{}, err
	}
	logger := s.loggerWith(ctx, "MoveShift", "week", move.Key.String(), "shift_ids", move.ShiftIDs, "delta_min", move.DeltaMin)
	defer func() { logEdit(ctx, logger, result, err) }()

	if len(move.ShiftIDs) == 0 {
		return EditResult{}, invalid("shiftIds", "at least one shift id is required")
	}
	doc, err := s.stageForEdit(ctx, move.Key)
	if err != nil {
		return EditResult{}, err
	}

	indexes := make([]int, 0, len(move.ShiftIDs))
	moving := make([]roster.Shift, 0, len(move.ShiftIDs))
	movingIDs := make(map[string]bool, len(move.ShiftIDs))
	for _, id := range move.ShiftIDs {
		if movingIDs[id] {
			continue
		}
		idx := shiftIndex(doc.Shifts, id)
		if idx < 0 {
			return EditResult{}, fmt.Errorf("%w: shift %s", ErrNotFound, id)
		}
		movingIDs[id] = true
		indexes = append(indexes, idx)
		moving = append(moving, doc.Shifts[idx])
	}
	bounds := scheduler.DragBounds(moving, doc.Shifts)

	stationary := make([]roster.Shift, 0, len(doc.Shifts))
	for _, sh := range doc.Shifts {
		if !movingIDs[sh.ID] {
			stationary = append(stationary, sh)
		}
	}

	moved := make([]roster.Shift, 0, len(moving))
	conflicts := make([]scheduler.Conflict, 0)
	for _, sh := range moving {
		next, err := scheduler.ApplyDelta(sh, move.DeltaMin)
		if err != nil {
			return EditResult{}, err
		}
		moved = append(moved, next)
		conflicts = append(conflicts, scheduler.Conflicts(next, stationary)...)
	}
	if len(conflicts) > 0 && !move.AllowOverlap {
		res := s.blocked(moved, conflicts)
		res.Bounds = &bounds
		return res, nil
	}
	for i, idx := range indexes {
		doc.Shifts[idx] = moved[i]
	}
	res, err := s.commitEdit(ctx, doc, move.ExpectedUpdatedAt, moved, conflicts)
	if err != nil {
		return EditResult{}, err
	}
	res.Bounds = &bounds
	return res, nil
}

// DeleteShift removes a shift from the stage.
func (s *RosterService) DeleteShift(ctx context.Context, del ShiftDelete) (result EditResult, err error) {
	if err := s.ready(); err != nil {
		return EditResult{}, err
	}
	logger := s.loggerWith(ctx, "DeleteShift", "week", del.Key.String(), "shift_id", del.ShiftID)
	defer func() { logEdit(ctx, logger, result, err) }()

	doc, err := s.stageForEdit(ctx, del.Key)
	if err != nil {
		return EditResult{}, err
	}
	idx := shiftIndex(doc.Shifts, del.ShiftID)
	if idx < 0 {
		return EditResult{}, fmt.Errorf("%w: shift %s", ErrNotFound, del.ShiftID)
	}
	removed := doc.Shifts[idx]
	doc.Shifts = append(doc.Shifts[:idx:idx], doc.Shifts[idx+1:]...)
	return s.commitEdit(ctx, doc, del.ExpectedUpdatedAt, []roster.Shift{removed}, nil)
}
