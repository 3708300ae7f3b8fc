package services

import (
	"context"
	"database/sql"
	"errors"

	"tabletennis/internal/db"
	"tabletennis/internal/models"
	"tabletennis/internal/store"

	"github.com/jmoiron/sqlx"
)

const (
	MaxCoachesPerStudent = 2
	MaxStudentsPerCoach  = 20
)

type PairingStore interface {
	Get(ctx context.Context, q store.Getter, coachID, studentID string) (models.Pairing, error)
	CountApprovedForStudent(ctx context.Context, q store.Getter, studentID string) (int, error)
	CountApprovedForCoach(ctx context.Context, q store.Getter, coachID string) (int, error)
	Request(ctx context.Context, tx store.Execer, coachID, studentID string) (int64, error)
	Decide(ctx context.Context, tx store.Execer, coachID, studentID, status string) (int64, error)
	ListPending(ctx context.Context, coachID string) ([]models.Pairing, error)
}

type PairingService struct {
	txRunner db.TxRunner
	store    PairingStore
	effects  Effects
}

func NewPairingService(txRunner db.TxRunner, pairings PairingStore, effects Effects) *PairingService {
	return &PairingService{txRunner: txRunner, store: pairings, effects: effects}
}

// Select asks coachID to take studentID on. A previously rejected request
// is reset to pending; an approved pairing is left as is.
func (s *PairingService) Select(ctx context.Context, actor Actor, coachID, studentID string) error {
	if coachID == "" || studentID == "" {
		return ErrMissingField
	}
	if actor.ID != studentID && !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.checkCaps(ctx, tx, coachID, studentID); err != nil {
			return err
		}
		rows, err := s.store.Request(ctx, tx, coachID, studentID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidState
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.effects.notify(ctx, coachID, "New student request", "A student asked you to be their coach. Student ID: "+studentID)
	s.effects.audit(ctx, actor.ID, "pairing_request", "coach_student", coachID+"/"+studentID, nil)
	return nil
}

// Decide approves or rejects a pending request. Caps are checked again on
// approval since other requests may have been approved in the meantime.
func (s *PairingService) Decide(ctx context.Context, actor Actor, coachID, studentID string, approve bool) error {
	if coachID == "" || studentID == "" {
		return ErrMissingField
	}
	if actor.ID != coachID && !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	status := models.PairingRejected
	if approve {
		status = models.PairingApproved
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.store.Get(ctx, tx, coachID, studentID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPairingNotFound
		}
		if err != nil {
			return err
		}
		if current.Status != models.PairingPending {
			return ErrInvalidState
		}
		if approve {
			if err := s.checkCaps(ctx, tx, coachID, studentID); err != nil {
				return err
			}
		}
		rows, err := s.store.Decide(ctx, tx, coachID, studentID, status)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidState
		}
		return nil
	})
	if err != nil {
		return err
	}
	title, content := "Coach request declined", "Your coach request was declined. Coach ID: "+coachID
	if approve {
		title, content = "Coach request approved", "Your coach request was approved. Coach ID: "+coachID
	}
	s.effects.notify(ctx, studentID, title, content)
	s.effects.audit(ctx, actor.ID, "pairing_"+status, "coach_student", coachID+"/"+studentID, nil)
	return nil
}

func (s *PairingService) Pending(ctx context.Context, actor Actor, coachID string) ([]models.Pairing, error) {
	if !actor.Owns(coachID) {
		return nil, ErrPermissionDenied
	}
	return s.store.ListPending(ctx, coachID)
}

func (s *PairingService) checkCaps(ctx context.Context, tx store.Getter, coachID, studentID string) error {
	n, err := s.store.CountApprovedForStudent(ctx, tx, studentID)
	if err != nil {
		return err
	}
	if n >= MaxCoachesPerStudent {
		return ErrStudentPairingLimit
	}
	n, err = s.store.CountApprovedForCoach(ctx, tx, coachID)
	if err != nil {
		return err
	}
	if n >= MaxStudentsPerCoach {
		return ErrCoachPairingLimit
	}
	return nil
}
