package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tabletennis/internal/db"
	"tabletennis/internal/models"
	"tabletennis/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxReviewComment = 1000

type ReviewStore interface {
	Create(ctx context.Context, tx store.Execer, r models.Review) error
	Exists(ctx context.Context, q store.Getter, reservationID, role string) (bool, error)
	List(ctx context.Context, f store.ReviewFilter, limit, offset int) ([]models.Review, error)
	Pending(ctx context.Context, role, userID string) ([]models.Reservation, error)
}

type ReservationLocker interface {
	GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.Reservation, error)
}

type ReviewService struct {
	txRunner     db.TxRunner
	reviews      ReviewStore
	reservations ReservationLocker
	effects      Effects
	now          func() time.Time
}

func NewReviewService(txRunner db.TxRunner, reviews ReviewStore, reservations ReservationLocker, effects Effects, now func() time.Time) *ReviewService {
	if now == nil {
		now = time.Now
	}
	return &ReviewService{
		txRunner:     txRunner,
		reviews:      reviews,
		reservations: reservations,
		effects:      effects,
		now:          now,
	}
}

type SubmitReviewRequest struct {
	ReservationID string
	Role          string
	Rating        int
	Comment       string
}

// Submit records one party's review of a completed lesson. Each side may
// review a lesson once.
func (s *ReviewService) Submit(ctx context.Context, actor Actor, req SubmitReviewRequest) (models.Review, error) {
	if req.ReservationID == "" {
		return models.Review{}, ErrMissingField
	}
	if req.Role != models.CancelByStudent && req.Role != models.CancelByCoach {
		return models.Review{}, ErrInvalidCancelParty
	}
	if req.Rating < 1 || req.Rating > 5 {
		return models.Review{}, ErrInvalidRating
	}
	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) > maxReviewComment {
		return models.Review{}, ErrCommentTooLong
	}

	var (
		r      models.Reservation
		review models.Review
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		r, err = lockReservation(ctx, s.reservations, tx, req.ReservationID)
		if err != nil {
			return err
		}
		if actor.ID == "" || actor.ID != r.PartyID(req.Role) {
			return ErrPermissionDenied
		}
		if r.Status != models.StatusCompleted || s.now().Before(r.EndTime) {
			return ErrLessonNotCompleted
		}
		done, err := s.reviews.Exists(ctx, tx, r.ID, req.Role)
		if err != nil {
			return err
		}
		if done {
			return ErrAlreadyReviewed
		}
		review = models.Review{
			ID:            uuid.NewString(),
			ReservationID: r.ID,
			ReviewerID:    actor.ID,
			ReviewerRole:  req.Role,
			Rating:        req.Rating,
			Comment:       comment,
			CreatedAt:     s.now(),
			CoachID:       r.CoachID,
			StudentID:     r.StudentID,
			StartTime:     r.StartTime,
		}
		err = s.reviews.Create(ctx, tx, review)
		if db.IsUniqueViolation(err) {
			return ErrAlreadyReviewed
		}
		return err
	})
	if err != nil {
		return models.Review{}, err
	}

	counterpart := models.CancelByCoach
	if req.Role == models.CancelByCoach {
		counterpart = models.CancelByStudent
	}
	s.effects.notify(ctx, r.PartyID(counterpart), "New lesson review",
		fmt.Sprintf("You received a %d-star review. Reservation ID: %s", review.Rating, r.ID))
	s.effects.audit(ctx, actor.ID, "review_submit", "review", review.ID, map[string]any{
		"reservation_id": r.ID,
		"reviewer_role":  req.Role,
		"rating":         review.Rating,
	})
	s.effects.publish(ctx, "review.submitted", review)
	return review, nil
}

func (s *ReviewService) List(ctx context.Context, actor Actor, f store.ReviewFilter, limit, offset int) ([]models.Review, error) {
	if actor.ID == "" {
		return nil, ErrPermissionDenied
	}
	if f.ReviewerRole != "" && f.ReviewerRole != models.CancelByStudent && f.ReviewerRole != models.CancelByCoach {
		return nil, ErrInvalidCancelParty
	}
	return s.reviews.List(ctx, f, limit, offset)
}

// Pending lists the actor's completed lessons they have not reviewed yet.
func (s *ReviewService) Pending(ctx context.Context, actor Actor, role string) ([]models.Reservation, error) {
	if actor.ID == "" {
		return nil, ErrPermissionDenied
	}
	if role != models.CancelByStudent && role != models.CancelByCoach {
		return nil, ErrInvalidCancelParty
	}
	return s.reviews.Pending(ctx, role, actor.ID)
}

func lockReservation(ctx context.Context, rs ReservationLocker, tx store.Getter, id string) (models.Reservation, error) {
	r, err := rs.GetForUpdate(ctx, tx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reservation{}, ErrReservationNotFound
	}
	return r, err
}
