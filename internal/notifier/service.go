package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	kafkax "github.com/ariefcatur/go-resource-approvals.git/internal/kafka"
	"github.com/ariefcatur/go-resource-approvals.git/internal/reservations"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Directory resolves a role to the principals holding it.
type Directory interface {
	FindByRole(ctx context.Context, role reservations.Stage) ([]string, error)
}

type NotificationStore interface {
	Append(ctx context.Context, n reservations.Notification) error
}

// Dedup: emisi event "at least once", jadi event yang sama bisa datang dua
// kali; tandai event_id yang sudah diproses.
type Dedup interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

// Service materializes notification rows from reservation transition events.
// State machine cuma bilang "kasih tau role X"; resolusi role -> principal
// terjadi di sini.
type Service struct {
	Directory Directory
	Store     NotificationStore
	Dedup     Dedup
}

// HandleReservationEvent: dipasang sebagai handler consumer.
func (s *Service) HandleReservationEvent(ctx context.Context, m kafkago.Message) error {
	var env reservations.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	seen, err := s.Dedup.Seen(ctx, env.EventID)
	if err != nil {
		log.Printf("dedup check failed for %s: %v", env.EventID, err)
	} else if seen {
		return nil
	}

	switch env.EventType {
	case reservations.EventRequestSubmitted:
		p, err := kafkax.UnwrapPayload[reservations.RequestSubmittedPayload](env.Payload)
		if err != nil {
			return err
		}
		err = s.fanOut(ctx, p.NotifyRole, p.RequestID,
			fmt.Sprintf("New request %s needs your approval.", p.RequestID))
		if err != nil {
			return err
		}

	case reservations.EventStageApproved:
		p, err := kafkax.UnwrapPayload[reservations.StageApprovedPayload](env.Payload)
		if err != nil {
			return err
		}
		err = s.fanOut(ctx, p.NotifyRole, p.RequestID,
			fmt.Sprintf("Request %s needs your approval.", p.RequestID))
		if err != nil {
			return err
		}

	case reservations.EventRequestApproved:
		p, err := kafkax.UnwrapPayload[reservations.RequestApprovedPayload](env.Payload)
		if err != nil {
			return err
		}
		err = s.notify(ctx, p.RequesterID, p.RequestID,
			fmt.Sprintf("Your request %s has been fully approved.", p.RequestID))
		if err != nil {
			return err
		}

	case reservations.EventRequestRejected:
		p, err := kafkax.UnwrapPayload[reservations.RequestRejectedPayload](env.Payload)
		if err != nil {
			return err
		}
		err = s.notify(ctx, p.RequesterID, p.RequestID,
			fmt.Sprintf("Your request %s was rejected by %s.", p.RequestID, p.Stage))
		if err != nil {
			return err
		}

	default:
		return nil // bukan urusan kita, commit saja
	}

	if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
		log.Printf("dedup mark failed for %s: %v", env.EventID, err)
	}
	return nil
}

func (s *Service) fanOut(ctx context.Context, role reservations.Stage, requestID, message string) error {
	principals, err := s.Directory.FindByRole(ctx, role)
	if err != nil {
		return err
	}
	for _, pid := range principals {
		if err := s.notify(ctx, pid, requestID, message); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) notify(ctx context.Context, principalID, requestID, message string) error {
	return s.Store.Append(ctx, reservations.Notification{
		ID:          uuid.NewString(),
		PrincipalID: principalID,
		Message:     message,
		Link:        "/requests/" + requestID,
		CreatedAt:   time.Now().UTC(),
	})
}
