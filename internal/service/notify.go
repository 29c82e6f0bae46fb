package service

import (
	"fmt"

	"github.com/ioterra-ru/kanban/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const notifyWorkers = 2

type NotifyJob struct {
	Recipients []string
	Subject    string
	Body       string
}

// Notifier fans change notifications out to card participants. Delivery
// is strictly best-effort: enqueueing never blocks the request and mail
// errors are logged, never surfaced.
type Notifier struct {
	jobs   chan *NotifyJob
	mailer *Mailer
}

func NewNotifier(m *Mailer) *Notifier {
	return &Notifier{
		jobs:   make(chan *NotifyJob, 256),
		mailer: m,
	}
}

func (n *Notifier) StartWorkerPool() {
	for i := 0; i < notifyWorkers; i++ {
		go n.worker()
	}
}

func (n *Notifier) worker() {
	for j := range n.jobs {
		if err := n.mailer.Send(j.Recipients, j.Subject, j.Body); err != nil {
			zap.L().Warn("Failed to deliver notification mail", zap.Error(err))
		}
	}
}

// Enqueue drops the job when the queue is full rather than blocking the
// caller.
func (n *Notifier) Enqueue(j *NotifyJob) {
	if !n.mailer.Configured() || len(j.Recipients) == 0 {
		return
	}

	select {
	case n.jobs <- j:
	default:
		zap.L().Warn("Notification queue full, dropping job")
	}
}

// NotifyCardEvent mails every participant of a card except the acting
// user about a change.
func (n *Notifier) NotifyCardEvent(db *gorm.DB, cardID, actorID, action string) {
	var card model.Card
	if err := db.First(&card, "id = ?", cardID).Error; err != nil {
		zap.L().Warn("Can't load card for notification", zap.Error(err))
		return
	}

	var emails []string
	err := db.Model(&model.CardParticipant{}).
		Select("users.email").
		Joins("JOIN users ON users.id = card_participants.user_id").
		Where("card_participants.card_id = ? AND card_participants.user_id <> ?", cardID, actorID).
		Scan(&emails).
		Error
	if err != nil {
		zap.L().Warn("Can't load participants for notification", zap.Error(err))
		return
	}

	n.Enqueue(&NotifyJob{
		Recipients: emails,
		Subject:    fmt.Sprintf("[Kanban] %s: %s", action, card.Description),
		Body: fmt.Sprintf("Card <b>%s</b> was changed (%s).<br>Open the board to see the details.",
			card.Description, action),
	})
}
