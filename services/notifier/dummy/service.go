package dummynotifier

import (
	"sync"

	"github.com/trezcool/darasa/core"
)

// Service records notifications for inspection in tests.
type Service struct {
	mu   sync.Mutex
	sent []core.Notification
}

var _ core.Notifier = (*Service)(nil)

func NewService() *Service {
	return &Service{}
}

func (svc *Service) Notify(n core.Notification) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = append(svc.sent, n)
}

func (svc *Service) Sent() []core.Notification {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	sent := make([]core.Notification, len(svc.sent))
	copy(sent, svc.sent)
	return sent
}

func (svc *Service) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = nil
}
