package service

import (
	"exam_sim_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	NotifyAttemptCompleted = "attempt_completed"
	NotifyReviewCompleted  = "review_completed"
)

type Notification struct {
	Type     string
	UserID   uint
	ResultID uint
	Message  string
}

// NotificationSender 实际投递方（邮件、站内信等），失败只记日志
type NotificationSender interface {
	Send(n Notification) error
}

type LogSender struct{}

func (LogSender) Send(n Notification) error {
	logger.Log.Info("notification dispatched",
		zap.String("type", n.Type),
		zap.Uint("userId", n.UserID),
		zap.Uint("resultId", n.ResultID))
	return nil
}

// NotificationService 后台异步派发通知。发送失败只记日志，
// 永远不会把错误传回提交/批改的主流程。
type NotificationService struct {
	sender NotificationSender
	ch     chan Notification
	done   chan struct{}
}

func NewNotificationService(sender NotificationSender) *NotificationService {
	return &NotificationService{
		sender: sender,
		ch:     make(chan Notification, 256),
		done:   make(chan struct{}),
	}
}

func (s *NotificationService) Run() {
	for n := range s.ch {
		if err := s.sender.Send(n); err != nil {
			logger.Log.Error("notification send failed",
				zap.String("type", n.Type),
				zap.Uint("userId", n.UserID),
				zap.Error(err))
		}
	}
	close(s.done)
}

// Dispatch 非阻塞入队，队列满则丢弃并记日志
func (s *NotificationService) Dispatch(n Notification) {
	select {
	case s.ch <- n:
	default:
		logger.Log.Warn("notification queue full, dropped",
			zap.String("type", n.Type),
			zap.Uint("userId", n.UserID))
	}
}

func (s *NotificationService) Stop() {
	close(s.ch)
	<-s.done
}
