package cron

import (
	"context"
	"log"
	"time"

	"github.com/qs3c/stake_go_server/internal/pkg/queue"
	"github.com/qs3c/stake_go_server/internal/repository"
)

type Service struct {
	jobQueue    *queue.Queue
	voucherRepo *repository.VoucherRepository
	stopChan    chan struct{}
}

func NewService(jobQueue *queue.Queue, voucherRepo *repository.VoucherRepository) *Service {
	return &Service{
		jobQueue:    jobQueue,
		voucherRepo: voucherRepo,
		stopChan:    make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runDailyROI()
	go s.runVoucherExpiry()
	log.Println("Cron service started (daily ROI + voucher expiry)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runDailyROI 每日 UTC 零点入队收益发放任务
func (s *Service) runDailyROI() {
	now := time.Now().UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	timer := time.NewTimer(nextMidnight.Sub(now))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.enqueueROI()
			timer.Reset(24 * time.Hour)
		}
	}
}

// enqueueROI 入队当日的收益发放任务，幂等由 worker 侧保证
func (s *Service) enqueueROI() {
	day := time.Now().UTC().Format("2006-01-02")
	msg := &queue.JobMessage{
		Type: queue.JobROIDistribution,
		Day:  day,
	}
	if err := s.jobQueue.Push(context.Background(), msg); err != nil {
		log.Printf("Failed to enqueue ROI distribution for %s: %v", day, err)
		return
	}
	log.Printf("ROI distribution enqueued for %s", day)
}

// runVoucherExpiry 每小时把过期代金券翻转为 expired
func (s *Service) runVoucherExpiry() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			count, err := s.voucherRepo.ExpireOverdue(time.Now())
			if err != nil {
				log.Printf("Voucher expiry sweep failed: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("Voucher expiry sweep: %d vouchers expired", count)
			}
		}
	}
}

// RunExpiryNow 立即执行过期清理（用于测试或手动触发）
func (s *Service) RunExpiryNow() (int64, error) {
	return s.voucherRepo.ExpireOverdue(time.Now())
}
