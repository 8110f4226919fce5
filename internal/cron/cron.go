package cron

import (
	"context"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/superwave/maildesk/interfaces"
	cron_config "github.com/superwave/maildesk/internal/cron/config"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/repository"
	"github.com/superwave/maildesk/internal/tracing"
)

const (
	// GroupMaildesk is the group for maildesk related jobs
	GroupMaildesk = "maildesk"

	// sendSummaryWindow is how far back the failed-send summary looks
	sendSummaryWindow = time.Hour
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupMaildesk: new(sync.Mutex),
	},
}

type CronManager struct {
	log        logger.Logger
	cron       *cronv3.Cron
	stopCh     chan struct{}
	jobIDs     map[string]cronv3.EntryID
	dispatcher interfaces.TransferDispatcher
	repos      *repository.Repositories
}

func NewCronManager(log logger.Logger, dispatcher interfaces.TransferDispatcher, repos *repository.Repositories) *CronManager {
	return &CronManager{
		log:        log,
		stopCh:     make(chan struct{}),
		jobIDs:     make(map[string]cronv3.EntryID),
		dispatcher: dispatcher,
		repos:      repos,
	}
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	// Load cron config from environment variables
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	if cronConfig.CronScheduleHeartbeat != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Info("Cron heartbeat")
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	if cronConfig.CronScheduleTransferHealth != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleTransferHealth, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupMaildesk].Lock()
			defer jobLocks.locks[GroupMaildesk].Unlock()
			cm.checkTransferHealth()
		})
		if err != nil {
			cm.log.Fatalf("Could not add transfer health cron job: %v", err)
		}
		cm.jobIDs["transfer_health"] = id
		cm.log.Infof("Registered transfer health job with schedule: %s", cronConfig.CronScheduleTransferHealth)
	}

	if cronConfig.CronScheduleSendSummary != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleSendSummary, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupMaildesk].Lock()
			defer jobLocks.locks[GroupMaildesk].Unlock()
			cm.summarizeFailedSends()
		})
		if err != nil {
			cm.log.Fatalf("Could not add send summary cron job: %v", err)
		}
		cm.jobIDs["send_summary"] = id
		cm.log.Infof("Registered send summary job with schedule: %s", cronConfig.CronScheduleSendSummary)
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	// Seconds field enabled, panic recovery, no overlapping runs
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

func (cm *CronManager) checkTransferHealth() {
	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.checkTransferHealth")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	ok, message := cm.dispatcher.TestConnection(ctx)
	if !ok {
		span.SetTag("error", true)
		cm.log.Warnf("Outbound relay probe failed: %s", message)
		return
	}

	cm.log.Debugf("Outbound relay probe succeeded: %s", message)
}

func (cm *CronManager) summarizeFailedSends() {
	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.summarizeFailedSends")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	since := time.Now().UTC().Add(-sendSummaryWindow)
	failures, err := cm.repos.SendRecordRepository.CountFailuresSince(ctx, since)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to count failed sends: %v", err)
		return
	}

	if failures > 0 {
		cm.log.Warnf("%d failed sends in the last %s", failures, sendSummaryWindow)
	} else {
		cm.log.Info("No failed sends in the last hour")
	}
}
