package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/repository"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type stubDispatcher struct {
	probes int
}

func (d *stubDispatcher) Send(ctx context.Context, to, subject, body, replyToSubject string, isHTML bool) (bool, string) {
	return true, "sent"
}

func (d *stubDispatcher) TestConnection(ctx context.Context) (bool, string) {
	d.probes++
	return true, "ok"
}

func (d *stubDispatcher) ReplySubject(subject string) string { return subject }

type stubSendRecordRepo struct {
	failures int64
}

func (s *stubSendRecordRepo) Create(ctx context.Context, record *models.SendRecord) (string, error) {
	return "", nil
}

func (s *stubSendRecordRepo) GetByID(ctx context.Context, id string) (*models.SendRecord, error) {
	return nil, nil
}

func (s *stubSendRecordRepo) GetByUser(ctx context.Context, userID string, limit, offset int, successOnly bool) ([]*models.SendRecord, error) {
	return nil, nil
}

func (s *stubSendRecordRepo) CountByUser(ctx context.Context, userID string) (int64, int64, error) {
	return 0, 0, nil
}

func (s *stubSendRecordRepo) GetRecent(ctx context.Context, userID string, limit int) ([]*models.SendRecord, error) {
	return nil, nil
}

func (s *stubSendRecordRepo) CountFailuresSince(ctx context.Context, since time.Time) (int64, error) {
	return s.failures, nil
}

func newTestManager() (*CronManager, *stubDispatcher) {
	dispatcher := &stubDispatcher{}
	repos := &repository.Repositories{
		SendRecordRepository: &stubSendRecordRepo{failures: 2},
	}
	return NewCronManager(getLogger(), dispatcher, repos), dispatcher
}

func TestNewCronManager(t *testing.T) {
	cm, dispatcher := newTestManager()

	assert.NotNil(t, cm)
	assert.Equal(t, dispatcher, cm.dispatcher)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_StartCron(t *testing.T) {
	t.Setenv("CRON_SCHEDULE_HEARTBEAT", "0 * * * * *")
	t.Setenv("CRON_SCHEDULE_TRANSFER_HEALTH", "0 */15 * * * *")
	t.Setenv("CRON_SCHEDULE_SEND_SUMMARY", "0 0 * * * *")

	cm, _ := newTestManager()
	cm.StartCron()
	defer cm.Stop()

	require.NotNil(t, cm.cron)
	assert.Len(t, cm.jobIDs, 3)
	assert.Contains(t, cm.jobIDs, "heartbeat")
	assert.Contains(t, cm.jobIDs, "transfer_health")
	assert.Contains(t, cm.jobIDs, "send_summary")
}

func TestCheckTransferHealthProbesDispatcher(t *testing.T) {
	cm, dispatcher := newTestManager()

	cm.checkTransferHealth()

	assert.Equal(t, 1, dispatcher.probes)
}

func TestSummarizeFailedSends(t *testing.T) {
	cm, _ := newTestManager()

	// must not panic with a stub repository
	cm.summarizeFailedSends()
}
