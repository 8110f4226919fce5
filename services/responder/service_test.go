package responder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	appErrors "github.com/superwave/maildesk/internal/errors"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/repository"
	"github.com/superwave/maildesk/internal/utils"
)

// in-memory repositories

type fakeTemplateRepo struct {
	templates map[string]*models.ResponseTemplate
}

func (f *fakeTemplateRepo) Create(ctx context.Context, t *models.ResponseTemplate) (string, error) {
	if t.ID == "" {
		t.ID = utils.GenerateNanoIDWithPrefix("tpl", 16)
	}
	f.templates[t.ID] = t
	return t.ID, nil
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id string) (*models.ResponseTemplate, error) {
	return f.templates[id], nil
}

func (f *fakeTemplateRepo) GetByUser(ctx context.Context, userID string) ([]*models.ResponseTemplate, error) {
	var result []*models.ResponseTemplate
	for _, t := range f.templates {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, t *models.ResponseTemplate) error {
	if _, ok := f.templates[t.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.templates[t.ID] = t
	return nil
}

func (f *fakeTemplateRepo) Delete(ctx context.Context, userID, id string) error {
	t, ok := f.templates[id]
	if !ok || t.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(f.templates, id)
	return nil
}

type attachmentKey struct {
	userID, emailUID, templateID string
}

type fakeAttachmentRepo struct {
	attachments map[string]*models.ResponseAttachment
	index       map[attachmentKey]bool
}

func (f *fakeAttachmentRepo) Create(ctx context.Context, a *models.ResponseAttachment) (string, error) {
	key := attachmentKey{a.UserID, a.EmailUID, a.TemplateID}
	if f.index[key] {
		return "", gorm.ErrDuplicatedKey
	}
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("rat", 16)
	}
	f.attachments[a.ID] = a
	f.index[key] = true
	return a.ID, nil
}

func (f *fakeAttachmentRepo) GetByID(ctx context.Context, id string) (*models.ResponseAttachment, error) {
	return f.attachments[id], nil
}

func (f *fakeAttachmentRepo) Exists(ctx context.Context, userID, emailUID, templateID string) (bool, error) {
	return f.index[attachmentKey{userID, emailUID, templateID}], nil
}

func (f *fakeAttachmentRepo) GetByEmailUID(ctx context.Context, userID, emailUID string) ([]*models.ResponseAttachment, error) {
	var result []*models.ResponseAttachment
	for _, a := range f.attachments {
		if a.UserID == userID && a.EmailUID == emailUID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (f *fakeAttachmentRepo) GetByTemplate(ctx context.Context, userID, templateID string) ([]*models.ResponseAttachment, error) {
	var result []*models.ResponseAttachment
	for _, a := range f.attachments {
		if a.UserID == userID && a.TemplateID == templateID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (f *fakeAttachmentRepo) GetByUser(ctx context.Context, userID string) ([]*models.ResponseAttachment, error) {
	var result []*models.ResponseAttachment
	for _, a := range f.attachments {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (f *fakeAttachmentRepo) Delete(ctx context.Context, userID, id string) error {
	a, ok := f.attachments[id]
	if !ok || a.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(f.index, attachmentKey{a.UserID, a.EmailUID, a.TemplateID})
	delete(f.attachments, id)
	return nil
}

type fakeSendRecordRepo struct {
	records []*models.SendRecord
	failOn  bool
}

func (f *fakeSendRecordRepo) Create(ctx context.Context, r *models.SendRecord) (string, error) {
	if f.failOn {
		return "", gorm.ErrInvalidDB
	}
	if r.ID == "" {
		r.ID = utils.GenerateNanoIDWithPrefix("snd", 16)
	}
	f.records = append(f.records, r)
	return r.ID, nil
}

func (f *fakeSendRecordRepo) GetByID(ctx context.Context, id string) (*models.SendRecord, error) {
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeSendRecordRepo) GetByUser(ctx context.Context, userID string, limit, offset int, successOnly bool) ([]*models.SendRecord, error) {
	var result []*models.SendRecord
	for _, r := range f.records {
		if r.UserID == userID && (!successOnly || r.Success) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (f *fakeSendRecordRepo) CountByUser(ctx context.Context, userID string) (int64, int64, error) {
	var total, successful int64
	for _, r := range f.records {
		if r.UserID == userID {
			total++
			if r.Success {
				successful++
			}
		}
	}
	return total, successful, nil
}

func (f *fakeSendRecordRepo) GetRecent(ctx context.Context, userID string, limit int) ([]*models.SendRecord, error) {
	return f.GetByUser(ctx, userID, limit, 0, false)
}

func (f *fakeSendRecordRepo) CountFailuresSince(ctx context.Context, since time.Time) (int64, error) {
	var failures int64
	for _, r := range f.records {
		if !r.Success && !r.SentAt.Before(since) {
			failures++
		}
	}
	return failures, nil
}

// fake collaborators

type fakeDispatcher struct {
	sendOK     bool
	diagnostic string
	calls      []sentCall
}

type sentCall struct {
	to, subject, body, replyToSubject string
	isHTML                            bool
}

func (f *fakeDispatcher) Send(ctx context.Context, to, subject, body, replyToSubject string, isHTML bool) (bool, string) {
	f.calls = append(f.calls, sentCall{to, subject, body, replyToSubject, isHTML})
	return f.sendOK, f.diagnostic
}

func (f *fakeDispatcher) TestConnection(ctx context.Context) (bool, string) {
	return f.sendOK, f.diagnostic
}

func (f *fakeDispatcher) ReplySubject(subject string) string {
	if len(subject) >= 3 && subject[:3] == "Re:" {
		return subject
	}
	return "Re: " + subject
}

type fakePublisher struct {
	published []*models.SendRecord
}

func (f *fakePublisher) PublishSendAudit(ctx context.Context, record *models.SendRecord) error {
	f.published = append(f.published, record)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

// test harness

type harness struct {
	service     *ResponderService
	templates   *fakeTemplateRepo
	attachments *fakeAttachmentRepo
	records     *fakeSendRecordRepo
	dispatcher  *fakeDispatcher
	publisher   *fakePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", DevMode: true})
	log.InitLogger()

	templates := &fakeTemplateRepo{templates: map[string]*models.ResponseTemplate{}}
	attachments := &fakeAttachmentRepo{
		attachments: map[string]*models.ResponseAttachment{},
		index:       map[attachmentKey]bool{},
	}
	records := &fakeSendRecordRepo{}
	dispatcher := &fakeDispatcher{sendOK: true, diagnostic: "message sent"}
	publisher := &fakePublisher{}

	repos := &repository.Repositories{
		ResponseTemplateRepository:   templates,
		ResponseAttachmentRepository: attachments,
		SendRecordRepository:         records,
	}

	return &harness{
		service:     NewResponderService(log, repos, dispatcher, publisher),
		templates:   templates,
		attachments: attachments,
		records:     records,
		dispatcher:  dispatcher,
		publisher:   publisher,
	}
}

func (h *harness) addTemplate(userID, title string, autoSend bool) *models.ResponseTemplate {
	template := &models.ResponseTemplate{
		UserID:   userID,
		Title:    title,
		Body:     "template body",
		AutoSend: autoSend,
	}
	h.templates.Create(context.Background(), template)
	return template
}

func strPtr(s string) *string { return &s }

func TestAttachResponseUnknownTemplate(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.AttachResponse(context.Background(), "user-1", AttachRequest{
		EmailUID:   "100",
		TemplateID: "tpl_missing",
	})

	assert.ErrorIs(t, err, appErrors.ErrTemplateNotFound)
}

func TestAttachResponseForeignTemplate(t *testing.T) {
	h := newHarness(t)
	template := h.addTemplate("someone-else", "Thanks", false)

	_, err := h.service.AttachResponse(context.Background(), "user-1", AttachRequest{
		EmailUID:   "100",
		TemplateID: template.ID,
	})

	assert.ErrorIs(t, err, appErrors.ErrTemplateNotFound)
}

func TestAttachResponseDuplicateConflict(t *testing.T) {
	h := newHarness(t)
	template := h.addTemplate("user-1", "Thanks", false)

	req := AttachRequest{EmailUID: "100", TemplateID: template.ID}

	first, err := h.service.AttachResponse(context.Background(), "user-1", req)
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = h.service.AttachResponse(context.Background(), "user-1", req)
	assert.ErrorIs(t, err, appErrors.ErrAttachmentExists)

	// same message, different template is fine
	other := h.addTemplate("user-1", "Other", false)
	_, err = h.service.AttachResponse(context.Background(), "user-1", AttachRequest{
		EmailUID: "100", TemplateID: other.ID,
	})
	assert.NoError(t, err)
}

func TestAttachResponseNoAutoSend(t *testing.T) {
	h := newHarness(t)
	template := h.addTemplate("user-1", "Thanks", false)

	attachment, err := h.service.AttachResponse(context.Background(), "user-1", AttachRequest{
		EmailUID:   "100",
		TemplateID: template.ID,
		EmailFrom:  strPtr("sender@example.com"),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, attachment.ID)
	assert.Empty(t, h.dispatcher.calls)
	assert.Empty(t, h.records.records)
}

func TestAttachResponseAutoSendKnownRecipient(t *testing.T) {
	h := newHarness(t)
	template := h.addTemplate("user-1", "Thanks", true)

	attachment, err := h.service.AttachResponse(context.Background(), "user-1", AttachRequest{
		EmailUID:     "100",
		TemplateID:   template.ID,
		EmailSubject: strPtr("question about billing"),
		EmailFrom:    strPtr("sender@example.com"),
	})

	require.NoError(t, err)
	require.Len(t, h.dispatcher.calls, 1)
	assert.Equal(t, "sender@example.com", h.dispatcher.calls[0].to)
	assert.Equal(t, "question about billing", h.dispatcher.calls[0].replyToSubject)

	require.Len(t, h.records.records, 1)
	record := h.records.records[0]
	assert.True(t, record.Success)
	assert.Equal(t, "sender@example.com", record.ToEmail)
	assert.Equal(t, "Re: question about billing", record.Subject)
	assert.Equal(t, attachment.ID, *record.AttachmentID)
	assert.Equal(t, template.ID, *record.TemplateID)
	assert.NotNil(t, record.SMTPResponse)

	require.Len(t, h.publisher.published, 1)
	assert.Equal(t, record, h.publisher.published[0])
}

func TestAttachResponseAutoSendUnknownRecipient(t *testing.T) {
	h := newHarness(t)
	template := h.addTemplate("user-1", "Thanks", true)

	_, err := h.service.AttachResponse(context.Background(), "user-1", AttachRequest{
		EmailUID:   "100",
		TemplateID: template.ID,
		// no EmailFrom captured
	})

	require.NoError(t, err)
	assert.Empty(t, h.dispatcher.calls)

	require.Len(t, h.records.records, 1)
	record := h.records.records[0]
	assert.False(t, record.Success)
	assert.Equal(t, "unknown", record.ToEmail)
	require.NotNil(t, record.ErrorMessage)
	assert.Equal(t, "sender address unknown", *record.ErrorMessage)
	// no captured subject, so the record carries the template title
	assert.Equal(t, "Thanks", record.Subject)
}

func TestAttachResponseSendFailureDoesNotFailAttach(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.sendOK = false
	h.dispatcher.diagnostic = "SMTP authentication failed"
	template := h.addTemplate("user-1", "Thanks", true)

	attachment, err := h.service.AttachResponse(context.Background(), "user-1", AttachRequest{
		EmailUID:   "100",
		TemplateID: template.ID,
		EmailFrom:  strPtr("sender@example.com"),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, attachment.ID)

	require.Len(t, h.records.records, 1)
	record := h.records.records[0]
	assert.False(t, record.Success)
	require.NotNil(t, record.ErrorMessage)
	assert.Equal(t, "SMTP authentication failed", *record.ErrorMessage)
}

func TestAttachResponseRecordFailureDoesNotFailAttach(t *testing.T) {
	h := newHarness(t)
	h.records.failOn = true
	template := h.addTemplate("user-1", "Thanks", true)

	attachment, err := h.service.AttachResponse(context.Background(), "user-1", AttachRequest{
		EmailUID:   "100",
		TemplateID: template.ID,
		EmailFrom:  strPtr("sender@example.com"),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, attachment.ID)
	assert.Empty(t, h.publisher.published)
}

func TestTemplateLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.service.CreateTemplate(ctx, "user-1", TemplateInput{Title: "Hi", Body: "b"})
	require.NoError(t, err)

	got, err := h.service.GetTemplate(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi", got.Title)

	_, err = h.service.GetTemplate(ctx, "user-2", created.ID)
	assert.ErrorIs(t, err, appErrors.ErrTemplateNotFound)

	updated, err := h.service.UpdateTemplate(ctx, "user-1", created.ID, TemplateInput{Title: "Hi2", Body: "b2", AutoSend: true})
	require.NoError(t, err)
	assert.True(t, updated.AutoSend)

	require.NoError(t, h.service.DeleteTemplate(ctx, "user-1", created.ID))
	assert.ErrorIs(t, h.service.DeleteTemplate(ctx, "user-1", created.ID), appErrors.ErrTemplateNotFound)
}

func TestSendStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	template := h.addTemplate("user-1", "Thanks", true)

	h.dispatcher.sendOK = true
	_, err := h.service.AttachResponse(ctx, "user-1", AttachRequest{
		EmailUID: "1", TemplateID: template.ID, EmailFrom: strPtr("a@example.com"),
	})
	require.NoError(t, err)

	h.dispatcher.sendOK = false
	h.dispatcher.diagnostic = "boom"
	_, err = h.service.AttachResponse(ctx, "user-1", AttachRequest{
		EmailUID: "2", TemplateID: template.ID, EmailFrom: strPtr("b@example.com"),
	})
	require.NoError(t, err)

	stats, err := h.service.SendStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Successful)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Len(t, stats.Recent, 2)
}

func TestGetSendRecordScopedToOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	template := h.addTemplate("user-1", "Thanks", true)

	_, err := h.service.AttachResponse(ctx, "user-1", AttachRequest{
		EmailUID: "1", TemplateID: template.ID, EmailFrom: strPtr("a@example.com"),
	})
	require.NoError(t, err)
	require.Len(t, h.records.records, 1)

	record, err := h.service.GetSendRecord(ctx, "user-1", h.records.records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", record.ToEmail)

	_, err = h.service.GetSendRecord(ctx, "user-2", h.records.records[0].ID)
	assert.ErrorIs(t, err, appErrors.ErrSendRecordNotFound)
}
