package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/metrics"
	"github.com/justsurfingit/jobtracker/internal/models"
	"github.com/justsurfingit/jobtracker/internal/realtime"
)

const (
	syncTimeout      = 2 * time.Minute
	maxEmailAttempts = 5
	fullSyncQuery    = "subject:(application OR interview OR update OR offer OR rejected OR status) newer_than:7d"

	SyncModeFull        = "full"
	SyncModeIncremental = "incremental"
	SyncModeDisabled    = "disabled"
)

// Per-message outcomes, also used as metric labels.
const (
	outcomeUpdated       = "updated"
	outcomeNoChange      = "no_change"
	outcomeNoCompany     = "no_company"
	outcomeNoApplication = "no_application"
	outcomeAmbiguous     = "ambiguous"
	outcomeFailed        = "failed"
	outcomeDuplicate     = "duplicate"
)

// EmailService watches the automation user's inbox and moves their
// applications along based on what recruiters write.
type EmailService struct {
	DB           *gorm.DB
	LLMService   *LLMService
	Matcher      *MatcherService
	Applications *ApplicationService
	Settings     *SettingsService
	GmailClient  *gmail.Service
	Publisher    EventPublisher
	Log          *zap.SugaredLogger

	// MailboxUserEmail is the account whose applications the inbox updates.
	MailboxUserEmail string

	mu         sync.Mutex
	retrySleep time.Duration
}

func NewEmailService(db *gorm.DB, llm *LLMService, client *gmail.Service, matcher *MatcherService,
	apps *ApplicationService, settings *SettingsService, events EventPublisher, mailboxUser string, log *zap.SugaredLogger) *EmailService {
	return &EmailService{
		DB:               db,
		LLMService:       llm,
		Matcher:          matcher,
		Applications:     apps,
		Settings:         settings,
		GmailClient:      client,
		Publisher:        publisherOrNop(events),
		Log:              log,
		MailboxUserEmail: mailboxUser,
		retrySleep:       time.Second,
	}
}

// Enabled reports whether both Gmail and the LLM are configured.
func (s *EmailService) Enabled() bool {
	return s.GmailClient != nil && s.LLMService != nil && s.MailboxUserEmail != ""
}

// StartWatcher syncs immediately and then every interval until ctx is done.
func (s *EmailService) StartWatcher(ctx context.Context, interval time.Duration) {
	if !s.Enabled() {
		s.Log.Warn("Gmail watcher disabled: missing Gmail client, Gemini key or mailbox user")
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if _, err := s.SyncEmails(ctx); err != nil {
				s.Log.Errorw("email sync failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// SyncEmails runs one sync cycle. Only one cycle runs at a time.
func (s *EmailService) SyncEmails(ctx context.Context) (*dtos.SyncReport, error) {
	if !s.Enabled() {
		return nil, apierrors.BadRequest("email automation is not configured")
	}
	if !s.mu.TryLock() {
		return nil, apierrors.BadRequest("email sync already in progress")
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	report, err := s.sync(ctx)
	result := "success"
	if err != nil {
		result = "error"
	}
	mode := SyncModeFull
	if report != nil {
		mode = report.Mode
	}
	metrics.EmailSyncRuns.WithLabelValues(mode, result).Inc()
	return report, err
}

func (s *EmailService) sync(ctx context.Context) (*dtos.SyncReport, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(s.MailboxUserEmail)).First(&user).Error; err != nil {
		return nil, dbError(err, "mailbox user", "load mailbox user")
	}
	log := s.Log.With("user_id", user.ID)

	enabled, err := s.Settings.AutomationEnabled(ctx, user.ID)
	if err != nil {
		return nil, apierrors.Internal("load settings", err)
	}
	if !enabled {
		log.Info("Email automation turned off in settings, skipping sync")
		return &dtos.SyncReport{Mode: SyncModeDisabled}, nil
	}

	report := &dtos.SyncReport{Mode: SyncModeIncremental}
	var ids []string
	var newHistoryID uint64

	if user.LastHistoryID == 0 {
		log.Info("First run detected, running full bootstrap sync")
		report.Mode = SyncModeFull
		ids, newHistoryID, err = s.performFullSync(ctx)
	} else {
		ids, newHistoryID, err = s.performIncrementalSync(ctx, user.LastHistoryID)
		if err != nil && isHistoryExpiredError(err) {
			// Gmail only keeps history for about a week.
			log.Warn("History id expired, falling back to full sync")
			report.Mode = SyncModeFull
			ids, newHistoryID, err = s.performFullSync(ctx)
		}
	}
	if err != nil {
		return report, apierrors.Internal("sync gmail", err)
	}

	pending, err := s.pendingRetries(ctx)
	if err != nil {
		return report, apierrors.Internal("load email retries", err)
	}
	ids = mergeIDs(pending, ids)
	report.Fetched = len(ids)

	for _, id := range ids {
		var seen models.ProcessedEmail
		err := s.DB.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&seen).Error
		if err != nil {
			// Abort before the bookmark moves so the next cycle sees these messages again.
			return report, apierrors.Internal("check processed email", err)
		}
		if seen.Status == models.EmailDone {
			metrics.EmailsProcessed.WithLabelValues(outcomeDuplicate).Inc()
			report.Skipped++
			continue
		}

		outcome := outcomeFailed
		if msg, err := s.fetchMessage(ctx, id); err != nil {
			log.Warnw("failed to fetch message", "message_id", id, "error", err)
		} else {
			outcome = s.processSingleEmail(ctx, &user, msg)
		}
		metrics.EmailsProcessed.WithLabelValues(outcome).Inc()
		report.Processed++
		switch outcome {
		case outcomeUpdated:
			report.Updated++
		case outcomeFailed:
			report.Failed++
		default:
			report.Skipped++
		}

		if err := s.recordOutcome(ctx, seen, id, outcome); err != nil {
			log.Warnw("failed to record email outcome", "message_id", id, "outcome", outcome, "error", err)
		}
	}

	if newHistoryID > user.LastHistoryID {
		if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
			Update("last_history_id", newHistoryID).Error; err != nil {
			return report, apierrors.Internal("save history bookmark", err)
		}
		log.Debugw("History bookmark updated", "history_id", newHistoryID)
	}

	log.Infow("Email sync finished", "mode", report.Mode, "fetched", report.Fetched,
		"updated", report.Updated, "skipped", report.Skipped, "failed", report.Failed)
	s.Publisher.Publish(ctx, realtime.Event{Type: realtime.AutomationSyncCompleted, UserID: user.ID, Payload: report})
	return report, nil
}

// performFullSync scans the last 7 days and resets the history anchor.
func (s *EmailService) performFullSync(ctx context.Context) ([]string, uint64, error) {
	var resp *gmail.ListMessagesResponse
	err := s.retry(ctx, 3, func() error {
		var e error
		resp, e = s.GmailClient.Users.Messages.List("me").Q(fullSyncQuery).MaxResults(50).Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	profile, err := s.GmailClient.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, profile.HistoryId, nil
}

// performIncrementalSync walks every history page added since startID.
func (s *EmailService) performIncrementalSync(ctx context.Context, startID uint64) ([]string, uint64, error) {
	var ids []string
	var historyID uint64
	pageToken := ""
	for {
		var resp *gmail.ListHistoryResponse
		err := s.retry(ctx, 3, func() error {
			call := s.GmailClient.Users.History.List("me").
				StartHistoryId(startID).
				HistoryTypes("messageAdded").
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var e error
			resp, e = call.Do()
			return e
		})
		if err != nil {
			return nil, 0, err
		}

		for _, h := range resp.History {
			for _, m := range h.MessagesAdded {
				if m.Message != nil {
					ids = append(ids, m.Message.Id)
				}
			}
		}
		if resp.HistoryId > historyID {
			historyID = resp.HistoryId
		}
		if resp.NextPageToken == "" {
			return ids, historyID, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (s *EmailService) fetchMessage(ctx context.Context, id string) (*gmail.Message, error) {
	var msg *gmail.Message
	err := s.retry(ctx, 2, func() error {
		var e error
		msg, e = s.GmailClient.Users.Messages.Get("me", id).Context(ctx).Do()
		return e
	})
	return msg, err
}

// pendingRetries lists messages that failed in earlier cycles and still have attempts left.
func (s *EmailService) pendingRetries(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.ProcessedEmail{}).
		Where("status = ? AND attempts < ?", models.EmailFailed, maxEmailAttempts).
		Order("created_at").
		Pluck("id", &ids).Error
	return ids, err
}

// recordOutcome marks id done, or counts one more failed attempt.
func (s *EmailService) recordOutcome(ctx context.Context, prev models.ProcessedEmail, id, outcome string) error {
	row := models.ProcessedEmail{ID: id, Status: models.EmailDone, Attempts: prev.Attempts + 1}
	if outcome == outcomeFailed {
		row.Status = models.EmailFailed
		if row.Attempts >= maxEmailAttempts {
			s.Log.Errorw("Giving up on email after repeated failures", "message_id", id, "attempts", row.Attempts)
		}
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "attempts", "updated_at"}),
	}).Create(&row).Error
}

// mergeIDs appends fresh ids after retries, dropping repeats.
func mergeIDs(retries, fresh []string) []string {
	seen := make(map[string]struct{}, len(retries)+len(fresh))
	out := make([]string, 0, len(retries)+len(fresh))
	for _, id := range append(append([]string{}, retries...), fresh...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// processSingleEmail runs matching, disambiguation and classification for one
// message and applies the resulting status change.
func (s *EmailService) processSingleEmail(ctx context.Context, user *models.User, msg *gmail.Message) string {
	headers := parseHeaders(msg)
	subject := headers["Subject"]
	sender := headers["From"]
	log := s.Log.With("message_id", msg.Id, "subject", shorten(subject, 40))

	company, err := s.Matcher.FindCompanyFromEmail(ctx, user.ID, subject, sender)
	if err != nil {
		log.Errorw("company lookup failed", "error", err)
		return outcomeFailed
	}
	if company == nil {
		log.Debugw("Skipped: no tracked company matches", "from", sender)
		return outcomeNoCompany
	}

	db := s.DB.WithContext(ctx)
	var apps []models.Application
	err = db.Preload("Job").
		Where("profile_id IN (?)", ownedProfiles(db, user.ID)).
		Where("job_id IN (?)", db.Model(&models.Job{}).Select("id").Where("company_id = ?", company.ID)).
		Where("status NOT IN ?", models.TerminalStatuses).
		Find(&apps).Error
	if err != nil {
		log.Errorw("application lookup failed", "error", err)
		return outcomeFailed
	}
	if len(apps) == 0 {
		log.Debugw("Skipped: no open applications", "company", company.Name)
		return outcomeNoApplication
	}

	body := getEmailBody(msg)
	target := &apps[0]
	if len(apps) > 1 {
		titles := make([]string, len(apps))
		for i, a := range apps {
			titles[i] = a.Job.Title
		}
		idx, err := s.LLMService.IdentifyJobRole(ctx, titles, subject, body)
		if err != nil {
			log.Errorw("role disambiguation failed", "error", err)
			return outcomeFailed
		}
		if idx < 0 {
			log.Infow("Skipped: could not tell which role the email is about", "company", company.Name, "roles", titles)
			return outcomeAmbiguous
		}
		target = &apps[idx]
	}

	analysis, err := s.LLMService.AnalyzeEmailStatus(ctx, company.Name, subject, body)
	if err != nil {
		log.Errorw("email classification failed", "error", err)
		return outcomeFailed
	}
	log.Infow("Email classified", "status", analysis.Status, "summary", analysis.Summary, "application_id", target.ID)

	if analysis.Status == StatusNoChange || analysis.Status == StatusUnknown {
		return outcomeNoChange
	}

	details := fmt.Sprintf("Status changed to %s. Summary: %s", analysis.Status, analysis.Summary)
	changed, err := s.Applications.ChangeStatus(ctx, user.ID, target, analysis.Status, EventEmailUpdate, details)
	if err != nil {
		log.Errorw("failed to apply status change", "error", err)
		return outcomeFailed
	}
	if !changed {
		return outcomeNoChange
	}
	return outcomeUpdated
}

// retry runs f with exponential backoff. Expired-history errors return
// immediately so the caller can fall back to a full sync.
func (s *EmailService) retry(ctx context.Context, attempts int, f func() error) error {
	sleep := s.retrySleep
	var err error
	for i := 0; i < attempts; i++ {
		if err = f(); err == nil {
			return nil
		}
		if isHistoryExpiredError(err) {
			return err
		}
		if i < attempts-1 {
			s.Log.Warnw("Gmail API error, retrying", "error", err, "backoff", sleep)
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry interrupted: %w", errors.Join(err, ctx.Err()))
			case <-time.After(sleep):
			}
			sleep *= 2
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

func isHistoryExpiredError(err error) bool {
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusNotFound
}

func parseHeaders(msg *gmail.Message) map[string]string {
	res := make(map[string]string)
	if msg.Payload == nil {
		return res
	}
	for _, h := range msg.Payload.Headers {
		res[h.Name] = h.Value
	}
	return res
}

// getEmailBody prefers the single-part body, then text/plain, then text/html.
func getEmailBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		return decodeBody(msg.Payload.Body.Data)
	}
	for _, mime := range []string{"text/plain", "text/html"} {
		for _, part := range msg.Payload.Parts {
			if part.MimeType == mime && part.Body != nil && part.Body.Data != "" {
				return decodeBody(part.Body.Data)
			}
		}
	}
	return ""
}

// decodeBody accepts both padded and unpadded URL-safe base64.
func decodeBody(data string) string {
	if d, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(d)
	}
	d, _ := base64.RawURLEncoding.DecodeString(data)
	return string(d)
}

// shorten truncates s to n runes.
func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
