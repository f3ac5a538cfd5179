package files

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartsender/internal/apperr"
	"smartsender/internal/metrics"
	"smartsender/internal/staff"
	"smartsender/internal/store"
)

const (
	DefaultActivityLimit = 10
	dashboardActivity    = 5
)

type StaffDirectory interface {
	Get(ctx context.Context, id string) (*staff.Staff, error)
}

type Service struct {
	files      *store.Collection[SharedFile]
	activities *store.Collection[Activity]
	staff      StaffDirectory
	metrics    *metrics.Metrics
	log        *zap.Logger
	now        func() time.Time
}

func NewService(st *store.Store, dir StaffDirectory, m *metrics.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		files:      store.NewCollection[SharedFile](st, store.KeyFiles, nil),
		activities: store.NewCollection[Activity](st, store.KeyActivity, nil),
		staff:      dir,
		metrics:    m,
		log:        log.Named("files"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Upload registers a shared file from senderID to the listed recipients.
func (s *Service) Upload(ctx context.Context, senderID string, req *UploadRequest) (*SharedFile, error) {
	if err := Validate(req.Name, req.Size); err != nil {
		return nil, err
	}
	recipients, err := s.recipients(ctx, senderID, req.RecipientIDs)
	if err != nil {
		return nil, err
	}
	sender, err := s.staff.Get(ctx, senderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ext := Extension(req.Name)
	f := SharedFile{
		ID:           "file-" + uuid.NewString(),
		Name:         req.Name,
		Type:         ext,
		Category:     CategoryOf(ext),
		Size:         req.Size,
		SenderID:     sender.ID,
		SenderName:   sender.FullName(),
		RecipientIDs: recipients,
		UploadedAt:   now,
		Description:  strings.TrimSpace(req.Description),
	}
	if req.ExpiresInHours > 0 {
		exp := now.Add(time.Duration(req.ExpiresInHours) * time.Hour)
		f.ExpiresAt = &exp
	}

	err = s.files.Update(ctx, func(items []SharedFile) ([]SharedFile, error) {
		return append([]SharedFile{f}, items...), nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, f, ActionUploaded, f.SenderName)
	s.metrics.FileUploaded()
	return &f, nil
}

// recipients validates and de-duplicates the recipient list.
func (s *Service) recipients(ctx context.Context, senderID string, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] || id == senderID {
			continue
		}
		if _, err := s.staff.Get(ctx, id); err != nil {
			return nil, apperr.Validation("Unknown recipient " + id)
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, apperr.Validation("Select at least one recipient")
	}
	return out, nil
}

// Download counts a download of fileID by staffID, who must be its sender
// or a recipient.
func (s *Service) Download(ctx context.Context, fileID, staffID string) (*SharedFile, error) {
	who, err := s.staff.Get(ctx, staffID)
	if err != nil {
		return nil, err
	}
	var out SharedFile
	err = s.files.Update(ctx, func(items []SharedFile) ([]SharedFile, error) {
		for i := range items {
			if items[i].ID != fileID {
				continue
			}
			if !items[i].involves(staffID) {
				return nil, apperr.Forbidden("You do not have access to this file")
			}
			items[i].DownloadCount++
			items[i].IsDownloaded = true
			out = items[i]
			return items, nil
		}
		return nil, apperr.NotFound("File not found")
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, out, ActionDownloaded, who.FullName())
	s.metrics.FileDownloaded()
	return &out, nil
}

// Share adds recipients to a file the sender owns.
func (s *Service) Share(ctx context.Context, fileID, staffID string, ids []string) (*SharedFile, error) {
	who, err := s.staff.Get(ctx, staffID)
	if err != nil {
		return nil, err
	}
	add, err := s.recipients(ctx, staffID, ids)
	if err != nil {
		return nil, err
	}
	var out SharedFile
	err = s.files.Update(ctx, func(items []SharedFile) ([]SharedFile, error) {
		for i := range items {
			if items[i].ID != fileID {
				continue
			}
			if items[i].SenderID != staffID {
				return nil, apperr.Forbidden("Only the sender can share this file")
			}
			for _, id := range add {
				if !items[i].involves(id) {
					items[i].RecipientIDs = append(items[i].RecipientIDs, id)
				}
			}
			out = items[i]
			return items, nil
		}
		return nil, apperr.NotFound("File not found")
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, out, ActionShared, who.FullName())
	return &out, nil
}

func (s *Service) Get(ctx context.Context, fileID string) (*SharedFile, error) {
	for _, f := range s.files.Load(ctx) {
		if f.ID == fileID {
			return &f, nil
		}
	}
	return nil, apperr.NotFound("File not found")
}

// View returns a file the caller is involved in and logs the view.
func (s *Service) View(ctx context.Context, fileID, staffID string) (*SharedFile, error) {
	f, err := s.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !f.involves(staffID) {
		return nil, apperr.Forbidden("You do not have access to this file")
	}
	name := staffID
	if who, err := s.staff.Get(ctx, staffID); err == nil {
		name = who.FullName()
	}
	s.record(ctx, *f, ActionViewed, name)
	return f, nil
}

// All returns every shared file, newest first.
func (s *Service) All(ctx context.Context) []SharedFile {
	return s.files.Load(ctx)
}

func (s *Service) Received(ctx context.Context, staffID string) []SharedFile {
	out := []SharedFile{}
	for _, f := range s.files.Load(ctx) {
		for _, id := range f.RecipientIDs {
			if id == staffID {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func (s *Service) Sent(ctx context.Context, staffID string) []SharedFile {
	out := []SharedFile{}
	for _, f := range s.files.Load(ctx) {
		if f.SenderID == staffID {
			out = append(out, f)
		}
	}
	return out
}

// RecentActivities returns the newest activities; limit <= 0 means the default.
func (s *Service) RecentActivities(ctx context.Context, limit int) []Activity {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	all := s.activities.Load(ctx)
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func (s *Service) Stats(ctx context.Context, staffID string) DashboardStats {
	all := s.files.Load(ctx)
	var used int64
	for _, f := range all {
		used += f.Size
	}
	return DashboardStats{
		TotalFiles:       len(all),
		TotalReceived:    len(s.Received(ctx, staffID)),
		TotalSent:        len(s.Sent(ctx, staffID)),
		StorageUsed:      used,
		StorageUsedLabel: humanize.IBytes(uint64(used)),
		RecentActivity:   s.RecentActivities(ctx, dashboardActivity),
	}
}

// Delete removes a file on an administrator's behalf. Its earlier
// activities stay in the feed.
func (s *Service) Delete(ctx context.Context, fileID, staffID string) error {
	var removed SharedFile
	err := s.files.Update(ctx, func(items []SharedFile) ([]SharedFile, error) {
		for i := range items {
			if items[i].ID == fileID {
				removed = items[i]
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, apperr.NotFound("File not found")
	})
	if err != nil {
		return err
	}
	name := staffID
	if who, err := s.staff.Get(ctx, staffID); err == nil {
		name = who.FullName()
	}
	s.record(ctx, removed, ActionDeleted, name)
	s.log.Info("file deleted", zap.String("file_id", fileID), zap.String("by", staffID))
	return nil
}

// PurgeExpired drops every file whose expiry is at or before now and
// returns how many were removed.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	err := s.files.Update(ctx, func(items []SharedFile) ([]SharedFile, error) {
		kept := items[:0]
		for _, f := range items {
			if f.ExpiresAt != nil && !f.ExpiresAt.After(now) {
				removed++
				continue
			}
			kept = append(kept, f)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.FilesExpired(removed)
	return removed, nil
}

// record prepends an activity. The file operation already succeeded, so a
// failure here is only logged.
func (s *Service) record(ctx context.Context, f SharedFile, action Action, by string) {
	act := Activity{
		ID:          "act-" + uuid.NewString(),
		FileID:      f.ID,
		FileName:    f.Name,
		Action:      action,
		PerformedBy: by,
		PerformedAt: s.now(),
	}
	err := s.activities.Update(ctx, func(items []Activity) ([]Activity, error) {
		return append([]Activity{act}, items...), nil
	})
	if err != nil {
		s.log.Warn("could not record file activity",
			zap.String("file_id", f.ID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}
