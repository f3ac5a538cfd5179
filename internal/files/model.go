package files

import "time"

type Category string

const (
	CategoryDocument Category = "document"
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryArchive  Category = "archive"
)

// SharedFile is the metadata of a file shared between staff. The bytes
// themselves never pass through the service.
type SharedFile struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"` // lower-case extension
	Category      Category   `json:"category"`
	Size          int64      `json:"size"`
	SenderID      string     `json:"sender_id"`
	SenderName    string     `json:"sender_name"`
	RecipientIDs  []string   `json:"recipient_ids"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	DownloadCount int        `json:"download_count"`
	IsDownloaded  bool       `json:"is_downloaded"`
	Description   string     `json:"description,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

func (f *SharedFile) involves(staffID string) bool {
	if f.SenderID == staffID {
		return true
	}
	for _, id := range f.RecipientIDs {
		if id == staffID {
			return true
		}
	}
	return false
}

type Action string

const (
	ActionUploaded   Action = "uploaded"
	ActionDownloaded Action = "downloaded"
	ActionViewed     Action = "viewed"
	ActionShared     Action = "shared"
	ActionDeleted    Action = "deleted"
)

type Activity struct {
	ID          string    `json:"id"`
	FileID      string    `json:"file_id"`
	FileName    string    `json:"file_name"`
	Action      Action    `json:"action"`
	PerformedBy string    `json:"performed_by"`
	PerformedAt time.Time `json:"performed_at"`
}

type DashboardStats struct {
	TotalFiles       int        `json:"total_files"`
	TotalReceived    int        `json:"total_received"`
	TotalSent        int        `json:"total_sent"`
	StorageUsed      int64      `json:"storage_used"`
	StorageUsedLabel string     `json:"storage_used_label"`
	RecentActivity   []Activity `json:"recent_activity"`
}

type UploadRequest struct {
	Name           string   `json:"name" validate:"required"`
	Size           int64    `json:"size" validate:"gte=0"`
	RecipientIDs   []string `json:"recipient_ids"`
	Description    string   `json:"description,omitempty" validate:"max=500"`
	ExpiresInHours int      `json:"expires_in_hours,omitempty" validate:"gte=0"`
}

type ShareRequest struct {
	RecipientIDs []string `json:"recipient_ids" validate:"required,min=1"`
}
