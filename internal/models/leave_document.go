package models

import "time"

const DocumentKindMedicalCertificate = "medical_certificate"

// LeaveDocument references a file held by the document store. Bytes never live here.
type LeaveDocument struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	LeaveRequestID string    `gorm:"type:varchar(36);not null;index" json:"leave_request_id"`
	Kind           string    `gorm:"type:varchar(40);not null" json:"kind"`
	FileName       string    `gorm:"not null" json:"file_name"`
	ContentType    string    `json:"content_type,omitempty"`
	UploadedBy     uint      `json:"uploaded_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func (LeaveDocument) TableName() string {
	return "leave_documents"
}
