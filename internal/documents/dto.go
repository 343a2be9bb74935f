package documents

import "time"

// DocumentResponse is the outward-facing representation of a document. Raw
// content never leaves the store.
type DocumentResponse struct {
	DocumentID string      `json:"documentId"`
	FileName   string      `json:"fileName"`
	MimeType   string      `json:"mimeType"`
	SizeBytes  int64       `json:"sizeBytes"`
	Status     string      `json:"status"`
	UploadedAt time.Time   `json:"uploadedAt"`
	AnalyzedAt *time.Time  `json:"analyzedAt,omitempty"`
	Processing *Processing `json:"processing,omitempty"`
}

// AdmissionResponse is returned from a successful upload.
type AdmissionResponse struct {
	DocumentID   string  `json:"documentId"`
	Status       string  `json:"status"`
	DocumentType string  `json:"documentType,omitempty"`
	Confidence   float64 `json:"confidence"`
	Message      string  `json:"message,omitempty"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID: doc.ID,
		FileName:   doc.OriginalFilename,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		Status:     doc.Status,
		UploadedAt: doc.UploadedAt,
		AnalyzedAt: doc.AnalyzedAt,
		Processing: doc.Processing,
	}
}
