package dto

type UploadDocumentResponse struct {
	SessionId string `json:"session_id"`
	Filename  string `json:"filename"`
	JobId     string `json:"job_id"`
}

// IngestDocumentMessage is the payload of an ingest job on the internal queue
type IngestDocumentMessage struct {
	JobId     string `json:"job_id"`
	SessionId string `json:"session_id"`
	Filename  string `json:"filename"`
	Path      string `json:"path"`
}
