package models

// DocumentChunks is one source document already split into chunks.
type DocumentChunks struct {
	SourceFile string   `json:"source_file"`
	Chunks     []string `json:"chunks"`
}

// IngestRequest is the body of POST /api/ingest/documents.
type IngestRequest struct {
	Documents []DocumentChunks `json:"documents"`
}

// IngestResult summarises an ingestion run.
type IngestResult struct {
	TotalDocumentsIngested int      `json:"total_documents_ingested"`
	TotalChunksCreated     int      `json:"total_chunks_created"`
	DocumentIDs            []string `json:"document_ids"`
	Message                string   `json:"message"`
}

// Chunk metadata keys stored alongside every indexed chunk.
const (
	MetadataSourceFile = "source_file"
	MetadataChunkIndex = "chunk_index"
)
